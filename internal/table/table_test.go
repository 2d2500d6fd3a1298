package table_test

import (
	"path/filepath"
	"testing"

	"github.com/roman-dr/drsim/internal/model"
	"github.com/roman-dr/drsim/internal/table"
	"github.com/stretchr/testify/require"
)

func sample() *table.Table {
	return table.New().
		AddFloats("ra", []float64{10.00001, 10.00002, 350.5}).
		AddFloats("dec", []float64{20.00001, 20.00002, -45.25}).
		AddFloats("F062", []float64{1.5, 2.5, 3.5}).
		AddStrings("label", []string{"galaxy_1", "ref_star_1", "filler star 1"})
}

func TestVstack(t *testing.T) {
	t.Parallel()

	a := sample()
	b := sample()
	out, err := table.Vstack(a, b)
	require.NoError(t, err)
	require.Equal(t, 6, out.Len())
	require.Equal(t, []string{"ra", "dec", "F062", "label"}, out.Names())
	require.Equal(t, 350.5, out.Floats("ra")[2])
	require.Equal(t, 10.00001, out.Floats("ra")[3])
}

func TestVstack_SchemaMismatch(t *testing.T) {
	t.Parallel()

	a := sample()
	b := table.New().
		AddFloats("ra", []float64{1}).
		AddFloats("dec", []float64{2})
	_, err := table.Vstack(a, b)
	require.ErrorIs(t, err, model.ErrSchemaMismatch)
}

func TestSelectAndSlice(t *testing.T) {
	t.Parallel()

	s := sample().Select([]int{2, 0})
	require.Equal(t, 2, s.Len())
	require.Equal(t, []float64{350.5, 10.00001}, s.Floats("ra"))
	require.Equal(t, []string{"filler star 1", "galaxy_1"}, s.Strings("label"))

	sl := sample().Slice(1, 3)
	require.Equal(t, 2, sl.Len())
	require.Equal(t, []float64{10.00002, 350.5}, sl.Floats("ra"))
}

func TestECSVRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cat.ecsv")
	orig := sample()
	require.NoError(t, table.WriteECSV(orig, path))

	got, err := table.ReadECSV(path)
	require.NoError(t, err)
	require.Equal(t, orig.Names(), got.Names())
	require.Equal(t, orig.Floats("ra"), got.Floats("ra"))
	require.Equal(t, orig.Floats("dec"), got.Floats("dec"))
	require.Equal(t, orig.Floats("F062"), got.Floats("F062"))
	require.Equal(t, orig.Strings("label"), got.Strings("label"))
}

func TestECSVAppend(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cat.ecsv")
	orig := sample()
	require.NoError(t, table.WriteECSV(orig.Slice(0, 1), path))
	require.NoError(t, table.AppendECSVRows(orig.Slice(1, 3), path))

	got, err := table.ReadECSV(path)
	require.NoError(t, err)
	require.Equal(t, 3, got.Len())
	require.Equal(t, orig.Floats("ra"), got.Floats("ra"))
	require.Equal(t, orig.Strings("label"), got.Strings("label"))
}

func TestParquetRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cat.parquet")
	orig := sample()
	require.NoError(t, table.WriteParquet(orig, path))

	got, err := table.ReadParquet(path)
	require.NoError(t, err)
	require.Equal(t, orig.Len(), got.Len())
	require.Equal(t, orig.Floats("ra"), got.Floats("ra"))
	require.Equal(t, orig.Strings("label"), got.Strings("label"))
}

func TestSetFloats(t *testing.T) {
	t.Parallel()

	tab := sample()
	require.NoError(t, tab.SetFloats("F062", []float64{9, 8, 7}))
	require.Equal(t, []float64{9, 8, 7}, tab.Floats("F062"))

	require.Error(t, tab.SetFloats("nope", []float64{1}))
	require.Error(t, tab.SetFloats("label", []float64{1, 2, 3}))
	require.Error(t, tab.SetFloats("F062", []float64{1}))
}
