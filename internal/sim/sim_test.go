package sim_test

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/roman-dr/drsim/internal/plan"
	"github.com/roman-dr/drsim/internal/sim"
	"github.com/stretchr/testify/require"
)

var job = plan.ImageJob{
	RA:            270.0,
	Dec:           66.0,
	Roll:          15.5,
	SCA:           8,
	Bandpass:      "F106",
	MATableNumber: 109,
	Catalog:       "input_cat.ecsv",
	Output:        "r101001001001001_0001_wfi08_f106_uncal.asdf",
}

func TestArgs(t *testing.T) {
	t.Parallel()

	s := sim.New("romanisim-make-image")
	require.Equal(t, []string{
		"--radec", "270", "66",
		"--level", "1",
		"--sca", "8",
		"--bandpass", "F106",
		"--roll", "15.5",
		"--catalog", "input_cat.ecsv",
		"--stpsf",
		"--ma_table_number", "109",
		"--date", "2027-06-01T00:00:00",
		"--rng_seed", "1",
		"--usecrds",
		"--drop-extra-dq",
		job.Output,
	}, s.Args(job))
}

func TestArgs_Options(t *testing.T) {
	t.Parallel()

	s := sim.New("simbin",
		sim.WithLevel(2),
		sim.WithDate("2028-01-01T00:00:00"),
		sim.WithRNGSeed(7),
		sim.WithoutSTPSF(),
		sim.WithoutCRDS(),
		sim.WithoutDropExtraDQ(),
	)
	args := s.Args(job)
	require.NotContains(t, args, "--stpsf")
	require.NotContains(t, args, "--usecrds")
	require.NotContains(t, args, "--drop-extra-dq")
	require.Contains(t, args, "2028-01-01T00:00:00")
	require.Contains(t, args, "7")
	require.Equal(t, job.Output, args[len(args)-1])
}

func TestArgs_MATableNumber(t *testing.T) {
	t.Parallel()

	maTable := func(s sim.Simulator, j plan.ImageJob) string {
		args := s.Args(j)
		return args[slices.Index(args, "--ma_table_number")+1]
	}

	// the job's value wins over the configured fallback
	require.Equal(t, "109", maTable(sim.New("simbin", sim.WithMATableNumber(17)), job))

	// a job without one falls back to the configured number
	j := job
	j.MATableNumber = 0
	require.Equal(t, "17", maTable(sim.New("simbin", sim.WithMATableNumber(17)), j))
	require.Equal(t, "109", maTable(sim.New("simbin"), j))
}

// fakeSimulator writes a small script standing in for the real binary.
func fakeSimulator(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-sim")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return path
}

func TestRun_Success(t *testing.T) {
	t.Parallel()

	s := sim.New(fakeSimulator(t, "echo simulated\nexit 0\n"))
	res, err := s.Run(t.Context(), job)
	require.NoError(t, err)
	require.False(t, res.Failed())
	require.Equal(t, 0, res.ExitCode)
	require.Contains(t, res.Stdout, "simulated")
	require.Equal(t, job.Output, res.Output)
}

func TestRun_NonZeroExit(t *testing.T) {
	t.Parallel()

	s := sim.New(fakeSimulator(t, "echo kaboom >&2\nexit 3\n"))
	res, err := s.Run(t.Context(), job)
	require.NoError(t, err, "exit codes are result data, not errors")
	require.True(t, res.Failed())
	require.Equal(t, 3, res.ExitCode)
	require.Contains(t, res.Stderr, "kaboom")
}

func TestRun_MissingBinary(t *testing.T) {
	t.Parallel()

	s := sim.New(filepath.Join(t.TempDir(), "does-not-exist"))
	_, err := s.Run(t.Context(), job)
	require.Error(t, err)
}
