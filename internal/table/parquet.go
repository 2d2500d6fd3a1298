package table

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
)

// WriteParquet writes the table to path as a single row group, replacing
// any existing file. The schema is derived from the column kinds.
func WriteParquet(t *Table, path string) error {
	group := parquet.Group{}
	for _, name := range t.Names() {
		c, _ := t.Column(name)
		switch c.Kind {
		case Float64:
			group[name] = parquet.Leaf(parquet.DoubleType)
		case Int64:
			group[name] = parquet.Leaf(parquet.Int64Type)
		case String:
			group[name] = parquet.String()
		}
	}
	schema := parquet.NewSchema("catalog", group)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	w := parquet.NewGenericWriter[map[string]any](f, schema)
	rows := make([]map[string]any, t.Len())
	for i := range rows {
		row := make(map[string]any, len(t.cols))
		for _, c := range t.cols {
			switch c.Kind {
			case Float64:
				row[c.Name] = c.F[i]
			case Int64:
				row[c.Name] = c.I[i]
			case String:
				row[c.Name] = c.S[i]
			}
		}
		rows[i] = row
	}
	if _, err := w.Write(rows); err != nil {
		return fmt.Errorf("writing parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing parquet writer: %w", err)
	}
	return nil
}

// ReadParquet reads a parquet file into a table. Column order follows the
// file schema; double, int and byte-array columns map to the table kinds.
func ReadParquet(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("opening parquet %s: %w", path, err)
	}

	schema := pf.Schema()
	fields := schema.Fields()

	r := parquet.NewGenericReader[map[string]any](pf, schema)
	defer func() {
		_ = r.Close()
	}()

	rows := make([]map[string]any, pf.NumRows())
	for i := range rows {
		rows[i] = make(map[string]any)
	}
	for read := 0; read < len(rows); {
		n, err := r.Read(rows[read:])
		read += n
		if err != nil {
			if read == len(rows) {
				break
			}
			return nil, fmt.Errorf("reading parquet rows: %w", err)
		}
	}

	out := New()
	for _, field := range fields {
		name := field.Name()
		leaf, _ := schema.Lookup(name)
		switch leaf.Node.Type().Kind() {
		case parquet.Double, parquet.Float:
			vals := make([]float64, len(rows))
			for i, row := range rows {
				switch v := row[name].(type) {
				case float64:
					vals[i] = v
				case float32:
					vals[i] = float64(v)
				}
			}
			out.AddFloats(name, vals)
		case parquet.Int64, parquet.Int32:
			vals := make([]int64, len(rows))
			for i, row := range rows {
				switch v := row[name].(type) {
				case int64:
					vals[i] = v
				case int32:
					vals[i] = int64(v)
				}
			}
			out.AddInts(name, vals)
		default:
			vals := make([]string, len(rows))
			for i, row := range rows {
				switch v := row[name].(type) {
				case string:
					vals[i] = v
				case []byte:
					vals[i] = string(v)
				}
			}
			out.AddStrings(name, vals)
		}
	}
	return out, nil
}
