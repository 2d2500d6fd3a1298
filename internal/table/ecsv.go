package table

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ECSV: a YAML header carried in comment lines, followed by a
// space-delimited CSV body. Only the header subset this tool produces and
// consumes is supported (versioned banner plus per-column datatypes).

const ecsvBanner = "%ECSV 1.0"

type ecsvHeader struct {
	Datatype []ecsvColumn `yaml:"datatype"`
}

type ecsvColumn struct {
	Name     string `yaml:"name"`
	Datatype string `yaml:"datatype"`
}

// WriteECSV writes the whole table to path, replacing any existing file.
func WriteECSV(t *Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	w := bufio.NewWriter(f)
	if err := writeECSVHeader(w, t); err != nil {
		return err
	}
	if err := writeECSVRows(w, t); err != nil {
		return err
	}
	return w.Flush()
}

// AppendECSVRows appends the rows of t to an existing ECSV file without
// repeating the header. The caller guarantees the schema matches.
func AppendECSVRows(t *Table, path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening %s for append: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	w := bufio.NewWriter(f)
	if err := writeECSVRows(w, t); err != nil {
		return err
	}
	return w.Flush()
}

func writeECSVHeader(w io.Writer, t *Table) error {
	hdr := ecsvHeader{}
	for _, name := range t.Names() {
		c, _ := t.Column(name)
		hdr.Datatype = append(hdr.Datatype, ecsvColumn{
			Name:     c.Name,
			Datatype: c.Kind.String(),
		})
	}
	raw, err := yaml.Marshal(hdr)
	if err != nil {
		return fmt.Errorf("encoding ECSV header: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n# ---\n", ecsvBanner)
	for line := range strings.Lines(string(raw)) {
		b.WriteString("# ")
		b.WriteString(line)
	}
	// column names row
	b.WriteString(strings.Join(t.Names(), " "))
	b.WriteString("\n")

	_, err = io.WriteString(w, b.String())
	return err
}

func writeECSVRows(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	cw.Comma = ' '

	record := make([]string, len(t.cols))
	for row := range t.Len() {
		for i, c := range t.cols {
			switch c.Kind {
			case Float64:
				record[i] = strconv.FormatFloat(c.F[row], 'g', -1, 64)
			case Int64:
				record[i] = strconv.FormatInt(c.I[row], 10)
			case String:
				record[i] = c.S[row]
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadECSV reads a table written by WriteECSV (plus any appended row
// chunks). Column kinds come from the header datatype list.
func ReadECSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	return readECSV(f)
}

func readECSV(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)

	var headerLines []string
	sawBanner := false
	for {
		peek, err := br.Peek(1)
		if err != nil {
			return nil, fmt.Errorf("reading ECSV header: %w", io.ErrUnexpectedEOF)
		}
		if peek[0] != '#' {
			break
		}
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimPrefix(line, "#")
		line = strings.TrimPrefix(line, " ")
		if strings.HasPrefix(line, "%ECSV") {
			sawBanner = true
			continue
		}
		if line == "---" {
			continue
		}
		headerLines = append(headerLines, line)
	}
	if !sawBanner {
		return nil, fmt.Errorf("not an ECSV file: missing %q banner", ecsvBanner)
	}

	var hdr ecsvHeader
	if err := yaml.Unmarshal([]byte(strings.Join(headerLines, "\n")), &hdr); err != nil {
		return nil, fmt.Errorf("decoding ECSV header: %w", err)
	}
	if len(hdr.Datatype) == 0 {
		return nil, fmt.Errorf("ECSV header has no datatype list")
	}

	cr := csv.NewReader(br)
	cr.Comma = ' '
	cr.FieldsPerRecord = len(hdr.Datatype)

	// first body line repeats the column names
	names, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading ECSV column names: %w", err)
	}
	for i, hc := range hdr.Datatype {
		if names[i] != hc.Name {
			return nil, fmt.Errorf("ECSV column %d is %q, header says %q", i, names[i], hc.Name)
		}
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading ECSV rows: %w", err)
	}

	out := New()
	for i, hc := range hdr.Datatype {
		switch hc.Datatype {
		case "float64", "float32":
			vals := make([]float64, len(records))
			for j, rec := range records {
				vals[j], err = strconv.ParseFloat(rec[i], 64)
				if err != nil {
					return nil, fmt.Errorf("column %q row %d: %w", hc.Name, j, err)
				}
			}
			out.AddFloats(hc.Name, vals)
		case "int64", "int32", "int16", "int8":
			vals := make([]int64, len(records))
			for j, rec := range records {
				vals[j], err = strconv.ParseInt(rec[i], 10, 64)
				if err != nil {
					return nil, fmt.Errorf("column %q row %d: %w", hc.Name, j, err)
				}
			}
			out.AddInts(hc.Name, vals)
		default:
			vals := make([]string, len(records))
			for j, rec := range records {
				vals[j] = rec[i]
			}
			out.AddStrings(hc.Name, vals)
		}
	}
	return out, nil
}
