// Package batch reads the list of competências to process and writes the
// example batch file offered to operators.
package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Column names of the batch file.
const (
	ColYear   = "ano"
	ColMonth  = "mes"
	ColAmount = "valor"
)

// DefaultTemplateName is the file name suggested for the example batch.
const DefaultTemplateName = "modelo_meses.csv"

var ErrMissingColumn = errors.New("coluna obrigatória ausente")

// Item is one competência to process. Values are kept as written in the
// file (month stays zero-padded, amount is not reformatted).
type Item struct {
	Year   string
	Month  string
	Amount string
}

// Period renders the competência as MM/YYYY.
func (it Item) Period() string {
	return it.Month + "/" + it.Year
}

// Load reads a batch file from disk.
func Load(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("erro ao carregar CSV: %w", err)
	}
	defer f.Close()

	items, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("erro ao carregar CSV: %w", err)
	}
	return items, nil
}

// Read parses a batch table. Columns are matched by header name, extra
// columns are ignored, and rows are returned in file order.
func Read(r io.Reader) ([]Item, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	idx := map[string]int{}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	cols := make([]int, 0, 3)
	for _, name := range []string{ColYear, ColMonth, ColAmount} {
		i, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		cols = append(cols, i)
	}

	var items []Item
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return items, nil
		}
		if err != nil {
			return nil, err
		}
		field := func(i int) (string, error) {
			if cols[i] >= len(rec) {
				return "", fmt.Errorf("linha %d: faltam colunas", line)
			}
			return strings.TrimSpace(rec[cols[i]]), nil
		}
		year, err := field(0)
		if err != nil {
			return nil, err
		}
		month, err := field(1)
		if err != nil {
			return nil, err
		}
		amount, err := field(2)
		if err != nil {
			return nil, err
		}
		items = append(items, Item{Year: year, Month: month, Amount: amount})
	}
}

// WriteTemplate writes the header plus three illustrative rows.
func WriteTemplate(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	rows := [][]string{
		{ColYear, ColMonth, ColAmount},
		{"2006", "01", "300"},
		{"2006", "02", "350"},
		{"2006", "03", "400"},
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("erro ao criar arquivo: %w", err)
	}
	return nil
}

// CreateTemplate writes the example batch file at path.
func CreateTemplate(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("erro ao criar arquivo: %w", err)
	}
	if err := WriteTemplate(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
