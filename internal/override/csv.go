package override

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ExportDelimiter is the column separator used when writing override CSV.
// Imports also accept comma-delimited files.
const ExportDelimiter = ';'

var csvHeader = []string{"sku", "position"}

// ErrMissingHeader indicates a CSV file without the required header row.
var ErrMissingHeader = errors.New("csv header row with sku and position columns is required")

// CSVRow is one export line: every product of the category appears, and
// Position is nil for products a curator has not pinned.
type CSVRow struct {
	SKU      string
	Position *int
}

// WriteCSV writes a full category listing as semicolon-delimited CSV with a
// header row. Uncurated products get an empty position cell so the file can
// be edited and re-imported as-is. Rows are written in the order given;
// callers pass them already ranked.
func WriteCSV(w io.Writer, rows []CSVRow) error {
	cw := csv.NewWriter(w)
	cw.Comma = ExportDelimiter

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		pos := ""
		if row.Position != nil {
			pos = strconv.Itoa(*row.Position)
		}
		if err := cw.Write([]string{row.SKU, pos}); err != nil {
			return fmt.Errorf("write csv row for %s: %w", row.SKU, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ParseCSV reads an override CSV for one category. The delimiter is
// detected from the header row (semicolon or comma), the header is
// mandatory, and column order follows the header so curators can reorder
// or add columns without breaking imports. Rows with an empty position cell
// are uncurated export lines and are skipped, so a full export re-imports
// cleanly. Returns one record per curated row; duplicate SKUs keep the last
// row, matching upsert semantics.
func ParseCSV(r io.Reader, categoryID int64) ([]Override, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = detectDelimiter(data)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	skuCol, posCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF"))) {
		case "sku":
			skuCol = i
		case "position":
			posCol = i
		}
	}
	if skuCol < 0 || posCol < 0 {
		return nil, ErrMissingHeader
	}

	var (
		out   []Override
		index = make(map[string]int)
		line  = 1
	)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) <= skuCol || len(record) <= posCol {
			return nil, fmt.Errorf("line %d: expected at least %d columns", line, max(skuCol, posCol)+1)
		}

		sku := strings.TrimSpace(record[skuCol])
		if sku == "" {
			return nil, fmt.Errorf("line %d: empty sku", line)
		}
		rawPos := strings.TrimSpace(record[posCol])
		if rawPos == "" {
			// Uncurated row from a full export.
			continue
		}
		pos, err := strconv.Atoi(rawPos)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid position %q", line, record[posCol])
		}

		o := Override{SKU: sku, CategoryID: categoryID, Position: pos}
		if err := o.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if at, ok := index[sku]; ok {
			out[at] = o
			continue
		}
		index[sku] = len(out)
		out = append(out, o)
	}
	return out, nil
}

// detectDelimiter inspects the first line of the file. Semicolon wins when
// both separators appear, since SKUs never contain semicolons but product
// feeds sometimes embed commas.
func detectDelimiter(data []byte) rune {
	firstLine := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		firstLine = data[:i]
	}
	if bytes.ContainsRune(firstLine, ExportDelimiter) {
		return ExportDelimiter
	}
	return ','
}
