package sheet

import (
	"encoding/csv"
	"io"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// Parse reads the first sheet of an xlsx workbook or a csv file
func Parse(r io.Reader, format Format) (*Table, error) {
	var (
		records [][]string
		err     error
	)

	switch format {
	case FormatCSV:
		records, err = readCSV(r)
	case FormatXLSX:
		records, err = readXLSX(r)
	default:
		return nil, errors.New(ErrUnsupportedFormat, "unsupported file format", nil).AddContext("format", string(format))
	}
	if err != nil {
		return nil, err
	}
	return fromRecords(records)
}

// Write renders a header row followed by rows
func Write(w io.Writer, format Format, headers []string, rows [][]string) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, headers, rows)
	case FormatXLSX:
		return writeXLSX(w, headers, rows)
	}
	return errors.New(ErrUnsupportedFormat, "unsupported file format", nil).AddContext("format", string(format))
}

// Template renders headers plus a single example row
func Template(w io.Writer, format Format, headers, examples []string) error {
	example := make([]string, len(headers))
	copy(example, examples)
	return Write(w, format, headers, [][]string{example})
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.New(ErrParseFailed, "failed to parse csv", err)
	}
	return records, nil
}

func writeCSV(w io.Writer, headers []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return errors.New(ErrWriteFailed, "failed to write csv header", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return errors.New(ErrWriteFailed, "failed to write csv rows", err)
	}
	return nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.New(ErrParseFailed, "failed to open workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New(ErrMissingHeader, "workbook has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.New(ErrParseFailed, "failed to read sheet", err).AddContext("sheet", sheets[0])
	}
	return rows, nil
}

func writeXLSX(w io.Writer, headers []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(f.GetSheetName(0))
	if err != nil {
		return errors.New(ErrWriteFailed, "failed to create sheet writer", err)
	}

	writeRow := func(n int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, n)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(values))
		for i, v := range values {
			row[i] = v
		}
		return sw.SetRow(cell, row)
	}

	if err := writeRow(1, headers); err != nil {
		return errors.New(ErrWriteFailed, "failed to write header row", err)
	}
	for i, values := range rows {
		if err := writeRow(i+2, values); err != nil {
			return errors.Newf(ErrWriteFailed, "failed to write row %d", i+1).WithCause(err)
		}
	}
	if err := sw.Flush(); err != nil {
		return errors.New(ErrWriteFailed, "failed to flush sheet", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return errors.New(ErrWriteFailed, "failed to write workbook", err)
	}
	return nil
}
