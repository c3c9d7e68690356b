package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// MaxFileSize is the default upload size limit (50MB).
var MaxFileSize int64 = 50 * 1024 * 1024

// MaxRows is the default row limit for one table.
var MaxRows = 1_000_000

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseOptions controls how an uploaded file becomes a Table.
type ParseOptions struct {
	Name    string // original file name, used for format detection and export names
	MaxRows int    // 0 means MaxRows
}

func (o ParseOptions) maxRows() int {
	if o.MaxRows > 0 {
		return o.MaxRows
	}
	return MaxRows
}

// FileFormat is a supported upload format.
type FileFormat string

const (
	FormatCSV  FileFormat = "csv"
	FormatXLSX FileFormat = "xlsx"
)

// DetectFormat picks the format from a file name's extension.
// Names without an extension are read as CSV.
func DetectFormat(name string) (FileFormat, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", "":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// ParseFile reads an upload in whichever format its name indicates.
func ParseFile(r io.Reader, opts ParseOptions) (*Table, error) {
	format, err := DetectFormat(opts.Name)
	if err != nil {
		return nil, err
	}
	if format == FormatXLSX {
		return ParseXLSX(r, opts)
	}
	return ParseCSV(r, opts)
}

// ParseCSV reads comma-separated text with a header row.
//
// A UTF-8 BOM is dropped and invalid UTF-8 is replaced with U+FFFD. Rows with
// fewer fields than the header are padded with empty cells; rows with more
// are a ParseError. A header without data rows is a valid empty table.
func ParseCSV(r io.Reader, opts ParseOptions) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	data = sanitizeUTF8(bytes.TrimPrefix(data, utf8BOM))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Err: ErrEmptyFile}
	}

	records, err := parseCSV(data, opts.maxRows())
	if err != nil {
		return nil, err
	}

	header := records[0]
	body := records[1:]
	for i, rec := range body {
		switch {
		case len(rec) > len(header):
			return nil, &ParseError{
				Line: i + 2,
				Err:  fmt.Errorf("expected %d fields, found %d", len(header), len(rec)),
			}
		case len(rec) < len(header):
			body[i] = padRecord(rec, len(header))
		}
	}

	return NewTable(opts.Name, header, body)
}

func sanitizeUTF8(data []byte) []byte {
	return bytes.ToValidUTF8(data, []byte("\uFFFD"))
}

func parseCSV(data []byte, maxRows int) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &ParseError{Line: pe.Line, Err: pe.Err}
			}
			return nil, &ParseError{Err: err}
		}
		if len(records) > maxRows {
			return nil, fmt.Errorf("%w: more than %d", ErrTooManyRows, maxRows)
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, &ParseError{Err: ErrEmptyFile}
	}
	return records, nil
}

func padRecord(rec []string, width int) []string {
	out := make([]string, width)
	copy(out, rec)
	return out
}

// ExportName builds a download file name from the source name,
// e.g. "sales.csv" at 2024-03-01 14:05:09 becomes "sales_20240301_140509.xlsx".
func ExportName(source, stamp string, format FileFormat) string {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		stem = "export"
	}
	return fmt.Sprintf("%s_%s.%s", stem, stamp, format)
}
