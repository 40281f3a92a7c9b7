package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"github.com/lemonscanner/lemon-scanner/internal/errors"
)

// decode converts raw bytes to UTF-8. "auto" keeps valid UTF-8 input and
// otherwise decodes as CP949 (the x/text EUC-KR codec covers code page 949).
func decode(data []byte, encoding string) ([]byte, error) {
	switch strings.ToLower(encoding) {
	case "", "auto":
		if utf8.Valid(data) {
			return bytes.TrimPrefix(data, []byte("\ufeff")), nil
		}
		return decodeCP949(data)
	case "utf-8", "utf8":
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("input is not valid UTF-8")
		}
		return bytes.TrimPrefix(data, []byte("\ufeff")), nil
	case "cp949", "euc-kr":
		return decodeCP949(data)
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}

func decodeCP949(data []byte) ([]byte, error) {
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), korean.EUCKR.NewDecoder()))
	if err != nil {
		return nil, fmt.Errorf("decode cp949: %w", err)
	}
	return out, nil
}

// ReadCSV parses a delimited table with a header row from r.
func ReadCSV(r io.Reader, name, encoding string) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.New(err).
			Component("tabular").
			Category(errors.CategoryFileIO).
			Context("table", name).
			Build()
	}
	data, err := decode(raw, encoding)
	if err != nil {
		return nil, errors.New(err).
			Component("tabular").
			Category(errors.CategoryFileParsing).
			Context("table", name).
			Context("encoding", encoding).
			Build()
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // Allow ragged rows; missing cells read as empty
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.New(fmt.Errorf("parse csv: %w", err)).
			Component("tabular").
			Category(errors.CategoryFileParsing).
			Context("table", name).
			Build()
	}
	if len(records) == 0 {
		return nil, errors.Newf("csv %s has no header row", name).
			Component("tabular").
			Category(errors.CategoryFileParsing).
			Build()
	}

	t := &Table{Name: name, Header: records[0], Rows: records[1:]}
	t.TrimHeader()
	return t, nil
}

// ReadCSVFile opens path and parses it with ReadCSV; the table is named after the file.
func ReadCSVFile(path, encoding string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("tabular").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ReadCSV(f, name, encoding)
}
