package fills

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"

	"trade-ledger/internal/types"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV decodes a broker trade export. Unknown columns are ignored; an
// empty input yields an empty batch.
func ReadCSV(r io.Reader) ([]types.RawFill, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimPrefix(b, utf8BOM)
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, nil
	}
	var rows []types.RawFill
	if err := gocsv.Unmarshal(bytes.NewReader(b), &rows); err != nil {
		return nil, fmt.Errorf("decode fills: %w", err)
	}
	return rows, nil
}

// ReadFile loads one batch file.
func ReadFile(path string) (types.FillBatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.FillBatch{}, err
	}
	defer f.Close()
	rows, err := ReadCSV(f)
	if err != nil {
		return types.FillBatch{}, fmt.Errorf("%s: %w", path, err)
	}
	return types.FillBatch{Source: path, Rows: rows}, nil
}
