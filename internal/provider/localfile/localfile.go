// Package localfile serves the stock universe from a CSV backup on disk.
// The retrieval coordinator rewrites the backup after every successful
// upstream listing.
package localfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/provider"
)

// Name identifies this provider in logs, errors and provenance
const Name = "localfile"

// Backup reads and writes the universe CSV
type Backup struct {
	path string
}

// NewBackup creates a backup bound to path
func NewBackup(path string) *Backup {
	return &Backup{path: path}
}

// Name implements provider.UniverseSource
func (b *Backup) Name() string {
	return Name
}

// Path returns the backup file path
func (b *Backup) Path() string {
	return b.path
}

// Universe implements provider.UniverseSource
func (b *Backup) Universe(_ context.Context) (provider.Table[market.StockInfo], error) {
	f, err := os.Open(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return provider.Table[market.StockInfo]{}, provider.Fail(Name, provider.OpUniverse, provider.ErrEmpty)
	}
	if err != nil {
		return provider.Table[market.StockInfo]{}, provider.Fail(Name, provider.OpUniverse, err)
	}
	defer f.Close()

	table, err := read(f)
	if err != nil {
		return provider.Table[market.StockInfo]{}, provider.Fail(Name, provider.OpUniverse, err)
	}
	return table, nil
}

func read(r io.Reader) (provider.Table[market.StockInfo], error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return provider.Table[market.StockInfo]{}, fmt.Errorf("read csv: %w", err)
	}
	if len(records) < 2 {
		return provider.Table[market.StockInfo]{}, provider.ErrEmpty
	}

	codeIdx, nameIdx, degraded := provider.ResolveColumns(records[0])
	body := records[1:]
	if degraded {
		// no recognizable header: treat the first line as data too
		body = records
	}

	var stocks []market.StockInfo
	for _, rec := range body {
		if len(rec) <= codeIdx || len(rec) <= nameIdx {
			continue
		}
		code := strings.TrimSpace(rec[codeIdx])
		if code == "" {
			continue
		}
		// spreadsheets drop the leading zeros of Shenzhen codes
		if len(code) < 6 && isDigits(code) {
			code = strings.Repeat("0", 6-len(code)) + code
		}
		stocks = append(stocks, market.StockInfo{Code: code, Name: strings.TrimSpace(rec[nameIdx])})
	}

	if len(stocks) == 0 {
		return provider.Table[market.StockInfo]{}, provider.ErrEmpty
	}
	return provider.Table[market.StockInfo]{Rows: stocks, Degraded: degraded}, nil
}

// Write replaces the backup with stocks, via a temp file and rename
func (b *Backup) Write(stocks []market.StockInfo) error {
	if len(stocks) == 0 {
		return nil
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".universe-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	_ = w.Write([]string{"代码", "名称"})
	for _, s := range stocks {
		_ = w.Write([]string{s.Code, s.Name})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("write backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, b.path)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
