// Package runlog keeps a JSON-lines history of pipeline runs, one file per
// day, and compresses old days.
package runlog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"trade-ledger/internal/types"
)

var mu sync.Mutex

// now is replaced in tests.
var now = time.Now

const (
	EventRun    = "run"
	EventFailed = "failed"
)

type Entry struct {
	Time    string            `json:"time"`
	Event   string            `json:"event"`
	Source  string            `json:"source,omitempty"`
	Error   string            `json:"error,omitempty"`
	Summary *types.RunSummary `json:"summary,omitempty"`
}

func dailyFilepath(dir string, t time.Time) string {
	return filepath.Join(dir, t.Format("2006-01-02")+".txt")
}

// Append stamps e with the current time and adds it to today's file.
func Append(dir string, e Entry) error {
	mu.Lock()
	defer mu.Unlock()
	t := now()
	e.Time = t.Format(time.RFC3339)
	p := dailyFilepath(dir, t)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips day files last modified before the retention window
// and removes the originals. Files it cannot read are left alone.
func CompressOlder(dir string, retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			return nil
		}
		if err := compress(p, gz); err != nil {
			_ = os.Remove(gz)
			return nil
		}
		_ = os.Remove(p)
		return nil
	})
}

func compress(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		_ = gw.Close()
		_ = out.Close()
		return err
	}
	if err := gw.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
