// Package archive writes per-user CSV archives of recorded expenses. Each
// user gets one file under the archive directory; rows are only ever
// appended.
package archive

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"expensify/internal/core"
)

var header = []string{"Note", "Amount", "Category", "Date", "Time"}

type Writer struct {
	dir string
}

func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// FileFor returns the archive path for one user's ledger.
func (w *Writer) FileFor(email string) string {
	return filepath.Join(w.dir, sanitizeEmail(email)+".csv")
}

// Append writes one expense row to the owner's archive file, creating the
// file with a header row when it does not exist yet.
func (w *Writer) Append(email string, e core.Expense) error {
	path := w.FileFor(email)

	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open archive file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if writeHeader {
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("write archive header: %w", err)
		}
	}

	row := []string{
		e.Note,
		e.Amount.String(),
		string(e.Category),
		e.Date.Format("2006-01-02"),
		e.TimeOfDay,
	}
	if err := cw.Write(row); err != nil {
		return fmt.Errorf("write archive row: %w", err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush archive file: %w", err)
	}
	return nil
}

// sanitizeEmail turns an email address into a filesystem-safe file stem.
func sanitizeEmail(email string) string {
	s := strings.ReplaceAll(email, "@", "_at_")
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
