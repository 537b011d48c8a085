package ledger

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/recarga/backend/internal/core/ports"
	"github.com/recarga/backend/internal/domain"
	"github.com/shopspring/decimal"
)

var ErrMalformedLine = errors.New("ledger: malformed line")

// File is the append-only text ledger. Each line is "name,amount,card" with no
// escaping, so a comma inside a payer name corrupts that line.
type File struct {
	path string
	mu   sync.Mutex
}

func NewFile(path string) *File {
	return &File{path: path}
}

var _ ports.LedgerSink = (*File)(nil)

func (f *File) Name() string {
	return "local_file"
}

func (f *File) Path() string {
	return f.path
}

func (f *File) Append(_ context.Context, entry domain.LedgerEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ledger: create dir: %w", err)
		}
	}

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("ledger: open %s: %w", f.path, err)
	}
	defer file.Close()

	if _, err := file.WriteString(FormatLine(entry)); err != nil {
		return fmt.Errorf("ledger: write %s: %w", f.path, err)
	}
	return nil
}

// FormatLine renders the on-disk form of entry, newline included. Line breaks
// inside the payer name are folded so one entry always stays on one line.
func FormatLine(entry domain.LedgerEntry) string {
	name := strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(entry.PayerName)
	return fmt.Sprintf("%s,%s,%s\n", name, entry.Amount.StringFixed(2), entry.CardNumber)
}

// Line is one parsed ledger record.
type Line struct {
	Number     int
	PayerName  string
	Amount     decimal.Decimal
	CardNumber string
}

// ReadAll parses every non-empty line of the ledger. A missing file yields no lines.
func (f *File) ReadAll() ([]Line, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger: open %s: %w", f.path, err)
	}
	defer file.Close()

	var lines []Line
	scanner := bufio.NewScanner(file)
	n := 0
	for scanner.Scan() {
		n++
		raw := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		line, err := ParseLine(raw)
		if err != nil {
			return lines, fmt.Errorf("line %d: %w", n, err)
		}
		line.Number = n
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return lines, fmt.Errorf("ledger: read %s: %w", f.path, err)
	}
	return lines, nil
}

// ParseLine splits "name,amount,card". A comma decimal separator in the amount
// is not representable and is rejected along with any other field count.
func ParseLine(raw string) (Line, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 3 {
		return Line{}, fmt.Errorf("%w: expected 3 fields, got %d", ErrMalformedLine, len(parts))
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
	if err != nil {
		return Line{}, fmt.Errorf("%w: amount %q", ErrMalformedLine, parts[1])
	}
	return Line{
		PayerName:  strings.TrimSpace(parts[0]),
		Amount:     amount,
		CardNumber: strings.TrimSpace(parts[2]),
	}, nil
}
