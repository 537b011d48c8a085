package ledger

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/recarga/backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(name, amount, card string) domain.LedgerEntry {
	return domain.LedgerEntry{
		PayerName:     name,
		Amount:        decimal.RequireFromString(amount),
		CardNumber:    card,
		PaymentMethod: domain.PaymentMethodPix,
	}
}

func TestFileAppendCreatesAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "recargas.txt")
	f := NewFile(path)

	require.NoError(t, f.Append(context.Background(), entry("Ana", "10", "1234")))
	require.NoError(t, f.Append(context.Background(), entry("Bruno", "7.5", "987654")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Ana,10.00,1234\nBruno,7.50,987654\n", string(data))
}

func TestFileReadAllRoundTrip(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "recargas.txt"))
	require.NoError(t, f.Append(context.Background(), entry("Ana", "10.00", "1234")))

	lines, err := f.ReadAll()
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Ana", lines[0].PayerName)
	assert.True(t, decimal.RequireFromString("10").Equal(lines[0].Amount))
	assert.Equal(t, "1234", lines[0].CardNumber)
	assert.Equal(t, 1, lines[0].Number)
}

func TestFileReadAllMissingFile(t *testing.T) {
	lines, err := NewFile(filepath.Join(t.TempDir(), "none.txt")).ReadAll()
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestFileReadAllReportsCommaInName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recargas.txt")
	f := NewFile(path)
	require.NoError(t, f.Append(context.Background(), entry("Silva, Ana", "10", "1234")))

	_, err := f.ReadAll()
	assert.ErrorIs(t, err, ErrMalformedLine)
}

func TestFileAppendFoldsLineBreaksInName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recargas.txt")
	f := NewFile(path)
	require.NoError(t, f.Append(context.Background(), entry("Ana\r\nSouza\nLima", "10", "1234")))
	require.NoError(t, f.Append(context.Background(), entry("Bruno", "5", "4321")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza Lima,10.00,1234\nBruno,5.00,4321\n", string(data))

	lines, err := f.ReadAll()
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "Ana Souza Lima", lines[0].PayerName)
	assert.Equal(t, "Bruno", lines[1].PayerName)
}

func TestFormatLineRoundsToCents(t *testing.T) {
	assert.Equal(t, "Ana,10.01,1234\n", FormatLine(entry("Ana", "10.005", "1234")))
}

func TestFileConcurrentAppends(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "recargas.txt"))
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.Append(context.Background(), entry("Ana", "1", "1234")))
		}()
	}
	wg.Wait()

	lines, err := f.ReadAll()
	require.NoError(t, err)
	assert.Len(t, lines, 20)
}
