package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/recarga/backend/internal/config"
	"github.com/recarga/backend/internal/core/ports"
	"github.com/recarga/backend/internal/domain"
	"github.com/recarga/backend/internal/infrastructure/db"
	"github.com/recarga/backend/internal/infrastructure/ledger"
	"github.com/recarga/backend/internal/infrastructure/logger"
	"github.com/recarga/backend/internal/infrastructure/sheets"
	"github.com/recarga/backend/pkg/utils/crypto"
	"github.com/recarga/backend/pkg/utils/keygen"
	"github.com/spf13/cobra"
)

const commandTimeout = 2 * time.Minute

func (c *cli) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *cli) sealPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seal-password <password>",
		Short: "Encrypt the portal password with the configured secret key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cfg.UsesFallbackSecret() {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: SECRET_KEY not set, sealing with the fallback secret")
			}
			sealed, err := crypto.Seal(args[0], cfg.Security.SecretKey)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sealed)
			return nil
		},
	}
}

func (c *cli) genSecretCmd() *cobra.Command {
	var length int
	cmd := &cobra.Command{
		Use:   "gen-secret",
		Short: "Print a random secret key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := keygen.GenerateSecretKey(length)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), secret)
			return nil
		},
	}
	cmd.Flags().IntVarP(&length, "length", "n", 48, "Secret length")
	return cmd
}

func (c *cli) recorder(ctx context.Context) (*sheets.Recorder, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Sheets.SpreadsheetID == "" {
		return nil, fmt.Errorf("sheets.spreadsheet_id is not configured")
	}
	return sheets.NewFromConfig(ctx, cfg.Sheets, logger.NewNop())
}

func (c *cli) tabCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tab",
		Short: "Find or create the spreadsheet tab for today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			rec, err := c.recorder(ctx)
			if err != nil {
				return err
			}
			tab, err := rec.GetOrCreateTab(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tab %q (id %d)\n", tab.Title, tab.ID)
			return nil
		},
	}
}

func (c *cli) syncLedgerCmd() *cobra.Command {
	var (
		filePath string
		method   string
	)
	cmd := &cobra.Command{
		Use:   "sync-ledger",
		Short: "Upload every line of the local ledger file to today's tab",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pm, err := domain.ParsePaymentMethod(method)
			if err != nil {
				return err
			}
			if !pm.IsPix() {
				fmt.Fprintln(cmd.OutOrStdout(), "Pagamento em dinheiro: nada é enviado para a planilha.")
				return nil
			}

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if filePath == "" {
				filePath = cfg.Ledger.FilePath
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			rec, err := c.recorder(ctx)
			if err != nil {
				return err
			}

			n, err := syncLedger(ctx, ledger.NewFile(filePath), rec, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d line(s) uploaded\n", n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Ledger file (defaults to ledger.file_path)")
	cmd.Flags().StringVarP(&method, "method", "m", "PIX", "Payment method of the lines (PIX or DINHEIRO)")
	return cmd
}

// syncLedger appends each ledger line as a PIX entry and stops at the first
// failure.
func syncLedger(ctx context.Context, file *ledger.File, sink ports.LedgerSink, out io.Writer) (int, error) {
	lines, err := file.ReadAll()
	if err != nil {
		return 0, err
	}
	now := time.Now()
	for i, line := range lines {
		entry := domain.LedgerEntry{
			PayerName:     line.PayerName,
			Amount:        line.Amount,
			CardNumber:    line.CardNumber,
			PaymentMethod: domain.PaymentMethodPix,
			RecordedAt:    now,
		}
		if err := sink.Append(ctx, entry); err != nil {
			return i, fmt.Errorf("line %d: %w", line.Number, err)
		}
		fmt.Fprintf(out, "PIX adicionado: %s %s %s\n", strings.ToUpper(line.PayerName), line.Amount.StringFixed(2), line.CardNumber)
	}
	return len(lines), nil
}

func (c *cli) ledgerCmd() *cobra.Command {
	var (
		card  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "List the recharges mirrored in the database, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Database.Enabled {
				return fmt.Errorf("database.enabled is false: nothing is mirrored")
			}

			conn, err := db.NewPostgresConnection(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close(conn)

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			_, err = listLedger(ctx, db.NewLedgerRepository(conn, logger.NewNop()), card, limit, cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().StringVar(&card, "card", "", "Only entries for this card number")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum entries to list (0 for all)")
	return cmd
}

// listLedger prints one line per entry: time, method, card, amount and payer.
func listLedger(ctx context.Context, repo ports.LedgerRepository, card string, limit int, out io.Writer) (int, error) {
	var (
		entries []domain.LedgerEntry
		err     error
	)
	if card = strings.TrimSpace(card); card != "" {
		entries, err = repo.GetByCard(ctx, card, limit)
	} else {
		entries, err = repo.GetAll(ctx, limit)
	}
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s  %-8s  %-6s  %12s  %s\n",
			e.RecordedAt.Format("02/01/2006 15:04"), e.PaymentMethod, e.CardNumber, e.Amount.StringFixed(2), e.PayerName)
	}
	fmt.Fprintf(out, "%d entry(ies)\n", len(entries))
	return len(entries), nil
}
