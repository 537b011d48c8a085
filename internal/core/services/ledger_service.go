package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/recarga/backend/internal/core/ports"
	"github.com/recarga/backend/internal/domain"
	"github.com/recarga/backend/internal/infrastructure/logger"
	"github.com/recarga/backend/internal/infrastructure/metrics"
)

const sinkTimeout = 30 * time.Second

type LedgerServiceConfig struct {
	// Local is the append-only text file. It is written for PIX recharges and,
	// when RecordCashLocally is set, for cash ones too.
	Local ports.LedgerSink
	// Remote sinks (spreadsheet, database mirror) only ever see PIX recharges.
	Remote            []ports.LedgerSink
	RecordCashLocally bool
	Logger            *logger.Logger
	Metrics           *metrics.Metrics
}

type LedgerService struct {
	local             ports.LedgerSink
	remote            []ports.LedgerSink
	recordCashLocally bool
	logger            *logger.Logger
	metrics           *metrics.Metrics
}

func NewLedgerService(cfg LedgerServiceConfig) *LedgerService {
	remote := make([]ports.LedgerSink, 0, len(cfg.Remote))
	for _, sink := range cfg.Remote {
		if sink != nil {
			remote = append(remote, sink)
		}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &LedgerService{
		local:             cfg.Local,
		remote:            remote,
		recordCashLocally: cfg.RecordCashLocally,
		logger:            log,
		metrics:           cfg.Metrics,
	}
}

// Record writes entry to every sink it qualifies for. Each sink is attempted
// once and independently; the returned error joins all sink failures.
func (s *LedgerService) Record(ctx context.Context, entry domain.LedgerEntry) error {
	var sinks []ports.LedgerSink
	if entry.PaymentMethod.IsPix() {
		if s.local != nil {
			sinks = append(sinks, s.local)
		}
		sinks = append(sinks, s.remote...)
	} else {
		s.logger.Infow("ledger_cash_not_recorded_remotely", "task_id", entry.TaskID, "card", entry.CardNumber)
		if s.recordCashLocally && s.local != nil {
			sinks = append(sinks, s.local)
		}
	}

	if len(sinks) == 0 {
		if entry.PaymentMethod.IsPix() {
			return ErrLedgerNoSinks
		}
		return nil
	}

	var errs []error
	for _, sink := range sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, sinkTimeout)
		err := sink.Append(sinkCtx, entry)
		cancel()
		s.metrics.ObserveLedgerAppend(sink.Name(), err)
		if err != nil {
			s.logger.Errorw("ledger_append_failed", "sink", sink.Name(), "task_id", entry.TaskID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		s.logger.Infow("ledger_append_ok", "sink", sink.Name(), "task_id", entry.TaskID, "card", entry.CardNumber)
	}
	return errors.Join(errs...)
}
