package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/recarga/backend/internal/core/ports"
	"github.com/recarga/backend/internal/domain"
	"github.com/recarga/backend/internal/infrastructure/logger"
	"github.com/recarga/backend/internal/infrastructure/metrics"
)

const (
	FailureMessage     = "Falha ao processar recarga. O site pode ter retornado um erro."
	CrashMessagePrefix = "Erro crítico durante a automação: "
)

// SuccessMessage is the text shown to the operator once a recharge went through.
func SuccessMessage(req domain.RechargeRequest) string {
	return fmt.Sprintf("Recarga de R$%s para o cartão %s concluída com sucesso!", req.AmountText(), req.CardNumber)
}

// LedgerRecorder is satisfied by LedgerService.
type LedgerRecorder interface {
	Record(ctx context.Context, entry domain.LedgerEntry) error
}

type RechargeServiceConfig struct {
	Tasks   ports.TaskService
	Portal  ports.Portal
	Printer ports.ReceiptPrinter
	Ledger  LedgerRecorder
	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

// RechargeService runs recharges in the background. All workers share one
// browser session, so the automation slot admits a single worker at a time.
type RechargeService struct {
	tasks   ports.TaskService
	portal  ports.Portal
	printer ports.ReceiptPrinter
	ledger  LedgerRecorder
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	slot sync.Mutex
	wg   sync.WaitGroup
}

func NewRechargeService(cfg RechargeServiceConfig) *RechargeService {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &RechargeService{
		tasks:   cfg.Tasks,
		portal:  cfg.Portal,
		printer: cfg.Printer,
		ledger:  cfg.Ledger,
		logger:  log,
		metrics: cfg.Metrics,
		now:     time.Now,
	}
}

// Submit stores a pending task and starts the worker. The worker does not
// inherit ctx: a started recharge cannot be cancelled.
func (s *RechargeService) Submit(ctx context.Context, req domain.RechargeRequest) (*domain.Task, error) {
	if s.portal == nil {
		return nil, ErrPortalNotConfigured
	}
	if req.CardNumber == "" || !req.Amount.IsPositive() {
		return nil, ErrRechargeInvalidInput
	}

	task, err := s.tasks.Create()
	if err != nil {
		return nil, err
	}

	workerCtx := context.Background()
	if v := ctx.Value("request_id"); v != nil {
		workerCtx = context.WithValue(workerCtx, "request_id", v)
	}
	workerCtx = context.WithValue(workerCtx, "task_id", task.ID)

	s.metrics.TaskStarted()
	s.wg.Add(1)
	go s.run(workerCtx, task.ID, req)

	s.logger.Infow("recharge_task_created", "task_id", task.ID, "card", req.CardNumber, "payment_method", req.PaymentMethod)
	return task, nil
}

func (s *RechargeService) GetTask(id string) (*domain.Task, error) {
	return s.tasks.Get(id)
}

// Wait blocks until every started worker has finished.
func (s *RechargeService) Wait() {
	s.wg.Wait()
}

func (s *RechargeService) run(ctx context.Context, taskID string, req domain.RechargeRequest) {
	defer s.wg.Done()
	defer s.metrics.TaskFinished()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorw("recharge_task_panic", "task_id", taskID, "panic", r)
			s.finish(taskID, domain.TaskStatusFailed, fmt.Sprintf("%s%v", CrashMessagePrefix, r))
		}
	}()

	log := s.logger.With("task_id", taskID)
	log.Infow("recharge_task_started", "card", req.CardNumber, "payment_method", req.PaymentMethod)

	started := s.now()
	s.slot.Lock()
	defer s.slot.Unlock()

	result, err := s.portal.Execute(ctx, req)
	s.metrics.ObserveRecharge(string(req.PaymentMethod), started, err)
	if err != nil {
		log.Errorw("recharge_task_failed", "error", err)
		s.finish(taskID, domain.TaskStatusFailed, FailureMessage)
		return
	}

	if s.printer != nil {
		err := s.printer.PrintReceipt(ctx)
		s.metrics.ObservePrint(err)
		if err != nil {
			log.Errorw("recharge_receipt_print_failed", "error", err)
		}
	}

	if s.ledger != nil {
		entry := domain.NewLedgerEntry(taskID, req, result.PayerName, s.now())
		if err := s.ledger.Record(ctx, entry); err != nil {
			log.Errorw("recharge_ledger_failed", "error", err)
		}
	}

	s.finish(taskID, domain.TaskStatusCompleted, SuccessMessage(req))
}

func (s *RechargeService) finish(taskID string, status domain.TaskStatus, message string) {
	var err error
	if status == domain.TaskStatusCompleted {
		err = s.tasks.Complete(taskID, message)
	} else {
		err = s.tasks.Fail(taskID, message)
	}
	if err != nil {
		s.logger.Warnw("recharge_task_update_failed", "task_id", taskID, "status", status, "error", err)
		return
	}
	s.logger.Infow("recharge_task_finished", "task_id", taskID, "status", status)
}
