package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/recarga/backend/internal/core/ports"
	"github.com/recarga/backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePortal struct {
	err     error
	panicV  any
	payer   string
	delay   time.Duration
	release chan struct{}

	calls   atomic.Int32
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (p *fakePortal) Execute(_ context.Context, req domain.RechargeRequest) (domain.RechargeResult, error) {
	p.calls.Add(1)
	n := p.active.Add(1)
	defer p.active.Add(-1)
	for {
		max := p.maxSeen.Load()
		if n <= max || p.maxSeen.CompareAndSwap(max, n) {
			break
		}
	}
	if p.release != nil {
		<-p.release
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.panicV != nil {
		panic(p.panicV)
	}
	if p.err != nil {
		return domain.RechargeResult{}, p.err
	}
	payer := req.PayerName
	if payer == "" {
		payer = p.payer
	}
	return domain.RechargeResult{PayerName: payer}, nil
}

type fakePrinter struct {
	err   error
	calls atomic.Int32
}

func (p *fakePrinter) PrintReceipt(context.Context) error {
	p.calls.Add(1)
	return p.err
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []domain.LedgerEntry
	err     error
}

func (r *fakeRecorder) Record(_ context.Context, entry domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return r.err
}

func (r *fakeRecorder) all() []domain.LedgerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.LedgerEntry(nil), r.entries...)
}

func pixRequest() domain.RechargeRequest {
	return domain.RechargeRequest{
		PaymentMethod: domain.PaymentMethodPix,
		CardNumber:    "1234",
		Amount:        decimal.RequireFromString("10.00"),
		PayerName:     "Ana",
	}
}

func newRechargeService(portal ports.Portal, printer ports.ReceiptPrinter, ledger LedgerRecorder) (*RechargeService, *TaskService) {
	tasks := NewTaskService(TaskServiceConfig{MaxEntries: 100})
	svc := NewRechargeService(RechargeServiceConfig{
		Tasks:   tasks,
		Portal:  portal,
		Printer: printer,
		Ledger:  ledger,
	})
	return svc, tasks
}

func TestRechargeServiceSuccess(t *testing.T) {
	portal := &fakePortal{release: make(chan struct{})}
	printer := &fakePrinter{}
	ledger := &fakeRecorder{}
	svc, _ := newRechargeService(portal, printer, ledger)

	task, err := svc.Submit(context.Background(), pixRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, task.Status)

	pending, err := svc.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, pending.Status)

	close(portal.release)
	svc.Wait()

	done, err := svc.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, done.Status)
	assert.Contains(t, done.Message, "10.0")
	assert.Contains(t, done.Message, "1234")
	assert.Equal(t, int32(1), printer.calls.Load())

	entries := ledger.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "Ana", entries[0].PayerName)
	assert.Equal(t, "10.00", entries[0].Amount.StringFixed(2))
	assert.Equal(t, task.ID, entries[0].TaskID)
}

func TestRechargeServicePortalFailureWritesNoLedger(t *testing.T) {
	portal := &fakePortal{err: errors.New("validar button not found")}
	printer := &fakePrinter{}
	ledger := &fakeRecorder{}
	svc, _ := newRechargeService(portal, printer, ledger)

	task, err := svc.Submit(context.Background(), pixRequest())
	require.NoError(t, err)
	svc.Wait()

	got, err := svc.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.Equal(t, FailureMessage, got.Message)
	assert.NotEqual(t, SuccessMessage(pixRequest()), got.Message)
	assert.Empty(t, ledger.all())
	assert.Equal(t, int32(0), printer.calls.Load())
}

func TestRechargeServiceSecondaryFailuresKeepSuccess(t *testing.T) {
	portal := &fakePortal{}
	printer := &fakePrinter{err: errors.New("print window never opened")}
	ledger := &fakeRecorder{err: errors.New("sheet quota")}
	svc, _ := newRechargeService(portal, printer, ledger)

	task, err := svc.Submit(context.Background(), pixRequest())
	require.NoError(t, err)
	svc.Wait()

	got, err := svc.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	assert.Len(t, ledger.all(), 1)
}

func TestRechargeServicePanicBecomesFailure(t *testing.T) {
	portal := &fakePortal{panicV: "chrome went away"}
	svc, _ := newRechargeService(portal, nil, &fakeRecorder{})

	task, err := svc.Submit(context.Background(), pixRequest())
	require.NoError(t, err)
	svc.Wait()

	got, err := svc.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.Equal(t, CrashMessagePrefix+"chrome went away", got.Message)
}

func TestRechargeServiceScrapedPayerReachesLedger(t *testing.T) {
	portal := &fakePortal{payer: "MARIA SILVA"}
	ledger := &fakeRecorder{}
	svc, _ := newRechargeService(portal, nil, ledger)

	req := pixRequest()
	req.PayerName = ""
	_, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	svc.Wait()

	entries := ledger.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "MARIA SILVA", entries[0].PayerName)
}

func TestRechargeServiceSerialisesWorkers(t *testing.T) {
	portal := &fakePortal{delay: 20 * time.Millisecond}
	svc, _ := newRechargeService(portal, nil, &fakeRecorder{})

	var ids []string
	for i := 0; i < 5; i++ {
		task, err := svc.Submit(context.Background(), pixRequest())
		require.NoError(t, err)
		ids = append(ids, task.ID)
	}
	svc.Wait()

	assert.Equal(t, int32(5), portal.calls.Load())
	assert.Equal(t, int32(1), portal.maxSeen.Load())
	for _, id := range ids {
		got, err := svc.GetTask(id)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	}
}

func TestRechargeServiceRejectsInvalidInput(t *testing.T) {
	svc, tasks := newRechargeService(&fakePortal{}, nil, nil)

	req := pixRequest()
	req.Amount = decimal.Zero
	_, err := svc.Submit(context.Background(), req)
	assert.ErrorIs(t, err, ErrRechargeInvalidInput)
	assert.Equal(t, 0, tasks.Len())
}

func TestRechargeServiceWithoutPortal(t *testing.T) {
	svc, tasks := newRechargeService(nil, nil, nil)
	_, err := svc.Submit(context.Background(), pixRequest())
	assert.ErrorIs(t, err, ErrPortalNotConfigured)
	assert.Equal(t, 0, tasks.Len())
}
