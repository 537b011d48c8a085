package ports

import (
	"context"

	"github.com/recarga/backend/internal/domain"
)

// Portal drives the recharge form of the external portal.
type Portal interface {
	Execute(ctx context.Context, req domain.RechargeRequest) (domain.RechargeResult, error)
}

// ReceiptPrinter confirms the print preview the portal opens after a recharge.
type ReceiptPrinter interface {
	PrintReceipt(ctx context.Context) error
}

// PrintDialog is an attached print-preview window. Implementations hide the
// nested shadow-root traversal needed to reach its controls.
type PrintDialog interface {
	SelectMarginOption(ctx context.Context, value string) error
	ConfirmPrint(ctx context.Context) error
	Cancel(ctx context.Context) error
}

// LedgerSink records completed recharges somewhere durable.
type LedgerSink interface {
	Name() string
	Append(ctx context.Context, entry domain.LedgerEntry) error
}

type TaskService interface {
	Create() (*domain.Task, error)
	Complete(id, message string) error
	Fail(id, message string) error
	Get(id string) (*domain.Task, error)
}

type RechargeService interface {
	Submit(ctx context.Context, req domain.RechargeRequest) (*domain.Task, error)
	GetTask(id string) (*domain.Task, error)
}
