package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodPix  PaymentMethod = "PIX"
	PaymentMethodCash PaymentMethod = "DINHEIRO"
)

// UnknownPayer is recorded when no payer name was typed and none could be read
// from the portal.
const UnknownPayer = "Desconhecido"

// ParsePaymentMethod accepts the form values (PIX, DINHEIRO) and CASH as an alias.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PIX":
		return PaymentMethodPix, nil
	case "DINHEIRO", "CASH":
		return PaymentMethodCash, nil
	default:
		return "", fmt.Errorf("unknown payment method %q", raw)
	}
}

func (m PaymentMethod) IsPix() bool {
	return m == PaymentMethodPix
}

type RechargeRequest struct {
	PaymentMethod PaymentMethod
	CardNumber    string
	Amount        decimal.Decimal
	PayerName     string
}

// AmountText is the amount as typed into the portal and written to the ledger.
func (r RechargeRequest) AmountText() string {
	return r.Amount.StringFixed(2)
}

// RechargeResult is what the portal reported after confirmation.
type RechargeResult struct {
	PayerName string
}
