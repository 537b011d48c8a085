package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/recarga/backend/internal/domain"
	"github.com/shopspring/decimal"
)

// InvalidFormMessage is returned for every rejected recharge request.
const InvalidFormMessage = "Dados do formulário inválidos."

var (
	cardNumberPattern = regexp.MustCompile(`^\d{4,6}$`)
	minimumAmount     = decimal.RequireFromString("0.01")
	maximumAmount     = decimal.RequireFromString("9999999999.99")
)

// RechargeRequest is the JSON body of POST /recharge. valor may be a JSON
// number or a string using either a dot or a comma as decimal separator.
type RechargeRequest struct {
	FormaPagamento string          `json:"forma_pagamento"`
	NomePagador    string          `json:"nome_pagador"`
	NumeroCartao   string          `json:"numero_cartao"`
	Valor          json.RawMessage `json:"valor"`
}

// Validate reports missing required fields and the form rules.
func (r *RechargeRequest) Validate() []string {
	var errors []string

	method := strings.TrimSpace(r.FormaPagamento)
	if method == "" {
		errors = append(errors, "forma_pagamento is required")
	} else if _, err := domain.ParsePaymentMethod(method); err != nil {
		errors = append(errors, "forma_pagamento must be one of: PIX, DINHEIRO")
	}

	card := strings.TrimSpace(r.NumeroCartao)
	if card == "" {
		errors = append(errors, "numero_cartao is required")
	} else if !cardNumberPattern.MatchString(card) {
		errors = append(errors, "numero_cartao must have 4 to 6 digits")
	}

	if amountMissing(r.Valor) {
		errors = append(errors, "valor is required")
	} else if amount, err := r.Amount(); err != nil {
		errors = append(errors, "valor is not a valid amount")
	} else if amount.LessThan(minimumAmount) {
		errors = append(errors, "valor must be at least 0.01")
	} else if amount.GreaterThan(maximumAmount) {
		errors = append(errors, "valor must be at most 9999999999.99")
	} else if !amount.Equal(amount.Truncate(2)) {
		errors = append(errors, "valor must have at most 2 decimal places")
	}

	name := strings.TrimSpace(r.NomePagador)
	if utf8.RuneCountInString(name) > domain.MaxPayerNameLength {
		errors = append(errors, "nome_pagador must have at most 100 characters")
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		errors = append(errors, "nome_pagador must not contain control characters")
	}

	return errors
}

func amountMissing(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`))
}

// Amount parses valor. Exponent notation is rejected.
func (r *RechargeRequest) Amount() (decimal.Decimal, error) {
	raw := bytes.TrimSpace(r.Valor)
	if len(raw) == 0 {
		return decimal.Zero, errors.New("empty amount")
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return decimal.Zero, err
		}
	}
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	if strings.ContainsAny(text, "eE") {
		return decimal.Zero, fmt.Errorf("invalid amount %q: exponent not allowed", text)
	}
	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", text, err)
	}
	return amount, nil
}

// ToDomain converts a validated request.
func (r *RechargeRequest) ToDomain() (domain.RechargeRequest, error) {
	method, err := domain.ParsePaymentMethod(r.FormaPagamento)
	if err != nil {
		return domain.RechargeRequest{}, err
	}
	amount, err := r.Amount()
	if err != nil {
		return domain.RechargeRequest{}, err
	}
	return domain.RechargeRequest{
		PaymentMethod: method,
		CardNumber:    strings.TrimSpace(r.NumeroCartao),
		Amount:        amount.Round(2),
		PayerName:     domain.NormalizePayerName(r.NomePagador),
	}, nil
}

type RechargeAcceptedResponse struct {
	Success bool   `json:"success"`
	TaskID  string `json:"task_id"`
}

type RechargeErrorResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type TaskStatusResponse struct {
	Status  domain.TaskStatus `json:"status"`
	Message string            `json:"message"`
}

const TaskNotFoundMessage = "Tarefa não encontrada."

func TaskToResponse(task *domain.Task) TaskStatusResponse {
	return TaskStatusResponse{Status: task.Status, Message: task.Message}
}

func TaskNotFoundResponse() TaskStatusResponse {
	return TaskStatusResponse{Status: domain.TaskStatusFailed, Message: TaskNotFoundMessage}
}
