package services

import "errors"

// Task errors
var (
	ErrTaskNotFound        = errors.New("task: not found")
	ErrTaskAlreadyFinished = errors.New("task: already finished")
	ErrTaskIDGeneration    = errors.New("task: id generation failed")
)

// Recharge errors
var (
	ErrRechargeInvalidInput = errors.New("recharge: invalid input")
	ErrPortalNotConfigured  = errors.New("recharge: portal not configured")
)

// Ledger errors
var (
	ErrLedgerNoSinks = errors.New("ledger: no sinks configured")
)
