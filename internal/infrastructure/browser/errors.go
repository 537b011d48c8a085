package browser

import (
	"errors"
	"fmt"
)

var (
	ErrBrowserLaunch      = errors.New("browser: launch failed")
	ErrSessionClosed      = errors.New("browser: session closed")
	ErrLoginFailed        = errors.New("browser: login failed")
	ErrRechargeFailed     = errors.New("browser: recharge failed")
	ErrPrintWindowTimeout = errors.New("browser: print window did not open")
	ErrPrintDialog        = errors.New("browser: print dialog interaction failed")
)

// StepError names the workflow step that failed.
type StepError struct {
	Kind error
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Step, e.Err)
}

func (e *StepError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func stepError(kind error, step string, err error) error {
	if err == nil {
		return nil
	}
	return &StepError{Kind: kind, Step: step, Err: err}
}
