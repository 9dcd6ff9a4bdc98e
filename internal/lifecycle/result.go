package lifecycle

import (
	"github.com/adoniasgoesw/filazero/pkg/enums"
	pkgerrors "github.com/adoniasgoesw/filazero/pkg/errors"
)

// Step names one stage of a commit sequence.
type Step string

const (
	StepMaterialize Step = "materialize"
	StepAdjustments Step = "adjustments"
	StepPayments    Step = "payments"
	StepFinalize    Step = "finalize"
	StepCancel      Step = "cancel"
	StepLoad        Step = "load"
	StepClient      Step = "client"
)

// Result is what every session operation reports. Failures never escape as panics or bare
// errors: Reason is meant for the operator, Err keeps the cause for logs.
type Result struct {
	OK    bool
	State enums.OrderState
	Step  Step
	Code  pkgerrors.Code
	// Reason is a human-readable explanation of a failure.
	Reason string
	Err    error
	// RedirectToPayment asks the caller to open payment collection instead.
	RedirectToPayment bool
	// PrintErr is set when finalize succeeded but the receipt could not be printed.
	PrintErr error
}

// Error returns the failure cause, or nil on success.
func (r Result) Error() error {
	if r.OK {
		return nil
	}
	if r.Err != nil {
		return r.Err
	}
	return pkgerrors.New(r.Code, r.Reason)
}

func ok(state enums.OrderState) Result {
	return Result{OK: true, State: state}
}

func failed(state enums.OrderState, step Step, err error) Result {
	code := pkgerrors.CodeInternal
	reason := "unexpected error"
	if typed := pkgerrors.As(err); typed != nil {
		code = typed.Code()
		reason = typed.Message()
	}
	return Result{State: state, Step: step, Code: code, Reason: reason, Err: err}
}
