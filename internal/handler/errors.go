package handler

import (
	"errors"
	"fmt"
)

// Reason tells which ledger rule a transaction broke.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonMissingUTXO
	ReasonBadSignature
	ReasonDoubleClaim
	ReasonNegativeOutput
	ReasonInsufficientInput
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonMissingUTXO:
		return "missing-utxo"
	case ReasonBadSignature:
		return "bad-signature"
	case ReasonDoubleClaim:
		return "double-claim"
	case ReasonNegativeOutput:
		return "negative-output"
	case ReasonInsufficientInput:
		return "insufficient-input"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// RuleError is returned for a well formed transaction that is not valid
// against the current pool. Index is the offending input or output, -1 when
// the rule applies to the transaction as a whole.
type RuleError struct {
	Reason Reason
	Index  int
	Msg    string
}

func (e *RuleError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", e.Reason, e.Msg)
	}
	return fmt.Sprintf("%s at %d: %s", e.Reason, e.Index, e.Msg)
}

func newRuleError(reason Reason, index int, format string, args ...interface{}) *RuleError {
	return &RuleError{
		Reason: reason,
		Index:  index,
		Msg:    fmt.Sprintf(format, args...),
	}
}

// ReasonOf extracts the rule a validation error reports, ReasonNone when err
// is nil or not a rule failure.
func ReasonOf(err error) Reason {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ReasonNone
}
