package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure independently of any transport status code.
// Handlers at the HTTP edge translate kinds to status codes; the core only
// ever deals in kinds.
type Kind int

const (
	// Internal is an unexpected storage or runtime fault. Retryable.
	Internal Kind = iota
	// InvalidArgument covers malformed identifiers, unsupported currencies,
	// non-positive or over-precise amounts, and self-transfers.
	InvalidArgument
	// NotFound indicates an unknown user or wallet.
	NotFound
	// Conflict indicates a uniqueness violation (duplicate wallet for a
	// user+currency pair, duplicate user email).
	Conflict
	// InsufficientFunds indicates a withdrawal or transfer would drive a
	// balance negative. Not retryable without changed input.
	InsufficientFunds
	// CurrencyMismatch indicates a transfer between wallets of different
	// currencies.
	CurrencyMismatch
	// InvalidState indicates a store-level guard rejected a write, e.g. a
	// negative balance reaching the store.
	InvalidState
	// LockTimeout indicates a wallet row lock could not be acquired within
	// the configured bound. Transient; safe to retry from scratch.
	LockTimeout
)

// String returns the stable name of the kind.
func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid_argument"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case InsufficientFunds:
		return "insufficient_funds"
	case CurrencyMismatch:
		return "currency_mismatch"
	case InvalidState:
		return "invalid_state"
	case LockTimeout:
		return "lock_timeout"
	default:
		return "internal"
	}
}

// Retryable reports whether retrying the same operation unchanged may succeed.
func (k Kind) Retryable() bool {
	return k == LockTimeout || k == Internal
}

// Error carries a kind alongside a human-readable message and an optional
// wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error of the given kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf builds an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from err, defaulting to Internal for errors that
// did not originate in this taxonomy.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Internal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
