package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := New(InsufficientFunds, "not enough")
	if KindOf(err) != InsufficientFunds {
		t.Fatalf("expected insufficient funds, got %s", KindOf(err))
	}

	wrapped := fmt.Errorf("while withdrawing: %w", err)
	if KindOf(wrapped) != InsufficientFunds {
		t.Fatalf("kind lost through wrapping: %s", KindOf(wrapped))
	}

	if KindOf(errors.New("plain")) != Internal {
		t.Fatalf("foreign errors must default to internal")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(Internal, "commit", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("cause not reachable via errors.Is")
	}
	if Wrap(Internal, "noop", nil) != nil {
		t.Fatalf("wrapping nil must return nil")
	}
}

func TestRetryable(t *testing.T) {
	if !LockTimeout.Retryable() || !Internal.Retryable() {
		t.Fatalf("lock timeout and internal must be retryable")
	}
	for _, k := range []Kind{InvalidArgument, NotFound, Conflict, InsufficientFunds, CurrencyMismatch, InvalidState} {
		if k.Retryable() {
			t.Fatalf("%s must not be retryable", k)
		}
	}
}
