package errors

import (
	"context"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{name: "nil", err: nil, want: ClassUnknown},
		{name: "timeout is transient", err: ErrTimeout, want: ClassTransient},
		{name: "remote rate limit is transient", err: ErrRateLimited, want: ClassTransient},
		{name: "connection failure is transient", err: ErrConnectionFailed, want: ClassTransient},
		{name: "deadline exceeded is transient", err: context.DeadlineExceeded, want: ClassTransient},
		{name: "invalid input is permanent", err: ErrInvalidInput, want: ClassPermanent},
		{name: "not applicable is permanent", err: ErrNotApplicable, want: ClassPermanent},
		{name: "unauthorized is permanent", err: ErrUnauthorized, want: ClassPermanent},
		{name: "unknown errors are permanent", err: New("something odd"), want: ClassPermanent},
		{name: "capacity", err: ErrCapacity, want: ClassCapacity},
		{name: "context cancel", err: context.Canceled, want: ClassCancelled},
		{name: "run cancel sentinel", err: ErrCancelled, want: ClassCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifyWrapped(t *testing.T) {
	err := Wrap(ErrRateLimited, "shodan query failed")
	if got := Classify(err); got != ClassTransient {
		t.Errorf("wrapped sentinel lost its class: got %v", got)
	}
}

func TestWithClassOverrides(t *testing.T) {
	// A module may know a timeout is actually permanent for its source.
	err := WithClass(ErrTimeout, ClassPermanent)
	if got := Classify(err); got != ClassPermanent {
		t.Errorf("explicit class not honored: got %v", got)
	}
	if !Is(err, ErrTimeout) {
		t.Error("WithClass broke the error chain")
	}
	if WithClass(nil, ClassTransient) != nil {
		t.Error("WithClass(nil) should be nil")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "ctx") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	base := New("boom")
	wrapped := Wrapf(base, "while doing %s", "work")
	if wrapped.Error() != "while doing work: boom" {
		t.Errorf("unexpected message: %s", wrapped.Error())
	}
	if !Is(wrapped, base) {
		t.Error("wrapped error should match base via Is")
	}
}

func TestClassString(t *testing.T) {
	if ClassTransient.String() != "transient" || ClassCapacity.String() != "capacity" {
		t.Error("unexpected Class string values")
	}
	if ClassUnknown.String() != "unknown" {
		t.Error("zero value should stringify as unknown")
	}
}
