package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_ErrorIncludesCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := Wrap(cause, ErrCodeUnavailable, "orchestrator unreachable")

	if err.Error() != "orchestrator unreachable: dial tcp: refused" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable via errors.Is")
	}
	if !IsUnavailable(err) {
		t.Fatal("expected unavailable code")
	}
}

func TestWrap_NilReturnsNil(t *testing.T) {
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Fatal("Wrap(nil) should return nil")
	}
	if Wrapf(nil, ErrCodeInternal, "x %d", 1) != nil {
		t.Fatal("Wrapf(nil) should return nil")
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
	}{
		{"not found", NotFoundf("contact %s not found", "C1"), IsNotFound},
		{"conflict", Conflictf("dup"), IsConflict},
		{"validation", Validationf("bad %s", "input"), IsValidation},
		{"validation field", ValidationField("vulnerableIds", "required"), IsValidation},
		{"timeout", Wrap(fmt.Errorf("deadline"), ErrCodeTimeout, "timed out"), IsTimeout},
		{"wrapped not found", fmt.Errorf("dispatch: %w", NotFoundf("missing")), IsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.pred(tt.err) {
				t.Fatalf("predicate false for %v", tt.err)
			}
		})
	}
}

func TestGetCodeAndField(t *testing.T) {
	if GetCode(fmt.Errorf("plain")) != "" {
		t.Fatal("plain errors have no code")
	}
	err := ValidationField("questionsId", "required")
	if GetCode(err) != ErrCodeValidation || GetField(err) != "questionsId" {
		t.Fatalf("unexpected code/field %q/%q", GetCode(err), GetField(err))
	}
	if GetCode(Internalf("x")) != ErrCodeInternal {
		t.Fatal("expected internal code")
	}
}
