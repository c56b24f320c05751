package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	err := New(KindValidation).
		Class("a.b.Widget").
		Method("setText").
		Detail("return kind conflict: %s vs %s", "void", "bool").
		Build()

	msg := err.Error()
	for _, want := range []string{"validation error", "a.b.Widget.setText", "void vs bool"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestErrorMessageWithoutLocation(t *testing.T) {
	err := Marshal("cannot convert %T", struct{}{})
	if got := err.Error(); got != "marshal error: cannot convert struct {}" {
		t.Errorf("Error() = %q", got)
	}
}

func TestIsMatchesKind(t *testing.T) {
	err := Routing("a.B", "run", "no instance")
	if !stderrors.Is(err, ErrRouting) {
		t.Error("routing error should match ErrRouting")
	}
	if stderrors.Is(err, ErrValidation) {
		t.Error("routing error should not match ErrValidation")
	}
}

func TestIsThroughWrapping(t *testing.T) {
	inner := Unimplemented("a.Printer", "print")
	wrapped := fmt.Errorf("dispatch failed: %w", inner)
	if !stderrors.Is(wrapped, ErrUnimplemented) {
		t.Error("wrapped error should match ErrUnimplemented")
	}

	var e *Error
	if !stderrors.As(wrapped, &e) {
		t.Fatal("errors.As should find *Error")
	}
	if e.Method != "print" {
		t.Errorf("Method = %q, want print", e.Method)
	}
}

func TestConstructionUnwrap(t *testing.T) {
	cause := stderrors.New("init exploded")
	err := Construction("a.B", cause)
	if !stderrors.Is(err, cause) {
		t.Error("construction error should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "init exploded") {
		t.Errorf("Error() = %q, want cause text", err.Error())
	}
}

func TestBuildReturnsCopy(t *testing.T) {
	b := New(KindTypeSynthesis).Class("a.B")
	first := b.Build()
	b.Class("c.D")
	if first.Class != "a.B" {
		t.Errorf("first.Class = %q, want a.B", first.Class)
	}
}
