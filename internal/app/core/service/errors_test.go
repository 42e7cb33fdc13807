package service

import (
	"errors"
	"testing"
)

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("todo item", "42")

	expected := `todo item "42" not found`
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected error to wrap ErrNotFound")
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound should return true")
	}
}

func TestNotFoundError_NoID(t *testing.T) {
	err := NewNotFoundError("todo item", "")
	if err.Error() != "todo item not found" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("title", "prohibited word")

	expected := "title: prohibited word"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
	if !IsValidationError(err) {
		t.Error("IsValidationError should return true")
	}
	if IsConflict(err) || IsNotFound(err) {
		t.Error("validation error must not match other categories")
	}
}

func TestConflictError(t *testing.T) {
	err := NewConflictError("todo item", "", "duplicate title")

	if err.Error() != "todo item conflict: duplicate title" {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if !IsConflict(err) {
		t.Error("IsConflict should return true")
	}
	if !IsConflict(ErrAlreadyExists) {
		t.Error("ErrAlreadyExists should count as a conflict")
	}
}

func TestCooldownError(t *testing.T) {
	err := &CooldownError{Resource: "todo item", ID: "7", ElapsedDays: 2, RemainingDays: 5}

	expected := "cannot delete items completed less than 7 days ago: this item was completed 2 day(s) ago, wait 5 more day(s)"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
	if !IsConflict(err) {
		t.Error("cooldown should be a conflict")
	}

	var ce *CooldownError
	if !errors.As(WrapServiceError("todos", "Delete", err), &ce) || ce.RemainingDays != 5 {
		t.Error("expected errors.As to recover the cooldown details")
	}
}

func TestServiceError(t *testing.T) {
	underlying := NewNotFoundError("todo item", "9")
	err := WrapServiceError("todos", "Update", underlying)

	expected := `todos.Update: todo item "9" not found`
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("wrapped error should still match ErrNotFound")
	}
}

func TestWrapServiceError_Nil(t *testing.T) {
	if WrapServiceError("todos", "op", nil) != nil {
		t.Error("WrapServiceError(nil) should return nil")
	}
}

func TestStandardErrors(t *testing.T) {
	tests := []struct {
		err  error
		name string
	}{
		{ErrNotFound, "ErrNotFound"},
		{ErrAlreadyExists, "ErrAlreadyExists"},
		{ErrInvalidInput, "ErrInvalidInput"},
		{ErrConflict, "ErrConflict"},
	}

	for _, tc := range tests {
		if tc.err == nil {
			t.Errorf("%s should not be nil", tc.name)
			continue
		}
		if tc.err.Error() == "" {
			t.Errorf("%s should have non-empty message", tc.name)
		}
	}
}
