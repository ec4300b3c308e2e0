package errors

import (
	"fmt"
	"testing"
)

func TestGharError_Error(t *testing.T) {
	err := &GharError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "record not found",
	}

	expected := "NOT_FOUND: record not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("tag is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "tag is required" {
		t.Errorf("Message = %q, want %q", err.Message, "tag is required")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("bills", 42)

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["key"] != "bills" {
		t.Errorf("Details[key] = %v, want %q", err.Details["key"], "bills")
	}
	if err.Details["id"] != int64(42) {
		t.Errorf("Details[id] = %v, want 42", err.Details["id"])
	}
}

func TestNewInvalidTransition(t *testing.T) {
	err := NewInvalidTransition("success", "submitting")

	if err.Code != ErrInvalidTransition {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidTransition)
	}
	if err.Status != 409 {
		t.Errorf("Status = %d, want 409", err.Status)
	}
	if err.Details["from"] != "success" || err.Details["to"] != "submitting" {
		t.Errorf("Details = %v", err.Details)
	}
}

func TestNewValidationFailed(t *testing.T) {
	fields := []FieldError{
		{Field: "make", Message: "is required"},
		{Field: "year", Message: "must be a number"},
	}
	err := NewValidationFailed(fields)

	if err.Code != ErrValidationFailed {
		t.Errorf("Code = %q, want %q", err.Code, ErrValidationFailed)
	}
	if err.Status != 422 {
		t.Errorf("Status = %d, want 422", err.Status)
	}
	if err.Message != "invalid fields: make, year" {
		t.Errorf("Message = %q", err.Message)
	}
	if got := Fields(err); len(got) != 2 || got[1].Field != "year" {
		t.Errorf("Fields() = %v, want 2 entries ending in year", got)
	}
}

func TestNewStorageWriteFailed(t *testing.T) {
	err := NewStorageWriteFailed("vehicles", fmt.Errorf("disk full"))

	if err.Code != ErrStorageWriteFailed {
		t.Errorf("Code = %q, want %q", err.Code, ErrStorageWriteFailed)
	}
	if err.Status != 507 {
		t.Errorf("Status = %d, want 507", err.Status)
	}
	if err.Message != "failed to save vehicles: disk full" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewInternal(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		err := NewInternal(fmt.Errorf("database connection failed"))

		if err.Code != ErrInternal {
			t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
		}
		if err.Status != 500 {
			t.Errorf("Status = %d, want 500", err.Status)
		}
		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
		if err.Details["internal_error"] != "database connection failed" {
			t.Errorf("Details[internal_error] = %q", err.Details["internal_error"])
		}
	})

	t.Run("with nil", func(t *testing.T) {
		err := NewInternal(nil)

		if err.Details == nil {
			t.Error("Details should not be nil")
		}
	})
}

func TestIs(t *testing.T) {
	t.Run("matching code", func(t *testing.T) {
		if !Is(NewNotFound("bills", 1), ErrNotFound) {
			t.Error("Is() = false, want true")
		}
	})

	t.Run("non-matching code", func(t *testing.T) {
		if Is(NewNotFound("bills", 1), ErrInternal) {
			t.Error("Is() = true, want false")
		}
	})

	t.Run("non-GharError", func(t *testing.T) {
		if Is(fmt.Errorf("plain error"), ErrNotFound) {
			t.Error("Is() = true, want false for non-GharError")
		}
	})

	t.Run("wrapped GharError", func(t *testing.T) {
		wrapped := fmt.Errorf("line 3: %w", NewNotFound("bills", 1))
		if !Is(wrapped, ErrNotFound) {
			t.Error("Is() = false, want true for wrapped GharError")
		}
	})
}

func TestFields_NonValidation(t *testing.T) {
	if Fields(NewInvalidRequest("x")) != nil {
		t.Error("Fields() should be nil for non-validation errors")
	}
	if Fields(nil) != nil {
		t.Error("Fields(nil) should be nil")
	}
}

func TestMessageOf(t *testing.T) {
	if got := MessageOf(fmt.Errorf("wrap: %w", NewInvalidRequest("bad input"))); got != "bad input" {
		t.Errorf("MessageOf() = %q, want %q", got, "bad input")
	}
	if got := MessageOf(fmt.Errorf("plain")); got != "plain" {
		t.Errorf("MessageOf() = %q, want %q", got, "plain")
	}
	if got := MessageOf(nil); got != "" {
		t.Errorf("MessageOf(nil) = %q, want empty", got)
	}
}
