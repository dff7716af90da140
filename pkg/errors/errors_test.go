package errors

import (
	"errors"
	"net/http"
	"testing"
)

// TestNew tests creating a new AppError
func TestNew(t *testing.T) {
	err := New(ErrCodeValidation, "validation failed")

	if err == nil {
		t.Fatal("New() returned nil")
	}

	if err.Code != ErrCodeValidation {
		t.Errorf("Code = %s, want %s", err.Code, ErrCodeValidation)
	}

	if err.Message != "validation failed" {
		t.Errorf("Message = %s, want 'validation failed'", err.Message)
	}

	if err.Err != nil {
		t.Error("Err should be nil for New()")
	}
}

// TestWrap tests wrapping an existing error
func TestWrap(t *testing.T) {
	originalErr := errors.New("original error")
	err := Wrap(ErrCodeInternal, "wrapped error", originalErr)

	if err == nil {
		t.Fatal("Wrap() returned nil")
	}

	if err.Code != ErrCodeInternal {
		t.Errorf("Code = %s, want %s", err.Code, ErrCodeInternal)
	}

	if err.Message != "wrapped error" {
		t.Errorf("Message = %s, want 'wrapped error'", err.Message)
	}

	if err.Err != originalErr {
		t.Error("Err should be the original error")
	}
}

// TestAppError_Error tests the Error method
func TestAppError_Error(t *testing.T) {
	t.Run("without underlying error", func(t *testing.T) {
		err := New(ErrCodeValidation, "invalid input")
		errStr := err.Error()

		if errStr != "[E1001] invalid input" {
			t.Errorf("Error() = %s, want '[E1001] invalid input'", errStr)
		}
	})

	t.Run("with underlying error", func(t *testing.T) {
		originalErr := errors.New("file not found")
		err := Wrap(ErrCodeConfigNotFound, "config error", originalErr)
		errStr := err.Error()

		if errStr != "[E1005] config error: file not found" {
			t.Errorf("Error() = %s, want '[E1005] config error: file not found'", errStr)
		}
	})
}

// TestAppError_Unwrap tests the Unwrap method
func TestAppError_Unwrap(t *testing.T) {
	t.Run("with underlying error", func(t *testing.T) {
		originalErr := errors.New("original")
		err := Wrap(ErrCodeInternal, "message", originalErr)

		unwrapped := err.Unwrap()
		if unwrapped != originalErr {
			t.Error("Unwrap() should return the original error")
		}
	})

	t.Run("without underlying error", func(t *testing.T) {
		err := New(ErrCodeValidation, "message")

		unwrapped := err.Unwrap()
		if unwrapped != nil {
			t.Error("Unwrap() should return nil when no underlying error")
		}
	})

	t.Run("errors.Unwrap compatibility", func(t *testing.T) {
		originalErr := errors.New("original")
		err := Wrap(ErrCodeInternal, "message", originalErr)

		unwrapped := errors.Unwrap(err)
		if unwrapped != originalErr {
			t.Error("errors.Unwrap() should return the original error")
		}
	})
}

// TestAppError_HTTPStatus tests the HTTPStatus method
func TestAppError_HTTPStatus(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		// Not Found
		{ErrCodeNotFound, http.StatusNotFound},

		// Bad Request
		{ErrCodeValidation, http.StatusBadRequest},

		// Too Many Requests
		{ErrCodeProviderRateLimit, http.StatusTooManyRequests},

		// Gateway Timeout
		{ErrCodeTimeout, http.StatusGatewayTimeout},

		// Bad Gateway
		{ErrCodeProviderTransient, http.StatusBadGateway},
		{ErrCodeProviderExhausted, http.StatusBadGateway},

		// Internal Server Error (default)
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeProviderFatal, http.StatusInternalServerError},
		{ErrCodePipelineFailed, http.StatusInternalServerError},
		{ErrCodeStructureParse, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code, "test error")
			status := err.HTTPStatus()

			if status != tt.expected {
				t.Errorf("HTTPStatus() = %d, want %d", status, tt.expected)
			}
		})
	}
}

// TestAppError_WithDetails tests the WithDetails method
func TestAppError_WithDetails(t *testing.T) {
	err := New(ErrCodeValidation, "validation error")

	details := map[string]string{
		"field": "query",
		"error": "must not be empty",
	}

	result := err.WithDetails(details)

	// Should return the same error (chainable)
	if result != err {
		t.Error("WithDetails() should return the same error")
	}

	if err.Details == nil {
		t.Fatal("Details should not be nil after WithDetails()")
	}

	detailsMap, ok := err.Details.(map[string]string)
	if !ok {
		t.Fatal("Details should be map[string]string")
	}

	if detailsMap["field"] != "query" {
		t.Errorf("Details[field] = %s, want 'query'", detailsMap["field"])
	}
}

// TestErrInternal tests the ErrInternal convenience function
func TestErrInternal(t *testing.T) {
	originalErr := errors.New("provider connection failed")
	err := ErrInternal("internal error", originalErr)

	if err.Code != ErrCodeInternal {
		t.Errorf("Code = %s, want %s", err.Code, ErrCodeInternal)
	}

	if err.Err != originalErr {
		t.Error("Err should be the original error")
	}
}

// TestErrValidation tests the ErrValidation convenience function
func TestErrValidation(t *testing.T) {
	err := ErrValidation("query is required")

	if err.Code != ErrCodeValidation {
		t.Errorf("Code = %s, want %s", err.Code, ErrCodeValidation)
	}

	if err.Message != "query is required" {
		t.Errorf("Message = %s, want 'query is required'", err.Message)
	}
}

// TestErrNotFound tests the ErrNotFound convenience function
func TestErrNotFound(t *testing.T) {
	err := ErrNotFound("report")

	if err.Code != ErrCodeNotFound {
		t.Errorf("Code = %s, want %s", err.Code, ErrCodeNotFound)
	}

	expectedMsg := "report not found"
	if err.Message != expectedMsg {
		t.Errorf("Message = %s, want %s", err.Message, expectedMsg)
	}
}

// TestIsAppError tests the IsAppError function
func TestIsAppError(t *testing.T) {
	t.Run("AppError", func(t *testing.T) {
		err := New(ErrCodeValidation, "test")
		if !IsAppError(err) {
			t.Error("IsAppError() should return true for AppError")
		}
	})

	t.Run("regular error", func(t *testing.T) {
		err := errors.New("regular error")
		if IsAppError(err) {
			t.Error("IsAppError() should return false for regular error")
		}
	})

	t.Run("nil error", func(t *testing.T) {
		if IsAppError(nil) {
			t.Error("IsAppError() should return false for nil")
		}
	})
}

// TestAsAppError tests the AsAppError function
func TestAsAppError(t *testing.T) {
	t.Run("AppError", func(t *testing.T) {
		original := New(ErrCodeValidation, "test")
		appErr, ok := AsAppError(original)

		if !ok {
			t.Error("AsAppError() should return true for AppError")
		}

		if appErr != original {
			t.Error("AsAppError() should return the same error")
		}
	})

	t.Run("regular error", func(t *testing.T) {
		err := errors.New("regular error")
		_, ok := AsAppError(err)

		if ok {
			t.Error("AsAppError() should return false for regular error")
		}
	})
}

// TestIsCode tests the IsCode function
func TestIsCode(t *testing.T) {
	rateLimited := New(ErrCodeProviderRateLimit, "quota exceeded")

	if !IsCode(rateLimited, ErrCodeProviderRateLimit) {
		t.Error("IsCode() should match the error's own code")
	}

	if IsCode(rateLimited, ErrCodeProviderFatal) {
		t.Error("IsCode() should not match a different code")
	}

	if IsCode(errors.New("plain"), ErrCodeInternal) {
		t.Error("IsCode() should return false for non-AppError")
	}
}

// TestErrorCodes tests that all error codes are unique
func TestErrorCodes(t *testing.T) {
	codes := []ErrorCode{
		ErrCodeInternal,
		ErrCodeValidation,
		ErrCodeNotFound,
		ErrCodeTimeout,
		ErrCodeCanceled,
		ErrCodeConfigNotFound,
		ErrCodeConfigInvalid,
		ErrCodeConfigParse,
		ErrCodeProviderRateLimit,
		ErrCodeProviderTransient,
		ErrCodeProviderFatal,
		ErrCodeProviderExhausted,
		ErrCodeProviderEmpty,
		ErrCodePipelineFailed,
		ErrCodeQueryGeneration,
		ErrCodeRetrievalFailed,
		ErrCodeRevisionFailed,
		ErrCodeStructureParse,
		ErrCodeSectionGeneration,
		ErrCodeQualityValidation,
		ErrCodeReportAssembly,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true

		if len(code) == 0 {
			t.Error("Error code should not be empty")
		}
	}
}
