// internal/core/errors_test.go
package core

import (
	"errors"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := &Error{Code: "TEST_ERROR", Message: "test message"}
	if err.Error() != "[TEST_ERROR] test message" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{Code: "WRAP", Message: "wrapped", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("Unwrap should return cause")
	}
}

func TestError_Is(t *testing.T) {
	if !errors.Is(ErrBacktestFailed, ErrBacktestFailed) {
		t.Error("same error should match")
	}
	if errors.Is(ErrBacktestFailed, ErrExportFailed) {
		t.Error("different codes should not match")
	}
}

func TestError_UploadErrorsShareCode(t *testing.T) {
	if !errors.Is(ErrUploadSize, ErrUploadType) {
		t.Error("upload errors should match by code")
	}
}

func TestWrapError(t *testing.T) {
	cause := errors.New("original")
	wrapped := WrapError(ErrBacktestFailed, cause)
	if wrapped.Cause != cause {
		t.Error("cause not set")
	}
	if wrapped.Code != ErrBacktestFailed.Code {
		t.Error("code not preserved")
	}
	if wrapped.Message != ErrBacktestFailed.Message {
		t.Error("message not preserved")
	}
}
