package sgerrors

import (
	"errors"
	"testing"

	"github.com/standardbeagle/sge/internal/types"
)

func TestContractError(t *testing.T) {
	underlying := errors.New("scope index out of range")
	err := NewContractError("AddSymbolTable", "scope 7 exceeds arena of 3", underlying).
		WithFile(types.FileID("file:///Order.cls"))

	if err.Type != ErrorTypeContract {
		t.Errorf("Expected Type to be ErrorTypeContract, got %v", err.Type)
	}

	if err.FileID != "file:///Order.cls" {
		t.Errorf("Expected FileID to be file:///Order.cls, got %s", err.FileID)
	}

	if !errors.Is(err, underlying) {
		t.Errorf("Expected error to unwrap to underlying error")
	}

	expectedMsg := "AddSymbolTable in file:///Order.cls rejected for contract_violation: scope 7 exceeds arena of 3"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestContractError_NoFile(t *testing.T) {
	err := NewContractError("ResolveSymbol", "empty symbol name", nil)

	expectedMsg := "ResolveSymbol rejected for contract_violation: empty symbol name"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestDecodeError(t *testing.T) {
	underlying := errors.New("unexpected end of JSON input")
	err := NewDecodeError("/lib/System/String.symbols.json.gz", underlying)

	if !errors.Is(err, underlying) {
		t.Errorf("Expected error to unwrap to underlying error")
	}

	expectedMsg := "decode failed for /lib/System/String.symbols.json.gz: unexpected end of JSON input"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestFileError_PermissionDetection(t *testing.T) {
	err := NewFileError("read", "/locked/file", errors.New("permission denied"))
	if err.Type != ErrorTypePermission {
		t.Errorf("Expected Type to be ErrorTypePermission, got %v", err.Type)
	}

	err = NewFileError("read", "/missing/file", errors.New("no such file"))
	if err.Type != ErrorTypeFileNotFound {
		t.Errorf("Expected Type to be ErrorTypeFileNotFound, got %v", err.Type)
	}
}

func TestConfigError(t *testing.T) {
	underlying := errors.New("must be positive")
	err := NewConfigError("impact.max_depth", "-1", underlying)

	if !errors.Is(err, underlying) {
		t.Errorf("Expected error to unwrap to underlying error")
	}

	expectedMsg := "config error for field impact.max_depth (value -1): must be positive"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestMultiError(t *testing.T) {
	e1 := errors.New("first")
	e2 := errors.New("second")

	multi := NewMultiError([]error{e1, nil, e2})
	if len(multi.Errors) != 2 {
		t.Errorf("Expected 2 errors after nil filtering, got %d", len(multi.Errors))
	}

	if !errors.Is(multi, e1) || !errors.Is(multi, e2) {
		t.Errorf("Expected multi-error to match both wrapped errors")
	}

	if NewMultiError(nil).ErrorOrNil() != nil {
		t.Errorf("Expected empty multi-error to collapse to nil")
	}

	if multi.ErrorOrNil() == nil {
		t.Errorf("Expected non-empty multi-error to remain an error")
	}
}

func TestMultiError_Message(t *testing.T) {
	single := NewMultiError([]error{errors.New("only")})
	if single.Error() != "only" {
		t.Errorf("Expected single-error message to pass through, got %q", single.Error())
	}

	if NewMultiError(nil).Error() != "no errors" {
		t.Errorf("Expected empty message 'no errors', got %q", NewMultiError(nil).Error())
	}
}
