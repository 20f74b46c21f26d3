package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
		visible   bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true, visible: true},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied", visible: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found", visible: true},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true, visible: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, publicMsg: "rate limit exceeded", retryable: true, visible: true},
		{code: CodeUnavailable, status: http.StatusServiceUnavailable, publicMsg: "temporarily unavailable", retryable: true, visible: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
		if meta.UserVisible != tt.visible {
			t.Fatalf("code %s expected user visible %v got %v", tt.code, tt.visible, meta.UserVisible)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "unknown category")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "unknown category" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	base.WithDetails(map[string]any{"index": 7})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("timeout")
	wrapped := Wrap(CodeDependency, cause, "fetch catalog")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
	if wrapped.Error() != "DEPENDENCY_ERROR: fetch catalog: timeout" {
		t.Fatalf("unexpected error string %q", wrapped.Error())
	}
}

func TestAsAndIsCodeFollowTheChain(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeForbidden, "operators only"))
	typed := As(err)
	if typed == nil || typed.Code() != CodeForbidden {
		t.Fatalf("expected forbidden error, got %v", typed)
	}
	if !IsCode(err, CodeForbidden) {
		t.Fatal("expected IsCode to match")
	}
	if IsCode(stdErrors.New("plain"), CodeForbidden) {
		t.Fatal("plain errors carry no code")
	}
	if As(nil) != nil {
		t.Fatal("As(nil) should be nil")
	}
}

func TestRetryable(t *testing.T) {
	transient := Wrap(CodeDependency, stdErrors.New("502 bad gateway"), "sendMessage request failed")
	if !Retryable(fmt.Errorf("operator 7: %w", transient)) {
		t.Fatal("dependency errors are retryable")
	}
	if Retryable(Wrap(CodeDependency, stdErrors.New("chat not found"), "sendMessage request failed").Permanent()) {
		t.Fatal("permanent errors are not retryable")
	}
	if Retryable(New(CodeValidation, "bad index")) {
		t.Fatal("validation errors are not retryable")
	}
	if Retryable(stdErrors.New("plain")) {
		t.Fatal("uncoded errors are not retryable")
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CodeNotFound, "order %d not found", 12)
	if err.Message() != "order 12 not found" {
		t.Fatalf("unexpected message %q", err.Message())
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(CodeValidation, "That button is out of date.")); got != "That button is out of date." {
		t.Fatalf("unexpected message %q", got)
	}
	if got := UserMessage(Wrap(CodeDependency, stdErrors.New("dial tcp"), "sanity fetch")); got != "dependency unavailable" {
		t.Fatalf("dependency errors should hide internals, got %q", got)
	}
	if got := UserMessage(stdErrors.New("boom")); got != "internal server error" {
		t.Fatalf("untyped errors should use internal message, got %q", got)
	}
}

func TestLogFields(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("eof"), "decode").WithDetails(map[string]any{"source": "sanity"})
	fields := LogFields(fmt.Errorf("reload: %w", err))
	if fields["error_code"] != string(CodeDependency) {
		t.Fatalf("unexpected code %v", fields["error_code"])
	}
	if fields["error_root"] != "eof" {
		t.Fatalf("unexpected root %v", fields["error_root"])
	}
	if _, ok := fields["error_details"]; !ok {
		t.Fatal("dependency errors keep their details")
	}

	plain := LogFields(stdErrors.New("boom"))
	if plain["error_code"] != string(CodeInternal) {
		t.Fatalf("untyped errors log as internal, got %v", plain["error_code"])
	}
	if _, ok := plain["error_root"]; ok {
		t.Fatal("a single error has no separate root")
	}
	if len(LogFields(nil)) != 0 {
		t.Fatal("expected no fields for nil")
	}
}
