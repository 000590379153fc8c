package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestNewCarriesCodeAndMessage(t *testing.T) {
	err := New(ErrCodeJobNotFound, "job missing")
	if err.Code != ErrCodeJobNotFound {
		t.Fatalf("code = %s, want %s", err.Code, ErrCodeJobNotFound)
	}
	if got := err.Error(); got != "[JOB_001] job missing" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestErrorIncludesDetail(t *testing.T) {
	err := NotFound("job not found").WithDetail("id=42")
	if got := err.Error(); got != "[COMMON_005] job not found: id=42" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestWrapNilReturnsNil(t *testing.T) {
	if Wrap(nil, ErrCodeDatabaseError, "query failed") != nil {
		t.Fatal("Wrap(nil) should return nil")
	}
}

func TestWrapPreservesChain(t *testing.T) {
	root := stderrors.New("connection refused")
	wrapped := Wrap(root, ErrCodeDatabaseError, "query failed")
	if !stderrors.Is(wrapped, root) {
		t.Fatal("errors.Is should find the root cause")
	}
}

func TestWrapPreservesOriginalCodeOnInternal(t *testing.T) {
	inner := New(ErrCodeJobNotFound, "missing")
	outer := Wrap(inner, ErrCodeInternal, "lookup failed")
	if outer.Code != ErrCodeJobNotFound {
		t.Fatalf("code = %s, want original %s", outer.Code, ErrCodeJobNotFound)
	}
}

func TestIsCodeTraversesChain(t *testing.T) {
	inner := New(ErrCodeLLMTimeout, "deadline exceeded")
	outer := fmt.Errorf("extractor: %w", inner)
	if !IsCode(outer, ErrCodeLLMTimeout) {
		t.Fatal("IsCode should traverse wrapped chains")
	}
	if IsCode(outer, ErrCodeJobNotFound) {
		t.Fatal("IsCode matched an unrelated code")
	}
}

func TestIsNotFoundVariants(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{New(ErrCodeNotFound, "x"), true},
		{New(ErrCodeJobNotFound, "x"), true},
		{New(ErrCodeDocumentNotFound, "x"), true},
		{New(ErrCodeConflict, "x"), false},
		{stderrors.New("plain"), false},
	}
	for _, tc := range cases {
		if got := IsNotFound(tc.err); got != tc.want {
			t.Errorf("IsNotFound(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestGetCode(t *testing.T) {
	if GetCode(nil) != CodeOK {
		t.Fatal("nil error should map to CodeOK")
	}
	if GetCode(stderrors.New("plain")) != ErrCodeInternal {
		t.Fatal("unknown error should map to ErrCodeInternal")
	}
	if GetCode(New(ErrCodeIndexSearch, "x")) != ErrCodeIndexSearch {
		t.Fatal("AppError code not extracted")
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	if HTTPStatusForCode(ErrCodeJobNotFound) != 404 {
		t.Fatal("JOB_001 should map to 404")
	}
	if HTTPStatusForCode(ErrorCode("UNKNOWN_999")) != 500 {
		t.Fatal("unknown code should default to 500")
	}
	if !IsClientError(ErrCodeBadRequest) || IsServerError(ErrCodeBadRequest) {
		t.Fatal("COMMON_002 is a client error")
	}
	if !IsServerError(ErrCodeIndexInsert) {
		t.Fatal("IDX_001 is a server error")
	}
}

func TestNilReceiverBuilders(t *testing.T) {
	var e *AppError
	if e.WithDetail("x") != nil || e.WithCause(stderrors.New("y")) != nil {
		t.Fatal("builders on nil receiver must return nil")
	}
}
