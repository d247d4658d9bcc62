package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "lobserver.yaml").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		if err.Message() != "invalid configuration" {
			t.Errorf("expected message 'invalid configuration', got %s", err.Message())
		}
		file, exists := err.Context().GetString("file")
		if !exists || file != "lobserver.yaml" {
			t.Errorf("expected context file=lobserver.yaml, got %v", file)
		}
	})

	t.Run("Error detection through wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", BackendUnavailableError("store offline").Build())

		if !IsClassified(err) {
			t.Error("expected wrapped error to be classified")
		}
		if !HasCategory(err, CategoryBackendUnavailable) {
			t.Error("expected backend_unavailable category")
		}
		if GetSeverity(err) != SeverityWarning {
			t.Errorf("expected warning severity, got %s", GetSeverity(err))
		}
	})

	t.Run("Sentinel matching ignores context and cause", func(t *testing.T) {
		sentinel := NotFoundError("state document not found").Build()
		got := WrapError(errors.New("no such file"), CategoryNotFound, "state document not found").
			WithContext("path", "db.json").
			Build()

		if !errors.Is(got, sentinel) {
			t.Error("expected errors.Is to match sentinel by category and message")
		}
		other := NotFoundError("something else").Build()
		if errors.Is(got, other) {
			t.Error("expected different message not to match")
		}
	})

	t.Run("WithContext does not mutate the original", func(t *testing.T) {
		base := ParseError("bad bytes").Build()
		derived := base.WithContext("path", "db.json")

		if _, ok := base.Context().Get("path"); ok {
			t.Error("expected base context to stay untouched")
		}
		if p, _ := derived.Context().GetString("path"); p != "db.json" {
			t.Errorf("expected derived path context, got %q", p)
		}
	})
}

func TestErrorBuilder(t *testing.T) {
	t.Run("Fluent API", func(t *testing.T) {
		originalErr := errors.New("connection refused")
		err := WrapError(originalErr, CategoryBackendUnavailable, "remote unreachable").
			Warning().
			Retryable().
			WithContext("bucket", "lob-app").
			WithContext("attempt", 2).
			Build()

		if err.RetryStrategy() != RetryBackoff {
			t.Errorf("expected retry strategy %s, got %s", RetryBackoff, err.RetryStrategy())
		}
		if !errors.Is(err, originalErr) {
			t.Error("expected error to wrap original error")
		}
		if !err.CanRetry() {
			t.Error("expected backoff error to be retryable")
		}
	})

	t.Run("Convenience constructors", func(t *testing.T) {
		tests := []struct {
			name     string
			builder  *ErrorBuilder
			category ErrorCategory
			severity ErrorSeverity
			retry    RetryStrategy
		}{
			{"ConfigError", ConfigError("test"), CategoryConfig, SeverityFatal, RetryUserAction},
			{"ValidationError", ValidationError("test"), CategoryValidation, SeverityWarning, RetryNever},
			{"NotFoundError", NotFoundError("test"), CategoryNotFound, SeverityInfo, RetryNever},
			{"BackendUnavailableError", BackendUnavailableError("test"), CategoryBackendUnavailable, SeverityWarning, RetryBackoff},
			{"ParseError", ParseError("test"), CategoryParse, SeverityError, RetryUserAction},
			{"PersistenceError", PersistenceError("test"), CategoryPersistence, SeverityError, RetryBackoff},
			{"NotReadyError", NotReadyError("test"), CategoryNotReady, SeverityWarning, RetryImmediate},
			{"HistoryError", HistoryError("test"), CategoryHistory, SeverityError, RetryNever},
			{"InternalError", InternalError("test"), CategoryInternal, SeverityFatal, RetryNever},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.builder.Build()
				if err.Category() != tt.category {
					t.Errorf("expected category %s, got %s", tt.category, err.Category())
				}
				if err.Severity() != tt.severity {
					t.Errorf("expected severity %s, got %s", tt.severity, err.Severity())
				}
				if err.RetryStrategy() != tt.retry {
					t.Errorf("expected retry strategy %s, got %s", tt.retry, err.RetryStrategy())
				}
			})
		}
	})
}

func TestErrorContextMerge(t *testing.T) {
	ctx1 := ErrorContext{}.Set("key1", "value1").Set("shared", "original")
	ctx2 := ErrorContext{}.Set("key2", "value2").Set("shared", "overridden")

	merged := ctx1.Merge(ctx2)

	if v, _ := merged.GetString("key1"); v != "value1" {
		t.Errorf("expected key1=value1, got %s", v)
	}
	if v, _ := merged.GetString("key2"); v != "value2" {
		t.Errorf("expected key2=value2, got %s", v)
	}
	if v, _ := merged.GetString("shared"); v != "overridden" {
		t.Errorf("expected shared=overridden, got %s", v)
	}
}
