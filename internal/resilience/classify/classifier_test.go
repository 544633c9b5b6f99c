package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"pgregory.net/rapid"

	"github.com/vietddude/invoker/internal/core/domain"
	"github.com/vietddude/invoker/internal/resilience/backoff"
	"github.com/vietddude/invoker/internal/resilience/diagnostics"
)

type recorder struct {
	entries []domain.ClassifiedError
}

func (r *recorder) Record(e domain.ClassifiedError) {
	r.entries = append(r.entries, e)
}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var matchingMessages = []string{
	"Function invocation limit exceeded",
	"QUOTA EXCEEDED for project",
	"You have exceeded the monthly invocation limit",
	"exceeded your quota",
	"Limit exceeded",
	"limits have been exceeded",
	"invocations quota reached",
	"429 Too Many Requests",
	"too many invocations, slow down",
	"WORKER_LIMIT: not enough compute resources",
	"Rate limit reached for edge function",
	"request was rate-limited",
}

var nonMatchingMessages = []string{
	"connection reset by peer",
	"permission denied",
	"slot already booked",
	"limited edition",
	"deadline exceeded",
	"limit of 5 appointments per day",
	"invalid token",
	"",
}

func TestIsTransientFalsePositive(t *testing.T) {
	c := New(nil, WithLogger(quietLogger))

	for _, msg := range matchingMessages {
		if !c.IsTransientFalsePositive(errors.New(msg)) {
			t.Errorf("IsTransientFalsePositive(%q) = false, want true", msg)
		}
	}
	for _, msg := range nonMatchingMessages {
		if c.IsTransientFalsePositive(errors.New(msg)) {
			t.Errorf("IsTransientFalsePositive(%q) = true, want false", msg)
		}
	}
}

func TestIsTransientFalsePositive_RawShapes(t *testing.T) {
	c := New(nil, WithLogger(quietLogger))

	tests := []struct {
		name string
		raw  any
		want bool
	}{
		{"string", "invocation limit exceeded", true},
		{"object message", map[string]any{"message": "Quota exceeded"}, true},
		{"object error", map[string]any{"error": "rate limited"}, true},
		{"grpc status", status.Error(codes.ResourceExhausted, "function limit exceeded"), true},
		{"app error", domain.NewAppError("E", "too many requests", 429), true},
		{"nil", nil, false},
		{"number", 42, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsTransientFalsePositive(tt.raw); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTransientFalsePositive_Records(t *testing.T) {
	rec := &recorder{}
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := New(rec, WithLogger(quietLogger), WithClock(func() time.Time { return fixed }))

	c.IsTransientFalsePositive(errors.New("Limit exceeded"))
	c.IsTransientFalsePositive(errors.New("genuine failure"))

	if len(rec.entries) != 1 {
		t.Fatalf("recorded %d entries, want 1", len(rec.entries))
	}
	got := rec.entries[0]
	if got.Message != "Limit exceeded" || got.Rule != "limit-exceeded" || !got.Timestamp.Equal(fixed) {
		t.Errorf("entry = %+v", got)
	}
}

func TestClassify_LogsOperation(t *testing.T) {
	var buf bytes.Buffer
	rec := &recorder{}
	c := New(rec, WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))

	ctx := ContextWithOperation(context.Background(), "getUser")
	if !c.Classify(ctx, errors.New("Function invocation limit exceeded")) {
		t.Fatal("Classify = false, want true")
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line %q: %v", buf.String(), err)
	}
	if line["operation"] != "getUser" || line["event"] != "false_positive_detected" {
		t.Errorf("log line = %v", line)
	}
	if len(rec.entries) != 1 || rec.entries[0].Operation != "getUser" {
		t.Errorf("entries = %+v", rec.entries)
	}
}

func TestOperationFromContext(t *testing.T) {
	if got := OperationFromContext(context.Background()); got != "" {
		t.Errorf("empty context operation = %q", got)
	}
	var nilCtx context.Context
	if got := OperationFromContext(nilCtx); got != "" {
		t.Errorf("nil context operation = %q", got)
	}
	if got := OperationFromContext(ContextWithOperation(context.Background(), "book")); got != "book" {
		t.Errorf("operation = %q, want book", got)
	}
}

func TestMatch_NoSideEffects(t *testing.T) {
	rec := &recorder{}
	c := New(rec, WithLogger(quietLogger))

	rule, ok := c.Match("quota exceeded")
	if !ok || rule.Name() != "quota-exceeded" {
		t.Fatalf("Match = %v, %v", rule, ok)
	}
	if len(rec.entries) != 0 {
		t.Errorf("Match recorded %d entries, want 0", len(rec.entries))
	}
}

func TestRules_Pluggable(t *testing.T) {
	c := New(nil,
		WithLogger(quietLogger),
		WithRules(NewCodeRule("backend-code", "function_throttled")),
		WithExtraRules(
			MustPatternRule("custom", `spurious\s+capacity`),
			Func("status-503", func(n domain.NormalizedError) bool { return n.StatusCode == 503 }),
		),
	)

	if names := c.RuleNames(); strings.Join(names, ",") != "backend-code,custom,status-503" {
		t.Fatalf("RuleNames = %v", names)
	}
	if !c.IsTransientFalsePositive(domain.NewAppError("FUNCTION_THROTTLED", "x", 0)) {
		t.Error("code rule did not match")
	}
	if !c.IsTransientFalsePositive("Spurious Capacity warning") {
		t.Error("custom pattern did not match")
	}
	if !c.IsTransientFalsePositive(domain.NewAppError("", "unavailable", 503)) {
		t.Error("func rule did not match")
	}
	if c.IsTransientFalsePositive("limit exceeded") {
		t.Error("default rules should have been replaced")
	}
}

func TestNewPatternRule_Invalid(t *testing.T) {
	if _, err := NewPatternRule("bad", `([`); err == nil {
		t.Error("expected compile error")
	}
}

func TestClassifier_WithStore(t *testing.T) {
	store := diagnostics.NewStore(backoff.MustPolicy(backoff.DefaultConfig))
	c := New(store, WithLogger(quietLogger))

	for i := 0; i < 150; i++ {
		c.IsTransientFalsePositive("invocation limit exceeded")
	}
	snap := store.Snapshot()
	if snap.TotalCount != 150 || snap.Retained != 100 || len(snap.Recent) != 10 {
		t.Errorf("snapshot = total %d retained %d recent %d", snap.TotalCount, snap.Retained, len(snap.Recent))
	}
}

// Property: any casing of a known phrase, surrounded by arbitrary text, matches.
func TestProperty_SignaturesMatchCaseInsensitive(t *testing.T) {
	c := New(nil, WithLogger(quietLogger))
	rapid.Check(t, func(t *rapid.T) {
		phrase := rapid.SampledFrom(matchingMessages).Draw(t, "phrase")
		var b strings.Builder
		for _, r := range phrase {
			if rapid.Bool().Draw(t, "upper") {
				b.WriteString(strings.ToUpper(string(r)))
			} else {
				b.WriteString(strings.ToLower(string(r)))
			}
		}
		prefix := rapid.StringMatching(`[a-z0-9 .:]{0,20}`).Draw(t, "prefix")
		suffix := rapid.StringMatching(`[a-z0-9 .:]{0,20}`).Draw(t, "suffix")
		msg := prefix + " " + b.String() + " " + suffix

		if !c.IsTransientFalsePositive(msg) {
			t.Fatalf("IsTransientFalsePositive(%q) = false", msg)
		}
	})
}

// Property: messages without letters never match.
func TestProperty_NonMatching(t *testing.T) {
	c := New(nil, WithLogger(quietLogger))
	rapid.Check(t, func(t *rapid.T) {
		msg := rapid.StringMatching(`[0-9 .,:!?-]{0,60}`).Draw(t, "msg")
		if c.IsTransientFalsePositive(msg) {
			t.Fatalf("IsTransientFalsePositive(%q) = true", msg)
		}
	})
}
