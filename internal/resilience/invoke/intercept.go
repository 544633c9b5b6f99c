package invoke

import (
	"context"
	"fmt"

	"github.com/vietddude/invoker/internal/core/domain"
)

// FalsePositiveError replaces a classified error whose retry budget ran out.
type FalsePositiveError struct {
	Operation string
	Attempts  int
	Err       error
}

func (e *FalsePositiveError) Error() string {
	return fmt.Sprintf(
		"%s: the backend reported a known false-positive limit error on all %d attempts; this is not a real quota problem, please try again shortly",
		e.Operation, e.Attempts,
	)
}

func (e *FalsePositiveError) Unwrap() error { return e.Err }

// Code lets the normalizer tag the error.
func (e *FalsePositiveError) Code() string { return domain.CodeFalsePositiveLimit }

// InterceptAndCorrect runs op like Invoke. When a classified error exhausts
// the retry budget it returns a *FalsePositiveError wrapping the original.
// In silent mode no notifications are emitted and the original error is
// returned after a server-side log line.
func InterceptAndCorrect[T any](
	ctx context.Context,
	inv *Invoker,
	name string,
	op func(ctx context.Context) (T, error),
	silent bool,
) (T, error) {
	notifier := inv.notifier
	if silent {
		notifier = nopNotifier{}
	}

	v, out, err := run(ctx, inv, name, op, notifier)
	if err == nil || !out.classified || out.cancelled {
		return v, err
	}

	if silent {
		inv.logger.Warn("Suppressed false positive limit error",
			"operation", name,
			"attempts", out.attempts,
			"error", err,
		)
		return v, err
	}
	return v, &FalsePositiveError{Operation: name, Attempts: out.attempts, Err: err}
}
