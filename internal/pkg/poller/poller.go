package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/cenkalti/backoff/v4"
	"github.com/edugrade/segma/internal/pkg/gemini/api"
	"github.com/edugrade/segma/internal/pkg/utils"
)

// ErrExhausted indicates the attempt budget ran out before the check
// reported done
var ErrExhausted = errors.New("poll attempts exhausted")

// Check reports the current value and whether it is terminal.
// An error aborts polling immediately.
type Check[T any] func(ctx context.Context) (T, bool, error)

// Poll runs check at a fixed interval until it reports done or the attempt
// budget is exhausted. No backoff growth - expected wait times are short
// and bounded. The last observed value is returned together with
// ErrExhausted when the budget runs out.
func Poll[T any](ctx context.Context, interval time.Duration, attempts uint64, check Check[T]) (T, error) {
	var last T
	if attempts < 1 {
		attempts = 1
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), attempts-1), ctx)
	err := backoff.Retry(func() error {
		v, done, err := check(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		last = v
		if !done {
			return ErrExhausted
		}
		return nil
	}, bo)
	if err != nil {
		return last, err
	}
	return last, nil
}

// Opts configures the state poller
type Opts struct {
	Interval time.Duration
	Attempts uint64
}

// DefaultOpts returns the documented poll bounds: 1s interval, 10 attempts
func DefaultOpts() Opts {
	return Opts{Interval: time.Second, Attempts: 10}
}

// FileGetter queries remote file state
type FileGetter interface {
	GetFile(ctx context.Context, name string) (*api.File, error)
}

// WaitActive polls the remote file until it reaches the ACTIVE state.
// A terminal failure state or an exhausted budget surfaces as
// ErrProcessingTimeout carrying the last observed state.
func WaitActive(ctx context.Context, fg FileGetter, file *api.File, opts Opts) (*api.File, error) {
	if file.State == api.StateActive {
		return file, nil
	}
	lastState := file.State
	res, err := Poll(ctx, opts.Interval, opts.Attempts, func(ctx context.Context) (*api.File, bool, error) {
		f, err := fg.GetFile(ctx, file.Name)
		if err != nil {
			return nil, false, fmt.Errorf("can't get file state: %w", err)
		}
		goapp.Log.Debug().Str("name", f.Name).Str("state", f.State).Msg("file state")
		lastState = f.State
		if f.State == api.StateFailed {
			return nil, false, utils.NewErrProcessingTimeout(f.State)
		}
		return f, f.State == api.StateActive, nil
	})
	if err != nil {
		if errors.Is(err, ErrExhausted) {
			return nil, utils.NewErrProcessingTimeout(lastState)
		}
		return nil, err
	}
	return res, nil
}
