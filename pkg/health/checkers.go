package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck reports the error returned by p.Ping.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping")
		}
		return nil
	}
}

// StatusCmd matches go-redis commands, whose result is read through Err.
type StatusCmd interface {
	Err() error
}

// CmdCheck adapts a go-redis style ping, e.g.
// CmdCheck(func(ctx context.Context) StatusCmd { return client.Ping(ctx) }).
func CmdCheck(ping func(ctx context.Context) StatusCmd) CheckFunc {
	return func(ctx context.Context) error {
		if err := ping(ctx).Err(); err != nil {
			return errors.Wrap(err, "ping")
		}
		return nil
	}
}

// GoroutineCountCheck fails when more than threshold goroutines are running.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}
