package query

import (
	"context"

	"go.uber.org/zap"
)

// Failure toast defaults for mutations that do not set their own.
const (
	DefaultErrorTitle    = "Error"
	DefaultErrorFallback = "Something went wrong, try again later"
)

// Mutation describes one write operation and its effect on the cache.
// V is the input, R the server's answer.
type Mutation[V, R any] struct {
	// Name labels the mutation in logs.
	Name    string
	Options Options

	// Fn performs the write.
	Fn func(ctx context.Context, vars V) (R, error)

	// Cancel lists prefixes whose in-flight reads are superseded before
	// OnMutate runs.
	Cancel func(vars V) []Key
	// OnMutate applies optimistic values through s. Everything it touches
	// is restored if Fn fails.
	OnMutate func(s *Snapshot, vars V)
	// OnSuccess writes the confirmed values.
	OnSuccess func(c *Client, vars V, res R)
	// Invalidate lists the prefixes marked stale once Fn settles, whatever
	// the outcome.
	Invalidate func(vars V) []Key

	// Success builds the success toast; nil means none.
	Success func(vars V, res R) *Toast
	// ErrorTitle is the title of the failure toast, DefaultErrorTitle when
	// empty. Every failed mutation shows one.
	ErrorTitle string
	// ErrorFallback describes failures that carry no server message,
	// DefaultErrorFallback when empty.
	ErrorFallback string
}

// Mutate runs m with vars against c.
func Mutate[V, R any](ctx context.Context, c *Client, m Mutation[V, R], vars V) (R, error) {
	if m.Cancel != nil {
		c.Cancel(m.Cancel(vars)...)
	}
	snap := c.Snapshot()
	if m.OnMutate != nil {
		m.OnMutate(snap, vars)
	}

	var res R
	err := m.Options.do(ctx, func(ctx context.Context) error {
		var err error
		res, err = m.Fn(ctx, vars)
		return err
	})

	if err != nil {
		snap.Restore()
		c.log.Debug("mutation failed",
			zap.String("mutation", m.Name),
			zap.Int("rolled_back", len(snap.order)),
			zap.Error(err),
		)
		c.Notify(Toast{Level: LevelError, Title: m.errorTitle(), Description: Describe(err, m.errorFallback())})
	} else {
		if m.OnSuccess != nil {
			m.OnSuccess(c, vars, res)
		}
		if m.Success != nil {
			if t := m.Success(vars, res); t != nil {
				c.Notify(*t)
			}
		}
	}

	if m.Invalidate != nil {
		c.Invalidate(m.Invalidate(vars)...)
	}
	return res, err
}

func (m Mutation[V, R]) errorTitle() string {
	if m.ErrorTitle == "" {
		return DefaultErrorTitle
	}
	return m.ErrorTitle
}

func (m Mutation[V, R]) errorFallback() string {
	if m.ErrorFallback == "" {
		return DefaultErrorFallback
	}
	return m.ErrorFallback
}
