// Package chain implements the ordered-fallback executor shared by every pipeline stage.
//
// A Chain holds providers for one capability and tries them strictly in order. The first provider
// whose result is accepted wins and later providers are never invoked. When all providers fail the
// caller receives an *AggregateError and applies its own terminal fallback.
package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yangwenmai/autoblog/internal/events"
	"github.com/yangwenmai/autoblog/internal/logger"
)

// ErrMissingCredentials is returned by providers whose API key is not configured. The chain treats
// it as an ordinary provider failure.
var ErrMissingCredentials = errors.New("missing credentials")

// ErrRejected wraps results that a provider produced but the stage did not accept.
var ErrRejected = errors.New("result rejected")

// Provider is one interchangeable implementation of a capability.
type Provider[In, Out any] interface {
	Name() string
	Produce(ctx context.Context, in In) (Out, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc[In, Out any] struct {
	ID string
	Fn func(ctx context.Context, in In) (Out, error)
}

// Name returns the provider identity.
func (p ProviderFunc[In, Out]) Name() string { return p.ID }

// Produce calls the wrapped function.
func (p ProviderFunc[In, Out]) Produce(ctx context.Context, in In) (Out, error) {
	return p.Fn(ctx, in)
}

// Failure is one provider's failed attempt.
type Failure struct {
	Provider string
	Err      error
}

// AggregateError is returned when every provider in a chain failed.
type AggregateError struct {
	Stage    string
	Failures []Failure
}

func (e *AggregateError) Error() string {
	if len(e.Failures) == 0 {
		return e.Stage + ": no providers configured"
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Provider+": "+f.Err.Error())
	}
	return fmt.Sprintf("%s: all %d providers failed (%s)", e.Stage, len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes every provider error to errors.Is / errors.As.
func (e *AggregateError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Result is a successful chain outcome.
type Result[Out any] struct {
	Value    Out
	Provider string
}

// Chain tries providers of one stage in order.
type Chain[In, Out any] struct {
	stage     string
	providers []Provider[In, Out]
	accept    func(Out) error
	log       logger.Logger
	reporter  events.Reporter
	now       func() time.Time
}

// Option configures a Chain.
type Option[In, Out any] func(*Chain[In, Out])

// WithAccept sets the stage success criterion applied to a provider's output. A non-nil error
// turns the attempt into a failure.
func WithAccept[In, Out any](fn func(Out) error) Option[In, Out] {
	return func(c *Chain[In, Out]) { c.accept = fn }
}

// WithLogger sets the logger used for per-attempt diagnostics.
func WithLogger[In, Out any](l logger.Logger) Option[In, Out] {
	return func(c *Chain[In, Out]) { c.log = l }
}

// WithReporter sets the event sink for provider outcomes.
func WithReporter[In, Out any](r events.Reporter) Option[In, Out] {
	return func(c *Chain[In, Out]) { c.reporter = r }
}

// New creates a chain for stage over the given providers. Nil providers are skipped.
func New[In, Out any](stage string, providers []Provider[In, Out], opts ...Option[In, Out]) *Chain[In, Out] {
	c := &Chain[In, Out]{
		stage:    stage,
		log:      logger.NewNop(),
		reporter: events.Nop{},
		now:      time.Now,
	}
	for _, p := range providers {
		if p != nil {
			c.providers = append(c.providers, p)
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stage returns the stage name.
func (c *Chain[In, Out]) Stage() string { return c.stage }

// Len returns the number of providers.
func (c *Chain[In, Out]) Len() int { return len(c.providers) }

// Names returns provider names in invocation order.
func (c *Chain[In, Out]) Names() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Attempt returns the first accepted result. Later providers are not invoked once one succeeds.
func (c *Chain[In, Out]) Attempt(ctx context.Context, in In) (Result[Out], error) {
	var res Result[Out]
	err := c.Gather(ctx, in, func(provider string, out Out) bool {
		res = Result[Out]{Value: out, Provider: provider}
		return false
	})
	return res, err
}

// Gather hands every accepted result to more, in provider order, until more returns false or the
// providers run out. It returns an *AggregateError only when no provider succeeded.
func (c *Chain[In, Out]) Gather(ctx context.Context, in In, more func(provider string, out Out) bool) error {
	agg := &AggregateError{Stage: c.stage}
	succeeded := false

	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			agg.Failures = append(agg.Failures, Failure{Provider: p.Name(), Err: err})
			continue
		}

		out, err := c.try(ctx, p, in)
		if err != nil {
			agg.Failures = append(agg.Failures, Failure{Provider: p.Name(), Err: err})
			c.fail(p.Name(), err)
			continue
		}

		succeeded = true
		c.reporter.Report(events.Event{Kind: events.ProviderUsed, Time: c.now(), Stage: c.stage, Provider: p.Name()})
		if !more(p.Name(), out) {
			return nil
		}
	}

	if succeeded {
		return nil
	}
	return agg
}

// try runs one provider. A panic inside a provider is converted into a failure so that no partial
// state escapes.
func (c *Chain[In, Out]) try(ctx context.Context, p Provider[In, Out], in In) (out Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero Out
			out, err = zero, fmt.Errorf("provider panic: %v", r)
		}
	}()

	out, err = p.Produce(ctx, in)
	if err != nil {
		var zero Out
		return zero, err
	}
	if c.accept != nil {
		if aErr := c.accept(out); aErr != nil {
			var zero Out
			return zero, fmt.Errorf("%w: %w", ErrRejected, aErr)
		}
	}
	return out, nil
}

func (c *Chain[In, Out]) fail(provider string, err error) {
	fields := []logger.Field{
		logger.String("stage", c.stage),
		logger.String("provider", provider),
		logger.Error(err),
	}
	skipped := errors.Is(err, ErrMissingCredentials)
	if skipped {
		c.log.Debug("provider skipped", fields...)
	} else {
		c.log.Warn("provider failed", fields...)
	}
	c.reporter.Report(events.Event{
		Kind:     events.ProviderFailed,
		Time:     c.now(),
		Stage:    c.stage,
		Provider: provider,
		Err:      err,
		Skipped:  skipped,
	})
}
