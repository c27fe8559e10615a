// Package dispatch hands resolved intents to the external command executor
// and turns its answer into the text the session speaks.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medvox/voice-command-gateway/internal/observability"
	"github.com/medvox/voice-command-gateway/internal/voice"
)

// Command is what the executor receives for one turn
type Command struct {
	TurnID   string
	Language string
	Intent   voice.ResolvedIntent
}

// Executor performs the business side effect of a command and returns a
// short speakable response
type Executor interface {
	Execute(ctx context.Context, cmd Command) (string, error)
}

// ExecutorFunc adapts a function to Executor
type ExecutorFunc func(ctx context.Context, cmd Command) (string, error)

// Execute calls f
func (f ExecutorFunc) Execute(ctx context.Context, cmd Command) (string, error) {
	return f(ctx, cmd)
}

// Dispatcher routes resolved intents to the executor
type Dispatcher struct {
	executor Executor
	logger   zerolog.Logger
}

// New creates a dispatcher
func New(executor Executor) *Dispatcher {
	return &Dispatcher{
		executor: executor,
		logger:   observability.Component("dispatch"),
	}
}

// Dispatch returns the response text for cmd. Unknown intents never reach
// the executor and get the fixed "not understood" phrase. On executor
// failure the "execution failed" phrase is returned together with an error
// wrapping voice.ErrExecution, so the caller can still speak it.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (string, error) {
	phrases := PhrasesFor(cmd.Language)
	if cmd.Intent.IsUnknown() {
		d.logger.Debug().Str("turn_id", cmd.TurnID).Msg("Unknown intent, executor not called")
		return phrases.NotUnderstood, nil
	}

	start := time.Now()
	response, err := d.executor.Execute(ctx, cmd)
	if err != nil {
		observability.RecordError("execution", "dispatch")
		d.logger.Warn().
			Err(err).
			Str("turn_id", cmd.TurnID).
			Str("kind", string(cmd.Intent.Kind)).
			Msg("Command execution failed")
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return phrases.ExecutionFailed, fmt.Errorf("%w: %w", voice.ErrExecution, err)
	}

	response = strings.TrimSpace(response)
	if response == "" {
		response = phrases.Done
	}

	d.logger.Info().
		Str("turn_id", cmd.TurnID).
		Str("kind", string(cmd.Intent.Kind)).
		Dur("latency", time.Since(start)).
		Msg("Command executed")
	return response, nil
}
