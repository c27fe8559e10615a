// Package executor is the gRPC client of the external command executor.
// Messages are google.protobuf.Struct so the executor can evolve its
// parameters without a shared schema.
package executor

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/medvox/voice-command-gateway/internal/dispatch"
	"github.com/medvox/voice-command-gateway/internal/observability"
	"github.com/medvox/voice-command-gateway/internal/resilience"
)

// Service and method names of the executor
const (
	ServiceName   = "voicecmd.v1.CommandExecutor"
	executeMethod = "/" + ServiceName + "/Execute"
)

// Config configures the executor client
type Config struct {
	Addr       string
	TLSEnabled bool
	Timeout    time.Duration
	Retry      *resilience.RetryConfig
}

// Client calls the command executor
type Client struct {
	addr           string
	conn           *grpc.ClientConn
	health         healthpb.HealthClient
	timeout        time.Duration
	retry          *resilience.RetryConfig
	circuitBreaker *resilience.CircuitBreaker
	logger         zerolog.Logger
}

// NewClient creates an executor client. The connection is established
// lazily on the first call. Extra dial options are appended to the
// defaults.
func NewClient(cfg Config, breaker *resilience.CircuitBreaker, extra ...grpc.DialOption) (*Client, error) {
	var opts []grpc.DialOption

	if cfg.TLSEnabled {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	// Keepalive settings for long-lived connections
	opts = append(opts, grpc.WithKeepaliveParams(keepalive.ClientParameters{
		Time:                30 * time.Second,
		Timeout:             3 * time.Second,
		PermitWithoutStream: true,
	}))
	opts = append(opts, extra...)

	conn, err := grpc.NewClient(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create executor client for %s: %w", cfg.Addr, err)
	}

	retry := cfg.Retry
	if retry == nil {
		retry = resilience.DefaultRetryConfig()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		addr:           cfg.Addr,
		conn:           conn,
		health:         healthpb.NewHealthClient(conn),
		timeout:        timeout,
		retry:          retry,
		circuitBreaker: breaker,
		logger:         observability.Component("executor"),
	}, nil
}

// Execute sends the command and returns the executor's response text
func (c *Client) Execute(ctx context.Context, cmd dispatch.Command) (string, error) {
	req, err := encodeCommand(cmd)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp := &structpb.Struct{}
	call := func() error {
		return resilience.Retry(ctx, func(ctx context.Context) error {
			return c.conn.Invoke(ctx, executeMethod, req, resp)
		}, c.retry, isRetryableExecute)
	}

	start := time.Now()
	if c.circuitBreaker != nil {
		err = c.circuitBreaker.Call(call)
	} else {
		err = call()
	}
	observability.RecordExecutorRequest(err == nil)
	if err != nil {
		return "", fmt.Errorf("execute %s: %w", cmd.Intent.Kind, err)
	}

	c.logger.Debug().
		Str("turn_id", cmd.TurnID).
		Str("kind", string(cmd.Intent.Kind)).
		Dur("latency", time.Since(start)).
		Msg("Executor responded")
	return resp.GetFields()["response_text"].GetStringValue(), nil
}

// Health checks the executor with the standard gRPC health service
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("executor status %s", resp.GetStatus())
	}
	return nil
}

// Close closes the gRPC connection
func (c *Client) Close() error {
	return c.conn.Close()
}

func encodeCommand(cmd dispatch.Command) (*structpb.Struct, error) {
	params := make(map[string]any, len(cmd.Intent.Params))
	for k, v := range cmd.Intent.Params {
		params[k] = v
	}

	req, err := structpb.NewStruct(map[string]any{
		"turn_id":    cmd.TurnID,
		"language":   cmd.Language,
		"kind":       string(cmd.Intent.Kind),
		"params":     params,
		"confidence": cmd.Intent.Confidence,
		"raw_text":   cmd.Intent.RawText,
		"rule":       cmd.Intent.Rule,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding command: %w", err)
	}
	return req, nil
}

// isRetryableExecute only retries calls the executor never received. A
// timed out or aborted call may already have acted on the command.
func isRetryableExecute(err error) bool {
	return status.Code(err) == codes.Unavailable
}
