// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"drclean-workers/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Client owns the gateway connection shared by every job worker.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	// RequestTimeout bounds each attempt made through Client.ExecuteWithRetry.
	RequestTimeout time.Duration
	RetryConfig    *RetryConfig
}

// RetryConfig is the backoff applied to broker commands (complete, fail,
// throw) that hit a transient gateway error.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	MaxDelay:   10 * time.Second,
}

// NewClientWithConfig dials the gateway and fails fast when the topology
// request does not answer within ConnectionTimeout.
func NewClientWithConfig(config *ClientConfig) (*Client, error) {
	if config.RetryConfig == nil {
		config.RetryConfig = DefaultRetryConfig
	}
	if config.ConnectionTimeout <= 0 {
		config.ConnectionTimeout = 10 * time.Second
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectionTimeout)
	defer cancel()

	if _, err := zeebeClient.NewTopologyCommand().Send(ctx); err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("failed to connect to Zeebe broker at %s: %w", config.GatewayAddress, err)
	}

	return &Client{
		client: zeebeClient,
		config: config,
	}, nil
}

func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// ExecuteWithRetry runs commandFunc with the client's retry policy, giving
// every attempt its own RequestTimeout.
func (c *Client) ExecuteWithRetry(
	ctx context.Context,
	commandFunc func(context.Context) (interface{}, error),
	operationName string,
) (interface{}, error) {
	bounded := commandFunc
	if c.config.RequestTimeout > 0 {
		bounded = func(ctx context.Context) (interface{}, error) {
			attemptCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
			defer cancel()
			return commandFunc(attemptCtx)
		}
	}
	return ExecuteWithRetry(ctx, c.config.RetryConfig, bounded, operationName)
}

// ExecuteWithRetry executes a Zeebe command with exponential backoff.
// Only transient gateway errors are retried.
func ExecuteWithRetry(
	ctx context.Context,
	retry *RetryConfig,
	commandFunc func(context.Context) (interface{}, error),
	operationName string,
) (interface{}, error) {
	if retry == nil {
		retry = DefaultRetryConfig
	}

	for attempt := 0; ; attempt++ {
		result, err := commandFunc(ctx)
		if err == nil {
			return result, nil
		}

		if !isRetryableZeebeError(err) || attempt >= retry.MaxRetries {
			return nil, mapZeebeError(err, operationName, attempt)
		}

		delay := retry.BaseDelay * time.Duration(1<<attempt)
		if delay > retry.MaxDelay {
			delay = retry.MaxDelay
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("operation %s cancelled after %d attempts: %w", operationName, attempt+1, ctx.Err())
		}
	}
}

// grpcCode reports the status code carried by err. Errors that did not come
// from the gateway are classified from their message, as the zbc client
// sometimes wraps the status into plain text.
func grpcCode(err error) codes.Code {
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return st.Code()
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "code = unavailable"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "broken pipe"),
		strings.Contains(msg, "unreachable"):
		return codes.Unavailable
	case strings.Contains(msg, "deadline exceeded"), strings.Contains(msg, "timeout"):
		return codes.DeadlineExceeded
	case strings.Contains(msg, "resource exhausted"):
		return codes.ResourceExhausted
	case strings.Contains(msg, "not found"):
		return codes.NotFound
	case strings.Contains(msg, "already exists"):
		return codes.AlreadyExists
	case strings.Contains(msg, "permission denied"), strings.Contains(msg, "unauthorized"):
		return codes.PermissionDenied
	}
	return codes.Unknown
}

func isRetryableZeebeError(err error) bool {
	switch grpcCode(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	}
	return false
}

// mapZeebeError converts a gateway failure into a StandardError so the
// job error handler can route it.
func mapZeebeError(err error, operation string, attempt int) error {
	msg := fmt.Sprintf("Zeebe operation '%s' failed", operation)
	if attempt > 0 {
		msg += fmt.Sprintf(" after %d attempts", attempt)
	}
	wrapped := fmt.Errorf("%s: %w", msg, err)

	switch grpcCode(err) {
	case codes.DeadlineExceeded:
		return errors.NewTimeoutError("zeebe", wrapped)
	case codes.NotFound:
		return errors.NewResourceNotFoundError("zeebe", wrapped.Error())
	case codes.AlreadyExists:
		return errors.NewBusinessRuleError(wrapped.Error(), "Resource already exists")
	case codes.PermissionDenied, codes.Unauthenticated:
		return errors.NewAuthenticationError(wrapped.Error())
	default:
		return errors.NewExternalServiceError("zeebe", wrapped)
	}
}

func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}
