package graphql

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/champtc/opencti-sub001/errors"
)

// mapError converts engine and transport errors into GraphQL errors with
// machine-readable extension codes.
func mapError(err error, operation string) *gqlerror.Error {
	if err == nil {
		return nil
	}

	switch {
	case err == nats.ErrTimeout, err == context.DeadlineExceeded:
		return &gqlerror.Error{
			Message: "Query timeout - please try again",
			Extensions: map[string]interface{}{
				"code":      "TIMEOUT",
				"operation": operation,
			},
		}

	case err == nats.ErrNoResponders, errors.Is(err, errors.ErrBackendUnavailable):
		return &gqlerror.Error{
			Message: "Service unavailable - graph backend not reachable",
			Extensions: map[string]interface{}{
				"code":      "SERVICE_UNAVAILABLE",
				"operation": operation,
			},
		}

	case err == context.Canceled:
		return &gqlerror.Error{
			Message: "Query cancelled",
			Extensions: map[string]interface{}{
				"code":      "CANCELLED",
				"operation": operation,
			},
		}

	case errors.IsNotFound(err):
		return &gqlerror.Error{
			Message: err.Error(),
			Extensions: map[string]interface{}{
				"code":      "NOT_FOUND",
				"operation": operation,
			},
		}

	case errors.Is(err, errors.ErrDuplicateEntity):
		return &gqlerror.Error{
			Message: err.Error(),
			Extensions: map[string]interface{}{
				"code":      "DUPLICATE",
				"operation": operation,
			},
		}

	case errors.IsInvalid(err):
		return &gqlerror.Error{
			Message: err.Error(),
			Extensions: map[string]interface{}{
				"code":      "INVALID_INPUT",
				"operation": operation,
			},
		}

	case errors.IsTransient(err):
		return &gqlerror.Error{
			Message: err.Error(),
			Extensions: map[string]interface{}{
				"code":      "TRANSIENT_ERROR",
				"operation": operation,
				"retryable": true,
			},
		}
	}

	return &gqlerror.Error{
		Message: err.Error(),
		Extensions: map[string]interface{}{
			"code":      "INTERNAL_ERROR",
			"operation": operation,
		},
	}
}
