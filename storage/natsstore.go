package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/champtc/opencti-sub001/errors"
	"github.com/champtc/opencti-sub001/natsclient"
)

// Wire envelope for the remote graph service. The service answers select
// requests with rows and execute requests with an acknowledgement.
type storeRequest struct {
	Op        string       `json:"op"` // "select" or "execute"
	Query     *SelectQuery `json:"query,omitempty"`
	Statement *Statement   `json:"statement,omitempty"`
}

type storeResponse struct {
	Rows  []Row  `json:"rows,omitempty"`
	Error string `json:"error,omitempty"`
}

// NATSStore implements Store over NATS request/reply to a remote graph
// service. It is the single error-mapping boundary between transport failures
// and the engine's typed taxonomy: domain code above it never inspects NATS
// errors.
type NATSStore struct {
	client  *natsclient.Client
	subject string
	logger  *slog.Logger
}

// NewNATSStore creates a store speaking to the graph service on the given
// request subject.
func NewNATSStore(client *natsclient.Client, subject string, logger *slog.Logger) *NATSStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSStore{
		client:  client,
		subject: subject,
		logger:  logger.With("component", "natsstore"),
	}
}

// Select implements Store.
func (s *NATSStore) Select(ctx context.Context, q *SelectQuery) ([]Row, error) {
	resp, err := s.roundTrip(ctx, storeRequest{Op: "select", Query: q})
	if err != nil {
		return nil, s.mapError(err, "Select", string(q.EntityType))
	}
	return resp.Rows, nil
}

// Execute implements Store.
func (s *NATSStore) Execute(ctx context.Context, stmt Statement) error {
	_, err := s.roundTrip(ctx, storeRequest{Op: "execute", Statement: &stmt})
	if err != nil {
		return s.mapError(err, "Execute", stmt.Kind.String())
	}
	return nil
}

func (s *NATSStore) roundTrip(ctx context.Context, req storeRequest) (*storeResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.WrapInvalid(err, "NATSStore", "roundTrip", "request marshal")
	}

	data, err := s.client.Request(ctx, s.subject, payload)
	if err != nil {
		return nil, err
	}

	var resp storeResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, errors.WrapTransient(err, "NATSStore", "roundTrip", "response unmarshal")
	}
	if resp.Error != "" {
		return nil, remoteError(resp.Error)
	}
	return &resp, nil
}

// mapError classifies a transport or remote failure once, with contextual
// metadata, and returns it unchanged in meaning to the caller.
func (s *NATSStore) mapError(err error, operation, detail string) error {
	var mapped error
	switch {
	case err == nats.ErrTimeout, err == context.DeadlineExceeded:
		mapped = fmt.Errorf("%w: request timeout", errors.ErrBackendUnavailable)
	case err == nats.ErrNoResponders:
		mapped = fmt.Errorf("%w: no responders", errors.ErrBackendUnavailable)
	case err == nats.ErrConnectionClosed:
		mapped = fmt.Errorf("%w: connection closed", errors.ErrBackendUnavailable)
	case err == context.Canceled:
		mapped = err
	default:
		mapped = err
	}

	s.logger.Error("graph backend call failed",
		"operation", operation,
		"detail", detail,
		"error", err)

	if errors.IsNotFound(mapped) || errors.IsInvalid(mapped) {
		return mapped
	}
	return errors.WrapTransient(mapped, "NATSStore", operation, "backend call")
}

// remoteError converts a remote error string back into the typed taxonomy.
// The remote service reports its errors with a stable prefix vocabulary.
func remoteError(msg string) error {
	switch {
	case strings.HasPrefix(msg, "not_found:"):
		return fmt.Errorf("%w: %s", errors.ErrNotFound, strings.TrimPrefix(msg, "not_found:"))
	case strings.HasPrefix(msg, "rejected:"):
		return fmt.Errorf("%w: %s", errors.ErrQueryRejected, strings.TrimPrefix(msg, "rejected:"))
	default:
		return fmt.Errorf("%w: %s", errors.ErrBackendUnavailable, msg)
	}
}
