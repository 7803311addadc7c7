package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain/config"
	"github.com/samber/lo"
)

// RequestQueue dispatches keyring requests. Signing requests run immediately
// in synchronous mode and are queued for approval in asynchronous mode.
// Administrative methods always run immediately.
type RequestQueue struct {
	state    *KeyringState
	wallets  *WalletStore
	registry *ChainRegistry
	pipeline *UserOpPipeline
	send     *SendTransaction
	events   EventSink
	async    bool
	log      *slog.Logger
}

// NewRequestQueue creates a new RequestQueue use case
func NewRequestQueue(
	state *KeyringState,
	wallets *WalletStore,
	registry *ChainRegistry,
	pipeline *UserOpPipeline,
	send *SendTransaction,
	events EventSink,
	cfg *config.RuntimeConfig,
	log *slog.Logger,
) *RequestQueue {
	return &RequestQueue{
		state:    state,
		wallets:  wallets,
		registry: registry,
		pipeline: pipeline,
		send:     send,
		events:   events,
		async:    cfg.AsyncRequests,
		log:      log,
	}
}

// Async reports whether signing requests are queued
func (q *RequestQueue) Async() bool {
	return q.async
}

// SubmitRequest executes or queues req
func (q *RequestQueue) SubmitRequest(ctx context.Context, req domain.KeyringRequest) (*domain.SubmitRequestResponse, error) {
	call, err := domain.ParseRequest(req.Request)
	if err != nil {
		return nil, err
	}

	if !q.async || !isSigningCall(call) {
		result, err := q.execute(ctx, req.Account, call)
		if err != nil {
			return nil, err
		}
		return &domain.SubmitRequestResponse{Pending: false, Result: result}, nil
	}

	if req.ID == "" {
		return nil, domain.NewValidationError("id", "required for queued requests")
	}
	if _, err := q.wallets.wallet(ctx, req.Account); err != nil {
		return nil, err
	}

	err = q.state.Update(ctx, func(state *domain.KeyringState) error {
		if _, exists := state.PendingRequests[req.ID]; exists {
			return fmt.Errorf("%w: request '%s' is already pending", domain.ErrConflict, req.ID)
		}
		state.PendingRequests[req.ID] = req.Clone()
		state.RequestOrder = append(state.RequestOrder, req.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	q.log.Info("request queued", "id", req.ID, "method", call.Method(), "account", req.Account)
	return &domain.SubmitRequestResponse{Pending: true}, nil
}

func isSigningCall(call domain.Call) bool {
	switch call.(type) {
	case domain.PrepareUserOperationCall, domain.PatchUserOperationCall, domain.SignUserOperationCall:
		return true
	}
	return false
}

// execute runs call on behalf of accountID
func (q *RequestQueue) execute(ctx context.Context, accountID string, call domain.Call) (any, error) {
	switch c := call.(type) {
	case domain.SetConfigCall:
		return q.registry.SetConfig(ctx, c.Config)
	case domain.SendTransactionCall:
		return q.send.Run(ctx, c.Transaction)
	case domain.PrepareUserOperationCall:
		return q.pipeline.Prepare(ctx, accountID, c.Transactions)
	case domain.PatchUserOperationCall:
		return q.pipeline.Patch(ctx, accountID, c.Operation)
	case domain.SignUserOperationCall:
		return q.pipeline.Sign(ctx, accountID, c.Operation)
	}
	return nil, &domain.UnsupportedMethodError{Method: call.Method()}
}

// ListRequests returns the pending requests in submission order
func (q *RequestQueue) ListRequests(ctx context.Context) ([]domain.KeyringRequest, error) {
	state, err := q.state.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(state.OrderedRequests(), func(r *domain.KeyringRequest, _ int) domain.KeyringRequest {
		return *r.Clone()
	}), nil
}

// GetRequest returns the pending request with id
func (q *RequestQueue) GetRequest(ctx context.Context, id string) (*domain.KeyringRequest, error) {
	state, err := q.state.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	req, ok := state.PendingRequests[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "request", ID: id}
	}
	return req.Clone(), nil
}

// ApproveRequest executes the pending request with id. The request is removed
// only if execution succeeds, so a failed approval can be retried.
func (q *RequestQueue) ApproveRequest(ctx context.Context, id string) (any, error) {
	req, err := q.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	call, err := domain.ParseRequest(req.Request)
	if err != nil {
		return nil, err
	}

	result, err := q.execute(ctx, req.Account, call)
	if err != nil {
		return nil, err
	}

	if err := q.remove(ctx, id); err != nil {
		return nil, err
	}

	q.log.Info("request approved", "id", id, "method", call.Method())
	if err := q.events.Emit(ctx, domain.EventRequestApproved, domain.RequestApprovedPayload{ID: id, Result: result}); err != nil {
		return nil, fmt.Errorf("failed to emit request approved event: %w", err)
	}
	return result, nil
}

// RejectRequest drops the pending request with id
func (q *RequestQueue) RejectRequest(ctx context.Context, id string) error {
	if err := q.remove(ctx, id); err != nil {
		return err
	}

	q.log.Info("request rejected", "id", id)
	if err := q.events.Emit(ctx, domain.EventRequestRejected, domain.RequestRejectedPayload{ID: id}); err != nil {
		return fmt.Errorf("failed to emit request rejected event: %w", err)
	}
	return nil
}

func (q *RequestQueue) remove(ctx context.Context, id string) error {
	return q.state.Update(ctx, func(state *domain.KeyringState) error {
		if _, ok := state.PendingRequests[id]; !ok {
			return &domain.NotFoundError{Kind: "request", ID: id}
		}
		delete(state.PendingRequests, id)
		state.RequestOrder = lo.Without(state.RequestOrder, id)
		return nil
	})
}
