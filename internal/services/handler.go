package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openanchor/gw-anchor-dispatcher/internal/logger"
	"github.com/openanchor/gw-anchor-dispatcher/internal/models"
	"github.com/openanchor/gw-anchor-dispatcher/internal/repositories"
	"github.com/openanchor/gw-anchor-dispatcher/internal/validators"
)

// TransactionStore is a persisted key/value-by-id store of transactions
// with atomic, version-checked save.
type TransactionStore interface {
	Get(ctx context.Context, id string) (*models.SepTransaction, error)
	Save(ctx context.Context, txn *models.SepTransaction) error
}

// TransactionFacade looks transactions up across the SEP-24 and SEP-31
// stores and routes saves back to the store a transaction came from. The
// two stores are disjoint by construction; on the (impossible) overlap the
// SEP-24 row wins.
type TransactionFacade struct {
	txn24Store TransactionStore
	txn31Store TransactionStore
}

// NewTransactionFacade creates a facade over the two protocol stores.
func NewTransactionFacade(txn24Store, txn31Store TransactionStore) *TransactionFacade {
	return &TransactionFacade{txn24Store: txn24Store, txn31Store: txn31Store}
}

// Lookup returns the transaction with the given id from whichever store
// holds it, or (nil, nil) when both miss.
func (f *TransactionFacade) Lookup(ctx context.Context, id string) (*models.SepTransaction, error) {
	txn, err := f.txn24Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if txn != nil {
		return txn, nil
	}
	return f.txn31Store.Get(ctx, id)
}

// Save persists the transaction into the store matching its protocol.
func (f *TransactionFacade) Save(ctx context.Context, txn *models.SepTransaction) error {
	switch txn.Protocol {
	case models.Sep24:
		return f.txn24Store.Save(ctx, txn)
	case models.Sep31:
		return f.txn31Store.Save(ctx, txn)
	default:
		return fmt.Errorf("transaction %s has unknown protocol %q", txn.ID, txn.Protocol)
	}
}

// ActionHandler is a registry entry of the dispatcher: one named action
// over raw JSON-RPC params.
type ActionHandler interface {
	ActionType() models.ActionMethod
	Handle(ctx context.Context, params json.RawMessage) (*models.GetTransactionResponse, error)
}

// actionLogic is the per-action half of an action handler. The generic
// runAction skeleton supplies everything else: lookup, structural
// validation, the protocol/kind/status gates, the save, and the projection.
type actionLogic[R any] interface {
	ActionType() models.ActionMethod
	SupportedProtocols() []string
	SupportedStatuses(txn *models.SepTransaction) []models.SepTransactionStatus
	Validate(ctx context.Context, txn *models.SepTransaction, req *R) error
	NextStatus(ctx context.Context, txn *models.SepTransaction, req *R) (models.SepTransactionStatus, error)
	Mutate(ctx context.Context, txn *models.SepTransaction, req *R) error
}

// runAction drives one action invocation end to end. Any failure before
// the save aborts with no partial state persisted; the transaction object
// is not reused across calls.
func runAction[R any](
	ctx context.Context,
	facade *TransactionFacade,
	events *EventPublisher,
	logic actionLogic[R],
	params json.RawMessage,
) (*models.GetTransactionResponse, error) {
	req := new(R)
	if len(params) > 0 {
		if err := json.Unmarshal(params, req); err != nil {
			return nil, models.NewInvalidParamsError("invalid params for action %s", logic.ActionType())
		}
	}

	actionReq, ok := any(req).(models.ActionRequest)
	if !ok {
		return nil, fmt.Errorf("request type %T does not implement ActionRequest", req)
	}

	if err := validators.ValidateRequest(actionReq); err != nil {
		return nil, err
	}

	txn, err := facade.Lookup(ctx, actionReq.GetTransactionID())
	if err != nil {
		logger.Log.Errorw("transaction lookup failed",
			"action", logic.ActionType(), "transaction_id", actionReq.GetTransactionID(), "error", err)
		return nil, err
	}
	if txn == nil {
		return nil, models.NewTransactionNotFoundError(actionReq.GetTransactionID())
	}

	if !containsString(logic.SupportedProtocols(), txn.Protocol) {
		return nil, unsupportedActionError(logic.ActionType(), txn)
	}
	if !containsStatus(logic.SupportedStatuses(txn), txn.Status) {
		return nil, unsupportedActionError(logic.ActionType(), txn)
	}

	if err := logic.Validate(ctx, txn, req); err != nil {
		return nil, err
	}

	nextStatus, err := logic.NextStatus(ctx, txn, req)
	if err != nil {
		return nil, err
	}

	if err := logic.Mutate(ctx, txn, req); err != nil {
		return nil, err
	}

	previousStatus := txn.Status
	txn.Status = nextStatus
	if nextStatus.IsTerminal() {
		completedAt := time.Now().UTC()
		txn.CompletedAt = &completedAt
	}

	if err := facade.Save(ctx, txn); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, models.NewConflictError(txn.ID)
		}
		logger.Log.Errorw("transaction save failed",
			"action", logic.ActionType(), "transaction_id", txn.ID, "error", err)
		return nil, err
	}

	events.PublishStatusChange(ctx, txn, logic.ActionType(), previousStatus)

	return models.NewGetTransactionResponse(txn), nil
}

func unsupportedActionError(action models.ActionMethod, txn *models.SepTransaction) *models.RPCError {
	return models.NewInvalidRequestError("Action[%s] is not supported for status[%s], kind[%s] and protocol[%s]",
		action, txn.Status, txn.Kind, txn.Protocol)
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func containsStatus(values []models.SepTransactionStatus, value models.SepTransactionStatus) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// nonTerminalStatuses returns every status an action may still act on.
func nonTerminalStatuses() []models.SepTransactionStatus {
	statuses := make([]models.SepTransactionStatus, 0, len(models.AllStatuses))
	for _, s := range models.AllStatuses {
		if !s.IsTerminal() {
			statuses = append(statuses, s)
		}
	}
	return statuses
}

// Dispatcher routes JSON-RPC methods to their action handlers.
type Dispatcher struct {
	handlers map[models.ActionMethod]ActionHandler
}

// NewDispatcher builds a registry from the given handlers.
func NewDispatcher(handlers ...ActionHandler) *Dispatcher {
	registry := make(map[models.ActionMethod]ActionHandler, len(handlers))
	for _, h := range handlers {
		registry[h.ActionType()] = h
	}
	return &Dispatcher{handlers: registry}
}

// Dispatch runs the named action. Unknown names yield a method-not-found
// error.
func (d *Dispatcher) Dispatch(ctx context.Context, method string, params json.RawMessage) (*models.GetTransactionResponse, error) {
	h, ok := d.handlers[models.ActionMethod(method)]
	if !ok {
		return nil, models.NewMethodNotFoundError(method)
	}
	return h.Handle(ctx, params)
}
