package services

import (
	"context"
	"encoding/json"

	"github.com/openanchor/gw-anchor-dispatcher/internal/models"
)

// NotifyTransactionErrorHandler moves a failed transaction into the error
// terminal status.
type NotifyTransactionErrorHandler struct {
	facade *TransactionFacade
	events *EventPublisher
}

// NewNotifyTransactionErrorHandler wires the handler.
func NewNotifyTransactionErrorHandler(facade *TransactionFacade, events *EventPublisher) *NotifyTransactionErrorHandler {
	return &NotifyTransactionErrorHandler{facade: facade, events: events}
}

func (h *NotifyTransactionErrorHandler) ActionType() models.ActionMethod {
	return models.ActionNotifyTransactionError
}

func (h *NotifyTransactionErrorHandler) Handle(ctx context.Context, params json.RawMessage) (*models.GetTransactionResponse, error) {
	return runAction[models.NotifyTransactionErrorRequest](ctx, h.facade, h.events, h, params)
}

func (h *NotifyTransactionErrorHandler) SupportedProtocols() []string {
	return []string{models.Sep24, models.Sep31}
}

func (h *NotifyTransactionErrorHandler) SupportedStatuses(txn *models.SepTransaction) []models.SepTransactionStatus {
	return nonTerminalStatuses()
}

func (h *NotifyTransactionErrorHandler) Validate(ctx context.Context, txn *models.SepTransaction, req *models.NotifyTransactionErrorRequest) error {
	return nil
}

func (h *NotifyTransactionErrorHandler) NextStatus(ctx context.Context, txn *models.SepTransaction, req *models.NotifyTransactionErrorRequest) (models.SepTransactionStatus, error) {
	return models.StatusError, nil
}

func (h *NotifyTransactionErrorHandler) Mutate(ctx context.Context, txn *models.SepTransaction, req *models.NotifyTransactionErrorRequest) error {
	txn.Message = req.Message
	return nil
}
