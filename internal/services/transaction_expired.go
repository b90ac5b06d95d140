package services

import (
	"context"
	"encoding/json"

	"github.com/openanchor/gw-anchor-dispatcher/internal/models"
)

// NotifyTransactionExpiredHandler moves a transaction that will not be
// completed into the expired terminal status.
type NotifyTransactionExpiredHandler struct {
	facade *TransactionFacade
	events *EventPublisher
}

// NewNotifyTransactionExpiredHandler wires the handler.
func NewNotifyTransactionExpiredHandler(facade *TransactionFacade, events *EventPublisher) *NotifyTransactionExpiredHandler {
	return &NotifyTransactionExpiredHandler{facade: facade, events: events}
}

func (h *NotifyTransactionExpiredHandler) ActionType() models.ActionMethod {
	return models.ActionNotifyTransactionExpired
}

func (h *NotifyTransactionExpiredHandler) Handle(ctx context.Context, params json.RawMessage) (*models.GetTransactionResponse, error) {
	return runAction[models.NotifyTransactionExpiredRequest](ctx, h.facade, h.events, h, params)
}

func (h *NotifyTransactionExpiredHandler) SupportedProtocols() []string {
	return []string{models.Sep24, models.Sep31}
}

func (h *NotifyTransactionExpiredHandler) SupportedStatuses(txn *models.SepTransaction) []models.SepTransactionStatus {
	return nonTerminalStatuses()
}

func (h *NotifyTransactionExpiredHandler) Validate(ctx context.Context, txn *models.SepTransaction, req *models.NotifyTransactionExpiredRequest) error {
	return nil
}

func (h *NotifyTransactionExpiredHandler) NextStatus(ctx context.Context, txn *models.SepTransaction, req *models.NotifyTransactionExpiredRequest) (models.SepTransactionStatus, error) {
	return models.StatusExpired, nil
}

func (h *NotifyTransactionExpiredHandler) Mutate(ctx context.Context, txn *models.SepTransaction, req *models.NotifyTransactionExpiredRequest) error {
	txn.Message = req.Message
	return nil
}
