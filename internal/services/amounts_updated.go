package services

import (
	"context"
	"encoding/json"

	"github.com/openanchor/gw-anchor-dispatcher/internal/assets"
	"github.com/openanchor/gw-anchor-dispatcher/internal/models"
	"github.com/openanchor/gw-anchor-dispatcher/internal/validators"
)

// NotifyAmountsUpdatedHandler corrects the outgoing amount and fee of a
// SEP-24 transaction while the anchor is still processing it. The status
// stays pending_anchor.
type NotifyAmountsUpdatedHandler struct {
	facade       *TransactionFacade
	assetService assets.AssetService
	events       *EventPublisher
}

// NewNotifyAmountsUpdatedHandler wires the handler.
func NewNotifyAmountsUpdatedHandler(facade *TransactionFacade, assetService assets.AssetService, events *EventPublisher) *NotifyAmountsUpdatedHandler {
	return &NotifyAmountsUpdatedHandler{facade: facade, assetService: assetService, events: events}
}

func (h *NotifyAmountsUpdatedHandler) ActionType() models.ActionMethod {
	return models.ActionNotifyAmountsUpdated
}

func (h *NotifyAmountsUpdatedHandler) Handle(ctx context.Context, params json.RawMessage) (*models.GetTransactionResponse, error) {
	return runAction[models.NotifyAmountsUpdatedRequest](ctx, h.facade, h.events, h, params)
}

func (h *NotifyAmountsUpdatedHandler) SupportedProtocols() []string {
	return []string{models.Sep24}
}

func (h *NotifyAmountsUpdatedHandler) SupportedStatuses(txn *models.SepTransaction) []models.SepTransactionStatus {
	return []models.SepTransactionStatus{models.StatusPendingAnchor}
}

func (h *NotifyAmountsUpdatedHandler) Validate(ctx context.Context, txn *models.SepTransaction, req *models.NotifyAmountsUpdatedRequest) error {
	outAsset := txn.AmountOutAsset
	if outAsset == "" {
		outAsset = txn.AmountInAsset
	}
	feeAsset := txn.AmountFeeAsset
	if feeAsset == "" {
		feeAsset = txn.AmountInAsset
	}

	if err := validators.ValidateAmountAsset(ctx, "amount_out",
		&models.AmountAssetRequest{Amount: req.AmountOut, Asset: outAsset}, h.assetService); err != nil {
		return err
	}
	return validators.ValidateFeeAmountAsset(ctx, "amount_fee",
		&models.AmountAssetRequest{Amount: req.AmountFee, Asset: feeAsset}, h.assetService)
}

func (h *NotifyAmountsUpdatedHandler) NextStatus(ctx context.Context, txn *models.SepTransaction, req *models.NotifyAmountsUpdatedRequest) (models.SepTransactionStatus, error) {
	return models.StatusPendingAnchor, nil
}

func (h *NotifyAmountsUpdatedHandler) Mutate(ctx context.Context, txn *models.SepTransaction, req *models.NotifyAmountsUpdatedRequest) error {
	txn.AmountOut = req.AmountOut
	txn.AmountFee = req.AmountFee
	return nil
}
