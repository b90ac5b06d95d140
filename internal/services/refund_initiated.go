package services

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/openanchor/gw-anchor-dispatcher/internal/assets"
	"github.com/openanchor/gw-anchor-dispatcher/internal/models"
	"github.com/openanchor/gw-anchor-dispatcher/internal/validators"
)

// NotifyRefundInitiatedHandler records that the anchor started refunding a
// received SEP-24 deposit and moves it to pending_external.
type NotifyRefundInitiatedHandler struct {
	facade       *TransactionFacade
	assetService assets.AssetService
	events       *EventPublisher
}

// NewNotifyRefundInitiatedHandler wires the handler.
func NewNotifyRefundInitiatedHandler(facade *TransactionFacade, assetService assets.AssetService, events *EventPublisher) *NotifyRefundInitiatedHandler {
	return &NotifyRefundInitiatedHandler{facade: facade, assetService: assetService, events: events}
}

func (h *NotifyRefundInitiatedHandler) ActionType() models.ActionMethod {
	return models.ActionNotifyRefundInitiated
}

func (h *NotifyRefundInitiatedHandler) Handle(ctx context.Context, params json.RawMessage) (*models.GetTransactionResponse, error) {
	return runAction[models.NotifyRefundInitiatedRequest](ctx, h.facade, h.events, h, params)
}

func (h *NotifyRefundInitiatedHandler) SupportedProtocols() []string {
	return []string{models.Sep24}
}

func (h *NotifyRefundInitiatedHandler) SupportedStatuses(txn *models.SepTransaction) []models.SepTransactionStatus {
	if txn.Form() != models.FormSep24Deposit || txn.TransferReceivedAt == nil {
		return nil
	}
	return []models.SepTransactionStatus{models.StatusPendingAnchor}
}

func (h *NotifyRefundInitiatedHandler) Validate(ctx context.Context, txn *models.SepTransaction, req *models.NotifyRefundInitiatedRequest) error {
	if req.Refund == nil {
		return models.NewInvalidParamsError("refund is required")
	}

	if err := validateRefundAmounts(ctx, req.Refund, txn, h.assetService); err != nil {
		return err
	}

	precision, err := amountInPrecision(ctx, h.assetService, txn)
	if err != nil {
		return err
	}

	// Project the total as if the payment were already recorded; a
	// re-initiation with an existing id replaces, not adds.
	projected, err := txn.Refunds.UpsertPayment(refundPayment(req.Refund)).TotalRefunded(precision)
	if err != nil {
		return err
	}
	amountIn, err := decimal.NewFromString(txn.AmountIn)
	if err != nil {
		return models.NewBadRequestError("amount_in is invalid")
	}
	if projected.GreaterThan(amountIn.RoundBank(precision)) {
		return models.NewInvalidParamsError("Refund amount exceeds amount_in")
	}
	return nil
}

func (h *NotifyRefundInitiatedHandler) NextStatus(ctx context.Context, txn *models.SepTransaction, req *models.NotifyRefundInitiatedRequest) (models.SepTransactionStatus, error) {
	return models.StatusPendingExternal, nil
}

func (h *NotifyRefundInitiatedHandler) Mutate(ctx context.Context, txn *models.SepTransaction, req *models.NotifyRefundInitiatedRequest) error {
	precision, err := amountInPrecision(ctx, h.assetService, txn)
	if err != nil {
		return err
	}
	refunds := txn.Refunds.UpsertPayment(refundPayment(req.Refund))
	if err := refunds.Recalculate(precision); err != nil {
		return err
	}
	txn.Refunds = refunds
	return nil
}

func refundPayment(refund *models.RefundRequest) models.RefundPayment {
	return models.RefundPayment{ID: refund.ID, Amount: refund.Amount, Fee: refund.AmountFee}
}

// validateRefundAmounts checks a refund's principal and fee against the
// transaction's amount_in asset.
func validateRefundAmounts(ctx context.Context, refund *models.RefundRequest, txn *models.SepTransaction, svc assets.AssetService) error {
	if err := validators.ValidateAmountAsset(ctx, "refund.amount",
		&models.AmountAssetRequest{Amount: refund.Amount, Asset: txn.AmountInAsset}, svc); err != nil {
		return err
	}
	return validators.ValidateFeeAmountAsset(ctx, "refund.amount_fee",
		&models.AmountAssetRequest{Amount: refund.AmountFee, Asset: txn.AmountInAsset}, svc)
}

// amountInPrecision resolves the decimal precision of the transaction's
// amount_in asset.
func amountInPrecision(ctx context.Context, svc assets.AssetService, txn *models.SepTransaction) (int32, error) {
	asset, err := svc.GetAsset(ctx, txn.AmountInAsset)
	if err != nil {
		return 0, models.NewBadRequestError("amount_in.asset is not supported")
	}
	return asset.SignificantDecimals, nil
}
