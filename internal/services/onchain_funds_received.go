package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/openanchor/gw-anchor-dispatcher/internal/assets"
	"github.com/openanchor/gw-anchor-dispatcher/internal/horizon"
	"github.com/openanchor/gw-anchor-dispatcher/internal/logger"
	"github.com/openanchor/gw-anchor-dispatcher/internal/models"
	"github.com/openanchor/gw-anchor-dispatcher/internal/validators"
)

// NotifyOnchainFundsReceivedHandler records the arrival of on-chain funds
// for a SEP-24 deposit and moves it to pending_anchor.
type NotifyOnchainFundsReceivedHandler struct {
	facade        *TransactionFacade
	assetService  assets.AssetService
	horizonClient horizon.Client
	events        *EventPublisher
}

// NewNotifyOnchainFundsReceivedHandler wires the handler. horizonClient may
// be nil; the observation time then falls back to the wall clock.
func NewNotifyOnchainFundsReceivedHandler(
	facade *TransactionFacade,
	assetService assets.AssetService,
	horizonClient horizon.Client,
	events *EventPublisher,
) *NotifyOnchainFundsReceivedHandler {
	return &NotifyOnchainFundsReceivedHandler{
		facade:        facade,
		assetService:  assetService,
		horizonClient: horizonClient,
		events:        events,
	}
}

func (h *NotifyOnchainFundsReceivedHandler) ActionType() models.ActionMethod {
	return models.ActionNotifyOnchainFundsReceived
}

func (h *NotifyOnchainFundsReceivedHandler) Handle(ctx context.Context, params json.RawMessage) (*models.GetTransactionResponse, error) {
	return runAction[models.NotifyOnchainFundsReceivedRequest](ctx, h.facade, h.events, h, params)
}

func (h *NotifyOnchainFundsReceivedHandler) SupportedProtocols() []string {
	return []string{models.Sep24}
}

func (h *NotifyOnchainFundsReceivedHandler) SupportedStatuses(txn *models.SepTransaction) []models.SepTransactionStatus {
	if txn.Form() != models.FormSep24Deposit {
		return nil
	}
	statuses := []models.SepTransactionStatus{models.StatusPendingUserTransferStart}
	if txn.TransferReceivedAt == nil {
		statuses = append(statuses, models.StatusPendingExternal)
	}
	return statuses
}

func (h *NotifyOnchainFundsReceivedHandler) Validate(ctx context.Context, txn *models.SepTransaction, req *models.NotifyOnchainFundsReceivedRequest) error {
	if req.StellarTransactionID == "" && txn.StellarTransactionID == "" {
		return models.NewInvalidParamsError("stellar_transaction_id is required")
	}

	allSet := req.AmountIn != nil && req.AmountOut != nil && req.AmountFee != nil
	noneSet := req.AmountIn == nil && req.AmountOut == nil && req.AmountFee == nil
	if !allSet && !noneSet {
		return models.NewInvalidParamsError("All or none of the amount_in, amount_out, and amount_fee should be set")
	}

	if err := validators.ValidateAmountAsset(ctx, "amount_in", req.AmountIn, h.assetService); err != nil {
		return err
	}
	if err := validators.ValidateAmountAsset(ctx, "amount_out", req.AmountOut, h.assetService); err != nil {
		return err
	}
	return validators.ValidateFeeAmountAsset(ctx, "amount_fee", req.AmountFee, h.assetService)
}

func (h *NotifyOnchainFundsReceivedHandler) NextStatus(ctx context.Context, txn *models.SepTransaction, req *models.NotifyOnchainFundsReceivedRequest) (models.SepTransactionStatus, error) {
	return models.StatusPendingAnchor, nil
}

func (h *NotifyOnchainFundsReceivedHandler) Mutate(ctx context.Context, txn *models.SepTransaction, req *models.NotifyOnchainFundsReceivedRequest) error {
	if req.StellarTransactionID != "" {
		txn.StellarTransactionID = req.StellarTransactionID
		receivedAt := h.transferReceivedAt(ctx, req.StellarTransactionID)
		txn.TransferReceivedAt = &receivedAt
	}

	if req.AmountIn != nil {
		txn.AmountIn = req.AmountIn.Amount
		txn.AmountInAsset = req.AmountIn.Asset
	}
	if req.AmountOut != nil {
		txn.AmountOut = req.AmountOut.Amount
		txn.AmountOutAsset = req.AmountOut.Asset
	}
	if req.AmountFee != nil {
		txn.AmountFee = req.AmountFee.Amount
		txn.AmountFeeAsset = req.AmountFee.Asset
	}
	return nil
}

// transferReceivedAt asks Horizon for the ledger close time of the payment;
// the wall clock stands in when the lookup is unavailable or fails.
func (h *NotifyOnchainFundsReceivedHandler) transferReceivedAt(ctx context.Context, hash string) time.Time {
	if h.horizonClient != nil {
		createdAt, err := h.horizonClient.GetTransactionCreatedAt(ctx, hash)
		if err == nil {
			return createdAt.UTC()
		}
		logger.Log.Warnw("horizon lookup failed, falling back to wall clock",
			"stellar_transaction_id", hash, "error", err)
	}
	return time.Now().UTC()
}
