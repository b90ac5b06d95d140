package services

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/openanchor/gw-anchor-dispatcher/internal/assets"
	"github.com/openanchor/gw-anchor-dispatcher/internal/models"
)

// NotifyRefundSentHandler records a sent refund payment on a SEP-24 or
// SEP-31 transaction. The transaction terminates as refunded once the
// total refunded matches amount_in, stays in pending_anchor while under
// it, and rejects anything over it.
type NotifyRefundSentHandler struct {
	facade       *TransactionFacade
	assetService assets.AssetService
	events       *EventPublisher
}

// NewNotifyRefundSentHandler wires the handler.
func NewNotifyRefundSentHandler(facade *TransactionFacade, assetService assets.AssetService, events *EventPublisher) *NotifyRefundSentHandler {
	return &NotifyRefundSentHandler{facade: facade, assetService: assetService, events: events}
}

func (h *NotifyRefundSentHandler) ActionType() models.ActionMethod {
	return models.ActionNotifyRefundSent
}

func (h *NotifyRefundSentHandler) Handle(ctx context.Context, params json.RawMessage) (*models.GetTransactionResponse, error) {
	return runAction[models.NotifyRefundSentRequest](ctx, h.facade, h.events, h, params)
}

func (h *NotifyRefundSentHandler) SupportedProtocols() []string {
	return []string{models.Sep24, models.Sep31}
}

func (h *NotifyRefundSentHandler) SupportedStatuses(txn *models.SepTransaction) []models.SepTransactionStatus {
	var statuses []models.SepTransactionStatus
	switch txn.Form() {
	case models.FormSep24Deposit:
		if txn.TransferReceivedAt != nil {
			statuses = append(statuses, models.StatusPendingExternal, models.StatusPendingAnchor)
		}
	case models.FormSep24Withdrawal:
		statuses = append(statuses, models.StatusPendingStellar)
		if txn.TransferReceivedAt != nil {
			statuses = append(statuses, models.StatusPendingAnchor)
		}
	case models.FormSep31Receive:
		statuses = append(statuses, models.StatusPendingStellar, models.StatusPendingReceiver)
	}
	return statuses
}

func (h *NotifyRefundSentHandler) Validate(ctx context.Context, txn *models.SepTransaction, req *models.NotifyRefundSentRequest) error {
	hasPayments := txn.Refunds != nil && len(txn.Refunds.Payments) > 0

	switch txn.Protocol {
	case models.Sep24:
		if req.Refund == nil && txn.Status == models.StatusPendingAnchor {
			return models.NewInvalidParamsError("refund is required")
		}
		// With no recorded payments there is nothing a refund-less call
		// could refer to.
		if req.Refund == nil && !hasPayments {
			return models.NewInvalidParamsError("refund is required")
		}
	case models.Sep31:
		if req.Refund == nil && txn.Status == models.StatusPendingReceiver {
			return models.NewInvalidParamsError("refund is required")
		}
		if txn.Status == models.StatusPendingReceiver && hasPayments {
			return models.NewInvalidRequestError("Multiple refunds aren't supported for kind[%s], protocol[%s] and action[%s]",
				txn.Kind, txn.Protocol, h.ActionType())
		}
		if txn.Status == models.StatusPendingStellar && !hasPayments {
			return models.NewInvalidRequestError("Custody payment hasn't been completed yet")
		}
	}

	if req.Refund != nil {
		return validateRefundAmounts(ctx, req.Refund, txn, h.assetService)
	}
	return nil
}

func (h *NotifyRefundSentHandler) NextStatus(ctx context.Context, txn *models.SepTransaction, req *models.NotifyRefundSentRequest) (models.SepTransactionStatus, error) {
	precision, err := amountInPrecision(ctx, h.assetService, txn)
	if err != nil {
		return "", err
	}

	var totalRefunded decimal.Decimal
	switch txn.Protocol {
	case models.Sep24:
		totalRefunded, err = h.totalRefundedSep24(txn, req.Refund, precision)
	case models.Sep31:
		totalRefunded, err = h.totalRefundedSep31(txn, req.Refund, precision)
	}
	if err != nil {
		return "", err
	}

	amountIn, err := decimal.NewFromString(txn.AmountIn)
	if err != nil {
		return "", models.NewBadRequestError("amount_in is invalid")
	}
	amountIn = amountIn.RoundBank(precision)

	switch totalRefunded.Cmp(amountIn) {
	case 0:
		return models.StatusRefunded, nil
	case -1:
		return models.StatusPendingAnchor, nil
	default:
		return "", models.NewInvalidParamsError("Refund amount exceeds amount_in")
	}
}

func (h *NotifyRefundSentHandler) totalRefundedSep24(txn *models.SepTransaction, refund *models.RefundRequest, precision int32) (decimal.Decimal, error) {
	refunds := txn.Refunds
	if refunds == nil || len(refunds.Payments) == 0 {
		return sumRefundAmounts(refund, precision)
	}

	if txn.Status == models.StatusPendingAnchor {
		existing, err := decimal.NewFromString(refunds.AmountRefunded)
		if err != nil {
			return decimal.Zero, models.NewBadRequestError("refunds.amount_refunded is invalid")
		}
		requested, err := sumRefundAmounts(refund, precision)
		if err != nil {
			return decimal.Zero, err
		}
		return existing.Add(requested).RoundBank(precision), nil
	}

	// pending_external: the refund was announced on initiation. A call
	// without a refund confirms the recorded total; with one, it restates
	// the matching payment.
	if refund == nil {
		existing, err := decimal.NewFromString(refunds.AmountRefunded)
		if err != nil {
			return decimal.Zero, models.NewBadRequestError("refunds.amount_refunded is invalid")
		}
		return existing.RoundBank(precision), nil
	}

	if !refunds.HasPayment(refund.ID) {
		return decimal.Zero, models.NewInvalidParamsError("Invalid refund id")
	}
	return refunds.UpsertPayment(refundPayment(refund)).TotalRefunded(precision)
}

func (h *NotifyRefundSentHandler) totalRefundedSep31(txn *models.SepTransaction, refund *models.RefundRequest, precision int32) (decimal.Decimal, error) {
	if txn.Status == models.StatusPendingReceiver {
		return sumRefundAmounts(refund, precision)
	}

	// pending_stellar: exactly one custody payment was recorded.
	if refund == nil {
		existing, err := decimal.NewFromString(txn.Refunds.AmountRefunded)
		if err != nil {
			return decimal.Zero, models.NewBadRequestError("refunds.amount_refunded is invalid")
		}
		return existing.RoundBank(precision), nil
	}

	if txn.Refunds.Payments[0].ID != refund.ID {
		return decimal.Zero, models.NewInvalidParamsError("Invalid refund id")
	}
	return sumRefundAmounts(refund, precision)
}

func (h *NotifyRefundSentHandler) Mutate(ctx context.Context, txn *models.SepTransaction, req *models.NotifyRefundSentRequest) error {
	if req.Refund == nil {
		return nil
	}
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

func sumRefundAmounts(refund *models.RefundRequest, precision int32) (decimal.Decimal, error) {
	if refund == nil {
		return decimal.Zero, models.NewInvalidParamsError("refund is required")
	}
	amount, err := decimal.NewFromString(refund.Amount)
	if err != nil {
		return decimal.Zero, models.NewBadRequestError("refund.amount is invalid")
	}
	fee, err := decimal.NewFromString(refund.AmountFee)
	if err != nil {
		return decimal.Zero, models.NewBadRequestError("refund.amount_fee is invalid")
	}
	return amount.Add(fee).RoundBank(precision), nil
}
