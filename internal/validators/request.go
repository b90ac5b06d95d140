package validators

import (
	"github.com/openanchor/gw-anchor-dispatcher/internal/models"
)

// ValidateRequest performs the structural validation of an action request:
// required fields and the shape of nested objects. It runs to completion
// before any domain validation and reports the first violation as an
// invalid-params error.
func ValidateRequest(req models.ActionRequest) error {
	if req.GetTransactionID() == "" {
		return models.NewInvalidParamsError("transaction_id is required")
	}

	switch r := req.(type) {
	case *models.NotifyRefundInitiatedRequest:
		return validateRefund(r.Refund)
	case *models.NotifyRefundSentRequest:
		return validateRefund(r.Refund)
	case *models.NotifyTransactionExpiredRequest:
		if r.Message == "" {
			return models.NewInvalidParamsError("message is required")
		}
	case *models.NotifyTransactionErrorRequest:
		if r.Message == "" {
			return models.NewInvalidParamsError("message is required")
		}
	case *models.NotifyAmountsUpdatedRequest:
		if r.AmountOut == "" {
			return models.NewInvalidParamsError("amount_out is required")
		}
		if r.AmountFee == "" {
			return models.NewInvalidParamsError("amount_fee is required")
		}
	}

	return nil
}

func validateRefund(refund *models.RefundRequest) error {
	if refund == nil {
		return nil
	}
	if refund.ID == "" {
		return models.NewInvalidParamsError("refund.id is required")
	}
	if refund.Amount == "" {
		return models.NewInvalidParamsError("refund.amount is required")
	}
	if refund.AmountFee == "" {
		return models.NewInvalidParamsError("refund.amount_fee is required")
	}
	return nil
}
