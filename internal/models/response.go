package models

import (
	"time"
)

// TransactionAmount is an amount/asset pair in the public projection.
type TransactionAmount struct {
	Amount string `json:"amount,omitempty"`
	Asset  string `json:"asset,omitempty"`
}

// RefundPaymentResponse is the public projection of a refund payment.
type RefundPaymentResponse struct {
	ID     string             `json:"id"`
	Amount *TransactionAmount `json:"amount,omitempty"`
	Fee    *TransactionAmount `json:"fee,omitempty"`
}

// RefundsResponse is the public projection of the refund aggregate.
type RefundsResponse struct {
	AmountRefunded *TransactionAmount      `json:"amount_refunded,omitempty"`
	AmountFee      *TransactionAmount      `json:"amount_fee,omitempty"`
	Payments       []RefundPaymentResponse `json:"payments"`
}

// GetTransactionResponse is the stable public projection of a transaction
// returned by every action. Null scalars are omitted, except
// amount_expected, which is always present so the asset hint survives even
// before an amount is known.
type GetTransactionResponse struct {
	ID                   string               `json:"id"`
	Sep                  string               `json:"sep"`
	Kind                 Kind                 `json:"kind"`
	Status               SepTransactionStatus `json:"status"`
	AmountExpected       *TransactionAmount   `json:"amount_expected"`
	AmountIn             *TransactionAmount   `json:"amount_in,omitempty"`
	AmountOut            *TransactionAmount   `json:"amount_out,omitempty"`
	AmountFee            *TransactionAmount   `json:"amount_fee,omitempty"`
	StellarTransactionID string               `json:"stellar_transaction_id,omitempty"`
	Message              string               `json:"message,omitempty"`
	Refunds              *RefundsResponse     `json:"refunds,omitempty"`
	StartedAt            time.Time            `json:"started_at"`
	UpdatedAt            *time.Time           `json:"updated_at,omitempty"`
	CompletedAt          *time.Time           `json:"completed_at,omitempty"`
	TransferReceivedAt   *time.Time           `json:"transfer_received_at,omitempty"`
}

// NewGetTransactionResponse maps a persisted transaction to its public
// projection.
func NewGetTransactionResponse(txn *SepTransaction) *GetTransactionResponse {
	resp := &GetTransactionResponse{
		ID:                   txn.ID,
		Sep:                  txn.Protocol,
		Kind:                 txn.Kind,
		Status:               txn.Status,
		StellarTransactionID: txn.StellarTransactionID,
		Message:              txn.Message,
		StartedAt:            txn.StartedAt,
		CompletedAt:          txn.CompletedAt,
		TransferReceivedAt:   txn.TransferReceivedAt,
	}

	if !txn.UpdatedAt.IsZero() {
		updatedAt := txn.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}

	expectedAsset := txn.AmountInAsset
	if expectedAsset == "" {
		expectedAsset = txn.RequestAssetCode
	}
	resp.AmountExpected = &TransactionAmount{Amount: txn.AmountExpected, Asset: expectedAsset}

	resp.AmountIn = newTransactionAmount(txn.AmountIn, txn.AmountInAsset)
	resp.AmountOut = newTransactionAmount(txn.AmountOut, txn.AmountOutAsset)
	resp.AmountFee = newTransactionAmount(txn.AmountFee, txn.AmountFeeAsset)

	if txn.Refunds != nil {
		refunds := &RefundsResponse{
			AmountRefunded: newTransactionAmount(txn.Refunds.AmountRefunded, txn.AmountInAsset),
			AmountFee:      newTransactionAmount(txn.Refunds.AmountFee, txn.AmountInAsset),
			Payments:       make([]RefundPaymentResponse, 0, len(txn.Refunds.Payments)),
		}
		for _, p := range txn.Refunds.Payments {
			refunds.Payments = append(refunds.Payments, RefundPaymentResponse{
				ID:     p.ID,
				Amount: newTransactionAmount(p.Amount, txn.AmountInAsset),
				Fee:    newTransactionAmount(p.Fee, txn.AmountInAsset),
			})
		}
		resp.Refunds = refunds
	}

	return resp
}

func newTransactionAmount(amount, asset string) *TransactionAmount {
	if amount == "" {
		return nil
	}
	return &TransactionAmount{Amount: amount, Asset: asset}
}
