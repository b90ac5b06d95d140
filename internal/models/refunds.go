package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RefundPayment is a single refund payment attached to a transaction.
// Amount and Fee are decimal strings in the transaction's amount_in asset.
type RefundPayment struct {
	ID     string `json:"id"`
	Amount string `json:"amount"`
	Fee    string `json:"fee"`
}

// Refunds is the refund aggregate of a transaction: the ordered payments
// plus totals derived from them. AmountRefunded sums principal and fee
// across payments, AmountFee sums fees only.
type Refunds struct {
	AmountRefunded string          `json:"amount_refunded"`
	AmountFee      string          `json:"amount_fee"`
	Payments       []RefundPayment `json:"payments"`
}

// UpsertPayment returns a new aggregate with p replacing the payment of the
// same id, or appended when no such payment exists. Insertion order is
// preserved; the receiver is never modified and may be nil.
func (r *Refunds) UpsertPayment(p RefundPayment) *Refunds {
	out := &Refunds{}
	if r == nil {
		out.Payments = []RefundPayment{p}
		return out
	}
	out.AmountRefunded = r.AmountRefunded
	out.AmountFee = r.AmountFee
	replaced := false
	out.Payments = make([]RefundPayment, 0, len(r.Payments)+1)
	for _, existing := range r.Payments {
		if existing.ID == p.ID {
			out.Payments = append(out.Payments, p)
			replaced = true
			continue
		}
		out.Payments = append(out.Payments, existing)
	}
	if !replaced {
		out.Payments = append(out.Payments, p)
	}
	return out
}

// HasPayment reports whether a payment with the given id exists.
func (r *Refunds) HasPayment(id string) bool {
	if r == nil {
		return false
	}
	for _, p := range r.Payments {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Recalculate recomputes AmountRefunded and AmountFee from the payments,
// rounding to the given asset precision with banker's rounding.
func (r *Refunds) Recalculate(precision int32) error {
	if r == nil {
		return nil
	}
	totalRefunded := decimal.Zero
	totalFee := decimal.Zero
	for _, p := range r.Payments {
		amount, err := decimal.NewFromString(p.Amount)
		if err != nil {
			return fmt.Errorf("refund payment %s has invalid amount: %w", p.ID, err)
		}
		fee, err := decimal.NewFromString(p.Fee)
		if err != nil {
			return fmt.Errorf("refund payment %s has invalid fee: %w", p.ID, err)
		}
		totalRefunded = totalRefunded.Add(amount).Add(fee)
		totalFee = totalFee.Add(fee)
	}
	r.AmountRefunded = totalRefunded.RoundBank(precision).String()
	r.AmountFee = totalFee.RoundBank(precision).String()
	return nil
}

// TotalRefunded sums principal plus fee across all payments, rounded to the
// asset precision with banker's rounding. A nil aggregate totals zero.
func (r *Refunds) TotalRefunded(precision int32) (decimal.Decimal, error) {
	if r == nil {
		return decimal.Zero, nil
	}
	total := decimal.Zero
	for _, p := range r.Payments {
		amount, err := decimal.NewFromString(p.Amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("refund payment %s has invalid amount: %w", p.ID, err)
		}
		fee, err := decimal.NewFromString(p.Fee)
		if err != nil {
			return decimal.Zero, fmt.Errorf("refund payment %s has invalid fee: %w", p.ID, err)
		}
		total = total.Add(amount).Add(fee)
	}
	return total.RoundBank(precision), nil
}
