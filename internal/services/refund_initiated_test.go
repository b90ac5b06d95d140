package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openanchor/gw-anchor-dispatcher/internal/models"
)

func receivedDeposit(status models.SepTransactionStatus, amountIn string) *models.SepTransaction {
	txn := depositTransaction(status)
	txn.AmountIn = amountIn
	receivedAt := time.Now().UTC().Add(-time.Hour)
	txn.TransferReceivedAt = &receivedAt
	return txn
}

func TestNotifyRefundInitiated_First(t *testing.T) {
	env, _ := newTestEnv(t)
	txn := receivedDeposit(models.StatusPendingAnchor, "1")
	env.txn24.EXPECT().Get(gomock.Any(), "T").Return(txn, nil)
	env.txn24.EXPECT().Save(gomock.Any(), txn).Return(nil)

	handler := NewNotifyRefundInitiatedHandler(env.facade, testCatalog, env.events)
	resp, err := handler.Handle(context.Background(), marshalParams(t, &models.NotifyRefundInitiatedRequest{
		RequestBase: models.RequestBase{TransactionID: "T"},
		Refund:      &models.RefundRequest{ID: "1", Amount: "1", AmountFee: "0"},
	}))

	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingExternal, txn.Status)
	require.NotNil(t, txn.Refunds)
	require.Len(t, txn.Refunds.Payments, 1)
	assert.Equal(t, models.RefundPayment{ID: "1", Amount: "1", Fee: "0"}, txn.Refunds.Payments[0])
	assert.Equal(t, "1", txn.Refunds.AmountRefunded)
	assert.Equal(t, "0", txn.Refunds.AmountFee)
	assert.Equal(t, models.StatusPendingExternal, resp.Status)
}

func TestNotifyRefundInitiated_ExceedsAmountIn(t *testing.T) {
	env, _ := newTestEnv(t)
	txn := receivedDeposit(models.StatusPendingAnchor, "1")
	env.txn24.EXPECT().Get(gomock.Any(), "T").Return(txn, nil)

	handler := NewNotifyRefundInitiatedHandler(env.facade, testCatalog, env.events)
	_, err := handler.Handle(context.Background(), marshalParams(t, &models.NotifyRefundInitiatedRequest{
		RequestBase: models.RequestBase{TransactionID: "T"},
		Refund:      &models.RefundRequest{ID: "1", Amount: "1", AmountFee: "0.1"},
	}))

	assertRPCError(t, err, models.CodeInvalidParams, "Refund amount exceeds amount_in")
	assert.Nil(t, txn.Refunds)
	assert.Equal(t, models.StatusPendingAnchor, txn.Status)
}

func TestNotifyRefundInitiated_ReinitiationReplacesPayment(t *testing.T) {
	// Re-initiating with an id the aggregate already holds replaces that
	// payment instead of stacking a second one on top of it.
	env, _ := newTestEnv(t)
	txn := receivedDeposit(models.StatusPendingAnchor, "10")
	txn.Refunds = &models.Refunds{
		AmountRefunded: "6",
		AmountFee:      "1",
		Payments:       []models.RefundPayment{{ID: "r1", Amount: "5", Fee: "1"}},
	}
	env.txn24.EXPECT().Get(gomock.Any(), "T").Return(txn, nil)
	env.txn24.EXPECT().Save(gomock.Any(), txn).Return(nil)

	handler := NewNotifyRefundInitiatedHandler(env.facade, testCatalog, env.events)
	_, err := handler.Handle(context.Background(), marshalParams(t, &models.NotifyRefundInitiatedRequest{
		RequestBase: models.RequestBase{TransactionID: "T"},
		Refund:      &models.RefundRequest{ID: "r1", Amount: "8", AmountFee: "2"},
	}))

	require.NoError(t, err)
	require.Len(t, txn.Refunds.Payments, 1)
	assert.Equal(t, "8", txn.Refunds.Payments[0].Amount)
	assert.Equal(t, "10", txn.Refunds.AmountRefunded)
	assert.Equal(t, "2", txn.Refunds.AmountFee)
}

func TestNotifyRefundInitiated_Idempotence(t *testing.T) {
	// Two identical initiations land on the same terminal state as one.
	run := func(times int) *models.SepTransaction {
		env, _ := newTestEnv(t)
		txn := receivedDeposit(models.StatusPendingAnchor, "5")
		handler := NewNotifyRefundInitiatedHandler(env.facade, testCatalog, env.events)

		for i := 0; i < times; i++ {
			txn.Status = models.StatusPendingAnchor
			env.txn24.EXPECT().Get(gomock.Any(), "T").Return(txn, nil)
			env.txn24.EXPECT().Save(gomock.Any(), txn).Return(nil)
			_, err := handler.Handle(context.Background(), marshalParams(t, &models.NotifyRefundInitiatedRequest{
				RequestBase: models.RequestBase{TransactionID: "T"},
				Refund:      &models.RefundRequest{ID: "r1", Amount: "4", AmountFee: "1"},
			}))
			require.NoError(t, err)
		}
		return txn
	}

	once := run(1)
	twice := run(2)

	assert.Equal(t, once.Status, twice.Status)
	assert.Equal(t, once.Refunds.AmountRefunded, twice.Refunds.AmountRefunded)
	assert.Equal(t, once.Refunds.AmountFee, twice.Refunds.AmountFee)
	assert.Equal(t, once.Refunds.Payments, twice.Refunds.Payments)
}

func TestNotifyRefundInitiated_RefundRequired(t *testing.T) {
	env, _ := newTestEnv(t)
	txn := receivedDeposit(models.StatusPendingAnchor, "1")
	env.txn24.EXPECT().Get(gomock.Any(), "T").Return(txn, nil)

	handler := NewNotifyRefundInitiatedHandler(env.facade, testCatalog, env.events)
	_, err := handler.Handle(context.Background(), marshalParams(t, &models.NotifyRefundInitiatedRequest{
		RequestBase: models.RequestBase{TransactionID: "T"},
	}))

	assertRPCError(t, err, models.CodeInvalidParams, "refund is required")
}

func TestNotifyRefundInitiated_RequiresReceivedTransfer(t *testing.T) {
	env, _ := newTestEnv(t)
	txn := depositTransaction(models.StatusPendingAnchor)
	env.txn24.EXPECT().Get(gomock.Any(), "T").Return(txn, nil)

	handler := NewNotifyRefundInitiatedHandler(env.facade, testCatalog, env.events)
	_, err := handler.Handle(context.Background(), marshalParams(t, &models.NotifyRefundInitiatedRequest{
		RequestBase: models.RequestBase{TransactionID: "T"},
		Refund:      &models.RefundRequest{ID: "1", Amount: "1", AmountFee: "0"},
	}))

	assertRPCError(t, err, models.CodeInvalidRequest, "")
}
