package services

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openanchor/gw-anchor-dispatcher/internal/models"
)

func TestNotifyTransactionExpired(t *testing.T) {
	env, _ := newTestEnv(t)
	txn := depositTransaction(models.StatusPendingAnchor)
	env.txn24.EXPECT().Get(gomock.Any(), "T").Return(txn, nil)
	env.txn24.EXPECT().Save(gomock.Any(), txn).Return(nil)

	handler := NewNotifyTransactionExpiredHandler(env.facade, env.events)
	resp, err := handler.Handle(context.Background(), marshalParams(t, &models.NotifyTransactionExpiredRequest{
		RequestBase: models.RequestBase{TransactionID: "T"},
		Message:     "timed out",
	}))

	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, txn.Status)
	assert.Equal(t, "timed out", txn.Message)
	require.NotNil(t, txn.CompletedAt)
	assert.Equal(t, models.StatusExpired, resp.Status)
	assert.Equal(t, "timed out", resp.Message)
}

func TestNotifyTransactionExpired_MessageRequired(t *testing.T) {
	env, _ := newTestEnv(t)

	handler := NewNotifyTransactionExpiredHandler(env.facade, env.events)
	_, err := handler.Handle(context.Background(), marshalParams(t, &models.NotifyTransactionExpiredRequest{
		RequestBase: models.RequestBase{TransactionID: "T"},
	}))

	assertRPCError(t, err, models.CodeInvalidParams, "message is required")
}

func TestNotifyTransactionExpired_TerminalStatusRejected(t *testing.T) {
	for _, status := range []models.SepTransactionStatus{
		models.StatusCompleted, models.StatusRefunded, models.StatusExpired, models.StatusError,
	} {
		t.Run(string(status), func(t *testing.T) {
			env, _ := newTestEnv(t)
			txn := depositTransaction(status)
			env.txn24.EXPECT().Get(gomock.Any(), "T").Return(txn, nil)

			handler := NewNotifyTransactionExpiredHandler(env.facade, env.events)
			_, err := handler.Handle(context.Background(), marshalParams(t, &models.NotifyTransactionExpiredRequest{
				RequestBase: models.RequestBase{TransactionID: "T"},
				Message:     "timed out",
			}))

			assertRPCError(t, err, models.CodeInvalidRequest, "")
		})
	}
}

func TestNotifyTransactionExpired_WorksForSep31(t *testing.T) {
	env, _ := newTestEnv(t)
	txn := receiveTransaction(models.StatusPendingReceiver)
	env.txn24.EXPECT().Get(gomock.Any(), "T").Return(nil, nil)
	env.txn31.EXPECT().Get(gomock.Any(), "T").Return(txn, nil)
	env.txn31.EXPECT().Save(gomock.Any(), txn).Return(nil)

	handler := NewNotifyTransactionExpiredHandler(env.facade, env.events)
	_, err := handler.Handle(context.Background(), marshalParams(t, &models.NotifyTransactionExpiredRequest{
		RequestBase: models.RequestBase{TransactionID: "T"},
		Message:     "timed out",
	}))

	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, txn.Status)
}

func TestNotifyTransactionError(t *testing.T) {
	env, _ := newTestEnv(t)
	txn := depositTransaction(models.StatusPendingUserTransferStart)
	env.txn24.EXPECT().Get(gomock.Any(), "T").Return(txn, nil)
	env.txn24.EXPECT().Save(gomock.Any(), txn).Return(nil)

	handler := NewNotifyTransactionErrorHandler(env.facade, env.events)
	_, err := handler.Handle(context.Background(), marshalParams(t, &models.NotifyTransactionErrorRequest{
		RequestBase: models.RequestBase{TransactionID: "T"},
		Message:     "kyc check failed",
	}))

	require.NoError(t, err)
	assert.Equal(t, models.StatusError, txn.Status)
	assert.Equal(t, "kyc check failed", txn.Message)
	require.NotNil(t, txn.CompletedAt)
}

func TestNotifyTransactionError_AmountsUntouched(t *testing.T) {
	env, _ := newTestEnv(t)
	txn := depositTransaction(models.StatusPendingAnchor)
	txn.AmountIn = "100"
	txn.AmountOut = "98"
	txn.AmountFee = "2"
	env.txn24.EXPECT().Get(gomock.Any(), "T").Return(txn, nil)
	env.txn24.EXPECT().Save(gomock.Any(), txn).Return(nil)

	handler := NewNotifyTransactionErrorHandler(env.facade, env.events)
	_, err := handler.Handle(context.Background(), marshalParams(t, &models.NotifyTransactionErrorRequest{
		RequestBase: models.RequestBase{TransactionID: "T"},
		Message:     "failed",
	}))

	require.NoError(t, err)
	assert.Equal(t, "100", txn.AmountIn)
	assert.Equal(t, "98", txn.AmountOut)
	assert.Equal(t, "2", txn.AmountFee)
}
