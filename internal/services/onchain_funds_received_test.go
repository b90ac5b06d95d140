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

func TestNotifyOnchainFundsReceived_Fresh(t *testing.T) {
	env, _ := newTestEnv(t)
	txn := depositTransaction(models.StatusPendingUserTransferStart)
	env.txn24.EXPECT().Get(gomock.Any(), "T").Return(txn, nil)
	env.txn24.EXPECT().Save(gomock.Any(), txn).Return(nil)

	start := time.Now().UTC()
	handler := NewNotifyOnchainFundsReceivedHandler(env.facade, testCatalog, nil, env.events)
	resp, err := handler.Handle(context.Background(), marshalParams(t, &models.NotifyOnchainFundsReceivedRequest{
		RequestBase:          models.RequestBase{TransactionID: "T"},
		StellarTransactionID: "abc",
	}))

	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingAnchor, txn.Status)
	assert.Equal(t, "abc", txn.StellarTransactionID)
	require.NotNil(t, txn.TransferReceivedAt)
	assert.False(t, txn.TransferReceivedAt.Before(start))
	assert.False(t, txn.TransferReceivedAt.After(time.Now().UTC()))
	assert.Equal(t, models.StatusPendingAnchor, resp.Status)
	assert.Equal(t, "abc", resp.StellarTransactionID)
}

func TestNotifyOnchainFundsReceived_HorizonProvidesObservationTime(t *testing.T) {
	env, ctrl := newTestEnv(t)
	txn := depositTransaction(models.StatusPendingUserTransferStart)
	env.txn24.EXPECT().Get(gomock.Any(), "T").Return(txn, nil)
	env.txn24.EXPECT().Save(gomock.Any(), txn).Return(nil)

	ledgerTime := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	horizonClient := NewMockHorizonClient(ctrl)
	horizonClient.EXPECT().GetTransactionCreatedAt(gomock.Any(), "abc").Return(ledgerTime, nil)

	handler := NewNotifyOnchainFundsReceivedHandler(env.facade, testCatalog, horizonClient, env.events)
	_, err := handler.Handle(context.Background(), marshalParams(t, &models.NotifyOnchainFundsReceivedRequest{
		RequestBase:          models.RequestBase{TransactionID: "T"},
		StellarTransactionID: "abc",
	}))

	require.NoError(t, err)
	require.NotNil(t, txn.TransferReceivedAt)
	assert.Equal(t, ledgerTime, *txn.TransferReceivedAt)
}

func TestNotifyOnchainFundsReceived_MixedAmountTriple(t *testing.T) {
	env, _ := newTestEnv(t)
	txn := depositTransaction(models.StatusPendingUserTransferStart)
	env.txn24.EXPECT().Get(gomock.Any(), "T").Return(txn, nil)

	handler := NewNotifyOnchainFundsReceivedHandler(env.facade, testCatalog, nil, env.events)
	_, err := handler.Handle(context.Background(), marshalParams(t, &models.NotifyOnchainFundsReceivedRequest{
		RequestBase:          models.RequestBase{TransactionID: "T"},
		StellarTransactionID: "abc",
		AmountIn:             &models.AmountAssetRequest{Amount: "100", Asset: usdcAsset},
	}))

	assertRPCError(t, err, models.CodeInvalidParams,
		"All or none of the amount_in, amount_out, and amount_fee should be set")
	assert.Equal(t, models.StatusPendingUserTransferStart, txn.Status)
}

func TestNotifyOnchainFundsReceived_FullAmountTriple(t *testing.T) {
	env, _ := newTestEnv(t)
	txn := depositTransaction(models.StatusPendingUserTransferStart)
	env.txn24.EXPECT().Get(gomock.Any(), "T").Return(txn, nil)
	env.txn24.EXPECT().Save(gomock.Any(), txn).Return(nil)

	handler := NewNotifyOnchainFundsReceivedHandler(env.facade, testCatalog, nil, env.events)
	_, err := handler.Handle(context.Background(), marshalParams(t, &models.NotifyOnchainFundsReceivedRequest{
		RequestBase:          models.RequestBase{TransactionID: "T"},
		StellarTransactionID: "abc",
		AmountIn:             &models.AmountAssetRequest{Amount: "100", Asset: usdcAsset},
		AmountOut:            &models.AmountAssetRequest{Amount: "98", Asset: "iso4217:USD"},
		AmountFee:            &models.AmountAssetRequest{Amount: "2", Asset: "iso4217:USD"},
	}))

	require.NoError(t, err)
	assert.Equal(t, "100", txn.AmountIn)
	assert.Equal(t, usdcAsset, txn.AmountInAsset)
	assert.Equal(t, "98", txn.AmountOut)
	assert.Equal(t, "iso4217:USD", txn.AmountOutAsset)
	assert.Equal(t, "2", txn.AmountFee)
	assert.Equal(t, "iso4217:USD", txn.AmountFeeAsset)
}

func TestNotifyOnchainFundsReceived_StellarTransactionIDRequired(t *testing.T) {
	env, _ := newTestEnv(t)
	txn := depositTransaction(models.StatusPendingUserTransferStart)
	env.txn24.EXPECT().Get(gomock.Any(), "T").Return(txn, nil)

	handler := NewNotifyOnchainFundsReceivedHandler(env.facade, testCatalog, nil, env.events)
	_, err := handler.Handle(context.Background(), marshalParams(t, &models.NotifyOnchainFundsReceivedRequest{
		RequestBase: models.RequestBase{TransactionID: "T"},
	}))

	assertRPCError(t, err, models.CodeInvalidParams, "stellar_transaction_id is required")
}

func TestNotifyOnchainFundsReceived_KnownHashMayBeOmitted(t *testing.T) {
	env, _ := newTestEnv(t)
	txn := depositTransaction(models.StatusPendingUserTransferStart)
	txn.StellarTransactionID = "abc"
	env.txn24.EXPECT().Get(gomock.Any(), "T").Return(txn, nil)
	env.txn24.EXPECT().Save(gomock.Any(), txn).Return(nil)

	handler := NewNotifyOnchainFundsReceivedHandler(env.facade, testCatalog, nil, env.events)
	_, err := handler.Handle(context.Background(), marshalParams(t, &models.NotifyOnchainFundsReceivedRequest{
		RequestBase: models.RequestBase{TransactionID: "T"},
	}))

	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingAnchor, txn.Status)
	// The hash did not change and no new observation time was recorded.
	assert.Equal(t, "abc", txn.StellarTransactionID)
	assert.Nil(t, txn.TransferReceivedAt)
}

func TestNotifyOnchainFundsReceived_PendingExternalOnlyBeforeReceipt(t *testing.T) {
	env, _ := newTestEnv(t)
	txn := depositTransaction(models.StatusPendingExternal)
	receivedAt := time.Now().UTC().Add(-time.Hour)
	txn.TransferReceivedAt = &receivedAt
	env.txn24.EXPECT().Get(gomock.Any(), "T").Return(txn, nil)

	handler := NewNotifyOnchainFundsReceivedHandler(env.facade, testCatalog, nil, env.events)
	_, err := handler.Handle(context.Background(), marshalParams(t, &models.NotifyOnchainFundsReceivedRequest{
		RequestBase:          models.RequestBase{TransactionID: "T"},
		StellarTransactionID: "abc",
	}))

	assertRPCError(t, err, models.CodeInvalidRequest, "")
}
