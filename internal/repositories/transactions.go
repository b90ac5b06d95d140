package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openanchor/gw-anchor-dispatcher/internal/logger"
	"github.com/openanchor/gw-anchor-dispatcher/internal/models"
)

var (
	// ErrConflict is returned when a save loses the version check against a
	// concurrent mutation of the same transaction.
	ErrConflict = errors.New("transaction was modified concurrently")
)

// TxGetter extracts an open sqlx transaction from the context, if any. The
// db-tx middleware populates it for the duration of a request.
type TxGetter func(ctx context.Context) *sqlx.Tx

// transactionRow is the database shape of a transaction. The refunds
// aggregate is a JSONB document preserving payment order.
type transactionRow struct {
	ID                   string     `db:"id"`
	Kind                 string     `db:"kind"`
	Status               string     `db:"status"`
	AmountExpected       string     `db:"amount_expected"`
	AmountIn             string     `db:"amount_in"`
	AmountInAsset        string     `db:"amount_in_asset"`
	AmountOut            string     `db:"amount_out"`
	AmountOutAsset       string     `db:"amount_out_asset"`
	AmountFee            string     `db:"amount_fee"`
	AmountFeeAsset       string     `db:"amount_fee_asset"`
	RequestAssetCode     string     `db:"request_asset_code"`
	StellarTransactionID string     `db:"stellar_transaction_id"`
	Message              string     `db:"message"`
	Refunds              []byte     `db:"refunds"`
	StartedAt            time.Time  `db:"started_at"`
	UpdatedAt            time.Time  `db:"updated_at"`
	CompletedAt          *time.Time `db:"completed_at"`
	TransferReceivedAt   *time.Time `db:"transfer_received_at"`
}

func (r *transactionRow) toModel(protocol string) (*models.SepTransaction, error) {
	txn := &models.SepTransaction{
		ID:                   r.ID,
		Protocol:             protocol,
		Kind:                 models.Kind(r.Kind),
		Status:               models.SepTransactionStatus(r.Status),
		AmountExpected:       r.AmountExpected,
		AmountIn:             r.AmountIn,
		AmountInAsset:        r.AmountInAsset,
		AmountOut:            r.AmountOut,
		AmountOutAsset:       r.AmountOutAsset,
		AmountFee:            r.AmountFee,
		AmountFeeAsset:       r.AmountFeeAsset,
		RequestAssetCode:     r.RequestAssetCode,
		StellarTransactionID: r.StellarTransactionID,
		Message:              r.Message,
		StartedAt:            r.StartedAt,
		UpdatedAt:            r.UpdatedAt,
		CompletedAt:          r.CompletedAt,
		TransferReceivedAt:   r.TransferReceivedAt,
	}
	if len(r.Refunds) > 0 {
		var refunds models.Refunds
		if err := json.Unmarshal(r.Refunds, &refunds); err != nil {
			return nil, fmt.Errorf("unmarshal refunds of transaction %s: %w", r.ID, err)
		}
		txn.Refunds = &refunds
	}
	return txn, nil
}

func marshalRefunds(txn *models.SepTransaction) ([]byte, error) {
	if txn.Refunds == nil {
		return nil, nil
	}
	data, err := json.Marshal(txn.Refunds)
	if err != nil {
		return nil, fmt.Errorf("marshal refunds of transaction %s: %w", txn.ID, err)
	}
	return data, nil
}

// transactionRepository holds the store logic shared by both protocol
// tables.
type transactionRepository struct {
	db       *sqlx.DB
	txGetter TxGetter
	table    string
	protocol string
}

func (r *transactionRepository) executor(ctx context.Context) sqlx.ExtContext {
	if r.txGetter != nil {
		if tx := r.txGetter(ctx); tx != nil {
			return tx
		}
	}
	return r.db
}

// Get returns the transaction with the given id, or (nil, nil) when the
// table holds no such row.
func (r *transactionRepository) Get(ctx context.Context, id string) (*models.SepTransaction, error) {
	query := fmt.Sprintf(`
		SELECT id, kind, status, amount_expected,
		       amount_in, amount_in_asset, amount_out, amount_out_asset,
		       amount_fee, amount_fee_asset, request_asset_code,
		       stellar_transaction_id, message, refunds,
		       started_at, updated_at, completed_at, transfer_received_at
		FROM %s
		WHERE id = $1
	`, r.table)

	var row transactionRow
	err := sqlx.GetContext(ctx, r.executor(ctx), &row, query, id)

	logger.Log.Debugw("transaction lookup",
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{id},
		"error", err,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return row.toModel(r.protocol)
}

// Save persists a mutated transaction. The update carries a version check
// on updated_at; losing it returns ErrConflict. updated_at is advanced to
// the current wall clock before serialization.
func (r *transactionRepository) Save(ctx context.Context, txn *models.SepTransaction) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET kind = $2, status = $3, amount_expected = $4,
		    amount_in = $5, amount_in_asset = $6,
		    amount_out = $7, amount_out_asset = $8,
		    amount_fee = $9, amount_fee_asset = $10,
		    request_asset_code = $11, stellar_transaction_id = $12,
		    message = $13, refunds = $14,
		    updated_at = $15, completed_at = $16, transfer_received_at = $17
		WHERE id = $1 AND updated_at = $18
	`, r.table)

	refunds, err := marshalRefunds(txn)
	if err != nil {
		return err
	}

	previousUpdatedAt := txn.UpdatedAt
	txn.UpdatedAt = time.Now().UTC()

	res, err := r.executor(ctx).ExecContext(ctx, query,
		txn.ID, txn.Kind, txn.Status, txn.AmountExpected,
		txn.AmountIn, txn.AmountInAsset,
		txn.AmountOut, txn.AmountOutAsset,
		txn.AmountFee, txn.AmountFeeAsset,
		txn.RequestAssetCode, txn.StellarTransactionID,
		txn.Message, refunds,
		txn.UpdatedAt, txn.CompletedAt, txn.TransferReceivedAt,
		previousUpdatedAt,
	)

	logger.Log.Debugw("transaction save",
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{txn.ID, txn.Status},
		"error", err,
	)

	if err != nil {
		txn.UpdatedAt = previousUpdatedAt
		return fmt.Errorf("save transaction %s: %w", txn.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		txn.UpdatedAt = previousUpdatedAt
		return fmt.Errorf("save transaction %s: %w", txn.ID, err)
	}
	if affected == 0 {
		txn.UpdatedAt = previousUpdatedAt
		return ErrConflict
	}
	return nil
}

// Create inserts a new transaction row. Used by ingress tooling, not by the
// dispatcher itself.
func (r *transactionRepository) Create(ctx context.Context, txn *models.SepTransaction) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			id, kind, status, amount_expected,
			amount_in, amount_in_asset, amount_out, amount_out_asset,
			amount_fee, amount_fee_asset, request_asset_code,
			stellar_transaction_id, message, refunds,
			started_at, updated_at, completed_at, transfer_received_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, r.table)

	refunds, err := marshalRefunds(txn)
	if err != nil {
		return err
	}

	if txn.StartedAt.IsZero() {
		txn.StartedAt = time.Now().UTC()
	}
	if txn.UpdatedAt.IsZero() {
		txn.UpdatedAt = txn.StartedAt
	}

	_, err = r.executor(ctx).ExecContext(ctx, query,
		txn.ID, txn.Kind, txn.Status, txn.AmountExpected,
		txn.AmountIn, txn.AmountInAsset,
		txn.AmountOut, txn.AmountOutAsset,
		txn.AmountFee, txn.AmountFeeAsset,
		txn.RequestAssetCode, txn.StellarTransactionID,
		txn.Message, refunds,
		txn.StartedAt, txn.UpdatedAt, txn.CompletedAt, txn.TransferReceivedAt,
	)

	logger.Log.Debugw("transaction create",
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{txn.ID, txn.Kind, txn.Status},
		"error", err,
	)

	if err != nil {
		return fmt.Errorf("create transaction %s: %w", txn.ID, err)
	}
	return nil
}

// Sep24TransactionRepository stores SEP-24 interactive deposit and
// withdrawal transactions.
type Sep24TransactionRepository struct {
	transactionRepository
}

// NewSep24TransactionRepository creates a store over sep24_transactions.
func NewSep24TransactionRepository(db *sqlx.DB, txGetter TxGetter) *Sep24TransactionRepository {
	return &Sep24TransactionRepository{transactionRepository{
		db:       db,
		txGetter: txGetter,
		table:    "sep24_transactions",
		protocol: models.Sep24,
	}}
}

// Sep31TransactionRepository stores SEP-31 direct payment transactions.
type Sep31TransactionRepository struct {
	transactionRepository
}

// NewSep31TransactionRepository creates a store over sep31_transactions.
func NewSep31TransactionRepository(db *sqlx.DB, txGetter TxGetter) *Sep31TransactionRepository {
	return &Sep31TransactionRepository{transactionRepository{
		db:       db,
		txGetter: txGetter,
		table:    "sep31_transactions",
		protocol: models.Sep31,
	}}
}
