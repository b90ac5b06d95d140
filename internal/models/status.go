package models

// Sep identifies the Stellar Ecosystem Proposal a transaction belongs to.
const (
	Sep24 = "24"
	Sep31 = "31"
)

// Kind is the transfer direction of a transaction.
type Kind string

// Transaction kinds. Deposit and withdrawal belong to SEP-24, receive to SEP-31.
const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
	KindReceive    Kind = "receive"
)

// SepTransactionStatus is the lifecycle status of a transaction.
type SepTransactionStatus string

// The closed set of transaction statuses.
const (
	StatusIncomplete                  SepTransactionStatus = "incomplete"
	StatusPendingUserTransferStart    SepTransactionStatus = "pending_user_transfer_start"
	StatusPendingUserTransferComplete SepTransactionStatus = "pending_user_transfer_complete"
	StatusPendingExternal             SepTransactionStatus = "pending_external"
	StatusPendingAnchor               SepTransactionStatus = "pending_anchor"
	StatusPendingStellar              SepTransactionStatus = "pending_stellar"
	StatusPendingReceiver             SepTransactionStatus = "pending_receiver"
	StatusPendingCustomerInfoUpdate   SepTransactionStatus = "pending_customer_info_update"
	StatusPendingTrust                SepTransactionStatus = "pending_trust"
	StatusCompleted                   SepTransactionStatus = "completed"
	StatusRefunded                    SepTransactionStatus = "refunded"
	StatusExpired                     SepTransactionStatus = "expired"
	StatusError                       SepTransactionStatus = "error"
)

// AllStatuses lists every known status in declaration order.
var AllStatuses = []SepTransactionStatus{
	StatusIncomplete,
	StatusPendingUserTransferStart,
	StatusPendingUserTransferComplete,
	StatusPendingExternal,
	StatusPendingAnchor,
	StatusPendingStellar,
	StatusPendingReceiver,
	StatusPendingCustomerInfoUpdate,
	StatusPendingTrust,
	StatusCompleted,
	StatusRefunded,
	StatusExpired,
	StatusError,
}

// IsTerminal reports whether no further transitions are permitted from s.
func (s SepTransactionStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusRefunded, StatusExpired, StatusError:
		return true
	}
	return false
}

// ActionMethod names an operator-initiated state-mutation RPC.
type ActionMethod string

// Supported action methods.
const (
	ActionNotifyOnchainFundsReceived ActionMethod = "notify_onchain_funds_received"
	ActionNotifyRefundInitiated      ActionMethod = "notify_refund_initiated"
	ActionNotifyRefundSent           ActionMethod = "notify_refund_sent"
	ActionNotifyTransactionExpired   ActionMethod = "notify_transaction_expired"
	ActionNotifyTransactionError     ActionMethod = "notify_transaction_error"
	ActionNotifyAmountsUpdated       ActionMethod = "notify_amounts_updated"
)
