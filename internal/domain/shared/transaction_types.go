package shared

// TransactionType defines the possible ledger entry kinds. Direction is
// encoded by the type and the account fields, never by the sign of the amount.
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeTransfer   TransactionType = "TRANSFER"
)

// TransactionStatus defines ledger entry lifecycle states. Only COMPLETED
// entries affect account balances.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusReversed  TransactionStatus = "REVERSED"
)

// AccountType defines the supported account categories
type AccountType string

const (
	AccountTypeChecking   AccountType = "CHECKING"
	AccountTypeSavings    AccountType = "SAVINGS"
	AccountTypeCreditCard AccountType = "CREDIT_CARD"
	AccountTypeCash       AccountType = "CASH"
	AccountTypeInvestment AccountType = "INVESTMENT"
	AccountTypeLoan       AccountType = "LOAN"
	AccountTypeOther      AccountType = "OTHER"
)

// ValidAccountType reports whether t is one of the supported account categories
func ValidAccountType(t AccountType) bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeCreditCard,
		AccountTypeCash, AccountTypeInvestment, AccountTypeLoan, AccountTypeOther:
		return true
	}
	return false
}

// AccountStatus defines account lifecycle states. Accounts referenced by
// transactions are soft-closed, never deleted.
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "ACTIVE"
	AccountStatusClosed AccountStatus = "CLOSED"
)

// BillStatus defines credit card bill settlement states. Overpayment is an
// explicit state, never clamped into PAID.
type BillStatus string

const (
	BillStatusOpen          BillStatus = "OPEN"
	BillStatusPartiallyPaid BillStatus = "PARTIALLY_PAID"
	BillStatusPaid          BillStatus = "PAID"
	BillStatusOverdue       BillStatus = "OVERDUE"
	BillStatusOverpaid      BillStatus = "OVERPAID"
)

// EventType identifies outbound ledger events published after commit
type EventType string

const (
	EventTransactionCompleted EventType = "transaction.completed"
	EventTransactionUpdated   EventType = "transaction.updated"
	EventTransactionDeleted   EventType = "transaction.deleted"
	EventBillGenerated        EventType = "bill.generated"
	EventBillPayment          EventType = "bill.payment"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
