package domain

import "time"

type CreditTransactionType string

const (
	CreditTypeBorrow     CreditTransactionType = "BORROW"
	CreditTypePenalty    CreditTransactionType = "PENALTY"
	CreditTypeAdjustment CreditTransactionType = "ADJUSTMENT"
	CreditTypeRefund     CreditTransactionType = "REFUND"
)

type CreditReferenceType string

const (
	CreditRefBorrowing    CreditReferenceType = "BORROWING"
	CreditRefDisbursement CreditReferenceType = "DISBURSEMENT"
	CreditRefManual       CreditReferenceType = "MANUAL"
)

// CreditTransaction is one immutable ledger entry. Entries are append-only;
// ordering them by creation, each BalanceAfter equals the previous BalanceAfter
// plus Amount, and the member's current balance is the latest BalanceAfter.
type CreditTransaction struct {
	ID            int32                 `json:"id"`
	MemberID      int32                 `json:"member_id"`
	Amount        int64                 `json:"amount"` // positive for credit, negative for debit
	Type          CreditTransactionType `json:"type"`
	ReferenceType CreditReferenceType   `json:"reference_type"`
	ReferenceID   *int32                `json:"reference_id,omitempty"`
	BalanceAfter  int64                 `json:"balance_after"`
	ActorID       *int32                `json:"actor_id,omitempty"` // admin, for manual adjustments
	Reason        string                `json:"reason,omitempty"`
	CreatedOn     time.Time             `json:"created_on"`
}
