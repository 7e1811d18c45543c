package domain

import "time"

type BorrowingStatus string

const (
	BorrowingStatusPending   BorrowingStatus = "PENDING"
	BorrowingStatusApproved  BorrowingStatus = "APPROVED"
	BorrowingStatusBorrowed  BorrowingStatus = "BORROWED"
	BorrowingStatusCompleted BorrowingStatus = "COMPLETED"
	BorrowingStatusRejected  BorrowingStatus = "REJECTED"
	BorrowingStatusCancelled BorrowingStatus = "CANCELLED"
)

// BorrowingTransaction is a loan request driven through the lifecycle
// PENDING -> APPROVED -> BORROWED -> COMPLETED, with REJECTED/CANCELLED exits.
// APPROVED and BORROWED differ only in whether the physical handover happened;
// ledger and inventory effects are applied once, at approval.
type BorrowingTransaction struct {
	ID                int32           `json:"id"`
	MemberID          int32           `json:"member_id"`
	EquipmentID       int32           `json:"equipment_id"`
	QuantityBorrowed  int32           `json:"quantity_borrowed"`
	QuantityRemaining int32           `json:"quantity_remaining"` // units not yet returned, never increases
	CreditCost        int64           `json:"credit_cost"`        // total credits debited at approval
	Status            BorrowingStatus `json:"status"`
	BorrowDate         time.Time  `json:"borrow_date"`
	ExpectedReturnDate time.Time  `json:"expected_return_date"`
	HandedOverOn       *time.Time `json:"handed_over_on,omitempty"`
	ReturnedOn         *time.Time `json:"returned_on,omitempty"`
	DamageNote         string     `json:"damage_note,omitempty"`
	// Sweep marker: set once when the overdue notification for this loan went out.
	LastOverdueNotifiedAt *time.Time `json:"last_overdue_notified_at,omitempty"`
	CreatedOn             time.Time  `json:"created_on"`
	UpdatedOn             time.Time  `json:"updated_on"`
}

// IsOverdue reports the derived overdue condition. Never a stored status; always
// computed against the caller's clock so it cannot go stale.
func (b *BorrowingTransaction) IsOverdue(now time.Time) bool {
	if b.Status != BorrowingStatusApproved && b.Status != BorrowingStatusBorrowed {
		return false
	}
	return b.QuantityRemaining > 0 && now.After(b.ExpectedReturnDate)
}

// IsTerminal reports whether the transaction can no longer transition.
func (b *BorrowingTransaction) IsTerminal() bool {
	switch b.Status {
	case BorrowingStatusCompleted, BorrowingStatusRejected, BorrowingStatusCancelled:
		return true
	}
	return false
}

// Active reports whether inventory is still held by this transaction.
func (b *BorrowingTransaction) Active() bool {
	return (b.Status == BorrowingStatusApproved || b.Status == BorrowingStatusBorrowed) && b.QuantityRemaining > 0
}
