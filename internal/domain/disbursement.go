package domain

import "time"

type DisbursementStatus string

const (
	DisbursementStatusPending   DisbursementStatus = "PENDING"
	DisbursementStatusDisbursed DisbursementStatus = "DISBURSED"
	DisbursementStatusRejected  DisbursementStatus = "REJECTED"
	DisbursementStatusCancelled DisbursementStatus = "CANCELLED"
)

// DisbursementTransaction is a one-way issuance of consumable stock. Approval
// reserves stock and debits credit in one shot; there is no return leg.
type DisbursementTransaction struct {
	ID          int32              `json:"id"`
	MemberID    int32              `json:"member_id"`
	EquipmentID int32              `json:"equipment_id"`
	Quantity    int32              `json:"quantity"`
	CreditCost  int64              `json:"credit_cost"`
	Status      DisbursementStatus `json:"status"`
	DisbursedOn *time.Time         `json:"disbursed_on,omitempty"`
	CreatedOn   time.Time          `json:"created_on"`
	UpdatedOn   time.Time          `json:"updated_on"`
}

func (d *DisbursementTransaction) IsTerminal() bool {
	switch d.Status {
	case DisbursementStatusDisbursed, DisbursementStatusRejected, DisbursementStatusCancelled:
		return true
	}
	return false
}
