package domain

import "time"

type UsageDiscipline string

const (
	DisciplineLoan         UsageDiscipline = "LOAN"
	DisciplineDisbursement UsageDiscipline = "DISBURSEMENT"
)

// EquipmentType groups equipment under one usage discipline. The discipline is
// immutable after creation; a type cannot be deleted while equipment references it.
type EquipmentType struct {
	ID         int32           `json:"id"`
	Name       string          `json:"name"`
	Discipline UsageDiscipline `json:"discipline"`
	CreatedOn  time.Time       `json:"created_on"`
}

type EquipmentStatus string

const (
	EquipmentStatusAvailable   EquipmentStatus = "AVAILABLE"
	EquipmentStatusBorrowed    EquipmentStatus = "BORROWED"
	EquipmentStatusMaintenance EquipmentStatus = "MAINTENANCE"
	EquipmentStatusDamaged     EquipmentStatus = "DAMAGED"
)

type Equipment struct {
	ID               int32           `json:"id"`
	TypeID           int32           `json:"type_id"`
	Name             string          `json:"name"`
	QuantityTotal    int32           `json:"quantity_total"`
	QuantityBorrowed int32           `json:"quantity_borrowed"`
	// Count of items sitting in MAINTENANCE/DAMAGED. Derived on read; these
	// units are excluded from borrowable availability regardless of counters.
	QuantityUnavailable int32           `json:"quantity_unavailable"`
	CreditCost          int64           `json:"credit_cost"` // credits per unit per borrow/disbursement
	Status              EquipmentStatus `json:"status"`
	CreatedOn           time.Time       `json:"created_on"`
	UpdatedOn           time.Time       `json:"updated_on"`
}

// QuantityAvailable is the number of units that can still be reserved.
func (e *Equipment) QuantityAvailable() int32 {
	avail := e.QuantityTotal - e.QuantityBorrowed - e.QuantityUnavailable
	if avail < 0 {
		return 0
	}
	return avail
}

// EquipmentItem is a physical unit of an Equipment row. Items only matter to the
// transactional core through their status: MAINTENANCE/DAMAGED items shrink the
// borrowable pool.
type EquipmentItem struct {
	ID          int32           `json:"id"`
	EquipmentID int32           `json:"equipment_id"`
	SerialNo    string          `json:"serial_no"`
	Status      EquipmentStatus `json:"status"`
	Note        string          `json:"note"`
	UpdatedOn   time.Time       `json:"updated_on"`
}
