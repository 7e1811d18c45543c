package repository

import (
	"context"
	"time"

	"equiploan-backend/internal/domain"
)

type EquipmentTypeRepository interface {
	Create(ctx context.Context, et *domain.EquipmentType) error
	GetByID(ctx context.Context, id int32) (*domain.EquipmentType, error)
	List(ctx context.Context) ([]domain.EquipmentType, error)
	// Delete fails while any equipment still references the type.
	Delete(ctx context.Context, id int32) error
}

type EquipmentRepository interface {
	Create(ctx context.Context, eq *domain.Equipment) error
	GetByID(ctx context.Context, id int32) (*domain.Equipment, error)
	// Update covers admin-editable fields (name, cost, total quantity, status).
	// Counters move only through Reserve/Release.
	Update(ctx context.Context, eq *domain.Equipment) error
	List(ctx context.Context, page, pageSize int32) ([]domain.Equipment, int32, error)

	// Reserve atomically moves qty units from available to borrowed. The guard
	// accounts for items parked in MAINTENANCE/DAMAGED.
	Reserve(ctx context.Context, equipmentID, qty int32) error
	// Release gives qty units back. Refuses to drive the borrowed counter negative.
	Release(ctx context.Context, equipmentID, qty int32) error

	CreateItem(ctx context.Context, item *domain.EquipmentItem) error
	GetItemByID(ctx context.Context, itemID int32) (*domain.EquipmentItem, error)
	SetItemStatus(ctx context.Context, itemID int32, status domain.EquipmentStatus, note string) error
	ListItems(ctx context.Context, equipmentID int32) ([]domain.EquipmentItem, error)
}

type BorrowingRepository interface {
	Create(ctx context.Context, bt *domain.BorrowingTransaction) error
	GetByID(ctx context.Context, id int32) (*domain.BorrowingTransaction, error)
	Update(ctx context.Context, bt *domain.BorrowingTransaction) error
	ListByMember(ctx context.Context, memberID int32, status string, page, pageSize int32) ([]domain.BorrowingTransaction, int32, error)
	// ListActiveOverdue returns loans in APPROVED/BORROWED with remaining quantity
	// whose expected return date is before asOf.
	ListActiveOverdue(ctx context.Context, asOf time.Time) ([]domain.BorrowingTransaction, error)
	// MarkOverdueNotified sets the notification marker if it is still unset.
	// Returns true only for the caller that won the row, so overlapping sweep
	// cycles cannot notify twice.
	MarkOverdueNotified(ctx context.Context, id int32, at time.Time) (bool, error)
}

type DisbursementRepository interface {
	Create(ctx context.Context, dt *domain.DisbursementTransaction) error
	GetByID(ctx context.Context, id int32) (*domain.DisbursementTransaction, error)
	Update(ctx context.Context, dt *domain.DisbursementTransaction) error
	ListByMember(ctx context.Context, memberID int32, status string, page, pageSize int32) ([]domain.DisbursementTransaction, int32, error)
}

type CreditRepository interface {
	// Append inserts one immutable ledger entry. Callers compute BalanceAfter
	// under the member lock; entries are never updated or deleted.
	Append(ctx context.Context, tx *domain.CreditTransaction) error
	// LatestBalance returns the most recent balance_after for the member.
	// ok is false when the member has no entries yet.
	LatestBalance(ctx context.Context, memberID int32) (balance int64, ok bool, err error)
	ListByMember(ctx context.Context, memberID int32, page, pageSize int32) ([]domain.CreditTransaction, int32, error)
}

type SettingsRepository interface {
	List(ctx context.Context) ([]domain.SystemSetting, error)
	Get(ctx context.Context, key string) (*domain.SystemSetting, error)
	Upsert(ctx context.Context, s *domain.SystemSetting) error
	// Delete fails for protected keys.
	Delete(ctx context.Context, key string) error
}
