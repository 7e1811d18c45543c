package service

import (
	"context"
	"time"

	"equiploan-backend/internal/domain"
	"equiploan-backend/internal/events"
	"equiploan-backend/internal/repository"
)

// SettingsService owns the typed snapshot of system settings. Writers go
// through Set/Delete which persist and atomically swap the snapshot; readers
// take Snapshot once per operation and never see a mid-write mix.
type SettingsService interface {
	Snapshot() domain.SettingsSnapshot
	Load(ctx context.Context) error
	Get(ctx context.Context, key string) (*domain.SystemSetting, error)
	Set(ctx context.Context, key, value string, settingType domain.SettingType) (*domain.SystemSetting, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]domain.SystemSetting, error)
}

// InventoryService exposes the two counter movements of the inventory ledger.
type InventoryService interface {
	Reserve(ctx context.Context, equipmentID, qty int32) error
	Release(ctx context.Context, equipmentID, qty int32) error
}

// CreditService manages the append-only credit ledger.
type CreditService interface {
	CurrentBalance(ctx context.Context, memberID int32) (int64, error)
	ListTransactions(ctx context.Context, memberID int32, page, pageSize int32) ([]domain.CreditTransaction, int32, error)
	AdjustCredit(ctx context.Context, actorID, memberID int32, amount int64, reason string) (*domain.CreditTransaction, error)

	// appendEntry writes one ledger entry and publishes the credit event. The
	// caller must hold the member lock so read-compute-append is serialized.
	appendEntry(ctx context.Context, e creditEntry) (*domain.CreditTransaction, error)
}

// BorrowingService drives loan transactions through their lifecycle.
type BorrowingService interface {
	CreateBorrowRequest(ctx context.Context, memberID, equipmentID, quantity int32, expectedReturnDate time.Time) (*domain.BorrowingTransaction, error)
	ApproveBorrow(ctx context.Context, adminID, borrowingID int32) (*domain.BorrowingTransaction, error)
	RejectBorrow(ctx context.Context, adminID, borrowingID int32) (*domain.BorrowingTransaction, error)
	CancelBorrow(ctx context.Context, actorID int32, isAdmin bool, borrowingID int32) (*domain.BorrowingTransaction, error)
	MarkHandedOver(ctx context.Context, adminID, borrowingID int32) (*domain.BorrowingTransaction, error)
	ReturnEquipment(ctx context.Context, borrowingID, quantityReturned int32, damageNote string) (*domain.BorrowingTransaction, error)
	GetBorrowing(ctx context.Context, id int32) (*domain.BorrowingTransaction, error)
	ListBorrowings(ctx context.Context, memberID int32, status string, page, pageSize int32) ([]domain.BorrowingTransaction, int32, error)
}

// DisbursementService drives consumable issuances. Approval is single-shot:
// stock and credit move together and there is no return leg.
type DisbursementService interface {
	CreateDisbursementRequest(ctx context.Context, memberID, equipmentID, quantity int32) (*domain.DisbursementTransaction, error)
	ApproveDisbursement(ctx context.Context, adminID, disbursementID int32) (*domain.DisbursementTransaction, error)
	RejectDisbursement(ctx context.Context, adminID, disbursementID int32) (*domain.DisbursementTransaction, error)
	CancelDisbursement(ctx context.Context, actorID int32, isAdmin bool, disbursementID int32) (*domain.DisbursementTransaction, error)
	GetDisbursement(ctx context.Context, id int32) (*domain.DisbursementTransaction, error)
	ListDisbursements(ctx context.Context, memberID int32, status string, page, pageSize int32) ([]domain.DisbursementTransaction, int32, error)
}

// EquipmentService covers the catalog administration surface.
type EquipmentService interface {
	CreateEquipmentType(ctx context.Context, name string, discipline domain.UsageDiscipline) (*domain.EquipmentType, error)
	ListEquipmentTypes(ctx context.Context) ([]domain.EquipmentType, error)
	DeleteEquipmentType(ctx context.Context, id int32) error

	CreateEquipment(ctx context.Context, eq *domain.Equipment) (*domain.Equipment, error)
	UpdateEquipment(ctx context.Context, eq *domain.Equipment) (*domain.Equipment, error)
	GetEquipment(ctx context.Context, id int32) (*domain.Equipment, error)
	ListEquipment(ctx context.Context, page, pageSize int32) ([]domain.Equipment, int32, error)

	AddEquipmentItem(ctx context.Context, item *domain.EquipmentItem) (*domain.EquipmentItem, error)
	SetItemStatus(ctx context.Context, itemID int32, status domain.EquipmentStatus, note string) (*domain.EquipmentItem, error)
	ListItems(ctx context.Context, equipmentID int32) ([]domain.EquipmentItem, error)
}

// EmailService sends member-facing notifications. Callers invoke it
// asynchronously; a delivery failure never affects a committed transition.
type EmailService interface {
	SendBorrowApproved(ctx context.Context, memberID int32, bt *domain.BorrowingTransaction) error
	SendOverdueNotice(ctx context.Context, memberID int32, bt *domain.BorrowingTransaction) error
	SendReturnReceipt(ctx context.Context, memberID int32, bt *domain.BorrowingTransaction, penalty int64) error
}

// MemberDirectory resolves a member id to a deliverable address. Membership
// lives in an external system; deployments plug in their own resolver.
type MemberDirectory func(ctx context.Context, memberID int32) (email, name string, err error)

// Repositories bundles the persistence interfaces needed to wire the services.
type Repositories struct {
	EquipmentTypes repository.EquipmentTypeRepository
	Equipment      repository.EquipmentRepository
	Borrowings     repository.BorrowingRepository
	Disbursements  repository.DisbursementRepository
	Credits        repository.CreditRepository
	Settings       repository.SettingsRepository
}

// Services is the fully wired service graph sharing one lock table.
type Services struct {
	Settings     SettingsService
	Inventory    InventoryService
	Credit       CreditService
	Borrowing    BorrowingService
	Disbursement DisbursementService
	Equipment    EquipmentService
}

func NewServices(repos Repositories, emailSvc EmailService, broadcaster *events.Broadcaster) *Services {
	locks := NewEntityLocks()
	settings := NewSettingsService(repos.Settings)
	inventory := NewInventoryService(repos.Equipment)
	credit := NewCreditService(repos.Credits, settings, broadcaster, locks)
	return &Services{
		Settings:     settings,
		Inventory:    inventory,
		Credit:       credit,
		Borrowing:    NewBorrowingService(repos.Borrowings, repos.Equipment, repos.EquipmentTypes, inventory, credit, settings, emailSvc, broadcaster, locks),
		Disbursement: NewDisbursementService(repos.Disbursements, repos.Equipment, repos.EquipmentTypes, inventory, credit, broadcaster, locks),
		Equipment:    NewEquipmentService(repos.Equipment, repos.EquipmentTypes, broadcaster, locks),
	}
}

// normalizePage clamps paging parameters to sane bounds.
func normalizePage(page, pageSize int32) (int32, int32) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
