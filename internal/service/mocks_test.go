package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"equiploan-backend/internal/domain"
)

type MockEquipmentTypeRepository struct {
	mock.Mock
}

func (m *MockEquipmentTypeRepository) Create(ctx context.Context, et *domain.EquipmentType) error {
	args := m.Called(ctx, et)
	return args.Error(0)
}

func (m *MockEquipmentTypeRepository) GetByID(ctx context.Context, id int32) (*domain.EquipmentType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EquipmentType), args.Error(1)
}

func (m *MockEquipmentTypeRepository) List(ctx context.Context) ([]domain.EquipmentType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.EquipmentType), args.Error(1)
}

func (m *MockEquipmentTypeRepository) Delete(ctx context.Context, id int32) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockEquipmentRepository struct {
	mock.Mock
}

func (m *MockEquipmentRepository) Create(ctx context.Context, eq *domain.Equipment) error {
	args := m.Called(ctx, eq)
	return args.Error(0)
}

func (m *MockEquipmentRepository) GetByID(ctx context.Context, id int32) (*domain.Equipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Equipment), args.Error(1)
}

func (m *MockEquipmentRepository) Update(ctx context.Context, eq *domain.Equipment) error {
	args := m.Called(ctx, eq)
	return args.Error(0)
}

func (m *MockEquipmentRepository) List(ctx context.Context, page, pageSize int32) ([]domain.Equipment, int32, error) {
	args := m.Called(ctx, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Equipment), args.Get(1).(int32), args.Error(2)
}

func (m *MockEquipmentRepository) Reserve(ctx context.Context, equipmentID, qty int32) error {
	args := m.Called(ctx, equipmentID, qty)
	return args.Error(0)
}

func (m *MockEquipmentRepository) Release(ctx context.Context, equipmentID, qty int32) error {
	args := m.Called(ctx, equipmentID, qty)
	return args.Error(0)
}

func (m *MockEquipmentRepository) CreateItem(ctx context.Context, item *domain.EquipmentItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockEquipmentRepository) GetItemByID(ctx context.Context, itemID int32) (*domain.EquipmentItem, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EquipmentItem), args.Error(1)
}

func (m *MockEquipmentRepository) SetItemStatus(ctx context.Context, itemID int32, status domain.EquipmentStatus, note string) error {
	args := m.Called(ctx, itemID, status, note)
	return args.Error(0)
}

func (m *MockEquipmentRepository) ListItems(ctx context.Context, equipmentID int32) ([]domain.EquipmentItem, error) {
	args := m.Called(ctx, equipmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.EquipmentItem), args.Error(1)
}

type MockBorrowingRepository struct {
	mock.Mock
}

func (m *MockBorrowingRepository) Create(ctx context.Context, bt *domain.BorrowingTransaction) error {
	args := m.Called(ctx, bt)
	return args.Error(0)
}

func (m *MockBorrowingRepository) GetByID(ctx context.Context, id int32) (*domain.BorrowingTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BorrowingTransaction), args.Error(1)
}

func (m *MockBorrowingRepository) Update(ctx context.Context, bt *domain.BorrowingTransaction) error {
	args := m.Called(ctx, bt)
	return args.Error(0)
}

func (m *MockBorrowingRepository) ListByMember(ctx context.Context, memberID int32, status string, page, pageSize int32) ([]domain.BorrowingTransaction, int32, error) {
	args := m.Called(ctx, memberID, status, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.BorrowingTransaction), args.Get(1).(int32), args.Error(2)
}

func (m *MockBorrowingRepository) ListActiveOverdue(ctx context.Context, asOf time.Time) ([]domain.BorrowingTransaction, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BorrowingTransaction), args.Error(1)
}

func (m *MockBorrowingRepository) MarkOverdueNotified(ctx context.Context, id int32, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

type MockDisbursementRepository struct {
	mock.Mock
}

func (m *MockDisbursementRepository) Create(ctx context.Context, dt *domain.DisbursementTransaction) error {
	args := m.Called(ctx, dt)
	return args.Error(0)
}

func (m *MockDisbursementRepository) GetByID(ctx context.Context, id int32) (*domain.DisbursementTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DisbursementTransaction), args.Error(1)
}

func (m *MockDisbursementRepository) Update(ctx context.Context, dt *domain.DisbursementTransaction) error {
	args := m.Called(ctx, dt)
	return args.Error(0)
}

func (m *MockDisbursementRepository) ListByMember(ctx context.Context, memberID int32, status string, page, pageSize int32) ([]domain.DisbursementTransaction, int32, error) {
	args := m.Called(ctx, memberID, status, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.DisbursementTransaction), args.Get(1).(int32), args.Error(2)
}

type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) List(ctx context.Context) ([]domain.SystemSetting, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SystemSetting), args.Error(1)
}

func (m *MockSettingsRepository) Get(ctx context.Context, key string) (*domain.SystemSetting, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SystemSetting), args.Error(1)
}

func (m *MockSettingsRepository) Upsert(ctx context.Context, s *domain.SystemSetting) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSettingsRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// fakeCreditRepo is an in-memory append-only ledger so balance math can be
// asserted against real entries instead of mock expectations.
type fakeCreditRepo struct {
	mu      sync.Mutex
	nextID  int32
	entries map[int32][]domain.CreditTransaction
}

func newFakeCreditRepo() *fakeCreditRepo {
	return &fakeCreditRepo{entries: make(map[int32][]domain.CreditTransaction)}
}

func (f *fakeCreditRepo) Append(_ context.Context, tx *domain.CreditTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	tx.ID = f.nextID
	tx.CreatedOn = time.Now()
	f.entries[tx.MemberID] = append(f.entries[tx.MemberID], *tx)
	return nil
}

func (f *fakeCreditRepo) LatestBalance(_ context.Context, memberID int32) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.entries[memberID]
	if len(entries) == 0 {
		return 0, false, nil
	}
	return entries[len(entries)-1].BalanceAfter, true, nil
}

func (f *fakeCreditRepo) ListByMember(_ context.Context, memberID int32, _, _ int32) ([]domain.CreditTransaction, int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := append([]domain.CreditTransaction(nil), f.entries[memberID]...)
	return entries, int32(len(entries)), nil
}

func (f *fakeCreditRepo) memberEntries(memberID int32) []domain.CreditTransaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.CreditTransaction(nil), f.entries[memberID]...)
}

// fakeEquipmentRepo is an in-memory equipment store whose Reserve/Release
// enforce the same counter guards as the SQL implementation, so contention
// can be exercised with real goroutines instead of mock expectations.
type fakeEquipmentRepo struct {
	mu   sync.Mutex
	rows map[int32]*domain.Equipment
}

func newFakeEquipmentRepo(rows ...*domain.Equipment) *fakeEquipmentRepo {
	f := &fakeEquipmentRepo{rows: make(map[int32]*domain.Equipment)}
	for _, eq := range rows {
		cp := *eq
		f.rows[eq.ID] = &cp
	}
	return f
}

func (f *fakeEquipmentRepo) Create(_ context.Context, eq *domain.Equipment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *eq
	f.rows[eq.ID] = &cp
	return nil
}

func (f *fakeEquipmentRepo) GetByID(_ context.Context, id int32) (*domain.Equipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	eq, ok := f.rows[id]
	if !ok {
		return nil, domain.Errorf(domain.KindNotFound, "equipment %d not found", id)
	}
	cp := *eq
	return &cp, nil
}

func (f *fakeEquipmentRepo) Update(_ context.Context, eq *domain.Equipment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[eq.ID]; !ok {
		return domain.Errorf(domain.KindNotFound, "equipment %d not found", eq.ID)
	}
	cp := *eq
	f.rows[eq.ID] = &cp
	return nil
}

func (f *fakeEquipmentRepo) List(context.Context, int32, int32) ([]domain.Equipment, int32, error) {
	return nil, 0, nil
}

func (f *fakeEquipmentRepo) Reserve(_ context.Context, equipmentID, qty int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	eq, ok := f.rows[equipmentID]
	if !ok {
		return domain.Errorf(domain.KindNotFound, "equipment %d not found", equipmentID)
	}
	if eq.QuantityBorrowed+qty > eq.QuantityTotal-eq.QuantityUnavailable {
		return domain.Errorf(domain.KindInsufficientInventory, "cannot reserve %d units of equipment %d", qty, equipmentID)
	}
	eq.QuantityBorrowed += qty
	return nil
}

func (f *fakeEquipmentRepo) Release(_ context.Context, equipmentID, qty int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	eq, ok := f.rows[equipmentID]
	if !ok {
		return domain.Errorf(domain.KindNotFound, "equipment %d not found", equipmentID)
	}
	if eq.QuantityBorrowed-qty < 0 {
		return domain.Errorf(domain.KindInvariantViolation, "cannot release %d units of equipment %d", qty, equipmentID)
	}
	eq.QuantityBorrowed -= qty
	return nil
}

func (f *fakeEquipmentRepo) CreateItem(context.Context, *domain.EquipmentItem) error { return nil }

func (f *fakeEquipmentRepo) GetItemByID(_ context.Context, itemID int32) (*domain.EquipmentItem, error) {
	return nil, domain.Errorf(domain.KindNotFound, "item %d not found", itemID)
}

func (f *fakeEquipmentRepo) SetItemStatus(context.Context, int32, domain.EquipmentStatus, string) error {
	return nil
}

func (f *fakeEquipmentRepo) ListItems(context.Context, int32) ([]domain.EquipmentItem, error) {
	return nil, nil
}

func (f *fakeEquipmentRepo) borrowed(id int32) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id].QuantityBorrowed
}

// fakeBorrowingRepo is an in-memory borrowing store handing out copies, the
// way a row scan does.
type fakeBorrowingRepo struct {
	mu     sync.Mutex
	nextID int32
	rows   map[int32]*domain.BorrowingTransaction
}

func newFakeBorrowingRepo() *fakeBorrowingRepo {
	return &fakeBorrowingRepo{rows: make(map[int32]*domain.BorrowingTransaction)}
}

func (f *fakeBorrowingRepo) Create(_ context.Context, bt *domain.BorrowingTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	bt.ID = f.nextID
	cp := *bt
	f.rows[bt.ID] = &cp
	return nil
}

func (f *fakeBorrowingRepo) GetByID(_ context.Context, id int32) (*domain.BorrowingTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bt, ok := f.rows[id]
	if !ok {
		return nil, domain.Errorf(domain.KindNotFound, "borrowing %d not found", id)
	}
	cp := *bt
	return &cp, nil
}

func (f *fakeBorrowingRepo) Update(_ context.Context, bt *domain.BorrowingTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[bt.ID]; !ok {
		return domain.Errorf(domain.KindNotFound, "borrowing %d not found", bt.ID)
	}
	cp := *bt
	f.rows[bt.ID] = &cp
	return nil
}

func (f *fakeBorrowingRepo) ListByMember(context.Context, int32, string, int32, int32) ([]domain.BorrowingTransaction, int32, error) {
	return nil, 0, nil
}

func (f *fakeBorrowingRepo) ListActiveOverdue(_ context.Context, asOf time.Time) ([]domain.BorrowingTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []domain.BorrowingTransaction
	for _, bt := range f.rows {
		if bt.Active() && bt.IsOverdue(asOf) {
			list = append(list, *bt)
		}
	}
	return list, nil
}

func (f *fakeBorrowingRepo) MarkOverdueNotified(_ context.Context, id int32, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bt, ok := f.rows[id]
	if !ok || bt.LastOverdueNotifiedAt != nil {
		return false, nil
	}
	bt.LastOverdueNotifiedAt = &at
	return true, nil
}

// stubSettings pins a settings snapshot without a backing repository.
type stubSettings struct {
	snap domain.SettingsSnapshot
}

func (s *stubSettings) Snapshot() domain.SettingsSnapshot    { return s.snap }
func (s *stubSettings) Load(context.Context) error           { return nil }
func (s *stubSettings) Delete(context.Context, string) error { return nil }

func (s *stubSettings) Get(context.Context, string) (*domain.SystemSetting, error) {
	return nil, domain.NewError(domain.KindNotFound, "not found")
}

func (s *stubSettings) Set(context.Context, string, string, domain.SettingType) (*domain.SystemSetting, error) {
	return nil, nil
}

func (s *stubSettings) List(context.Context) ([]domain.SystemSetting, error) {
	return nil, nil
}

// recordingEmailService captures notification calls on a channel so async
// sends can be awaited.
type recordingEmailService struct {
	calls chan string
}

func newRecordingEmailService() *recordingEmailService {
	return &recordingEmailService{calls: make(chan string, 8)}
}

func (r *recordingEmailService) SendBorrowApproved(_ context.Context, _ int32, _ *domain.BorrowingTransaction) error {
	r.calls <- "approved"
	return nil
}

func (r *recordingEmailService) SendOverdueNotice(_ context.Context, _ int32, _ *domain.BorrowingTransaction) error {
	r.calls <- "overdue"
	return nil
}

func (r *recordingEmailService) SendReturnReceipt(_ context.Context, _ int32, _ *domain.BorrowingTransaction, _ int64) error {
	r.calls <- "receipt"
	return nil
}

func (r *recordingEmailService) await(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-r.calls:
		if got != want {
			t.Fatalf("expected %q notification, got %q", want, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q notification", want)
	}
}
