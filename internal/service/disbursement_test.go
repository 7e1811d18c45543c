package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"equiploan-backend/internal/domain"
	"equiploan-backend/internal/events"
)

type disbursementFixture struct {
	disbursementRepo *MockDisbursementRepository
	equipmentRepo    *MockEquipmentRepository
	typeRepo         *MockEquipmentTypeRepository
	creditRepo       *fakeCreditRepo
	svc              *disbursementService
}

func newDisbursementFixture() *disbursementFixture {
	settings := NewSettingsService(nil)
	f := &disbursementFixture{
		disbursementRepo: new(MockDisbursementRepository),
		equipmentRepo:    new(MockEquipmentRepository),
		typeRepo:         new(MockEquipmentTypeRepository),
		creditRepo:       newFakeCreditRepo(),
	}
	locks := NewEntityLocks()
	broadcaster := events.NewBroadcaster(8)
	credit := NewCreditService(f.creditRepo, settings, broadcaster, locks)
	f.svc = NewDisbursementService(f.disbursementRepo, f.equipmentRepo, f.typeRepo,
		NewInventoryService(f.equipmentRepo), credit, broadcaster, locks).(*disbursementService)
	return f
}

func pendingDisbursement() *domain.DisbursementTransaction {
	return &domain.DisbursementTransaction{
		ID:          9,
		MemberID:    7,
		EquipmentID: 4,
		Quantity:    10,
		CreditCost:  30,
		Status:      domain.DisbursementStatusPending,
	}
}

func TestCreateDisbursementRequest_RejectsLoanEquipment(t *testing.T) {
	f := newDisbursementFixture()
	f.equipmentRepo.On("GetByID", mock.Anything, int32(4)).Return(&domain.Equipment{
		ID: 4, TypeID: 1, Name: "oscilloscope", QuantityTotal: 5, CreditCost: 10,
		Status: domain.EquipmentStatusAvailable,
	}, nil)
	f.typeRepo.On("GetByID", mock.Anything, int32(1)).Return(&domain.EquipmentType{
		ID: 1, Name: "lab gear", Discipline: domain.DisciplineLoan,
	}, nil)

	_, err := f.svc.CreateDisbursementRequest(context.Background(), 7, 4, 2)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
	f.disbursementRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestApproveDisbursement_SingleShot(t *testing.T) {
	f := newDisbursementFixture()
	dt := pendingDisbursement()
	f.disbursementRepo.On("GetByID", mock.Anything, int32(9)).Return(dt, nil)
	f.equipmentRepo.On("Reserve", mock.Anything, int32(4), int32(10)).Return(nil)
	f.disbursementRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	disbursed, err := f.svc.ApproveDisbursement(context.Background(), 1, 9)
	assert.NoError(t, err)
	assert.Equal(t, domain.DisbursementStatusDisbursed, disbursed.Status)
	assert.NotNil(t, disbursed.DisbursedOn)
	assert.Equal(t, now, *disbursed.DisbursedOn)

	entries := f.creditRepo.memberEntries(7)
	assert.Len(t, entries, 2)
	debit := entries[1]
	assert.Equal(t, int64(-30), debit.Amount)
	assert.Equal(t, int64(70), debit.BalanceAfter)
	assert.Equal(t, domain.CreditRefDisbursement, debit.ReferenceType)
}

func TestApproveDisbursement_RequiresPendingState(t *testing.T) {
	f := newDisbursementFixture()
	dt := pendingDisbursement()
	dt.Status = domain.DisbursementStatusDisbursed
	f.disbursementRepo.On("GetByID", mock.Anything, int32(9)).Return(dt, nil)

	_, err := f.svc.ApproveDisbursement(context.Background(), 1, 9)
	assert.True(t, domain.IsKind(err, domain.KindInvalidStateTransition))
	f.equipmentRepo.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything)
}

func TestApproveDisbursement_InsufficientCreditReleasesReservation(t *testing.T) {
	f := newDisbursementFixture()
	seedLedger(f.creditRepo, 7, 5) // balance 5, cost is 30
	dt := pendingDisbursement()
	f.disbursementRepo.On("GetByID", mock.Anything, int32(9)).Return(dt, nil)
	f.equipmentRepo.On("Reserve", mock.Anything, int32(4), int32(10)).Return(nil)
	f.equipmentRepo.On("Release", mock.Anything, int32(4), int32(10)).Return(nil)

	_, err := f.svc.ApproveDisbursement(context.Background(), 1, 9)
	assert.True(t, domain.IsKind(err, domain.KindInsufficientCredit))
	f.equipmentRepo.AssertCalled(t, "Release", mock.Anything, int32(4), int32(10))
	f.disbursementRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestCancelDisbursement_ReversalRequiresAdmin(t *testing.T) {
	f := newDisbursementFixture()
	dt := pendingDisbursement()
	dt.Status = domain.DisbursementStatusDisbursed
	f.disbursementRepo.On("GetByID", mock.Anything, int32(9)).Return(dt, nil)

	_, err := f.svc.CancelDisbursement(context.Background(), 7, false, 9)
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))
}

func TestCancelDisbursement_AdminReversesLedgers(t *testing.T) {
	f := newDisbursementFixture()
	seedLedger(f.creditRepo, 7, 100, -30)
	dt := pendingDisbursement()
	dt.Status = domain.DisbursementStatusDisbursed
	f.disbursementRepo.On("GetByID", mock.Anything, int32(9)).Return(dt, nil)
	f.equipmentRepo.On("Release", mock.Anything, int32(4), int32(10)).Return(nil)
	f.disbursementRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

	cancelled, err := f.svc.CancelDisbursement(context.Background(), 1, true, 9)
	assert.NoError(t, err)
	assert.Equal(t, domain.DisbursementStatusCancelled, cancelled.Status)

	entries := f.creditRepo.memberEntries(7)
	assert.Len(t, entries, 3)
	assert.Equal(t, domain.CreditTypeRefund, entries[2].Type)
	assert.Equal(t, int64(100), entries[2].BalanceAfter)
}
