package service

import (
	"context"
	"fmt"
	"time"

	"equiploan-backend/internal/domain"
	"equiploan-backend/internal/events"
	"equiploan-backend/internal/logger"
	"equiploan-backend/internal/repository"
)

type disbursementService struct {
	disbursementRepo  repository.DisbursementRepository
	equipmentRepo     repository.EquipmentRepository
	equipmentTypeRepo repository.EquipmentTypeRepository
	inventory         InventoryService
	credit            CreditService
	broadcaster       *events.Broadcaster
	locks             *EntityLocks
	now               func() time.Time
}

func NewDisbursementService(
	disbursementRepo repository.DisbursementRepository,
	equipmentRepo repository.EquipmentRepository,
	equipmentTypeRepo repository.EquipmentTypeRepository,
	inventory InventoryService,
	credit CreditService,
	broadcaster *events.Broadcaster,
	locks *EntityLocks,
) DisbursementService {
	return &disbursementService{
		disbursementRepo:  disbursementRepo,
		equipmentRepo:     equipmentRepo,
		equipmentTypeRepo: equipmentTypeRepo,
		inventory:         inventory,
		credit:            credit,
		broadcaster:       broadcaster,
		locks:             locks,
		now:               time.Now,
	}
}

func (s *disbursementService) CreateDisbursementRequest(ctx context.Context, memberID, equipmentID, quantity int32) (*domain.DisbursementTransaction, error) {
	logger.EnterMethod("disbursementService.CreateDisbursementRequest", "memberID", memberID, "equipmentID", equipmentID, "quantity", quantity)

	if quantity <= 0 {
		err := domain.Errorf(domain.KindValidation, "quantity must be positive, got %d", quantity)
		logger.ExitMethodWithError("disbursementService.CreateDisbursementRequest", err, "memberID", memberID)
		return nil, err
	}

	eq, err := s.equipmentRepo.GetByID(ctx, equipmentID)
	if err != nil {
		logger.ExitMethodWithError("disbursementService.CreateDisbursementRequest", err, "equipmentID", equipmentID)
		return nil, err
	}
	et, err := s.equipmentTypeRepo.GetByID(ctx, eq.TypeID)
	if err != nil {
		logger.ExitMethodWithError("disbursementService.CreateDisbursementRequest", err, "equipmentID", equipmentID)
		return nil, err
	}
	if et.Discipline != domain.DisciplineDisbursement {
		err := domain.Errorf(domain.KindValidation, "equipment %q is loan-only and cannot be disbursed", eq.Name)
		logger.ExitMethodWithError("disbursementService.CreateDisbursementRequest", err, "equipmentID", equipmentID)
		return nil, err
	}

	cost := eq.CreditCost * int64(quantity)
	balance, err := s.credit.CurrentBalance(ctx, memberID)
	if err != nil {
		logger.ExitMethodWithError("disbursementService.CreateDisbursementRequest", err, "memberID", memberID)
		return nil, err
	}
	if balance < cost {
		err := domain.Errorf(domain.KindInsufficientCredit, "balance %d is insufficient for a cost of %d", balance, cost)
		logger.ExitMethodWithError("disbursementService.CreateDisbursementRequest", err, "memberID", memberID)
		return nil, err
	}
	if eq.QuantityAvailable() < quantity {
		err := domain.Errorf(domain.KindInsufficientInventory, "only %d of %d requested units available", eq.QuantityAvailable(), quantity)
		logger.ExitMethodWithError("disbursementService.CreateDisbursementRequest", err, "equipmentID", equipmentID)
		return nil, err
	}

	dt := &domain.DisbursementTransaction{
		MemberID:    memberID,
		EquipmentID: equipmentID,
		Quantity:    quantity,
		CreditCost:  cost,
		Status:      domain.DisbursementStatusPending,
	}
	if err := s.disbursementRepo.Create(ctx, dt); err != nil {
		logger.ExitMethodWithError("disbursementService.CreateDisbursementRequest", err, "memberID", memberID)
		return nil, err
	}

	s.publishDisbursement(dt, "requested")
	logger.ExitMethod("disbursementService.CreateDisbursementRequest", "disbursementID", dt.ID)
	return dt, nil
}

// ApproveDisbursement takes the stock out of circulation and debits the member
// in one shot. There is no handover or return leg afterwards.
func (s *disbursementService) ApproveDisbursement(ctx context.Context, adminID, disbursementID int32) (*domain.DisbursementTransaction, error) {
	logger.EnterMethod("disbursementService.ApproveDisbursement", "adminID", adminID, "disbursementID", disbursementID)

	dt, err := s.disbursementRepo.GetByID(ctx, disbursementID)
	if err != nil {
		logger.ExitMethodWithError("disbursementService.ApproveDisbursement", err, "disbursementID", disbursementID)
		return nil, err
	}

	unlock := s.locks.lockBoth(dt.EquipmentID, dt.MemberID)
	defer unlock()

	dt, err = s.disbursementRepo.GetByID(ctx, disbursementID)
	if err != nil {
		logger.ExitMethodWithError("disbursementService.ApproveDisbursement", err, "disbursementID", disbursementID)
		return nil, err
	}
	if dt.Status != domain.DisbursementStatusPending {
		err := domain.Errorf(domain.KindInvalidStateTransition, "cannot approve disbursement %d in state %s", dt.ID, dt.Status)
		logger.ExitMethodWithError("disbursementService.ApproveDisbursement", err, "disbursementID", disbursementID)
		return nil, err
	}

	if err := s.inventory.Reserve(ctx, dt.EquipmentID, dt.Quantity); err != nil {
		logger.ExitMethodWithError("disbursementService.ApproveDisbursement", err, "disbursementID", disbursementID)
		return nil, err
	}

	refID := dt.ID
	if _, err := s.credit.appendEntry(ctx, creditEntry{
		memberID:      dt.MemberID,
		amount:        -dt.CreditCost,
		entryType:     domain.CreditTypeBorrow,
		referenceType: domain.CreditRefDisbursement,
		referenceID:   &refID,
		reason:        fmt.Sprintf("disburse %d units of equipment %d", dt.Quantity, dt.EquipmentID),
	}); err != nil {
		if relErr := s.inventory.Release(ctx, dt.EquipmentID, dt.Quantity); relErr != nil {
			logger.Error("Failed to release reservation after credit failure", "disbursementID", dt.ID, "error", relErr)
		}
		logger.ExitMethodWithError("disbursementService.ApproveDisbursement", err, "disbursementID", disbursementID)
		return nil, err
	}

	now := s.now()
	dt.Status = domain.DisbursementStatusDisbursed
	dt.DisbursedOn = &now
	if err := s.disbursementRepo.Update(ctx, dt); err != nil {
		if relErr := s.inventory.Release(ctx, dt.EquipmentID, dt.Quantity); relErr != nil {
			logger.Error("Failed to release reservation after status write failure", "disbursementID", dt.ID, "error", relErr)
		}
		if _, refErr := s.credit.appendEntry(ctx, creditEntry{
			memberID:      dt.MemberID,
			amount:        dt.CreditCost,
			entryType:     domain.CreditTypeRefund,
			referenceType: domain.CreditRefDisbursement,
			referenceID:   &refID,
			reason:        "approval rollback",
		}); refErr != nil {
			logger.Error("Failed to refund credit after status write failure", "disbursementID", dt.ID, "error", refErr)
		}
		logger.ExitMethodWithError("disbursementService.ApproveDisbursement", err, "disbursementID", disbursementID)
		return nil, err
	}

	s.publishDisbursement(dt, "disbursed")
	s.publishInventory(dt.EquipmentID)
	logger.ExitMethod("disbursementService.ApproveDisbursement", "disbursementID", dt.ID)
	return dt, nil
}

func (s *disbursementService) RejectDisbursement(ctx context.Context, adminID, disbursementID int32) (*domain.DisbursementTransaction, error) {
	logger.EnterMethod("disbursementService.RejectDisbursement", "adminID", adminID, "disbursementID", disbursementID)

	dt, err := s.disbursementRepo.GetByID(ctx, disbursementID)
	if err != nil {
		logger.ExitMethodWithError("disbursementService.RejectDisbursement", err, "disbursementID", disbursementID)
		return nil, err
	}

	unlock := s.locks.lockBoth(dt.EquipmentID, dt.MemberID)
	defer unlock()

	dt, err = s.disbursementRepo.GetByID(ctx, disbursementID)
	if err != nil {
		logger.ExitMethodWithError("disbursementService.RejectDisbursement", err, "disbursementID", disbursementID)
		return nil, err
	}
	if dt.Status != domain.DisbursementStatusPending {
		err := domain.Errorf(domain.KindInvalidStateTransition, "cannot reject disbursement %d in state %s", dt.ID, dt.Status)
		logger.ExitMethodWithError("disbursementService.RejectDisbursement", err, "disbursementID", disbursementID)
		return nil, err
	}

	dt.Status = domain.DisbursementStatusRejected
	if err := s.disbursementRepo.Update(ctx, dt); err != nil {
		logger.ExitMethodWithError("disbursementService.RejectDisbursement", err, "disbursementID", disbursementID)
		return nil, err
	}

	s.publishDisbursement(dt, "rejected")
	logger.ExitMethod("disbursementService.RejectDisbursement", "disbursementID", dt.ID)
	return dt, nil
}

// CancelDisbursement cancels a pending request, or (admin only) reverses an
// already-disbursed issuance when the goods come back unused.
func (s *disbursementService) CancelDisbursement(ctx context.Context, actorID int32, isAdmin bool, disbursementID int32) (*domain.DisbursementTransaction, error) {
	logger.EnterMethod("disbursementService.CancelDisbursement", "actorID", actorID, "disbursementID", disbursementID)

	dt, err := s.disbursementRepo.GetByID(ctx, disbursementID)
	if err != nil {
		logger.ExitMethodWithError("disbursementService.CancelDisbursement", err, "disbursementID", disbursementID)
		return nil, err
	}
	if !isAdmin && dt.MemberID != actorID {
		err := domain.NewError(domain.KindUnauthorized, "only the requesting member or an admin can cancel")
		logger.ExitMethodWithError("disbursementService.CancelDisbursement", err, "disbursementID", disbursementID)
		return nil, err
	}

	unlock := s.locks.lockBoth(dt.EquipmentID, dt.MemberID)
	defer unlock()

	dt, err = s.disbursementRepo.GetByID(ctx, disbursementID)
	if err != nil {
		logger.ExitMethodWithError("disbursementService.CancelDisbursement", err, "disbursementID", disbursementID)
		return nil, err
	}

	switch dt.Status {
	case domain.DisbursementStatusPending:
		dt.Status = domain.DisbursementStatusCancelled
		if err := s.disbursementRepo.Update(ctx, dt); err != nil {
			logger.ExitMethodWithError("disbursementService.CancelDisbursement", err, "disbursementID", disbursementID)
			return nil, err
		}

	case domain.DisbursementStatusDisbursed:
		if !isAdmin {
			err := domain.NewError(domain.KindUnauthorized, "a completed disbursement can only be reversed by an admin")
			logger.ExitMethodWithError("disbursementService.CancelDisbursement", err, "disbursementID", disbursementID)
			return nil, err
		}
		if err := s.inventory.Release(ctx, dt.EquipmentID, dt.Quantity); err != nil {
			logger.ExitMethodWithError("disbursementService.CancelDisbursement", err, "disbursementID", disbursementID)
			return nil, err
		}
		refID := dt.ID
		if _, err := s.credit.appendEntry(ctx, creditEntry{
			memberID:      dt.MemberID,
			amount:        dt.CreditCost,
			entryType:     domain.CreditTypeRefund,
			referenceType: domain.CreditRefDisbursement,
			referenceID:   &refID,
			actorID:       &actorID,
			reason:        "disbursement reversed by admin",
		}); err != nil {
			if resErr := s.inventory.Reserve(ctx, dt.EquipmentID, dt.Quantity); resErr != nil {
				logger.Error("Failed to re-reserve stock after refund failure", "disbursementID", dt.ID, "error", resErr)
			}
			logger.ExitMethodWithError("disbursementService.CancelDisbursement", err, "disbursementID", disbursementID)
			return nil, err
		}
		dt.Status = domain.DisbursementStatusCancelled
		if err := s.disbursementRepo.Update(ctx, dt); err != nil {
			logger.Error("Disbursement reversal applied but status write failed", "disbursementID", dt.ID, "error", err)
			logger.ExitMethodWithError("disbursementService.CancelDisbursement", err, "disbursementID", disbursementID)
			return nil, err
		}
		s.publishInventory(dt.EquipmentID)

	default:
		err := domain.Errorf(domain.KindInvalidStateTransition, "cannot cancel disbursement %d in state %s", dt.ID, dt.Status)
		logger.ExitMethodWithError("disbursementService.CancelDisbursement", err, "disbursementID", disbursementID)
		return nil, err
	}

	s.publishDisbursement(dt, "cancelled")
	logger.ExitMethod("disbursementService.CancelDisbursement", "disbursementID", dt.ID)
	return dt, nil
}

func (s *disbursementService) GetDisbursement(ctx context.Context, id int32) (*domain.DisbursementTransaction, error) {
	return s.disbursementRepo.GetByID(ctx, id)
}

func (s *disbursementService) ListDisbursements(ctx context.Context, memberID int32, status string, page, pageSize int32) ([]domain.DisbursementTransaction, int32, error) {
	page, pageSize = normalizePage(page, pageSize)
	return s.disbursementRepo.ListByMember(ctx, memberID, status, page, pageSize)
}

func (s *disbursementService) publishDisbursement(dt *domain.DisbursementTransaction, action string) {
	memberID := dt.MemberID
	s.broadcaster.Publish(domain.TopicDisbursement, &memberID, map[string]any{
		"action":      action,
		"transaction": dt,
	})
}

func (s *disbursementService) publishInventory(equipmentID int32) {
	s.broadcaster.Publish(domain.TopicInventory, nil, map[string]any{
		"equipment_id": equipmentID,
	})
}
