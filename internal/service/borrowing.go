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

type borrowingService struct {
	borrowingRepo     repository.BorrowingRepository
	equipmentRepo     repository.EquipmentRepository
	equipmentTypeRepo repository.EquipmentTypeRepository
	inventory         InventoryService
	credit            CreditService
	settings          SettingsService
	emailSvc          EmailService
	broadcaster       *events.Broadcaster
	locks             *EntityLocks
	now               func() time.Time
}

func NewBorrowingService(
	borrowingRepo repository.BorrowingRepository,
	equipmentRepo repository.EquipmentRepository,
	equipmentTypeRepo repository.EquipmentTypeRepository,
	inventory InventoryService,
	credit CreditService,
	settings SettingsService,
	emailSvc EmailService,
	broadcaster *events.Broadcaster,
	locks *EntityLocks,
) BorrowingService {
	return &borrowingService{
		borrowingRepo:     borrowingRepo,
		equipmentRepo:     equipmentRepo,
		equipmentTypeRepo: equipmentTypeRepo,
		inventory:         inventory,
		credit:            credit,
		settings:          settings,
		emailSvc:          emailSvc,
		broadcaster:       broadcaster,
		locks:             locks,
		now:               time.Now,
	}
}

func (s *borrowingService) CreateBorrowRequest(ctx context.Context, memberID, equipmentID, quantity int32, expectedReturnDate time.Time) (*domain.BorrowingTransaction, error) {
	logger.EnterMethod("borrowingService.CreateBorrowRequest", "memberID", memberID, "equipmentID", equipmentID, "quantity", quantity)

	if quantity <= 0 {
		err := domain.Errorf(domain.KindValidation, "quantity must be positive, got %d", quantity)
		logger.ExitMethodWithError("borrowingService.CreateBorrowRequest", err, "memberID", memberID)
		return nil, err
	}
	now := s.now()
	if !expectedReturnDate.After(now) {
		err := domain.NewError(domain.KindValidation, "expected return date must be in the future")
		logger.ExitMethodWithError("borrowingService.CreateBorrowRequest", err, "memberID", memberID)
		return nil, err
	}

	eq, err := s.equipmentRepo.GetByID(ctx, equipmentID)
	if err != nil {
		logger.ExitMethodWithError("borrowingService.CreateBorrowRequest", err, "equipmentID", equipmentID)
		return nil, err
	}
	et, err := s.equipmentTypeRepo.GetByID(ctx, eq.TypeID)
	if err != nil {
		logger.ExitMethodWithError("borrowingService.CreateBorrowRequest", err, "equipmentID", equipmentID)
		return nil, err
	}
	if et.Discipline != domain.DisciplineLoan {
		err := domain.Errorf(domain.KindValidation, "equipment %q is disbursement-only and cannot be borrowed", eq.Name)
		logger.ExitMethodWithError("borrowingService.CreateBorrowRequest", err, "equipmentID", equipmentID)
		return nil, err
	}

	// Early rejections for obviously doomed requests. The binding checks run
	// again at approval, against the ledgers of that moment.
	cost := eq.CreditCost * int64(quantity)
	balance, err := s.credit.CurrentBalance(ctx, memberID)
	if err != nil {
		logger.ExitMethodWithError("borrowingService.CreateBorrowRequest", err, "memberID", memberID)
		return nil, err
	}
	if balance < cost {
		err := domain.Errorf(domain.KindInsufficientCredit, "balance %d is insufficient for a cost of %d", balance, cost)
		logger.ExitMethodWithError("borrowingService.CreateBorrowRequest", err, "memberID", memberID)
		return nil, err
	}
	if eq.QuantityAvailable() < quantity {
		err := domain.Errorf(domain.KindInsufficientInventory, "only %d of %d requested units available", eq.QuantityAvailable(), quantity)
		logger.ExitMethodWithError("borrowingService.CreateBorrowRequest", err, "equipmentID", equipmentID)
		return nil, err
	}

	bt := &domain.BorrowingTransaction{
		MemberID:           memberID,
		EquipmentID:        equipmentID,
		QuantityBorrowed:   quantity,
		QuantityRemaining:  quantity,
		CreditCost:         cost,
		Status:             domain.BorrowingStatusPending,
		BorrowDate:         now,
		ExpectedReturnDate: expectedReturnDate,
	}
	if err := s.borrowingRepo.Create(ctx, bt); err != nil {
		logger.ExitMethodWithError("borrowingService.CreateBorrowRequest", err, "memberID", memberID)
		return nil, err
	}

	s.publishBorrowing(bt, "requested")
	logger.ExitMethod("borrowingService.CreateBorrowRequest", "borrowingID", bt.ID)
	return bt, nil
}

// ApproveBorrow reserves stock and debits credit as one transition. If the
// ledger write fails after the reservation, the reservation is handed back and
// the transaction stays PENDING.
func (s *borrowingService) ApproveBorrow(ctx context.Context, adminID, borrowingID int32) (*domain.BorrowingTransaction, error) {
	logger.EnterMethod("borrowingService.ApproveBorrow", "adminID", adminID, "borrowingID", borrowingID)

	bt, err := s.borrowingRepo.GetByID(ctx, borrowingID)
	if err != nil {
		logger.ExitMethodWithError("borrowingService.ApproveBorrow", err, "borrowingID", borrowingID)
		return nil, err
	}

	unlock := s.locks.lockBoth(bt.EquipmentID, bt.MemberID)
	defer unlock()

	// Re-read under the locks; the row may have moved while we waited.
	bt, err = s.borrowingRepo.GetByID(ctx, borrowingID)
	if err != nil {
		logger.ExitMethodWithError("borrowingService.ApproveBorrow", err, "borrowingID", borrowingID)
		return nil, err
	}
	if bt.Status != domain.BorrowingStatusPending {
		err := domain.Errorf(domain.KindInvalidStateTransition, "cannot approve borrowing %d in state %s", bt.ID, bt.Status)
		logger.ExitMethodWithError("borrowingService.ApproveBorrow", err, "borrowingID", borrowingID)
		return nil, err
	}

	if err := s.inventory.Reserve(ctx, bt.EquipmentID, bt.QuantityBorrowed); err != nil {
		logger.ExitMethodWithError("borrowingService.ApproveBorrow", err, "borrowingID", borrowingID)
		return nil, err
	}

	refID := bt.ID
	if _, err := s.credit.appendEntry(ctx, creditEntry{
		memberID:      bt.MemberID,
		amount:        -bt.CreditCost,
		entryType:     domain.CreditTypeBorrow,
		referenceType: domain.CreditRefBorrowing,
		referenceID:   &refID,
		reason:        fmt.Sprintf("borrow %d units of equipment %d", bt.QuantityBorrowed, bt.EquipmentID),
	}); err != nil {
		if relErr := s.inventory.Release(ctx, bt.EquipmentID, bt.QuantityBorrowed); relErr != nil {
			logger.Error("Failed to release reservation after credit failure", "borrowingID", bt.ID, "error", relErr)
		}
		logger.ExitMethodWithError("borrowingService.ApproveBorrow", err, "borrowingID", borrowingID)
		return nil, err
	}

	bt.Status = domain.BorrowingStatusApproved
	if err := s.borrowingRepo.Update(ctx, bt); err != nil {
		if relErr := s.inventory.Release(ctx, bt.EquipmentID, bt.QuantityBorrowed); relErr != nil {
			logger.Error("Failed to release reservation after status write failure", "borrowingID", bt.ID, "error", relErr)
		}
		if _, refErr := s.credit.appendEntry(ctx, creditEntry{
			memberID:      bt.MemberID,
			amount:        bt.CreditCost,
			entryType:     domain.CreditTypeRefund,
			referenceType: domain.CreditRefBorrowing,
			referenceID:   &refID,
			reason:        "approval rollback",
		}); refErr != nil {
			logger.Error("Failed to refund credit after status write failure", "borrowingID", bt.ID, "error", refErr)
		}
		logger.ExitMethodWithError("borrowingService.ApproveBorrow", err, "borrowingID", borrowingID)
		return nil, err
	}

	s.publishBorrowing(bt, "approved")
	s.publishInventory(bt.EquipmentID)
	s.sendAsync(func(mailCtx context.Context) error {
		return s.emailSvc.SendBorrowApproved(mailCtx, bt.MemberID, bt)
	})

	logger.ExitMethod("borrowingService.ApproveBorrow", "borrowingID", bt.ID)
	return bt, nil
}

func (s *borrowingService) RejectBorrow(ctx context.Context, adminID, borrowingID int32) (*domain.BorrowingTransaction, error) {
	logger.EnterMethod("borrowingService.RejectBorrow", "adminID", adminID, "borrowingID", borrowingID)

	bt, err := s.borrowingRepo.GetByID(ctx, borrowingID)
	if err != nil {
		logger.ExitMethodWithError("borrowingService.RejectBorrow", err, "borrowingID", borrowingID)
		return nil, err
	}

	unlock := s.locks.lockBoth(bt.EquipmentID, bt.MemberID)
	defer unlock()

	bt, err = s.borrowingRepo.GetByID(ctx, borrowingID)
	if err != nil {
		logger.ExitMethodWithError("borrowingService.RejectBorrow", err, "borrowingID", borrowingID)
		return nil, err
	}
	if bt.Status != domain.BorrowingStatusPending {
		err := domain.Errorf(domain.KindInvalidStateTransition, "cannot reject borrowing %d in state %s", bt.ID, bt.Status)
		logger.ExitMethodWithError("borrowingService.RejectBorrow", err, "borrowingID", borrowingID)
		return nil, err
	}

	bt.Status = domain.BorrowingStatusRejected
	if err := s.borrowingRepo.Update(ctx, bt); err != nil {
		logger.ExitMethodWithError("borrowingService.RejectBorrow", err, "borrowingID", borrowingID)
		return nil, err
	}

	s.publishBorrowing(bt, "rejected")
	logger.ExitMethod("borrowingService.RejectBorrow", "borrowingID", bt.ID)
	return bt, nil
}

// CancelBorrow cancels a pending request, or (admin only) force-cancels an
// active loan, returning outstanding stock and refunding the debit.
func (s *borrowingService) CancelBorrow(ctx context.Context, actorID int32, isAdmin bool, borrowingID int32) (*domain.BorrowingTransaction, error) {
	logger.EnterMethod("borrowingService.CancelBorrow", "actorID", actorID, "borrowingID", borrowingID)

	bt, err := s.borrowingRepo.GetByID(ctx, borrowingID)
	if err != nil {
		logger.ExitMethodWithError("borrowingService.CancelBorrow", err, "borrowingID", borrowingID)
		return nil, err
	}
	if !isAdmin && bt.MemberID != actorID {
		err := domain.NewError(domain.KindUnauthorized, "only the requesting member or an admin can cancel")
		logger.ExitMethodWithError("borrowingService.CancelBorrow", err, "borrowingID", borrowingID)
		return nil, err
	}

	unlock := s.locks.lockBoth(bt.EquipmentID, bt.MemberID)
	defer unlock()

	bt, err = s.borrowingRepo.GetByID(ctx, borrowingID)
	if err != nil {
		logger.ExitMethodWithError("borrowingService.CancelBorrow", err, "borrowingID", borrowingID)
		return nil, err
	}

	switch bt.Status {
	case domain.BorrowingStatusPending:
		bt.Status = domain.BorrowingStatusCancelled
		if err := s.borrowingRepo.Update(ctx, bt); err != nil {
			logger.ExitMethodWithError("borrowingService.CancelBorrow", err, "borrowingID", borrowingID)
			return nil, err
		}

	case domain.BorrowingStatusApproved, domain.BorrowingStatusBorrowed:
		if !isAdmin {
			err := domain.NewError(domain.KindUnauthorized, "an active loan can only be cancelled by an admin")
			logger.ExitMethodWithError("borrowingService.CancelBorrow", err, "borrowingID", borrowingID)
			return nil, err
		}
		released := bt.QuantityRemaining
		if released > 0 {
			if err := s.inventory.Release(ctx, bt.EquipmentID, released); err != nil {
				logger.ExitMethodWithError("borrowingService.CancelBorrow", err, "borrowingID", borrowingID)
				return nil, err
			}
		}
		refID := bt.ID
		if _, err := s.credit.appendEntry(ctx, creditEntry{
			memberID:      bt.MemberID,
			amount:        bt.CreditCost,
			entryType:     domain.CreditTypeRefund,
			referenceType: domain.CreditRefBorrowing,
			referenceID:   &refID,
			actorID:       &actorID,
			reason:        "loan cancelled by admin",
		}); err != nil {
			if released > 0 {
				if resErr := s.inventory.Reserve(ctx, bt.EquipmentID, released); resErr != nil {
					logger.Error("Failed to re-reserve stock after refund failure", "borrowingID", bt.ID, "error", resErr)
				}
			}
			logger.ExitMethodWithError("borrowingService.CancelBorrow", err, "borrowingID", borrowingID)
			return nil, err
		}
		bt.Status = domain.BorrowingStatusCancelled
		bt.QuantityRemaining = 0
		if err := s.borrowingRepo.Update(ctx, bt); err != nil {
			logger.Error("Cancelled loan effects applied but status write failed", "borrowingID", bt.ID, "error", err)
			logger.ExitMethodWithError("borrowingService.CancelBorrow", err, "borrowingID", borrowingID)
			return nil, err
		}
		s.publishInventory(bt.EquipmentID)

	default:
		err := domain.Errorf(domain.KindInvalidStateTransition, "cannot cancel borrowing %d in state %s", bt.ID, bt.Status)
		logger.ExitMethodWithError("borrowingService.CancelBorrow", err, "borrowingID", borrowingID)
		return nil, err
	}

	s.publishBorrowing(bt, "cancelled")
	logger.ExitMethod("borrowingService.CancelBorrow", "borrowingID", bt.ID)
	return bt, nil
}

// MarkHandedOver records the physical pickup. Audit only: stock and credit
// moved at approval.
func (s *borrowingService) MarkHandedOver(ctx context.Context, adminID, borrowingID int32) (*domain.BorrowingTransaction, error) {
	logger.EnterMethod("borrowingService.MarkHandedOver", "adminID", adminID, "borrowingID", borrowingID)

	bt, err := s.borrowingRepo.GetByID(ctx, borrowingID)
	if err != nil {
		logger.ExitMethodWithError("borrowingService.MarkHandedOver", err, "borrowingID", borrowingID)
		return nil, err
	}

	unlock := s.locks.lockBoth(bt.EquipmentID, bt.MemberID)
	defer unlock()

	bt, err = s.borrowingRepo.GetByID(ctx, borrowingID)
	if err != nil {
		logger.ExitMethodWithError("borrowingService.MarkHandedOver", err, "borrowingID", borrowingID)
		return nil, err
	}
	if bt.Status != domain.BorrowingStatusApproved {
		err := domain.Errorf(domain.KindInvalidStateTransition, "cannot hand over borrowing %d in state %s", bt.ID, bt.Status)
		logger.ExitMethodWithError("borrowingService.MarkHandedOver", err, "borrowingID", borrowingID)
		return nil, err
	}

	now := s.now()
	bt.Status = domain.BorrowingStatusBorrowed
	bt.HandedOverOn = &now
	if err := s.borrowingRepo.Update(ctx, bt); err != nil {
		logger.ExitMethodWithError("borrowingService.MarkHandedOver", err, "borrowingID", borrowingID)
		return nil, err
	}

	s.publishBorrowing(bt, "handed_over")
	logger.ExitMethod("borrowingService.MarkHandedOver", "borrowingID", bt.ID)
	return bt, nil
}

// ReturnEquipment takes back part or all of the outstanding quantity. The
// penalty, if any, posts when the loan settles in full, covering the whole
// overdue duration.
func (s *borrowingService) ReturnEquipment(ctx context.Context, borrowingID, quantityReturned int32, damageNote string) (*domain.BorrowingTransaction, error) {
	logger.EnterMethod("borrowingService.ReturnEquipment", "borrowingID", borrowingID, "quantityReturned", quantityReturned)

	if quantityReturned <= 0 {
		err := domain.Errorf(domain.KindValidation, "returned quantity must be positive, got %d", quantityReturned)
		logger.ExitMethodWithError("borrowingService.ReturnEquipment", err, "borrowingID", borrowingID)
		return nil, err
	}

	bt, err := s.borrowingRepo.GetByID(ctx, borrowingID)
	if err != nil {
		logger.ExitMethodWithError("borrowingService.ReturnEquipment", err, "borrowingID", borrowingID)
		return nil, err
	}

	unlock := s.locks.lockBoth(bt.EquipmentID, bt.MemberID)
	defer unlock()

	bt, err = s.borrowingRepo.GetByID(ctx, borrowingID)
	if err != nil {
		logger.ExitMethodWithError("borrowingService.ReturnEquipment", err, "borrowingID", borrowingID)
		return nil, err
	}
	if bt.Status != domain.BorrowingStatusApproved && bt.Status != domain.BorrowingStatusBorrowed {
		err := domain.Errorf(domain.KindInvalidStateTransition, "cannot return borrowing %d in state %s", bt.ID, bt.Status)
		logger.ExitMethodWithError("borrowingService.ReturnEquipment", err, "borrowingID", borrowingID)
		return nil, err
	}
	if quantityReturned > bt.QuantityRemaining {
		err := domain.Errorf(domain.KindValidation, "returning %d units but only %d outstanding", quantityReturned, bt.QuantityRemaining)
		logger.ExitMethodWithError("borrowingService.ReturnEquipment", err, "borrowingID", borrowingID)
		return nil, err
	}

	now := s.now()
	remaining := bt.QuantityRemaining - quantityReturned
	final := remaining == 0

	var penalty int64
	refID := bt.ID
	if final {
		penalty = Penalty(bt.ExpectedReturnDate, now, s.settings.Snapshot())
	}
	if penalty > 0 {
		if _, err := s.credit.appendEntry(ctx, creditEntry{
			memberID:      bt.MemberID,
			amount:        -penalty,
			entryType:     domain.CreditTypePenalty,
			referenceType: domain.CreditRefBorrowing,
			referenceID:   &refID,
			reason:        fmt.Sprintf("late return, due %s", bt.ExpectedReturnDate.Format(time.RFC3339)),
		}); err != nil {
			logger.ExitMethodWithError("borrowingService.ReturnEquipment", err, "borrowingID", borrowingID)
			return nil, err
		}
	}

	if err := s.inventory.Release(ctx, bt.EquipmentID, quantityReturned); err != nil {
		if penalty > 0 {
			if _, refErr := s.credit.appendEntry(ctx, creditEntry{
				memberID:      bt.MemberID,
				amount:        penalty,
				entryType:     domain.CreditTypeRefund,
				referenceType: domain.CreditRefBorrowing,
				referenceID:   &refID,
				reason:        "return rollback",
			}); refErr != nil {
				logger.Error("Failed to refund penalty after release failure", "borrowingID", bt.ID, "error", refErr)
			}
		}
		logger.ExitMethodWithError("borrowingService.ReturnEquipment", err, "borrowingID", borrowingID)
		return nil, err
	}

	bt.QuantityRemaining = remaining
	if damageNote != "" {
		if bt.DamageNote != "" {
			bt.DamageNote += "; " + damageNote
		} else {
			bt.DamageNote = damageNote
		}
	}
	action := "returned"
	if final {
		bt.Status = domain.BorrowingStatusCompleted
		bt.ReturnedOn = &now
		action = "completed"
	}
	if err := s.borrowingRepo.Update(ctx, bt); err != nil {
		if resErr := s.inventory.Reserve(ctx, bt.EquipmentID, quantityReturned); resErr != nil {
			logger.Error("Failed to re-reserve stock after return write failure", "borrowingID", bt.ID, "error", resErr)
		}
		if penalty > 0 {
			if _, refErr := s.credit.appendEntry(ctx, creditEntry{
				memberID:      bt.MemberID,
				amount:        penalty,
				entryType:     domain.CreditTypeRefund,
				referenceType: domain.CreditRefBorrowing,
				referenceID:   &refID,
				reason:        "return rollback",
			}); refErr != nil {
				logger.Error("Failed to refund penalty after return write failure", "borrowingID", bt.ID, "error", refErr)
			}
		}
		logger.ExitMethodWithError("borrowingService.ReturnEquipment", err, "borrowingID", borrowingID)
		return nil, err
	}

	s.publishBorrowing(bt, action)
	s.publishInventory(bt.EquipmentID)
	if final {
		finalBt := bt
		s.sendAsync(func(mailCtx context.Context) error {
			return s.emailSvc.SendReturnReceipt(mailCtx, finalBt.MemberID, finalBt, penalty)
		})
	}

	logger.ExitMethod("borrowingService.ReturnEquipment", "borrowingID", bt.ID, "remaining", remaining, "penalty", penalty)
	return bt, nil
}

func (s *borrowingService) GetBorrowing(ctx context.Context, id int32) (*domain.BorrowingTransaction, error) {
	return s.borrowingRepo.GetByID(ctx, id)
}

func (s *borrowingService) ListBorrowings(ctx context.Context, memberID int32, status string, page, pageSize int32) ([]domain.BorrowingTransaction, int32, error) {
	page, pageSize = normalizePage(page, pageSize)
	return s.borrowingRepo.ListByMember(ctx, memberID, status, page, pageSize)
}

func (s *borrowingService) publishBorrowing(bt *domain.BorrowingTransaction, action string) {
	memberID := bt.MemberID
	s.broadcaster.Publish(domain.TopicBorrowing, &memberID, map[string]any{
		"action":      action,
		"transaction": bt,
	})
}

func (s *borrowingService) publishInventory(equipmentID int32) {
	s.broadcaster.Publish(domain.TopicInventory, nil, map[string]any{
		"equipment_id": equipmentID,
	})
}

// sendAsync fires a notification without holding up the transition. Failures
// are logged and never affect the committed state.
func (s *borrowingService) sendAsync(send func(context.Context) error) {
	go func() {
		mailCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := send(mailCtx); err != nil {
			logger.Warn("Notification delivery failed", "error", err)
		}
	}()
}
