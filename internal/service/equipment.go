package service

import (
	"context"

	"equiploan-backend/internal/domain"
	"equiploan-backend/internal/events"
	"equiploan-backend/internal/logger"
	"equiploan-backend/internal/repository"
)

type equipmentService struct {
	equipmentRepo     repository.EquipmentRepository
	equipmentTypeRepo repository.EquipmentTypeRepository
	broadcaster       *events.Broadcaster
	locks             *EntityLocks
}

func NewEquipmentService(equipmentRepo repository.EquipmentRepository, equipmentTypeRepo repository.EquipmentTypeRepository, broadcaster *events.Broadcaster, locks *EntityLocks) EquipmentService {
	return &equipmentService{
		equipmentRepo:     equipmentRepo,
		equipmentTypeRepo: equipmentTypeRepo,
		broadcaster:       broadcaster,
		locks:             locks,
	}
}

func (s *equipmentService) CreateEquipmentType(ctx context.Context, name string, discipline domain.UsageDiscipline) (*domain.EquipmentType, error) {
	if name == "" {
		return nil, domain.NewError(domain.KindValidation, "equipment type name is required")
	}
	switch discipline {
	case domain.DisciplineLoan, domain.DisciplineDisbursement:
	default:
		return nil, domain.Errorf(domain.KindValidation, "unknown usage discipline %q", discipline)
	}

	et := &domain.EquipmentType{Name: name, Discipline: discipline}
	if err := s.equipmentTypeRepo.Create(ctx, et); err != nil {
		return nil, err
	}
	return et, nil
}

func (s *equipmentService) ListEquipmentTypes(ctx context.Context) ([]domain.EquipmentType, error) {
	return s.equipmentTypeRepo.List(ctx)
}

func (s *equipmentService) DeleteEquipmentType(ctx context.Context, id int32) error {
	return s.equipmentTypeRepo.Delete(ctx, id)
}

func (s *equipmentService) CreateEquipment(ctx context.Context, eq *domain.Equipment) (*domain.Equipment, error) {
	logger.EnterMethod("equipmentService.CreateEquipment", "name", eq.Name, "typeID", eq.TypeID)

	if eq.Name == "" {
		err := domain.NewError(domain.KindValidation, "equipment name is required")
		logger.ExitMethodWithError("equipmentService.CreateEquipment", err)
		return nil, err
	}
	if eq.QuantityTotal < 0 {
		err := domain.Errorf(domain.KindValidation, "total quantity cannot be negative: %d", eq.QuantityTotal)
		logger.ExitMethodWithError("equipmentService.CreateEquipment", err)
		return nil, err
	}
	if eq.CreditCost < 0 {
		err := domain.Errorf(domain.KindValidation, "credit cost cannot be negative: %d", eq.CreditCost)
		logger.ExitMethodWithError("equipmentService.CreateEquipment", err)
		return nil, err
	}
	if _, err := s.equipmentTypeRepo.GetByID(ctx, eq.TypeID); err != nil {
		logger.ExitMethodWithError("equipmentService.CreateEquipment", err, "typeID", eq.TypeID)
		return nil, err
	}

	eq.QuantityBorrowed = 0
	if eq.Status == "" {
		eq.Status = domain.EquipmentStatusAvailable
	}
	if err := s.equipmentRepo.Create(ctx, eq); err != nil {
		logger.ExitMethodWithError("equipmentService.CreateEquipment", err)
		return nil, err
	}

	logger.ExitMethod("equipmentService.CreateEquipment", "equipmentID", eq.ID)
	return eq, nil
}

// UpdateEquipment edits admin fields. The total quantity cannot drop below the
// units currently out on loan.
func (s *equipmentService) UpdateEquipment(ctx context.Context, eq *domain.Equipment) (*domain.Equipment, error) {
	logger.EnterMethod("equipmentService.UpdateEquipment", "equipmentID", eq.ID)

	unlock := s.locks.lockEquipment(eq.ID)
	defer unlock()

	existing, err := s.equipmentRepo.GetByID(ctx, eq.ID)
	if err != nil {
		logger.ExitMethodWithError("equipmentService.UpdateEquipment", err, "equipmentID", eq.ID)
		return nil, err
	}
	if eq.QuantityTotal < existing.QuantityBorrowed {
		err := domain.Errorf(domain.KindValidation, "total quantity %d cannot drop below %d borrowed units", eq.QuantityTotal, existing.QuantityBorrowed)
		logger.ExitMethodWithError("equipmentService.UpdateEquipment", err, "equipmentID", eq.ID)
		return nil, err
	}
	if eq.CreditCost < 0 {
		err := domain.Errorf(domain.KindValidation, "credit cost cannot be negative: %d", eq.CreditCost)
		logger.ExitMethodWithError("equipmentService.UpdateEquipment", err, "equipmentID", eq.ID)
		return nil, err
	}

	if err := s.equipmentRepo.Update(ctx, eq); err != nil {
		logger.ExitMethodWithError("equipmentService.UpdateEquipment", err, "equipmentID", eq.ID)
		return nil, err
	}
	updated, err := s.equipmentRepo.GetByID(ctx, eq.ID)
	if err != nil {
		logger.ExitMethodWithError("equipmentService.UpdateEquipment", err, "equipmentID", eq.ID)
		return nil, err
	}

	s.broadcaster.Publish(domain.TopicInventory, nil, map[string]any{"equipment_id": eq.ID})
	logger.ExitMethod("equipmentService.UpdateEquipment", "equipmentID", eq.ID)
	return updated, nil
}

func (s *equipmentService) GetEquipment(ctx context.Context, id int32) (*domain.Equipment, error) {
	return s.equipmentRepo.GetByID(ctx, id)
}

func (s *equipmentService) ListEquipment(ctx context.Context, page, pageSize int32) ([]domain.Equipment, int32, error) {
	page, pageSize = normalizePage(page, pageSize)
	return s.equipmentRepo.List(ctx, page, pageSize)
}

func (s *equipmentService) AddEquipmentItem(ctx context.Context, item *domain.EquipmentItem) (*domain.EquipmentItem, error) {
	if item.SerialNo == "" {
		return nil, domain.NewError(domain.KindValidation, "serial number is required")
	}
	if _, err := s.equipmentRepo.GetByID(ctx, item.EquipmentID); err != nil {
		return nil, err
	}
	if item.Status == "" {
		item.Status = domain.EquipmentStatusAvailable
	}
	if err := s.equipmentRepo.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// SetItemStatus moves a physical unit in or out of the borrowable pool. The
// derived unavailable count picks the change up on the next read.
func (s *equipmentService) SetItemStatus(ctx context.Context, itemID int32, status domain.EquipmentStatus, note string) (*domain.EquipmentItem, error) {
	switch status {
	case domain.EquipmentStatusAvailable, domain.EquipmentStatusBorrowed, domain.EquipmentStatusMaintenance, domain.EquipmentStatusDamaged:
	default:
		return nil, domain.Errorf(domain.KindValidation, "unknown item status %q", status)
	}

	item, err := s.equipmentRepo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lockEquipment(item.EquipmentID)
	defer unlock()

	if err := s.equipmentRepo.SetItemStatus(ctx, itemID, status, note); err != nil {
		return nil, err
	}

	s.broadcaster.Publish(domain.TopicInventory, nil, map[string]any{"equipment_id": item.EquipmentID})
	return s.equipmentRepo.GetItemByID(ctx, itemID)
}

func (s *equipmentService) ListItems(ctx context.Context, equipmentID int32) ([]domain.EquipmentItem, error) {
	return s.equipmentRepo.ListItems(ctx, equipmentID)
}
