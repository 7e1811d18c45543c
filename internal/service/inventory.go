package service

import (
	"context"

	"equiploan-backend/internal/domain"
	"equiploan-backend/internal/repository"
)

// inventoryService fronts the equipment counter movements. The conditional
// guards live in the repository; this layer rejects nonsense quantities before
// they reach SQL.
type inventoryService struct {
	equipmentRepo repository.EquipmentRepository
}

func NewInventoryService(equipmentRepo repository.EquipmentRepository) InventoryService {
	return &inventoryService{equipmentRepo: equipmentRepo}
}

func (s *inventoryService) Reserve(ctx context.Context, equipmentID, qty int32) error {
	if qty <= 0 {
		return domain.Errorf(domain.KindValidation, "reserve quantity must be positive, got %d", qty)
	}
	return s.equipmentRepo.Reserve(ctx, equipmentID, qty)
}

func (s *inventoryService) Release(ctx context.Context, equipmentID, qty int32) error {
	if qty <= 0 {
		return domain.Errorf(domain.KindValidation, "release quantity must be positive, got %d", qty)
	}
	return s.equipmentRepo.Release(ctx, equipmentID, qty)
}
