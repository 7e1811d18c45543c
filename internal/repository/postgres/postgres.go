package postgres

import (
	"database/sql"

	"equiploan-backend/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.EquipmentTypeRepository
	repository.EquipmentRepository
	repository.BorrowingRepository
	repository.DisbursementRepository
	repository.CreditRepository
	repository.SettingsRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                      db,
		EquipmentTypeRepository: NewEquipmentTypeRepository(db),
		EquipmentRepository:     NewEquipmentRepository(db),
		BorrowingRepository:     NewBorrowingRepository(db),
		DisbursementRepository:  NewDisbursementRepository(db),
		CreditRepository:        NewCreditRepository(db),
		SettingsRepository:      NewSettingsRepository(db),
	}
}
