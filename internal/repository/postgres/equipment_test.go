package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"equiploan-backend/internal/domain"
)

func TestReserve_MovesCounter(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEquipmentRepository(db)

	mock.ExpectExec("UPDATE equipment e").
		WithArgs(int32(3), int32(2), anyTime{}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Reserve(context.Background(), 3, 2)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserve_InsufficientStock(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEquipmentRepository(db)

	// The guarded update matches no row, and the follow-up read shows the
	// equipment exists but has too few units free.
	mock.ExpectExec("UPDATE equipment e").
		WithArgs(int32(3), int32(5), anyTime{}).
		WillReturnResult(sqlmock.NewResult(0, 0))
	now := time.Now()
	mock.ExpectQuery("SELECT e.id, e.type_id").
		WithArgs(int32(3)).
		WillReturnRows(sqlmock.NewRows(equipmentColumns()).
			AddRow(3, 1, "oscilloscope", 5, 3, 0, 10, "AVAILABLE", now, now))

	err := repo.Reserve(context.Background(), 3, 5)
	assert.True(t, domain.IsKind(err, domain.KindInsufficientInventory))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserve_EquipmentNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEquipmentRepository(db)

	mock.ExpectExec("UPDATE equipment e").
		WithArgs(int32(99), int32(1), anyTime{}).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT e.id, e.type_id").
		WithArgs(int32(99)).
		WillReturnRows(sqlmock.NewRows(equipmentColumns()))

	err := repo.Reserve(context.Background(), 99, 1)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestRelease_RefusesNegativeCounter(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEquipmentRepository(db)

	mock.ExpectExec("UPDATE equipment SET quantity_borrowed").
		WithArgs(int32(3), int32(4), anyTime{}).
		WillReturnResult(sqlmock.NewResult(0, 0))
	now := time.Now()
	mock.ExpectQuery("SELECT e.id, e.type_id").
		WithArgs(int32(3)).
		WillReturnRows(sqlmock.NewRows(equipmentColumns()).
			AddRow(3, 1, "oscilloscope", 5, 2, 0, 10, "AVAILABLE", now, now))

	err := repo.Release(context.Background(), 3, 4)
	assert.True(t, domain.IsKind(err, domain.KindInvariantViolation))
}

func TestGetByID_DerivesAvailability(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEquipmentRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT e.id, e.type_id").
		WithArgs(int32(3)).
		WillReturnRows(sqlmock.NewRows(equipmentColumns()).
			AddRow(3, 1, "oscilloscope", 10, 4, 2, 10, "AVAILABLE", now, now))

	eq, err := repo.GetByID(context.Background(), 3)
	assert.NoError(t, err)
	assert.Equal(t, int32(2), eq.QuantityUnavailable)
	assert.Equal(t, int32(4), eq.QuantityAvailable(), "10 total - 4 borrowed - 2 unavailable")
}
