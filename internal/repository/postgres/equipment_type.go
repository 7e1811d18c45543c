package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"equiploan-backend/internal/domain"
	"equiploan-backend/internal/repository"
)

type equipmentTypeRepository struct {
	db *sql.DB
}

func NewEquipmentTypeRepository(db *sql.DB) repository.EquipmentTypeRepository {
	return &equipmentTypeRepository{db: db}
}

func (r *equipmentTypeRepository) Create(ctx context.Context, et *domain.EquipmentType) error {
	query := `INSERT INTO equipment_types (name, discipline, created_on) VALUES ($1, $2, $3) RETURNING id`
	return r.db.QueryRowContext(ctx, query, et.Name, et.Discipline, time.Now()).Scan(&et.ID)
}

func (r *equipmentTypeRepository) GetByID(ctx context.Context, id int32) (*domain.EquipmentType, error) {
	et := &domain.EquipmentType{}
	query := `SELECT id, name, discipline, created_on FROM equipment_types WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&et.ID, &et.Name, &et.Discipline, &et.CreatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Errorf(domain.KindNotFound, "equipment type %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return et, nil
}

func (r *equipmentTypeRepository) List(ctx context.Context) ([]domain.EquipmentType, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, discipline, created_on FROM equipment_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []domain.EquipmentType
	for rows.Next() {
		var et domain.EquipmentType
		if err := rows.Scan(&et.ID, &et.Name, &et.Discipline, &et.CreatedOn); err != nil {
			return nil, err
		}
		types = append(types, et)
	}
	return types, rows.Err()
}

func (r *equipmentTypeRepository) Delete(ctx context.Context, id int32) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM equipment_types WHERE id = $1`, id)
	if err != nil {
		var pqErr *pq.Error
		// foreign_key_violation: equipment rows still reference this type
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return domain.Errorf(domain.KindValidation, "equipment type %d is still referenced by equipment", id)
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Errorf(domain.KindNotFound, "equipment type %d not found", id)
	}
	return nil
}
