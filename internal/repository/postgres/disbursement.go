package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"equiploan-backend/internal/domain"
	"equiploan-backend/internal/repository"
)

type disbursementRepository struct {
	db *sql.DB
}

func NewDisbursementRepository(db *sql.DB) repository.DisbursementRepository {
	return &disbursementRepository{db: db}
}

func (r *disbursementRepository) Create(ctx context.Context, dt *domain.DisbursementTransaction) error {
	query := `INSERT INTO disbursement_transactions (member_id, equipment_id, quantity, credit_cost, status, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	now := time.Now()
	return r.db.QueryRowContext(ctx, query, dt.MemberID, dt.EquipmentID, dt.Quantity, dt.CreditCost, dt.Status, now, now).Scan(&dt.ID)
}

func (r *disbursementRepository) GetByID(ctx context.Context, id int32) (*domain.DisbursementTransaction, error) {
	dt := &domain.DisbursementTransaction{}
	query := `SELECT id, member_id, equipment_id, quantity, credit_cost, status, disbursed_on, created_on, updated_on
	          FROM disbursement_transactions WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&dt.ID, &dt.MemberID, &dt.EquipmentID, &dt.Quantity, &dt.CreditCost,
		&dt.Status, &dt.DisbursedOn, &dt.CreatedOn, &dt.UpdatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Errorf(domain.KindNotFound, "disbursement %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return dt, nil
}

func (r *disbursementRepository) Update(ctx context.Context, dt *domain.DisbursementTransaction) error {
	query := `UPDATE disbursement_transactions SET status = $1, disbursed_on = $2, updated_on = $3 WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query, dt.Status, dt.DisbursedOn, time.Now(), dt.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Errorf(domain.KindNotFound, "disbursement %d not found", dt.ID)
	}
	return nil
}

func (r *disbursementRepository) ListByMember(ctx context.Context, memberID int32, status string, page, pageSize int32) ([]domain.DisbursementTransaction, int32, error) {
	where := `WHERE member_id = $1`
	args := []interface{}{memberID}
	argIdx := 2
	if status != "" {
		where += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, status)
		argIdx++
	}

	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM disbursement_transactions `+where, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	query := fmt.Sprintf(`SELECT id, member_id, equipment_id, quantity, credit_cost, status, disbursed_on, created_on, updated_on
	          FROM disbursement_transactions %s ORDER BY created_on DESC LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []domain.DisbursementTransaction
	for rows.Next() {
		var dt domain.DisbursementTransaction
		if err := rows.Scan(&dt.ID, &dt.MemberID, &dt.EquipmentID, &dt.Quantity, &dt.CreditCost,
			&dt.Status, &dt.DisbursedOn, &dt.CreatedOn, &dt.UpdatedOn); err != nil {
			return nil, 0, err
		}
		list = append(list, dt)
	}
	return list, count, rows.Err()
}
