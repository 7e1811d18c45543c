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

const borrowingColumns = `id, member_id, equipment_id, quantity_borrowed, quantity_remaining, credit_cost, status,
	borrow_date, expected_return_date, handed_over_on, returned_on, COALESCE(damage_note, ''), last_overdue_notified_at, created_on, updated_on`

type borrowingRepository struct {
	db *sql.DB
}

func NewBorrowingRepository(db *sql.DB) repository.BorrowingRepository {
	return &borrowingRepository{db: db}
}

func scanBorrowing(row interface {
	Scan(dest ...any) error
}) (*domain.BorrowingTransaction, error) {
	bt := &domain.BorrowingTransaction{}
	err := row.Scan(&bt.ID, &bt.MemberID, &bt.EquipmentID, &bt.QuantityBorrowed, &bt.QuantityRemaining, &bt.CreditCost, &bt.Status,
		&bt.BorrowDate, &bt.ExpectedReturnDate, &bt.HandedOverOn, &bt.ReturnedOn, &bt.DamageNote, &bt.LastOverdueNotifiedAt, &bt.CreatedOn, &bt.UpdatedOn)
	if err != nil {
		return nil, err
	}
	return bt, nil
}

func (r *borrowingRepository) Create(ctx context.Context, bt *domain.BorrowingTransaction) error {
	query := `INSERT INTO borrowing_transactions (member_id, equipment_id, quantity_borrowed, quantity_remaining, credit_cost, status,
	                                              borrow_date, expected_return_date, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	now := time.Now()
	return r.db.QueryRowContext(ctx, query, bt.MemberID, bt.EquipmentID, bt.QuantityBorrowed, bt.QuantityRemaining, bt.CreditCost,
		bt.Status, bt.BorrowDate, bt.ExpectedReturnDate, now, now).Scan(&bt.ID)
}

func (r *borrowingRepository) GetByID(ctx context.Context, id int32) (*domain.BorrowingTransaction, error) {
	query := `SELECT ` + borrowingColumns + ` FROM borrowing_transactions WHERE id = $1`
	bt, err := scanBorrowing(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Errorf(domain.KindNotFound, "borrowing %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return bt, nil
}

func (r *borrowingRepository) Update(ctx context.Context, bt *domain.BorrowingTransaction) error {
	query := `UPDATE borrowing_transactions
	          SET status = $1, quantity_remaining = $2, handed_over_on = $3, returned_on = $4, damage_note = $5, updated_on = $6
	          WHERE id = $7`
	res, err := r.db.ExecContext(ctx, query, bt.Status, bt.QuantityRemaining, bt.HandedOverOn, bt.ReturnedOn, bt.DamageNote, time.Now(), bt.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Errorf(domain.KindNotFound, "borrowing %d not found", bt.ID)
	}
	return nil
}

func (r *borrowingRepository) ListByMember(ctx context.Context, memberID int32, status string, page, pageSize int32) ([]domain.BorrowingTransaction, int32, error) {
	where := `WHERE member_id = $1`
	args := []interface{}{memberID}
	argIdx := 2
	if status != "" {
		where += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, status)
		argIdx++
	}

	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM borrowing_transactions `+where, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	query := fmt.Sprintf(`SELECT %s FROM borrowing_transactions %s ORDER BY created_on DESC LIMIT $%d OFFSET $%d`,
		borrowingColumns, where, argIdx, argIdx+1)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []domain.BorrowingTransaction
	for rows.Next() {
		bt, err := scanBorrowing(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *bt)
	}
	return list, count, rows.Err()
}

func (r *borrowingRepository) ListActiveOverdue(ctx context.Context, asOf time.Time) ([]domain.BorrowingTransaction, error) {
	query := `SELECT ` + borrowingColumns + ` FROM borrowing_transactions
	          WHERE status IN ('APPROVED', 'BORROWED') AND quantity_remaining > 0 AND expected_return_date < $1
	          ORDER BY expected_return_date`
	rows, err := r.db.QueryContext(ctx, query, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.BorrowingTransaction
	for rows.Next() {
		bt, err := scanBorrowing(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *bt)
	}
	return list, rows.Err()
}

func (r *borrowingRepository) MarkOverdueNotified(ctx context.Context, id int32, at time.Time) (bool, error) {
	// Conditional update so that only one sweep cycle wins the row.
	query := `UPDATE borrowing_transactions SET last_overdue_notified_at = $1, updated_on = $1
	          WHERE id = $2 AND last_overdue_notified_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
