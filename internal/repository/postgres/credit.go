package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"equiploan-backend/internal/domain"
	"equiploan-backend/internal/logger"
	"equiploan-backend/internal/repository"
)

type creditRepository struct {
	db *sql.DB
}

func NewCreditRepository(db *sql.DB) repository.CreditRepository {
	return &creditRepository{db: db}
}

func (r *creditRepository) Append(ctx context.Context, tx *domain.CreditTransaction) error {
	logger.EnterMethod("creditRepository.Append", "memberID", tx.MemberID, "amount", tx.Amount, "type", tx.Type)

	query := `INSERT INTO credit_transactions (member_id, amount, type, reference_type, reference_id, balance_after, actor_id, reason, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, created_on`
	err := r.db.QueryRowContext(ctx, query, tx.MemberID, tx.Amount, tx.Type, tx.ReferenceType, tx.ReferenceID,
		tx.BalanceAfter, tx.ActorID, tx.Reason, time.Now()).Scan(&tx.ID, &tx.CreatedOn)
	if err != nil {
		logger.ExitMethodWithError("creditRepository.Append", err, "memberID", tx.MemberID)
		return err
	}

	logger.ExitMethod("creditRepository.Append", "entryID", tx.ID, "balanceAfter", tx.BalanceAfter)
	return nil
}

func (r *creditRepository) LatestBalance(ctx context.Context, memberID int32) (int64, bool, error) {
	var balance int64
	query := `SELECT balance_after FROM credit_transactions WHERE member_id = $1 ORDER BY id DESC LIMIT 1`
	err := r.db.QueryRowContext(ctx, query, memberID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return balance, true, nil
}

func (r *creditRepository) ListByMember(ctx context.Context, memberID int32, page, pageSize int32) ([]domain.CreditTransaction, int32, error) {
	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM credit_transactions WHERE member_id = $1`, memberID).Scan(&count); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	query := `SELECT id, member_id, amount, type, reference_type, reference_id, balance_after, actor_id, COALESCE(reason, ''), created_on
	          FROM credit_transactions WHERE member_id = $1 ORDER BY id DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, memberID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var txs []domain.CreditTransaction
	for rows.Next() {
		var tx domain.CreditTransaction
		if err := rows.Scan(&tx.ID, &tx.MemberID, &tx.Amount, &tx.Type, &tx.ReferenceType, &tx.ReferenceID,
			&tx.BalanceAfter, &tx.ActorID, &tx.Reason, &tx.CreatedOn); err != nil {
			return nil, 0, err
		}
		txs = append(txs, tx)
	}
	return txs, count, rows.Err()
}
