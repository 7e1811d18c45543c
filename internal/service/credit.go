package service

import (
	"context"

	"equiploan-backend/internal/domain"
	"equiploan-backend/internal/events"
	"equiploan-backend/internal/logger"
	"equiploan-backend/internal/repository"
)

// creditEntry is the input to one ledger append.
type creditEntry struct {
	memberID      int32
	amount        int64
	entryType     domain.CreditTransactionType
	referenceType domain.CreditReferenceType
	referenceID   *int32
	actorID       *int32
	reason        string
}

type creditService struct {
	creditRepo  repository.CreditRepository
	settings    SettingsService
	broadcaster *events.Broadcaster
	locks       *EntityLocks
}

func NewCreditService(creditRepo repository.CreditRepository, settings SettingsService, broadcaster *events.Broadcaster, locks *EntityLocks) CreditService {
	return &creditService{
		creditRepo:  creditRepo,
		settings:    settings,
		broadcaster: broadcaster,
		locks:       locks,
	}
}

// CurrentBalance returns the latest ledger balance. A member with no entries
// yet holds the configured default allowance.
func (s *creditService) CurrentBalance(ctx context.Context, memberID int32) (int64, error) {
	balance, ok, err := s.creditRepo.LatestBalance(ctx, memberID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return s.settings.Snapshot().DefaultUserCredit, nil
	}
	return balance, nil
}

func (s *creditService) ListTransactions(ctx context.Context, memberID int32, page, pageSize int32) ([]domain.CreditTransaction, int32, error) {
	page, pageSize = normalizePage(page, pageSize)
	return s.creditRepo.ListByMember(ctx, memberID, page, pageSize)
}

// AdjustCredit is the admin-only manual ledger entry.
func (s *creditService) AdjustCredit(ctx context.Context, actorID, memberID int32, amount int64, reason string) (*domain.CreditTransaction, error) {
	logger.EnterMethod("creditService.AdjustCredit", "actorID", actorID, "memberID", memberID, "amount", amount)

	if amount == 0 {
		err := domain.NewError(domain.KindValidation, "adjustment amount cannot be zero")
		logger.ExitMethodWithError("creditService.AdjustCredit", err, "memberID", memberID)
		return nil, err
	}
	if reason == "" {
		err := domain.NewError(domain.KindValidation, "adjustment reason is required")
		logger.ExitMethodWithError("creditService.AdjustCredit", err, "memberID", memberID)
		return nil, err
	}

	unlock := s.locks.lockMember(memberID)
	defer unlock()

	actor := actorID
	tx, err := s.appendEntry(ctx, creditEntry{
		memberID:      memberID,
		amount:        amount,
		entryType:     domain.CreditTypeAdjustment,
		referenceType: domain.CreditRefManual,
		actorID:       &actor,
		reason:        reason,
	})
	if err != nil {
		logger.ExitMethodWithError("creditService.AdjustCredit", err, "memberID", memberID)
		return nil, err
	}

	logger.ExitMethod("creditService.AdjustCredit", "entryID", tx.ID, "balanceAfter", tx.BalanceAfter)
	return tx, nil
}

// appendEntry writes one immutable ledger entry. The first entry for a member
// materializes the default allowance as a seed row, so every balance remains
// the exact sum of the amounts above it. Caller must hold the member lock.
func (s *creditService) appendEntry(ctx context.Context, e creditEntry) (*domain.CreditTransaction, error) {
	snap := s.settings.Snapshot()

	balance, ok, err := s.creditRepo.LatestBalance(ctx, e.memberID)
	if err != nil {
		return nil, err
	}
	if !ok {
		balance = snap.DefaultUserCredit
		if balance != 0 {
			seed := &domain.CreditTransaction{
				MemberID:      e.memberID,
				Amount:        balance,
				Type:          domain.CreditTypeAdjustment,
				ReferenceType: domain.CreditRefManual,
				BalanceAfter:  balance,
				Reason:        "initial credit allowance",
			}
			if err := s.creditRepo.Append(ctx, seed); err != nil {
				return nil, err
			}
		}
	}

	if e.amount < 0 && balance+e.amount < 0 && !overdraftExempt(e, snap) {
		return nil, domain.Errorf(domain.KindInsufficientCredit,
			"balance %d is insufficient for a charge of %d", balance, -e.amount)
	}

	tx := &domain.CreditTransaction{
		MemberID:      e.memberID,
		Amount:        e.amount,
		Type:          e.entryType,
		ReferenceType: e.referenceType,
		ReferenceID:   e.referenceID,
		BalanceAfter:  balance + e.amount,
		ActorID:       e.actorID,
		Reason:        e.reason,
	}
	if err := s.creditRepo.Append(ctx, tx); err != nil {
		return nil, err
	}

	memberID := e.memberID
	s.broadcaster.Publish(domain.TopicCredit, &memberID, tx)
	return tx, nil
}

// overdraftExempt: admin adjustments may overdraw when the operator enables
// allow_negative_balance; penalties always post in full because they record an
// obligation rather than spend.
func overdraftExempt(e creditEntry, snap domain.SettingsSnapshot) bool {
	switch e.entryType {
	case domain.CreditTypeAdjustment:
		return snap.AllowNegativeBalance
	case domain.CreditTypePenalty:
		return true
	}
	return false
}
