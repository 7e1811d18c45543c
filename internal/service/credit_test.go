package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"equiploan-backend/internal/domain"
	"equiploan-backend/internal/events"
)

func newTestCreditService(repo *fakeCreditRepo, settings SettingsService) CreditService {
	if settings == nil {
		settings = NewSettingsService(nil) // defaults, never loaded
	}
	return NewCreditService(repo, settings, events.NewBroadcaster(8), NewEntityLocks())
}

func TestAdjustCredit_SeedsDefaultAllowance(t *testing.T) {
	repo := newFakeCreditRepo()
	svc := newTestCreditService(repo, nil)

	tx, err := svc.AdjustCredit(context.Background(), 1, 7, -20, "lost manual")
	assert.NoError(t, err)
	assert.Equal(t, int64(80), tx.BalanceAfter)

	entries := repo.memberEntries(7)
	assert.Len(t, entries, 2)
	assert.Equal(t, int64(100), entries[0].Amount, "first entry materializes the default allowance")
	assert.Equal(t, int64(100), entries[0].BalanceAfter)
	assert.Equal(t, int64(-20), entries[1].Amount)
	assert.Equal(t, int64(80), entries[1].BalanceAfter)
}

func TestAdjustCredit_RejectsOverdraft(t *testing.T) {
	repo := newFakeCreditRepo()
	svc := newTestCreditService(repo, nil)

	// Balance sits at the 100 default for a fresh member.
	_, err := svc.AdjustCredit(context.Background(), 1, 7, -500, "charge for damage")
	assert.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindInsufficientCredit))

	// The rejected adjustment must leave no trace beyond the seed entry.
	entries := repo.memberEntries(7)
	assert.Len(t, entries, 1)
	assert.Equal(t, int64(100), entries[0].BalanceAfter)
}

func TestAdjustCredit_NegativeBalanceAllowedWhenConfigured(t *testing.T) {
	repo := newFakeCreditRepo()
	snap := defaultSnapshot()
	snap.AllowNegativeBalance = true
	svc := newTestCreditService(repo, &stubSettings{snap: snap})

	tx, err := svc.AdjustCredit(context.Background(), 1, 7, -500, "charge for damage")
	assert.NoError(t, err)
	assert.Equal(t, int64(-400), tx.BalanceAfter)
}

func TestAdjustCredit_Validation(t *testing.T) {
	svc := newTestCreditService(newFakeCreditRepo(), nil)

	_, err := svc.AdjustCredit(context.Background(), 1, 7, 0, "some reason")
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = svc.AdjustCredit(context.Background(), 1, 7, 50, "")
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestCurrentBalance_DefaultsForNewMember(t *testing.T) {
	svc := newTestCreditService(newFakeCreditRepo(), nil)

	balance, err := svc.CurrentBalance(context.Background(), 42)
	assert.NoError(t, err)
	assert.Equal(t, int64(100), balance)
}

func TestAdjustCredit_ConcurrentAppendsKeepChain(t *testing.T) {
	repo := newFakeCreditRepo()
	svc := newTestCreditService(repo, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AdjustCredit(context.Background(), 1, 7, -10, "wear and tear")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Seed entry plus eight adjustments, appended under the member lock, so
	// every balance_after continues the previous one.
	entries := repo.memberEntries(7)
	assert.Len(t, entries, 9)
	var prev int64
	for _, e := range entries {
		assert.Equal(t, prev+e.Amount, e.BalanceAfter)
		prev = e.BalanceAfter
	}
	assert.Equal(t, int64(20), prev)
}

func TestCurrentBalance_ReflectsLedger(t *testing.T) {
	repo := newFakeCreditRepo()
	svc := newTestCreditService(repo, nil)

	_, err := svc.AdjustCredit(context.Background(), 1, 7, 25, "bonus")
	assert.NoError(t, err)

	balance, err := svc.CurrentBalance(context.Background(), 7)
	assert.NoError(t, err)
	assert.Equal(t, int64(125), balance)
}
