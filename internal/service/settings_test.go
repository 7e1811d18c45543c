package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"equiploan-backend/internal/domain"
)

func TestSettingsLoad_ParsesWellKnownKeys(t *testing.T) {
	repo := new(MockSettingsRepository)
	repo.On("List", mock.Anything).Return([]domain.SystemSetting{
		{Key: domain.SettingDefaultUserCredit, Value: "250", Type: domain.SettingTypeNumber},
		{Key: domain.SettingPenaltyType, Value: "day", Type: domain.SettingTypeString},
		{Key: domain.SettingPenaltyCreditPerHour, Value: "2.5", Type: domain.SettingTypeNumber},
		{Key: domain.SettingAllowNegativeBalance, Value: "true", Type: domain.SettingTypeBoolean},
	}, nil)

	svc := NewSettingsService(repo)
	assert.NoError(t, svc.Load(context.Background()))

	snap := svc.Snapshot()
	assert.Equal(t, int64(250), snap.DefaultUserCredit)
	assert.Equal(t, domain.PenaltyPerDay, snap.PenaltyType)
	assert.Equal(t, "2.5", snap.PenaltyCreditPerHour.String())
	assert.True(t, snap.AllowNegativeBalance)
	assert.True(t, snap.AllowRegistration, "untouched keys keep their defaults")
}

func TestSettingsLoad_SkipsMalformedRow(t *testing.T) {
	repo := new(MockSettingsRepository)
	repo.On("List", mock.Anything).Return([]domain.SystemSetting{
		{Key: domain.SettingDefaultUserCredit, Value: "not-a-number", Type: domain.SettingTypeNumber},
		{Key: domain.SettingPenaltyType, Value: "fortnight", Type: domain.SettingTypeString},
	}, nil)

	svc := NewSettingsService(repo)
	assert.NoError(t, svc.Load(context.Background()))

	snap := svc.Snapshot()
	assert.Equal(t, int64(100), snap.DefaultUserCredit)
	assert.Equal(t, domain.PenaltyPerHour, snap.PenaltyType)
}

func TestSettingsSet_RejectsWrongTypeForWellKnownKey(t *testing.T) {
	svc := NewSettingsService(new(MockSettingsRepository))

	_, err := svc.Set(context.Background(), domain.SettingDefaultUserCredit, "150", domain.SettingTypeString)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestSettingsSet_RejectsUnparseableValue(t *testing.T) {
	svc := NewSettingsService(new(MockSettingsRepository))

	_, err := svc.Set(context.Background(), domain.SettingAllowNegativeBalance, "maybe", domain.SettingTypeBoolean)
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = svc.Set(context.Background(), "custom_payload", "{broken", domain.SettingTypeJSON)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestSettingsSet_PersistsAndReloadsSnapshot(t *testing.T) {
	repo := new(MockSettingsRepository)
	row := domain.SystemSetting{
		Key: domain.SettingPenaltyCreditPerHour, Value: "3", Type: domain.SettingTypeNumber,
		Protected: true, UpdatedOn: time.Now(),
	}
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(s *domain.SystemSetting) bool {
		return s.Key == domain.SettingPenaltyCreditPerHour && s.Value == "3" && s.Protected
	})).Return(nil)
	repo.On("List", mock.Anything).Return([]domain.SystemSetting{row}, nil)
	repo.On("Get", mock.Anything, domain.SettingPenaltyCreditPerHour).Return(&row, nil)

	svc := NewSettingsService(repo)
	saved, err := svc.Set(context.Background(), domain.SettingPenaltyCreditPerHour, "3", domain.SettingTypeNumber)
	assert.NoError(t, err)
	assert.Equal(t, "3", saved.Value)

	assert.Equal(t, "3", svc.Snapshot().PenaltyCreditPerHour.String())
	repo.AssertExpectations(t)
}

func TestSettingsDelete_Reloads(t *testing.T) {
	repo := new(MockSettingsRepository)
	repo.On("Delete", mock.Anything, "custom_key").Return(nil)
	repo.On("List", mock.Anything).Return([]domain.SystemSetting{}, nil)

	svc := NewSettingsService(repo)
	assert.NoError(t, svc.Delete(context.Background(), "custom_key"))
	repo.AssertExpectations(t)
}
