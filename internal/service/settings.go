package service

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"equiploan-backend/internal/domain"
	"equiploan-backend/internal/logger"
	"equiploan-backend/internal/repository"
)

// wellKnownTypes pins the value type of the settings the core interprets.
// These keys are protected: they can be overwritten but never deleted.
var wellKnownTypes = map[string]domain.SettingType{
	domain.SettingDefaultUserCredit:    domain.SettingTypeNumber,
	domain.SettingPenaltyType:          domain.SettingTypeString,
	domain.SettingPenaltyCreditPerHour: domain.SettingTypeNumber,
	domain.SettingAllowRegistration:    domain.SettingTypeBoolean,
	domain.SettingAllowNegativeBalance: domain.SettingTypeBoolean,
}

type settingsService struct {
	repo     repository.SettingsRepository
	snapshot atomic.Pointer[domain.SettingsSnapshot]
	writeMu  sync.Mutex
}

func NewSettingsService(repo repository.SettingsRepository) SettingsService {
	s := &settingsService{repo: repo}
	def := defaultSnapshot()
	s.snapshot.Store(&def)
	return s
}

func defaultSnapshot() domain.SettingsSnapshot {
	return domain.SettingsSnapshot{
		DefaultUserCredit:    100,
		PenaltyType:          domain.PenaltyPerHour,
		PenaltyCreditPerHour: decimal.NewFromInt(1),
		AllowRegistration:    true,
		AllowNegativeBalance: false,
	}
}

func (s *settingsService) Snapshot() domain.SettingsSnapshot {
	return *s.snapshot.Load()
}

// Load reads all rows and swaps in a fresh snapshot. A malformed row is logged
// and skipped so one bad value cannot wedge the whole system on its default.
func (s *settingsService) Load(ctx context.Context) error {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return err
	}

	snap := defaultSnapshot()
	for _, row := range rows {
		if err := applySetting(&snap, row); err != nil {
			logger.Warn("Ignoring malformed system setting", "key", row.Key, "value", row.Value, "error", err)
		}
	}
	s.snapshot.Store(&snap)
	return nil
}

// applySetting folds one row into the snapshot. Unknown keys are stored but do
// not affect the typed view.
func applySetting(snap *domain.SettingsSnapshot, row domain.SystemSetting) error {
	switch row.Key {
	case domain.SettingDefaultUserCredit:
		v, err := strconv.ParseInt(row.Value, 10, 64)
		if err != nil {
			return err
		}
		if v < 0 {
			return domain.Errorf(domain.KindValidation, "default credit cannot be negative: %d", v)
		}
		snap.DefaultUserCredit = v
	case domain.SettingPenaltyType:
		switch g := domain.PenaltyGranularity(row.Value); g {
		case domain.PenaltyPerHour, domain.PenaltyPerDay:
			snap.PenaltyType = g
		default:
			return domain.Errorf(domain.KindValidation, "penalty type must be %q or %q", domain.PenaltyPerHour, domain.PenaltyPerDay)
		}
	case domain.SettingPenaltyCreditPerHour:
		d, err := decimal.NewFromString(row.Value)
		if err != nil {
			return err
		}
		if d.IsNegative() {
			return domain.Errorf(domain.KindValidation, "penalty rate cannot be negative: %s", d)
		}
		snap.PenaltyCreditPerHour = d
	case domain.SettingAllowRegistration:
		b, err := strconv.ParseBool(row.Value)
		if err != nil {
			return err
		}
		snap.AllowRegistration = b
	case domain.SettingAllowNegativeBalance:
		b, err := strconv.ParseBool(row.Value)
		if err != nil {
			return err
		}
		snap.AllowNegativeBalance = b
	}
	return nil
}

func (s *settingsService) Get(ctx context.Context, key string) (*domain.SystemSetting, error) {
	return s.repo.Get(ctx, key)
}

func (s *settingsService) List(ctx context.Context) ([]domain.SystemSetting, error) {
	return s.repo.List(ctx)
}

func (s *settingsService) Set(ctx context.Context, key, value string, settingType domain.SettingType) (*domain.SystemSetting, error) {
	logger.EnterMethod("settingsService.Set", "key", key)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if key == "" {
		err := domain.NewError(domain.KindValidation, "setting key is required")
		logger.ExitMethodWithError("settingsService.Set", err)
		return nil, err
	}
	if expected, known := wellKnownTypes[key]; known && settingType != expected {
		err := domain.Errorf(domain.KindValidation, "setting %q must be of type %s", key, expected)
		logger.ExitMethodWithError("settingsService.Set", err, "key", key)
		return nil, err
	}
	if err := validateValue(settingType, value); err != nil {
		logger.ExitMethodWithError("settingsService.Set", err, "key", key)
		return nil, err
	}

	row := domain.SystemSetting{
		Key:       key,
		Value:     value,
		Type:      settingType,
		Protected: isProtectedKey(key),
	}
	if row.Protected {
		// Well-known values must parse into the typed snapshot before they
		// are allowed to persist.
		probe := defaultSnapshot()
		if err := applySetting(&probe, row); err != nil {
			wrapped := domain.WrapError(domain.KindValidation, err, "invalid value for "+key)
			logger.ExitMethodWithError("settingsService.Set", wrapped, "key", key)
			return nil, wrapped
		}
	}

	if err := s.repo.Upsert(ctx, &row); err != nil {
		logger.ExitMethodWithError("settingsService.Set", err, "key", key)
		return nil, err
	}
	if err := s.Load(ctx); err != nil {
		logger.ExitMethodWithError("settingsService.Set", err, "key", key)
		return nil, err
	}

	logger.ExitMethod("settingsService.Set", "key", key)
	return s.repo.Get(ctx, key)
}

func (s *settingsService) Delete(ctx context.Context, key string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.repo.Delete(ctx, key); err != nil {
		return err
	}
	return s.Load(ctx)
}

func isProtectedKey(key string) bool {
	_, ok := wellKnownTypes[key]
	return ok
}

func validateValue(settingType domain.SettingType, value string) error {
	switch settingType {
	case domain.SettingTypeString:
		return nil
	case domain.SettingTypeNumber:
		if _, err := decimal.NewFromString(value); err != nil {
			return domain.Errorf(domain.KindValidation, "value %q is not a number", value)
		}
	case domain.SettingTypeBoolean:
		if _, err := strconv.ParseBool(value); err != nil {
			return domain.Errorf(domain.KindValidation, "value %q is not a boolean", value)
		}
	case domain.SettingTypeJSON:
		if !json.Valid([]byte(value)) {
			return domain.Errorf(domain.KindValidation, "value is not valid JSON")
		}
	default:
		return domain.Errorf(domain.KindValidation, "unknown setting type %q", settingType)
	}
	return nil
}
