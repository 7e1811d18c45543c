package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type SettingType string

const (
	SettingTypeString  SettingType = "string"
	SettingTypeNumber  SettingType = "number"
	SettingTypeBoolean SettingType = "boolean"
	SettingTypeJSON    SettingType = "json"
)

// Well-known setting keys.
const (
	SettingDefaultUserCredit    = "default_user_credit"
	SettingPenaltyType          = "penalty_type"
	SettingPenaltyCreditPerHour = "penalty_credit_per_hour"
	SettingAllowRegistration    = "allow_registration"
	SettingAllowNegativeBalance = "allow_negative_balance"
)

// SystemSetting is one versioned configuration row. The value is stored as text
// and interpreted according to Type. Protected rows cannot be deleted.
type SystemSetting struct {
	Key       string      `json:"key"`
	Value     string      `json:"value"`
	Type      SettingType `json:"type"`
	Protected bool        `json:"protected"`
	UpdatedOn time.Time   `json:"updated_on"`
}

type PenaltyGranularity string

const (
	PenaltyPerHour PenaltyGranularity = "hour"
	PenaltyPerDay  PenaltyGranularity = "day"
)

// SettingsSnapshot is the immutable, typed view of system settings handed to an
// operation. Readers never consult a live mutable global mid-transaction.
type SettingsSnapshot struct {
	DefaultUserCredit    int64
	PenaltyType          PenaltyGranularity
	PenaltyCreditPerHour decimal.Decimal // reinterpreted as per-day rate when PenaltyType is "day"
	AllowRegistration    bool
	AllowNegativeBalance bool
}
