package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"equiploan-backend/internal/domain"
	"equiploan-backend/internal/repository"
)

type settingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) repository.SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) List(ctx context.Context) ([]domain.SystemSetting, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value, type, protected, updated_on FROM system_settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []domain.SystemSetting
	for rows.Next() {
		var s domain.SystemSetting
		if err := rows.Scan(&s.Key, &s.Value, &s.Type, &s.Protected, &s.UpdatedOn); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

func (r *settingsRepository) Get(ctx context.Context, key string) (*domain.SystemSetting, error) {
	s := &domain.SystemSetting{}
	query := `SELECT key, value, type, protected, updated_on FROM system_settings WHERE key = $1`
	err := r.db.QueryRowContext(ctx, query, key).Scan(&s.Key, &s.Value, &s.Type, &s.Protected, &s.UpdatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Errorf(domain.KindNotFound, "setting %q not found", key)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, s *domain.SystemSetting) error {
	query := `INSERT INTO system_settings (key, value, type, protected, updated_on)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, type = EXCLUDED.type, updated_on = EXCLUDED.updated_on`
	_, err := r.db.ExecContext(ctx, query, s.Key, s.Value, s.Type, s.Protected, time.Now())
	return err
}

func (r *settingsRepository) Delete(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM system_settings WHERE key = $1 AND protected = FALSE`, key)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.Get(ctx, key); err != nil {
			return err
		}
		return domain.Errorf(domain.KindValidation, "setting %q is protected", key)
	}
	return nil
}
