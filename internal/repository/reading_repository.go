// internal/repository/reading_repository.go
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sensaur-hub/internal/database"
	"sensaur-hub/internal/hub"
)

// readingRepository implements ReadingRepository on PostgreSQL
type readingRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewReadingRepository creates a new reading repository
func NewReadingRepository(db *database.DB, logger *zap.Logger) ReadingRepository {
	return &readingRepository{
		db:     db,
		logger: logger,
	}
}

// SaveDevice upserts a device and its active components
func (r *readingRepository) SaveDevice(ctx context.Context, device hub.DeviceSnapshot) error {
	if device.ID == "" {
		return fmt.Errorf("device has no id")
	}

	deviceQuery := `
		INSERT INTO devices (device_id, version, port, last_seen)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (device_id) DO UPDATE SET
			version = EXCLUDED.version,
			port = EXCLUDED.port,
			last_seen = EXCLUDED.last_seen,
			updated_at = CURRENT_TIMESTAMP
	`
	componentQuery := `
		INSERT INTO components (component_id, device_id, slot, dir, type, model, units)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (component_id) DO UPDATE SET
			device_id = EXCLUDED.device_id,
			slot = EXCLUDED.slot,
			dir = EXCLUDED.dir,
			type = EXCLUDED.type,
			model = EXCLUDED.model,
			units = EXCLUDED.units,
			updated_at = CURRENT_TIMESTAMP
	`

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, deviceQuery,
			device.ID, device.Version, device.Port, device.LastMessageTime,
		); err != nil {
			return fmt.Errorf("failed to upsert device: %w", err)
		}

		for _, c := range device.Components {
			if _, err := tx.ExecContext(ctx, componentQuery,
				c.ID, device.ID, c.Index, c.Dir, c.Type, c.Model, c.Units,
			); err != nil {
				return fmt.Errorf("failed to upsert component %s: %w", c.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save device", zap.Error(err), zap.String("device_id", device.ID))
		return err
	}

	r.logger.Debug("Device saved",
		zap.String("device_id", device.ID),
		zap.Int("components", len(device.Components)),
	)
	return nil
}

// SaveReadings stores one polling round under a new batch id
func (r *readingRepository) SaveReadings(ctx context.Context, readings []hub.SensorReading, at time.Time) (uuid.UUID, error) {
	if len(readings) == 0 {
		return uuid.Nil, nil
	}

	batchID := uuid.New()
	query := `
		INSERT INTO readings (batch_id, component_id, device_id, raw_value, numeric_value, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare reading insert: %w", err)
		}
		defer stmt.Close()

		for _, reading := range readings {
			if _, err := stmt.ExecContext(ctx,
				batchID, reading.ComponentID, reading.DeviceID,
				reading.Value, ParseNumeric(reading.Value), at,
			); err != nil {
				return fmt.Errorf("failed to insert reading %s: %w", reading.ComponentID, err)
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save readings", zap.Error(err), zap.Int("count", len(readings)))
		return uuid.Nil, err
	}

	r.logger.Debug("Readings saved",
		zap.String("batch_id", batchID.String()),
		zap.Int("count", len(readings)),
	)
	return batchID, nil
}

// ListReadings returns the newest readings of a component first
func (r *readingRepository) ListReadings(ctx context.Context, filter *ReadingFilter) ([]*Reading, error) {
	var conditions []string
	var args []any

	args = append(args, filter.ComponentID)
	conditions = append(conditions, fmt.Sprintf("component_id = $%d", len(args)))

	if filter.Since != nil {
		args = append(args, *filter.Since)
		conditions = append(conditions, fmt.Sprintf("recorded_at >= $%d", len(args)))
	}

	args = append(args, filter.normalizedLimit())
	query := fmt.Sprintf(`
		SELECT id, batch_id, component_id, device_id, raw_value, numeric_value, recorded_at
		FROM readings
		WHERE %s
		ORDER BY recorded_at DESC, id DESC
		LIMIT $%d
	`, strings.Join(conditions, " AND "), len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list readings", zap.Error(err), zap.String("component_id", filter.ComponentID))
		return nil, fmt.Errorf("failed to list readings: %w", err)
	}
	defer rows.Close()

	var readings []*Reading
	for rows.Next() {
		reading := &Reading{}
		if err := rows.Scan(
			&reading.ID, &reading.BatchID, &reading.ComponentID, &reading.DeviceID,
			&reading.RawValue, &reading.NumericValue, &reading.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate readings: %w", err)
	}

	return readings, nil
}

// DeleteOlderThan removes readings recorded before olderThan
func (r *readingRepository) DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM readings WHERE recorded_at < $1`, olderThan)
	if err != nil {
		r.logger.Error("Failed to delete old readings", zap.Error(err))
		return 0, fmt.Errorf("failed to delete old readings: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return deleted, nil
}

// ParseNumeric interprets a raw reading as a decimal. Readings that are not
// numbers are stored without a numeric value.
func ParseNumeric(raw string) decimal.NullDecimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
