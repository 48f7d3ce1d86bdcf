// internal/repository/interfaces.go
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"sensaur-hub/internal/hub"
)

// ReadingRepository defines reading storage operations
type ReadingRepository interface {
	// Device metadata
	SaveDevice(ctx context.Context, device hub.DeviceSnapshot) error

	// Readings
	SaveReadings(ctx context.Context, readings []hub.SensorReading, at time.Time) (uuid.UUID, error)
	ListReadings(ctx context.Context, filter *ReadingFilter) ([]*Reading, error)

	// Cleanup
	DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error)
}

// Reading is one stored sensor value
type Reading struct {
	ID           int64               `json:"id"`
	BatchID      uuid.UUID           `json:"batch_id"`
	ComponentID  string              `json:"component_id"`
	DeviceID     string              `json:"device_id"`
	RawValue     string              `json:"raw_value"`
	NumericValue decimal.NullDecimal `json:"numeric_value"`
	RecordedAt   time.Time           `json:"recorded_at"`
}

// ReadingFilter represents reading listing filters
type ReadingFilter struct {
	ComponentID string     `json:"component_id"`
	Since       *time.Time `json:"since,omitempty"`
	Limit       int        `json:"limit"`
}

const (
	defaultReadingLimit = 100
	maxReadingLimit     = 1000
)

// normalizedLimit clamps the filter limit into a sane page size
func (f *ReadingFilter) normalizedLimit() int {
	switch {
	case f.Limit <= 0:
		return defaultReadingLimit
	case f.Limit > maxReadingLimit:
		return maxReadingLimit
	default:
		return f.Limit
	}
}
