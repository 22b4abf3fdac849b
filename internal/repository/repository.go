package repository

import (
	"context"
	"database/sql"

	"grillstream/internal/models"
)

// DeviceRegistry is the read-mostly source of device/channel metadata.
type DeviceRegistry interface {
	List(ctx context.Context) ([]models.Device, error)
	Get(ctx context.Context, id string) (*models.Device, error)
	Create(ctx context.Context, d models.Device) error
}

// RuleRepo persists alert rules.
type RuleRepo interface {
	List(ctx context.Context) ([]models.AlertRule, error)
	ListForDevice(ctx context.Context, deviceID string) ([]models.AlertRule, error)
	Create(ctx context.Context, r models.AlertRule) error
	Delete(ctx context.Context, id string) error
}

// Authorization persists user accounts.
type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

// Repository aggregates the sqlite-backed repos.
type Repository struct {
	Devices DeviceRegistry
	Rules   RuleRepo
	Auth    Authorization
}

// NewRepository wires concrete sqlite implementations.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Devices: NewDeviceSQLite(db),
		Rules:   NewRuleSQLite(db),
		Auth:    NewUserRepository(db),
	}
}
