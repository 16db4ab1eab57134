package repository

import (
	"context"
	"errors"
	"time"

	"dashv/internal/domain"
)

var (
	// ErrUnavailable is returned by every operation when no database is
	// configured or it could not be opened
	ErrUnavailable = errors.New("persistence unavailable")

	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("not found")
)

// Repository defines the persistence operations DashV needs
type Repository interface {
	// Discovered services, keyed by (container_id, port)
	UpsertService(ctx context.Context, s domain.Service) (domain.Service, error)
	ListServices(ctx context.Context) ([]domain.Service, error)
	LogServiceChange(ctx context.Context, serviceID string, kind domain.EventKind, at time.Time) error

	// Platform connection
	SaveConnection(ctx context.Context, conn domain.Connection) error
	GetConnection(ctx context.Context) (*domain.Connection, error)
	DeleteConnections(ctx context.Context) error

	// Dashboard state
	SaveManualService(ctx context.Context, s domain.Service) error
	DeleteManualService(ctx context.Context, id string) error
	ListManualServices(ctx context.Context) ([]domain.Service, error)
	SaveOverride(ctx context.Context, o domain.Override) error
	ListOverrides(ctx context.Context) ([]domain.Override, error)

	// Close releases resources
	Close() error
}

// Unavailable is the repository used in memory-only mode. Every call
// fails with ErrUnavailable.
type Unavailable struct{}

var _ Repository = Unavailable{}

func (Unavailable) UpsertService(context.Context, domain.Service) (domain.Service, error) {
	return domain.Service{}, ErrUnavailable
}

func (Unavailable) ListServices(context.Context) ([]domain.Service, error) {
	return nil, ErrUnavailable
}

func (Unavailable) LogServiceChange(context.Context, string, domain.EventKind, time.Time) error {
	return ErrUnavailable
}

func (Unavailable) SaveConnection(context.Context, domain.Connection) error {
	return ErrUnavailable
}

func (Unavailable) GetConnection(context.Context) (*domain.Connection, error) {
	return nil, ErrUnavailable
}

func (Unavailable) DeleteConnections(context.Context) error {
	return ErrUnavailable
}

func (Unavailable) SaveManualService(context.Context, domain.Service) error {
	return ErrUnavailable
}

func (Unavailable) DeleteManualService(context.Context, string) error {
	return ErrUnavailable
}

func (Unavailable) ListManualServices(context.Context) ([]domain.Service, error) {
	return nil, ErrUnavailable
}

func (Unavailable) SaveOverride(context.Context, domain.Override) error {
	return ErrUnavailable
}

func (Unavailable) ListOverrides(context.Context) ([]domain.Override, error) {
	return nil, ErrUnavailable
}

func (Unavailable) Close() error { return nil }
