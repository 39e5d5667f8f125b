package store

import (
	"context"
	"errors"

	"cryptocandles/internal/store/model"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidSignal = errors.New("invalid signal")
)

// UnitOfWork defines a transaction scope.
type UnitOfWork interface {
	// Commit commits the transaction.
	Commit() error
	// Rollback rolls back the transaction.
	Rollback() error

	// Providers returns the provider repository within this transaction.
	Providers() ProviderRepository
	// Signals returns the signal repository within this transaction.
	Signals() SignalRepository
	// Follows returns the follow repository within this transaction.
	Follows() FollowRepository
	// Analyses returns the chart analysis repository within this transaction.
	Analyses() AnalysisRepository
}

// Store is the entry point for database access.
type Store interface {
	// Begin starts a new UnitOfWork (transaction).
	Begin(ctx context.Context) (UnitOfWork, error)
	// Close closes the store connection.
	Close() error
}

// ProviderRepository handles signal provider persistence.
type ProviderRepository interface {
	Save(ctx context.Context, p *model.ProviderModel) error
	FindByID(ctx context.Context, id string) (*model.ProviderModel, error)
	List(ctx context.Context) ([]model.ProviderModel, error)
	Count(ctx context.Context) (int64, error)
	AdjustFollowers(ctx context.Context, id string, delta int) error
	IncrementSignals(ctx context.Context, id string) error
}

// SignalRepository handles community signals. Rows come back in insertion order.
type SignalRepository interface {
	Insert(ctx context.Context, s *model.SignalModel) error
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context, offset, limit int) ([]model.SignalModel, error)
}

// FollowRepository handles (session, provider) follow rows.
type FollowRepository interface {
	Exists(ctx context.Context, session, providerID string) (bool, error)
	Insert(ctx context.Context, f *model.FollowModel) error
	Delete(ctx context.Context, session, providerID string) error
	ListProviderIDs(ctx context.Context, session string) ([]string, error)
}

// AnalysisRepository handles chart analysis history.
type AnalysisRepository interface {
	Insert(ctx context.Context, a *model.AnalysisModel) error
	ListRecent(ctx context.Context, limit int) ([]model.AnalysisModel, error)
}
