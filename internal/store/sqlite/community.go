package sqlite

import (
	"context"
	"errors"
	"fmt"

	"cryptocandles/internal/store"
	"cryptocandles/internal/store/model"
	"cryptocandles/internal/types"

	"github.com/google/uuid"
)

func toProvider(m model.ProviderModel) types.SignalProvider {
	return types.SignalProvider{
		ID:           m.ID,
		Name:         m.Name,
		AvatarURL:    m.AvatarURL,
		WinRate:      m.WinRate,
		Followers:    m.Followers,
		TotalSignals: m.TotalSignals,
	}
}

func toSignal(m model.SignalModel) types.Signal {
	return types.Signal{
		ID:            m.ID,
		Provider:      toProvider(m.Provider),
		Pair:          m.Pair,
		Type:          types.SignalType(m.Type),
		Timeframe:     m.Timeframe,
		Entry:         m.Entry,
		Target:        m.Target,
		Stop:          m.Stop,
		Justification: m.Justification,
		ImageURL:      m.ImageURL,
		Timestamp:     model.UnixTime(m.CreatedAtUnix),
	}
}

func (s *SqliteStore) ListProviders(ctx context.Context) ([]types.SignalProvider, error) {
	rows, err := NewProviderRepo(s.db).List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.SignalProvider, 0, len(rows))
	for _, row := range rows {
		out = append(out, toProvider(row))
	}
	return out, nil
}

func (s *SqliteStore) ProviderExists(ctx context.Context, id string) (bool, error) {
	_, err := NewProviderRepo(s.db).FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SqliteStore) CountSignals(ctx context.Context) (int, error) {
	n, err := NewSignalRepo(s.db).Count(ctx)
	return int(n), err
}

func (s *SqliteStore) ListSignals(ctx context.Context, offset, limit int) ([]types.Signal, error) {
	rows, err := NewSignalRepo(s.db).List(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	out := make([]types.Signal, 0, len(rows))
	for _, row := range rows {
		out = append(out, toSignal(row))
	}
	return out, nil
}

// CreateSignal 校验并写入一条新信号，同时累加提供者的信号数。
func (s *SqliteStore) CreateSignal(ctx context.Context, in store.SignalInput) (types.Signal, error) {
	norm, err := in.Normalize()
	if err != nil {
		return types.Signal{}, err
	}
	row := model.SignalModel{
		ID:            uuid.NewString(),
		ProviderID:    norm.ProviderID,
		Pair:          norm.Pair,
		Type:          norm.Type,
		Timeframe:     norm.Timeframe,
		Entry:         norm.Entry,
		Target:        norm.Target,
		Stop:          norm.Stop,
		Justification: norm.Justification,
		ImageURL:      norm.ImageURL,
		CreatedAtUnix: s.now().Unix(),
	}
	err = s.inTx(ctx, func(uow store.UnitOfWork) error {
		if err := uow.Providers().IncrementSignals(ctx, row.ProviderID); err != nil {
			return err
		}
		if err := uow.Signals().Insert(ctx, &row); err != nil {
			return fmt.Errorf("insert signal: %w", err)
		}
		provider, err := uow.Providers().FindByID(ctx, row.ProviderID)
		if err != nil {
			return err
		}
		row.Provider = *provider
		return nil
	})
	if err != nil {
		return types.Signal{}, err
	}
	return toSignal(row), nil
}

// Toggle 在一个事务内完成关注/取关，并同步提供者的关注数。
func (s *SqliteStore) Toggle(ctx context.Context, session, providerID string) (bool, error) {
	var following bool
	err := s.inTx(ctx, func(uow store.UnitOfWork) error {
		exists, err := uow.Follows().Exists(ctx, session, providerID)
		if err != nil {
			return err
		}
		if exists {
			if err := uow.Follows().Delete(ctx, session, providerID); err != nil {
				return err
			}
			following = false
			return uow.Providers().AdjustFollowers(ctx, providerID, -1)
		}
		if err := uow.Follows().Insert(ctx, &model.FollowModel{
			SessionID:     session,
			ProviderID:    providerID,
			CreatedAtUnix: s.now().Unix(),
		}); err != nil {
			return err
		}
		following = true
		return uow.Providers().AdjustFollowers(ctx, providerID, 1)
	})
	if err != nil {
		return false, err
	}
	return following, nil
}

func (s *SqliteStore) Following(ctx context.Context, session string) ([]string, error) {
	return NewFollowRepo(s.db).ListProviderIDs(ctx, session)
}
