// Package follow 维护会话关注的信号提供者集合，关注/取关为同一个切换操作。
package follow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"cryptocandles/internal/logger"
	"cryptocandles/internal/pkg/text"
)

var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrNoSession       = errors.New("session required")
)

// Store 必须原子地完成一次切换，返回切换后的状态。
type Store interface {
	Toggle(ctx context.Context, session, providerID string) (bool, error)
	Following(ctx context.Context, session string) ([]string, error)
}

type ProviderChecker interface {
	ProviderExists(ctx context.Context, id string) (bool, error)
}

// Registry 校验输入并按 (session, provider) 串行化切换。不做重试：
// 失败直接返回，由调用方保持原有状态。
type Registry struct {
	store     Store
	providers ProviderChecker
	locks     keyedMutex
}

func NewRegistry(store Store, providers ProviderChecker) *Registry {
	return &Registry{store: store, providers: providers}
}

// Toggle flips the follow state and returns whether the session now follows
// providerID.
func (r *Registry) Toggle(ctx context.Context, session, providerID string) (bool, error) {
	session = strings.TrimSpace(session)
	providerID = strings.TrimSpace(providerID)
	if session == "" {
		return false, ErrNoSession
	}
	if providerID == "" {
		return false, fmt.Errorf("%w: empty id", ErrUnknownProvider)
	}
	if r.providers != nil {
		ok, err := r.providers.ProviderExists(ctx, providerID)
		if err != nil {
			return false, fmt.Errorf("lookup provider %s: %w", providerID, err)
		}
		if !ok {
			return false, fmt.Errorf("%w: %s", ErrUnknownProvider, providerID)
		}
	}

	unlock := r.locks.lock(session + "\x00" + providerID)
	defer unlock()
	following, err := r.store.Toggle(ctx, session, providerID)
	if err != nil {
		return false, fmt.Errorf("toggle follow %s: %w", providerID, err)
	}
	logger.Debugf("[follow] session=%s provider=%s following=%v", shortSession(session), providerID, following)
	return following, nil
}

// Following 返回排序后的 provider ID 列表，未关注任何人时为空切片。
func (r *Registry) Following(ctx context.Context, session string) ([]string, error) {
	session = strings.TrimSpace(session)
	if session == "" {
		return nil, ErrNoSession
	}
	ids, err := r.store.Following(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("list follows: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	sort.Strings(ids)
	return ids, nil
}

func shortSession(s string) string {
	return text.Truncate(s, 8)
}

// keyedMutex 为每个 key 提供独立的互斥锁，空闲后回收。
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
