package service

import (
	"context"
	"sync"
	"time"
)

// UsageRepo tracks per sub-account daily order count and notional.
type UsageRepo interface {
	GetDailyUsage(ctx context.Context, subAccountID string) (int, float64, error)
	AddDailyUsage(ctx context.Context, subAccountID string, orders int, notional float64) error
}

type dailyUsage struct {
	orders   int
	notional float64
}

type usageKey struct {
	subAccountID string
	day          string // UTC YYYY-MM-DD
}

// RiskUsageStore is the in-process UsageRepo. Entries from earlier days
// are dropped on write.
type RiskUsageStore struct {
	mu    sync.Mutex
	usage map[usageKey]dailyUsage
	now   func() time.Time
}

func NewRiskUsageStore() *RiskUsageStore {
	return &RiskUsageStore{
		usage: make(map[usageKey]dailyUsage),
		now:   time.Now,
	}
}

func (s *RiskUsageStore) GetDailyUsage(_ context.Context, subAccountID string) (int, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.usage[usageKey{subAccountID, s.today()}]
	return u.orders, u.notional, nil
}

func (s *RiskUsageStore) AddDailyUsage(_ context.Context, subAccountID string, orders int, notional float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	today := s.today()
	for k := range s.usage {
		if k.day != today {
			delete(s.usage, k)
		}
	}
	k := usageKey{subAccountID, today}
	u := s.usage[k]
	u.orders += orders
	u.notional += notional
	s.usage[k] = u
	return nil
}

func (s *RiskUsageStore) today() string {
	return s.now().UTC().Format("2006-01-02")
}
