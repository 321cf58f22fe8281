package manager

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/haeminmoon/grvtgate/internal/model"
	"github.com/haeminmoon/grvtgate/internal/pkg/logger"
)

const (
	maxNonceAttempts = 8
	// Expired nonces are dropped at most this often per signer.
	sweepInterval = time.Minute
)

// Reserver claims a (signer, nonce) pair across processes.
// *repository.RedisClient implements it.
type Reserver interface {
	ReserveNonce(ctx context.Context, signer string, nonce uint32, ttl time.Duration) (bool, error)
}

// NonceManager hands out signature nonces and expirations. A nonce is never
// handed out twice for the same signer while an earlier signature using it
// can still be valid.
type NonceManager struct {
	mu        sync.Mutex
	issued    map[string]map[uint32]time.Time // signer -> nonce -> expiry
	nextSweep map[string]time.Time

	reserver Reserver
	validity time.Duration
	now      func() time.Time
	draw     func() uint32
}

// NewNonceManager returns a manager whose signatures stay valid for
// validity. reserver may be nil for a single-process deployment.
func NewNonceManager(validity time.Duration, reserver Reserver) *NonceManager {
	if validity <= 0 {
		validity = 24 * time.Hour
	}
	return &NonceManager{
		issued:    make(map[string]map[uint32]time.Time),
		nextSweep: make(map[string]time.Time),
		reserver:  reserver,
		validity:  validity,
		now:       time.Now,
		draw:      rand.Uint32,
	}
}

// Expiration returns now+validity in unix nanoseconds.
func (m *NonceManager) Expiration() string {
	return strconv.FormatInt(m.now().Add(m.validity).UnixNano(), 10)
}

// Next draws a random non-zero nonce not yet used by signer.
func (m *NonceManager) Next(ctx context.Context, signer string) (uint32, error) {
	signer = strings.ToLower(signer)
	for attempt := 0; attempt < maxNonceAttempts; attempt++ {
		nonce := m.draw()
		if nonce == 0 || !m.claimLocal(signer, nonce) {
			continue
		}
		if m.reserver == nil {
			return nonce, nil
		}
		ok, err := m.reserver.ReserveNonce(ctx, signer, nonce, m.validity)
		if err != nil {
			m.release(signer, nonce)
			return 0, fmt.Errorf("reserve nonce: %w", err)
		}
		if ok {
			return nonce, nil
		}
		logger.Debug("nonce already reserved elsewhere", "signer", signer, "nonce", nonce)
	}
	return 0, fmt.Errorf("no free nonce for %s after %d attempts", signer, maxNonceAttempts)
}

// Stamp fills a zero nonce and an empty expiration on sig.
func (m *NonceManager) Stamp(ctx context.Context, signer string, sig *model.Signature) error {
	if sig.Nonce == 0 {
		nonce, err := m.Next(ctx, signer)
		if err != nil {
			return err
		}
		sig.Nonce = nonce
	}
	if sig.Expiration == "" {
		sig.Expiration = m.Expiration()
	}
	return nil
}

func (m *NonceManager) claimLocal(signer string, nonce uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	used, ok := m.issued[signer]
	if !ok {
		used = make(map[uint32]time.Time)
		m.issued[signer] = used
	}
	if !now.Before(m.nextSweep[signer]) {
		sweep(used, now)
		m.nextSweep[signer] = now.Add(sweepInterval)
	}
	if exp, taken := used[nonce]; taken && exp.After(now) {
		return false
	}
	used[nonce] = now.Add(m.validity)
	return true
}

func (m *NonceManager) release(signer string, nonce uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.issued[signer], nonce)
}

// Outstanding is the number of unexpired nonces held for signer.
func (m *NonceManager) Outstanding(signer string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for _, exp := range m.issued[strings.ToLower(signer)] {
		if exp.After(now) {
			n++
		}
	}
	return n
}

func sweep(used map[uint32]time.Time, now time.Time) {
	for n, exp := range used {
		if !exp.After(now) {
			delete(used, n)
		}
	}
}
