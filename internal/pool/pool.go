// Package pool manages per-signature result pools: scored places waiting to
// be returned, the ids already handed out, and the discovery progress needed
// to resume expansion where it left off.
package pool

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/whimapp/discovery-cli/internal/model"
	"github.com/whimapp/discovery-cli/internal/relax"
	"github.com/whimapp/discovery-cli/internal/scoring"
)

// AdSlot is the batch index where an advertised place is inserted.
const AdSlot = 4

// DefaultTTL is how long an idle pool survives before passive eviction.
const DefaultTTL = 30 * time.Minute

// Pool holds one signature's session state. All mutation goes through its
// mutex; different signatures never contend.
type Pool struct {
	Signature string

	mu        sync.Mutex
	available []model.ScoredPlace
	returned  map[string]bool

	// Discovery progress, resumed (not reset) when a refresh is needed.
	RadiusMeters   float64
	ExpansionCount int
	Relax          relax.State

	createdAt  time.Time
	lastAccess time.Time
}

// Admit merges new scored places into the available list, deduplicating by
// place id against both the available list and the returned set. A place id
// is unique within a pool no matter how many upstream calls produced it.
func (p *Pool) Admit(places []model.ScoredPlace) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	seen := make(map[string]bool, len(p.available))
	for _, sp := range p.available {
		seen[sp.ID] = true
	}

	admitted := 0
	for _, sp := range places {
		if sp.ID == "" || seen[sp.ID] || p.returned[sp.ID] {
			continue
		}
		seen[sp.ID] = true
		p.available = append(p.available, sp)
		admitted++
	}

	scoring.Rank(p.available)
	return admitted
}

// TakeBatch removes up to size best-scored places from available and marks
// their ids returned. needsRefresh is true when the batch itself came up
// short, signalling the orchestrator to run another discovery cycle before
// the next batch.
func (p *Pool) TakeBatch(size int) (batch []model.ScoredPlace, needsRefresh bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := size
	if n > len(p.available) {
		n = len(p.available)
	}
	batch = make([]model.ScoredPlace, n)
	copy(batch, p.available[:n])
	p.available = p.available[n:]

	for _, sp := range batch {
		p.returned[sp.ID] = true
	}

	return batch, len(batch) < size
}

// Available returns the count of not-yet-returned places.
func (p *Pool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.available)
}

// InsertAdvertised appends the first eligible advertised place at the ad
// slot. It never displaces an organic place and never repeats an id already
// seen in this pool's session, organic or advertised.
func (p *Pool) InsertAdvertised(batch []model.ScoredPlace, ads []model.ScoredPlace) []model.ScoredPlace {
	p.mu.Lock()
	defer p.mu.Unlock()

	inBatch := make(map[string]bool, len(batch))
	for _, sp := range batch {
		inBatch[sp.ID] = true
	}

	for _, ad := range ads {
		if ad.ID == "" || inBatch[ad.ID] || p.returned[ad.ID] {
			continue
		}
		p.returned[ad.ID] = true

		if len(batch) <= AdSlot {
			return append(batch, ad)
		}
		out := make([]model.ScoredPlace, 0, len(batch)+1)
		out = append(out, batch[:AdSlot]...)
		out = append(out, ad)
		out = append(out, batch[AdSlot:]...)
		return out
	}
	return batch
}

// Manager owns the signature → pool map. It is constructed once per process
// and passed by handle; there is no global pool state.
type Manager struct {
	mu    sync.Mutex
	pools map[string]*Pool
	ttl   time.Duration
	now   func() time.Time
}

// NewManager creates a Manager with the given idle TTL; ttl <= 0 uses
// DefaultTTL.
func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		pools: make(map[string]*Pool),
		ttl:   ttl,
		now:   time.Now,
	}
}

// GetOrCreate returns the pool for a signature, creating it with the given
// initial radius if absent or expired. Eviction is passive: expiry is checked
// here, on access, so the core carries no background timers.
func (m *Manager) GetOrCreate(signature string, initialRadius float64) *Pool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweepLocked(now)

	if p, ok := m.pools[signature]; ok {
		p.lastAccess = now
		return p
	}

	p := &Pool{
		Signature:    signature,
		returned:     make(map[string]bool),
		RadiusMeters: initialRadius,
		createdAt:    now,
		lastAccess:   now,
	}
	m.pools[signature] = p
	zap.L().Debug("pool created",
		zap.String("signature", sigPrefix(signature)),
		zap.Float64("radius_m", initialRadius),
	)
	return p
}

// Get returns the pool for a signature if it exists and has not expired.
func (m *Manager) Get(signature string) (*Pool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweepLocked(m.now())
	p, ok := m.pools[signature]
	if ok {
		p.lastAccess = m.now()
	}
	return p, ok
}

// Reset discards the pool for a signature, forcing a fresh INITIAL state on
// the next discovery.
func (m *Manager) Reset(signature string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pools, signature)
}

func (m *Manager) sweepLocked(now time.Time) {
	for sig, p := range m.pools {
		if now.Sub(p.lastAccess) > m.ttl {
			delete(m.pools, sig)
			zap.L().Debug("pool evicted", zap.String("signature", sigPrefix(sig)))
		}
	}
}

func sigPrefix(sig string) string {
	if len(sig) > 12 {
		return sig[:12]
	}
	return sig
}
