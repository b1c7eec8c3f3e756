package scoring

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/layer-3/scorer/core"
	"github.com/layer-3/scorer/ports"
)

// DedupStrategy decides which valid credentials of a passport earn credit
// when other addresses in the community hold the same claim.
type DedupStrategy interface {
	Name() string

	// Apply claims the stamps' dedup keys for address and splits the stamps
	// into the ones that keep credit and the ones that lose it.
	Apply(ctx context.Context, ledger ports.HashLedger, community *core.Community, address string, stamps []core.Stamp, now time.Time) (kept, dropped []core.Stamp, err error)
}

var (
	strategiesMu sync.RWMutex
	strategies   = map[string]DedupStrategy{}
)

func init() {
	RegisterStrategy(ledgerStrategy{name: core.DedupFirstClaimWins, takeOver: false})
	RegisterStrategy(ledgerStrategy{name: core.DedupLastClaimWins, takeOver: true})
}

// RegisterStrategy makes s selectable by name from a community ruleset.
// Registering a name twice replaces the earlier strategy.
func RegisterStrategy(s DedupStrategy) {
	strategiesMu.Lock()
	defer strategiesMu.Unlock()
	strategies[s.Name()] = s
}

// StrategyFor looks up a registered strategy. An empty name selects first-claim-wins.
func StrategyFor(name string) (DedupStrategy, error) {
	if name == "" {
		name = core.DedupFirstClaimWins
	}
	strategiesMu.RLock()
	defer strategiesMu.RUnlock()
	s, ok := strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown deduplication strategy %q", name)
	}
	return s, nil
}

// StrategyNames lists the registered strategies
func StrategyNames() []string {
	strategiesMu.RLock()
	defer strategiesMu.RUnlock()
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ledgerStrategy resolves ownership through the HashLedger. With takeOver
// the newest submitter owns the claim, otherwise the earliest live owner keeps it.
type ledgerStrategy struct {
	name     string
	takeOver bool
}

func (s ledgerStrategy) Name() string {
	return s.name
}

func (s ledgerStrategy) Apply(ctx context.Context, ledger ports.HashLedger, community *core.Community, address string, stamps []core.Stamp, now time.Time) ([]core.Stamp, []core.Stamp, error) {
	if len(stamps) == 0 {
		return nil, nil, nil
	}

	ttl := community.Ruleset.DedupTTL
	claims := make([]ports.HashClaim, 0, len(stamps))
	seen := make(map[string]struct{}, len(stamps))
	for _, stamp := range stamps {
		key := DedupKey(stamp.Credential)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		expiresAt := stamp.Credential.ExpirationDate
		if ttl > 0 && (expiresAt.IsZero() || now.Add(ttl).Before(expiresAt)) {
			expiresAt = now.Add(ttl)
		}
		claims = append(claims, ports.HashClaim{Key: key, ExpiresAt: expiresAt})
	}

	owners, err := ledger.Claim(ctx, community.ID, address, claims, s.takeOver)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to claim credentials: %w", err)
	}

	var kept, dropped []core.Stamp
	for _, stamp := range stamps {
		if owners[DedupKey(stamp.Credential)] == address {
			kept = append(kept, stamp)
		} else {
			dropped = append(dropped, stamp)
		}
	}
	return kept, dropped, nil
}
