// Package resource models the per-player resource ledger.
//
// Wood, stone and scrap are capped by storage; gold is not. Every mutation
// goes through Spend or Credit, so a capped counter never ends above its
// limit and no counter ever goes negative.
package resource

import (
	"fmt"
	"strconv"

	apperrors "github.com/louisbranch/throne-of-dust/internal/platform/errors"
)

// Kind identifies one of the four ledger counters.
type Kind string

const (
	Wood  Kind = "WOOD"
	Stone Kind = "STONE"
	Scrap Kind = "SCRAP"
	Gold  Kind = "GOLD"
)

// Kinds lists every resource in display order.
var Kinds = []Kind{Wood, Stone, Scrap, Gold}

// Capped reports whether storage limits apply to the kind.
func (k Kind) Capped() bool {
	return k != Gold
}

// ParseKind resolves a wire name to a Kind.
func ParseKind(value string) (Kind, error) {
	switch Kind(value) {
	case Wood, Stone, Scrap, Gold:
		return Kind(value), nil
	default:
		return "", apperrors.WithMetadata(apperrors.CodeInvalidArgument,
			fmt.Sprintf("unknown resource %q", value), map[string]string{"Field": "resource"})
	}
}

// Amounts is a bundle of the four counters. It is used both for ledger
// balances and for costs or deltas.
type Amounts struct {
	Wood  int `json:"wood" yaml:"wood"`
	Stone int `json:"stone" yaml:"stone"`
	Scrap int `json:"scrap" yaml:"scrap"`
	Gold  int `json:"gold" yaml:"gold"`
}

// Get returns the counter for kind.
func (a Amounts) Get(kind Kind) int {
	switch kind {
	case Wood:
		return a.Wood
	case Stone:
		return a.Stone
	case Scrap:
		return a.Scrap
	case Gold:
		return a.Gold
	default:
		return 0
	}
}

// With returns a copy of a with kind set to value.
func (a Amounts) With(kind Kind, value int) Amounts {
	switch kind {
	case Wood:
		a.Wood = value
	case Stone:
		a.Stone = value
	case Scrap:
		a.Scrap = value
	case Gold:
		a.Gold = value
	}
	return a
}

// IsZero reports whether every counter is zero.
func (a Amounts) IsZero() bool {
	return a == Amounts{}
}

// Spend debits cost from a. It fails with INSUFFICIENT_RESOURCES, naming the
// first short counter, when any counter would go negative; a is unchanged
// in that case.
func (a Amounts) Spend(cost Amounts) (Amounts, error) {
	for _, kind := range Kinds {
		need := cost.Get(kind)
		if need < 0 {
			return a, apperrors.New(apperrors.CodeInvalidArgument, "negative cost")
		}
		if have := a.Get(kind); have < need {
			return a, apperrors.WithMetadata(apperrors.CodeInsufficientResources,
				fmt.Sprintf("need %d %s, have %d", need, kind, have),
				map[string]string{
					"Resource":  string(kind),
					"Required":  strconv.Itoa(need),
					"Available": strconv.Itoa(have),
				})
		}
	}
	next := a
	for _, kind := range Kinds {
		next = next.With(kind, a.Get(kind)-cost.Get(kind))
	}
	return next, nil
}

// Credit adds delta to a, truncating capped counters at limit. It returns
// the new balance and the amounts actually applied. Negative deltas are
// ignored.
func (a Amounts) Credit(delta Amounts, limit int) (Amounts, Amounts) {
	next := a
	var applied Amounts
	for _, kind := range Kinds {
		add := delta.Get(kind)
		if add <= 0 {
			continue
		}
		have := a.Get(kind)
		value := have + add
		if kind.Capped() && value > limit {
			value = max(limit, have)
		}
		next = next.With(kind, value)
		applied = applied.With(kind, value-have)
	}
	return next, applied
}

// Rules holds the ledger constants.
type Rules struct {
	// Starting is the balance a new player begins with.
	Starting Amounts `yaml:"starting"`
	// StorageBase is the capped-resource limit with Storehouse at level 0.
	StorageBase int `yaml:"storage_base"`
	// StoragePerLevel is added to the limit per Storehouse level.
	StoragePerLevel int `yaml:"storage_per_level"`
}

// StorageLimit returns the limit for capped counters.
func (r Rules) StorageLimit(storehouseLevel int) int {
	return r.StorageBase + r.StoragePerLevel*max(storehouseLevel, 0)
}

// Limits returns the per-kind limits; gold reports -1 for unbounded.
func (r Rules) Limits(storehouseLevel int) Amounts {
	limit := r.StorageLimit(storehouseLevel)
	return Amounts{Wood: limit, Stone: limit, Scrap: limit, Gold: -1}
}

// Validate reports inconsistent constants.
func (r Rules) Validate() error {
	if r.StorageBase <= 0 || r.StoragePerLevel < 0 {
		return fmt.Errorf("storage limits must be positive")
	}
	for _, kind := range Kinds {
		if r.Starting.Get(kind) < 0 {
			return fmt.Errorf("starting %s must not be negative", kind)
		}
		if kind.Capped() && r.Starting.Get(kind) > r.StorageBase {
			return fmt.Errorf("starting %s exceeds base storage", kind)
		}
	}
	return nil
}
