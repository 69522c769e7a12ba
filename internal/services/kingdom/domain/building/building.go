// Package building models the per-player building set, its upgrade gating
// and time-based production.
package building

import (
	"fmt"
	"strconv"
	"time"

	apperrors "github.com/louisbranch/throne-of-dust/internal/platform/errors"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/resource"
)

// Type identifies a building kind. Each player owns exactly one of each.
type Type string

const (
	TownHall     Type = "TOWN_HALL"
	LumberMill   Type = "LUMBER_MILL"
	Quarry       Type = "QUARRY"
	Mine         Type = "MINE"
	Treasury     Type = "TREASURY"
	Storehouse   Type = "STOREHOUSE"
	TrainingYard Type = "TRAINING_YARD"
	Radar        Type = "RADAR"
)

// Types lists every building type in display order.
var Types = []Type{TownHall, LumberMill, Quarry, Mine, Treasury, Storehouse, TrainingYard, Radar}

// ParseType resolves a wire name to a Type.
func ParseType(value string) (Type, error) {
	switch Type(value) {
	case TownHall, LumberMill, Quarry, Mine, Treasury, Storehouse, TrainingYard, Radar:
		return Type(value), nil
	default:
		return "", apperrors.WithMetadata(apperrors.CodeInvalidArgument,
			fmt.Sprintf("unknown building type %q", value), map[string]string{"Field": "type"})
	}
}

// Building is one player-owned building.
type Building struct {
	Type            Type
	Level           int
	LastCollectedAt time.Time
	// LastActionAt is zero until the first upgrade or recruitment.
	LastActionAt  time.Time
	RecruitsCount int
}

// Set holds a player's buildings keyed by type.
type Set map[Type]Building

// NewSet creates the starter buildings for a new player.
func NewSet(levels map[Type]int, now time.Time) Set {
	set := make(Set, len(Types))
	for _, t := range Types {
		set[t] = Building{Type: t, Level: levels[t], LastCollectedAt: now}
	}
	return set
}

// Level returns the level of t, or 0 when the set lacks it.
func (s Set) Level(t Type) int {
	return s[t].Level
}

// Ordered returns the buildings in Types order.
func (s Set) Ordered() []Building {
	out := make([]Building, 0, len(s))
	for _, t := range Types {
		if b, ok := s[t]; ok {
			out = append(out, b)
		}
	}
	return out
}

// Production names the resource a building yields and its hourly rate per
// level.
type Production struct {
	Resource     resource.Kind `yaml:"resource"`
	PerLevelHour int           `yaml:"per_level_per_hour"`
}

// Rules holds the building constants.
type Rules struct {
	// StarterLevels are the levels a new player starts with.
	StarterLevels map[Type]int `yaml:"starter_levels"`
	// UpgradeCost is multiplied by the target level.
	UpgradeCost resource.Amounts `yaml:"upgrade_cost"`
	// Production maps producing buildings to their output.
	Production map[Type]Production `yaml:"production"`
}

// CostFor returns the cost of upgrading from currentLevel to currentLevel+1.
func (r Rules) CostFor(currentLevel int) resource.Amounts {
	next := currentLevel + 1
	return resource.Amounts{
		Wood:  r.UpgradeCost.Wood * next,
		Stone: r.UpgradeCost.Stone * next,
		Scrap: r.UpgradeCost.Scrap * next,
		Gold:  r.UpgradeCost.Gold * next,
	}
}

// Validate reports inconsistent constants.
func (r Rules) Validate() error {
	for _, t := range Types {
		level, ok := r.StarterLevels[t]
		if !ok {
			return fmt.Errorf("starter level missing for %s", t)
		}
		if level < 0 {
			return fmt.Errorf("starter level for %s must not be negative", t)
		}
		if t != TownHall && level > r.StarterLevels[TownHall]+1 {
			return fmt.Errorf("starter level for %s exceeds town hall gate", t)
		}
	}
	for _, kind := range resource.Kinds {
		if r.UpgradeCost.Get(kind) < 0 {
			return fmt.Errorf("upgrade cost for %s must not be negative", kind)
		}
	}
	for t, p := range r.Production {
		if _, err := ParseType(string(t)); err != nil {
			return fmt.Errorf("production for unknown building %q", t)
		}
		if _, err := resource.ParseKind(string(p.Resource)); err != nil {
			return fmt.Errorf("production for %s names unknown resource %q", t, p.Resource)
		}
		if p.PerLevelHour < 0 {
			return fmt.Errorf("production rate for %s must not be negative", t)
		}
	}
	return nil
}

// CheckGate fails with GATING_VIOLATION when upgrading t would put it above
// Town Hall + 1. Town Hall itself is never gated.
func CheckGate(set Set, t Type) error {
	if t == TownHall {
		return nil
	}
	next := set.Level(t) + 1
	ceiling := set.Level(TownHall) + 1
	if next > ceiling {
		return apperrors.WithMetadata(apperrors.CodeGatingViolation,
			fmt.Sprintf("%s level %d exceeds town hall ceiling %d", t, next, ceiling),
			map[string]string{"Building": string(t), "Ceiling": strconv.Itoa(ceiling)})
	}
	return nil
}

// Upgrade raises t by one level, paying from ledger. It returns the updated
// building and ledger. Gating is checked before affordability.
func Upgrade(set Set, t Type, ledger resource.Amounts, now time.Time, rules Rules) (Building, resource.Amounts, error) {
	b, ok := set[t]
	if !ok {
		return Building{}, ledger, apperrors.WithMetadata(apperrors.CodeNotFound,
			fmt.Sprintf("building %s not found", t), map[string]string{"Kind": "building"})
	}
	if err := CheckGate(set, t); err != nil {
		return Building{}, ledger, err
	}
	next, err := ledger.Spend(rules.CostFor(b.Level))
	if err != nil {
		return Building{}, ledger, err
	}
	b.Level++
	b.LastActionAt = now
	return b, next, nil
}

// Produced returns the output of b over the time since its last collection:
// floor(rate × level × hours), counting whole seconds.
func Produced(b Building, now time.Time, rules Rules) resource.Amounts {
	p, ok := rules.Production[b.Type]
	if !ok || b.Level <= 0 {
		return resource.Amounts{}
	}
	seconds := int64(now.Sub(b.LastCollectedAt) / time.Second)
	if seconds <= 0 {
		return resource.Amounts{}
	}
	amount := int64(p.PerLevelHour) * int64(b.Level) * seconds / int64(time.Hour/time.Second)
	return resource.Amounts{}.With(p.Resource, int(amount))
}

// CollectResult is the outcome of a collection.
type CollectResult struct {
	// Buildings holds the producing buildings with refreshed timestamps.
	Buildings []Building
	Ledger    resource.Amounts
	// Applied is what was actually credited after storage caps.
	Applied resource.Amounts
}

// Collect credits production from every producing building, truncating
// capped counters at limit, and stamps each of them as collected at now.
func Collect(set Set, ledger resource.Amounts, limit int, now time.Time, rules Rules) CollectResult {
	return collect(set, producers(set, rules), ledger, limit, now, rules)
}

// CollectOne is Collect restricted to a single building. Buildings that
// produce nothing yield an empty result.
func CollectOne(set Set, t Type, ledger resource.Amounts, limit int, now time.Time, rules Rules) CollectResult {
	if _, ok := rules.Production[t]; !ok {
		return CollectResult{Ledger: ledger}
	}
	if _, ok := set[t]; !ok {
		return CollectResult{Ledger: ledger}
	}
	return collect(set, []Type{t}, ledger, limit, now, rules)
}

func producers(set Set, rules Rules) []Type {
	var out []Type
	for _, t := range Types {
		if _, ok := rules.Production[t]; !ok {
			continue
		}
		if _, ok := set[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

func collect(set Set, types []Type, ledger resource.Amounts, limit int, now time.Time, rules Rules) CollectResult {
	var produced resource.Amounts
	buildings := make([]Building, 0, len(types))
	for _, t := range types {
		b := set[t]
		out := Produced(b, now, rules)
		for _, kind := range resource.Kinds {
			produced = produced.With(kind, produced.Get(kind)+out.Get(kind))
		}
		b.LastCollectedAt = now
		buildings = append(buildings, b)
	}
	next, applied := ledger.Credit(produced, limit)
	return CollectResult{Buildings: buildings, Ledger: next, Applied: applied}
}
