// Package raid starts raids and resolves their outcome.
//
// A raid moves from IN_PROGRESS to RESOLVED exactly once, and only after
// its end time. Resolution draws every roll from a dice.Roller, so a seeded
// roller reproduces a resolution exactly.
package raid

import (
	"fmt"
	"time"

	apperrors "github.com/louisbranch/throne-of-dust/internal/platform/errors"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/roster"
)

// MapID names a raid map template.
type MapID string

const (
	AbandonedOutpost MapID = "ABANDONED_OUTPOST"
	RuinedFort       MapID = "RUINED_FORT"
	DeepWarrens      MapID = "DEEP_WARRENS"
)

// Maps lists every map in difficulty order.
var Maps = []MapID{AbandonedOutpost, RuinedFort, DeepWarrens}

// ParseMap resolves a wire name to a MapID.
func ParseMap(value string) (MapID, error) {
	switch MapID(value) {
	case AbandonedOutpost, RuinedFort, DeepWarrens:
		return MapID(value), nil
	default:
		return "", apperrors.WithMetadata(apperrors.CodeInvalidArgument,
			fmt.Sprintf("unknown map %q", value), map[string]string{"Field": "map"})
	}
}

// Difficulty grades a map.
type Difficulty string

const (
	Easy   Difficulty = "EASY"
	Normal Difficulty = "NORMAL"
	Hard   Difficulty = "HARD"
)

// Status is the raid lifecycle state.
type Status string

const (
	// Scheduled is part of the wire vocabulary; Start creates raids
	// directly in InProgress.
	Scheduled  Status = "SCHEDULED"
	InProgress Status = "IN_PROGRESS"
	Resolved   Status = "RESOLVED"
)

// ParseStatus resolves a wire name to a Status.
func ParseStatus(value string) (Status, error) {
	switch Status(value) {
	case Scheduled, InProgress, Resolved:
		return Status(value), nil
	default:
		return "", apperrors.WithMetadata(apperrors.CodeInvalidArgument,
			fmt.Sprintf("unknown raid status %q", value), map[string]string{"Field": "status"})
	}
}

// Fate is what happened to one squad member.
type Fate string

const (
	// Pending marks members of a raid that has not been resolved.
	Pending  Fate = ""
	Survived Fate = "SURVIVED"
	Killed   Fate = "KILLED"
	Deserted Fate = "DESERTED"
)

// Range is an inclusive integer range.
type Range struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// Template is the static configuration of one map.
type Template struct {
	Difficulty      Difficulty `yaml:"difficulty"`
	DurationMinutes int        `yaml:"duration_minutes"`
	EntryCostGold   int        `yaml:"entry_cost_gold"`
	BaseRaidFail    float64    `yaml:"base_raid_fail"`
	BaseExtractFail float64    `yaml:"base_extract_fail"`
	LootGold        Range      `yaml:"loot_gold"`
	LootScrap       Range      `yaml:"loot_scrap"`
	SquadCap        int        `yaml:"squad_cap"`
}

// Duration is the time between start and end.
func (t Template) Duration() time.Duration {
	return time.Duration(t.DurationMinutes) * time.Minute
}

// TraitModifier is the per-holder effect of a trait. Probability modifiers
// add to the chance of failure; Reward multiplies loot by (1 + Reward).
type TraitModifier struct {
	RaidFail    float64 `yaml:"raid_fail"`
	ExtractFail float64 `yaml:"extract_fail"`
	Reward      float64 `yaml:"reward"`
}

// Rules holds the raid constants.
type Rules struct {
	Maps   map[MapID]Template             `yaml:"maps"`
	Traits map[roster.Trait]TraitModifier `yaml:"traits"`

	AllyRaidFailBonus float64 `yaml:"ally_raid_fail_bonus"`
	// LevelFailBonus is subtracted per average squad level above 1.
	LevelFailBonus float64 `yaml:"level_fail_bonus"`

	BetrayalBase          float64 `yaml:"betrayal_base"`
	BetrayalPerRadarLevel float64 `yaml:"betrayal_per_radar_level"`
	BetrayalLootFactor    float64 `yaml:"betrayal_loot_factor"`
	BetrayalKillChance    float64 `yaml:"betrayal_kill_chance"`
	AllyLootFactor        float64 `yaml:"ally_loot_factor"`

	// MedicSalvage is the share of loot kept on failed extraction when a
	// member carries the Medic trait.
	MedicSalvage float64 `yaml:"medic_salvage"`

	DesertionChance float64 `yaml:"desertion_chance"`
	DesertionTheft  float64 `yaml:"desertion_theft"`

	DeathBase     map[Difficulty]float64 `yaml:"death_base"`
	DeathPerLevel float64                `yaml:"death_per_level"`
	DeathMin      float64                `yaml:"death_min"`
	DeathMax      float64                `yaml:"death_max"`

	XPSuccess int `yaml:"xp_success"`
	XPFailure int `yaml:"xp_failure"`
}

// Template returns the template for id.
func (r Rules) Template(id MapID) (Template, error) {
	tpl, ok := r.Maps[id]
	if !ok {
		return Template{}, apperrors.WithMetadata(apperrors.CodeInvalidArgument,
			fmt.Sprintf("no template for map %q", id), map[string]string{"Field": "map"})
	}
	return tpl, nil
}

// Validate reports inconsistent constants.
func (r Rules) Validate() error {
	for _, id := range Maps {
		tpl, ok := r.Maps[id]
		if !ok {
			return fmt.Errorf("missing template for %s", id)
		}
		if err := tpl.validate(); err != nil {
			return fmt.Errorf("template %s: %w", id, err)
		}
		if _, ok := r.DeathBase[tpl.Difficulty]; !ok {
			return fmt.Errorf("missing death base for %s", tpl.Difficulty)
		}
	}
	for trait := range r.Traits {
		if _, err := roster.ParseTrait(string(trait)); err != nil {
			return fmt.Errorf("modifier for unknown trait %q", trait)
		}
	}
	probabilities := map[string]float64{
		"betrayal_base":        r.BetrayalBase,
		"betrayal_kill_chance": r.BetrayalKillChance,
		"desertion_chance":     r.DesertionChance,
		"desertion_theft":      r.DesertionTheft,
		"medic_salvage":        r.MedicSalvage,
		"betrayal_loot_factor": r.BetrayalLootFactor,
		"death_min":            r.DeathMin,
		"death_max":            r.DeathMax,
	}
	for difficulty, p := range r.DeathBase {
		probabilities["death_base."+string(difficulty)] = p
	}
	for name, p := range probabilities {
		if p < 0 || p > 1 {
			return fmt.Errorf("%s must be within [0, 1]", name)
		}
	}
	if r.DeathMin > r.DeathMax {
		return fmt.Errorf("death_min exceeds death_max")
	}
	if r.AllyLootFactor < 0 || r.XPSuccess < 0 || r.XPFailure < 0 {
		return fmt.Errorf("ally loot factor and xp awards must not be negative")
	}
	return nil
}

func (t Template) validate() error {
	switch {
	case t.DurationMinutes <= 0:
		return fmt.Errorf("duration must be positive")
	case t.EntryCostGold < 0:
		return fmt.Errorf("entry cost must not be negative")
	case t.BaseRaidFail < 0 || t.BaseRaidFail > 1 || t.BaseExtractFail < 0 || t.BaseExtractFail > 1:
		return fmt.Errorf("base probabilities must be within [0, 1]")
	case t.LootGold.Min < 0 || t.LootGold.Min > t.LootGold.Max:
		return fmt.Errorf("invalid gold range")
	case t.LootScrap.Min < 0 || t.LootScrap.Min > t.LootScrap.Max:
		return fmt.Errorf("invalid scrap range")
	case t.SquadCap < 1:
		return fmt.Errorf("squad cap must be positive")
	}
	switch t.Difficulty {
	case Easy, Normal, Hard:
		return nil
	default:
		return fmt.Errorf("unknown difficulty %q", t.Difficulty)
	}
}

// Member is one squad slot. The reference stays after resolution.
type Member struct {
	CharacterID string
	Fate        Fate
	XPGained    int
}

// Outcome holds the fields set on resolution.
type Outcome struct {
	Success           bool
	LootGold          int
	LootScrap         int
	BetrayalOccurred  bool
	ExtractionSuccess bool
	// Casualties counts killed and deserted members.
	Casualties int
}

// Raid is one expedition.
type Raid struct {
	ID       string
	PlayerID string
	Map      MapID
	Status   Status
	AllyMode bool
	Members  []Member
	StartAt  time.Time
	EndAt    time.Time
	// Outcome and ResolvedAt are set once Status is Resolved.
	Outcome    *Outcome
	ResolvedAt time.Time
}

// MemberIDs returns the squad's character ids in slot order.
func (r Raid) MemberIDs() []string {
	ids := make([]string, len(r.Members))
	for i, m := range r.Members {
		ids[i] = m.CharacterID
	}
	return ids
}

// Due reports whether the raid may be resolved at now.
func (r Raid) Due(now time.Time) bool {
	return r.Status == InProgress && !now.Before(r.EndAt)
}
