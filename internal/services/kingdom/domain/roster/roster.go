// Package roster models characters, recruitment and trait assignment.
package roster

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/throne-of-dust/internal/core/dice"
	apperrors "github.com/louisbranch/throne-of-dust/internal/platform/errors"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/building"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/resource"
)

// Class is a character's archetype.
type Class string

const (
	Warrior Class = "WARRIOR"
	Rogue   Class = "ROGUE"
	Medic   Class = "MEDIC"
	Scout   Class = "SCOUT"
)

// Classes lists every class.
var Classes = []Class{Warrior, Rogue, Medic, Scout}

// ParseClass resolves a wire name to a Class.
func ParseClass(value string) (Class, error) {
	switch Class(value) {
	case Warrior, Rogue, Medic, Scout:
		return Class(value), nil
	default:
		return "", invalid("characterClass", "unknown class %q", value)
	}
}

// Status is a character's lifecycle state. Dead is terminal.
type Status string

const (
	Idle   Status = "IDLE"
	InRaid Status = "IN_RAID"
	Dead   Status = "DEAD"
)

// ParseStatus resolves a wire name to a Status.
func ParseStatus(value string) (Status, error) {
	switch Status(value) {
	case Idle, InRaid, Dead:
		return Status(value), nil
	default:
		return "", invalid("status", "unknown status %q", value)
	}
}

// Trait is a raid modifier a character may carry.
type Trait string

const (
	SteadyHand    Trait = "STEADY_HAND"
	ScoutsEye     Trait = "SCOUTS_EYE"
	MedicTrait    Trait = "MEDIC"
	Looter        Trait = "LOOTER"
	Cautious      Trait = "CAUTIOUS"
	Reckless      Trait = "RECKLESS"
	Untrustworthy Trait = "UNTRUSTWORTHY"
)

// Traits lists every trait.
var Traits = []Trait{SteadyHand, ScoutsEye, MedicTrait, Looter, Cautious, Reckless, Untrustworthy}

// ParseTrait resolves a wire name to a Trait.
func ParseTrait(value string) (Trait, error) {
	switch Trait(value) {
	case SteadyHand, ScoutsEye, MedicTrait, Looter, Cautious, Reckless, Untrustworthy:
		return Trait(value), nil
	default:
		return "", invalid("trait", "unknown trait %q", value)
	}
}

// Character is a player-owned unit.
type Character struct {
	ID        string
	Name      string
	Class     Class
	Status    Status
	Level     int
	XP        int
	Traits    []Trait
	CreatedAt time.Time
}

// HasTrait reports whether c carries t.
func (c Character) HasTrait(t Trait) bool {
	return slices.Contains(c.Traits, t)
}

// Alive reports whether c counts toward the roster.
func (c Character) Alive() bool {
	return c.Status != Dead
}

// CountAlive returns the number of characters that are not Dead.
func CountAlive(characters []Character) int {
	n := 0
	for _, c := range characters {
		if c.Alive() {
			n++
		}
	}
	return n
}

// Rules holds the roster constants.
type Rules struct {
	BaseRosterCap         int           `yaml:"base_roster_cap"`
	MaxSquadCap           int           `yaml:"max_squad_cap"`
	RecruitGold           int           `yaml:"recruit_gold"`
	RecruitGoldPerRecruit int           `yaml:"recruit_gold_per_recruit"`
	RecruitScrap          int           `yaml:"recruit_scrap"`
	RecruitCooldown       time.Duration `yaml:"recruit_cooldown"`
	// TraitSlotLevels lists the levels that grant an extra trait slot on
	// top of the first one.
	TraitSlotLevels []int    `yaml:"trait_slot_levels"`
	XPPerLevel      int      `yaml:"xp_per_level"`
	FirstNames      []string `yaml:"first_names"`
	LastNames       []string `yaml:"last_names"`
}

// RosterCap is the alive-character limit for a Training Yard level.
func (r Rules) RosterCap(yardLevel int) int {
	return r.BaseRosterCap + yardLevel
}

// SquadCap is the personal squad limit for a Training Yard level.
func (r Rules) SquadCap(yardLevel int) int {
	return max(min(yardLevel, r.MaxSquadCap), 0)
}

// RecruitCost is the price of the next recruit after recruits so far.
func (r Rules) RecruitCost(recruits int) resource.Amounts {
	return resource.Amounts{
		Gold:  r.RecruitGold + r.RecruitGoldPerRecruit*recruits,
		Scrap: r.RecruitScrap,
	}
}

// TraitSlots returns how many traits a character of level may hold.
func (r Rules) TraitSlots(level int) int {
	slots := 1
	for _, threshold := range r.TraitSlotLevels {
		if level >= threshold {
			slots++
		}
	}
	return slots
}

// GainXP adds amount to c and levels it up while xp reaches level × XPPerLevel.
// Leftover xp carries into the next level.
func (r Rules) GainXP(c Character, amount int) Character {
	c.XP += amount
	if r.XPPerLevel <= 0 {
		return c
	}
	for c.XP >= c.Level*r.XPPerLevel {
		c.XP -= c.Level * r.XPPerLevel
		c.Level++
	}
	return c
}

// Validate reports inconsistent constants.
func (r Rules) Validate() error {
	switch {
	case r.BaseRosterCap < 0:
		return fmt.Errorf("base roster cap must not be negative")
	case r.MaxSquadCap < 1:
		return fmt.Errorf("max squad cap must be positive")
	case r.RecruitGold < 0 || r.RecruitGoldPerRecruit < 0 || r.RecruitScrap < 0:
		return fmt.Errorf("recruit costs must not be negative")
	case r.RecruitCooldown < 0:
		return fmt.Errorf("recruit cooldown must not be negative")
	case r.XPPerLevel < 1:
		return fmt.Errorf("xp per level must be positive")
	case len(r.FirstNames) == 0 || len(r.LastNames) == 0:
		return fmt.Errorf("name pools must not be empty")
	}
	if !slices.IsSorted(r.TraitSlotLevels) {
		return fmt.Errorf("trait slot levels must be ascending")
	}
	return nil
}

// RecruitRequest carries the optional class and traits for a recruit.
type RecruitRequest struct {
	// Class is drawn at random when empty.
	Class Class
	// Traits receive one random trait when empty.
	Traits []Trait
}

// Recruitment is the outcome of a successful recruit.
type Recruitment struct {
	Character Character
	Yard      building.Building
	Ledger    resource.Amounts
}

// Recruit creates a level 1 Idle character and pays for it. Checks run in
// order: yard built, cooldown, roster cap, affordability, requested traits.
func Recruit(req RecruitRequest, yard building.Building, alive int, ledger resource.Amounts, id string, now time.Time, roller dice.Roller, rules Rules) (Recruitment, error) {
	if yard.Level <= 0 {
		return Recruitment{}, apperrors.WithMetadata(apperrors.CodeGatingViolation,
			"training yard not built", map[string]string{"Building": string(building.TrainingYard)})
	}
	if !yard.LastActionAt.IsZero() && rules.RecruitCooldown > 0 {
		if since := now.Sub(yard.LastActionAt); since < rules.RecruitCooldown {
			remaining := (rules.RecruitCooldown - since).Round(time.Second)
			return Recruitment{}, apperrors.WithMetadata(apperrors.CodeRecruitCooldown,
				fmt.Sprintf("recruitment on cooldown for %s", remaining),
				map[string]string{"Remaining": remaining.String(), "Seconds": strconv.Itoa(int(remaining / time.Second))})
		}
	}
	if capacity := rules.RosterCap(yard.Level); alive >= capacity {
		return Recruitment{}, apperrors.WithMetadata(apperrors.CodeRosterFull,
			fmt.Sprintf("roster limit reached (%d characters)", capacity),
			map[string]string{"Cap": strconv.Itoa(capacity)})
	}
	next, err := ledger.Spend(rules.RecruitCost(yard.RecruitsCount))
	if err != nil {
		return Recruitment{}, err
	}

	class := req.Class
	if class == "" {
		class = Classes[roller.Intn(len(Classes))]
	}
	traits, err := recruitTraits(req.Traits, roller, rules)
	if err != nil {
		return Recruitment{}, err
	}
	name := rules.FirstNames[roller.Intn(len(rules.FirstNames))] + " " + rules.LastNames[roller.Intn(len(rules.LastNames))]

	yard.RecruitsCount++
	yard.LastActionAt = now
	return Recruitment{
		Character: Character{
			ID:        id,
			Name:      name,
			Class:     class,
			Status:    Idle,
			Level:     1,
			Traits:    traits,
			CreatedAt: now,
		},
		Yard:   yard,
		Ledger: next,
	}, nil
}

func recruitTraits(requested []Trait, roller dice.Roller, rules Rules) ([]Trait, error) {
	if len(requested) == 0 {
		return []Trait{Traits[roller.Intn(len(Traits))]}, nil
	}
	seen := make(map[Trait]bool, len(requested))
	for _, t := range requested {
		if seen[t] {
			return nil, apperrors.WithMetadata(apperrors.CodeTraitAlreadyAssigned,
				fmt.Sprintf("trait %s requested twice", t), map[string]string{"Trait": string(t)})
		}
		seen[t] = true
	}
	if slots := rules.TraitSlots(1); len(requested) > slots {
		return nil, apperrors.WithMetadata(apperrors.CodeTraitSlotsExhausted,
			fmt.Sprintf("%d traits requested, %d slots", len(requested), slots),
			map[string]string{"Slots": strconv.Itoa(slots)})
	}
	return slices.Clone(requested), nil
}

// AddTrait gives an Idle character a new trait when a slot is free.
func AddTrait(c Character, t Trait, rules Rules) (Character, error) {
	if c.Status != Idle {
		return c, NotIdle([]string{c.ID})
	}
	if c.HasTrait(t) {
		return c, apperrors.WithMetadata(apperrors.CodeTraitAlreadyAssigned,
			fmt.Sprintf("character %s already has %s", c.ID, t), map[string]string{"Trait": string(t)})
	}
	if slots := rules.TraitSlots(c.Level); len(c.Traits) >= slots {
		return c, apperrors.WithMetadata(apperrors.CodeTraitSlotsExhausted,
			fmt.Sprintf("character %s has no free trait slots", c.ID),
			map[string]string{"Slots": strconv.Itoa(slots)})
	}
	c.Traits = append(slices.Clone(c.Traits), t)
	return c, nil
}

// NotIdle builds the CHARACTER_NOT_IDLE error listing ids.
func NotIdle(ids []string) error {
	joined := strings.Join(ids, ",")
	return apperrors.WithMetadata(apperrors.CodeCharacterNotIdle,
		fmt.Sprintf("characters not idle: %s", joined), map[string]string{"CharacterID": joined})
}

func invalid(field, format string, args ...any) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidArgument, fmt.Sprintf(format, args...), map[string]string{"Field": field})
}
