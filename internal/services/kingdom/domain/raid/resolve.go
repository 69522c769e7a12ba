package raid

import (
	"fmt"
	"math"
	"time"

	"github.com/louisbranch/throne-of-dust/internal/core/dice"
	apperrors "github.com/louisbranch/throne-of-dust/internal/platform/errors"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/resource"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/roster"
)

// Roll steps recorded in a Trace.
const (
	StepRaidFail    = "raid_fail"
	StepExtractFail = "extract_fail"
	StepBetrayal    = "betrayal"
	StepBetrayKill  = "betrayal_kill"
	StepDesertion   = "desertion"
	StepCasualty    = "casualty"
)

// Roll is one probability draw. Hit means the adverse event happened.
type Roll struct {
	Step    string  `json:"step"`
	Subject string  `json:"subject,omitempty"`
	Chance  float64 `json:"chance"`
	Value   float64 `json:"value"`
	Hit     bool    `json:"hit"`
}

// Trace records every draw of a resolution.
type Trace struct {
	Rolls        []Roll  `json:"rolls"`
	RolledGold   int     `json:"rolled_gold"`
	RolledScrap  int     `json:"rolled_scrap"`
	RewardFactor float64 `json:"reward_factor"`
	Victim       string  `json:"victim,omitempty"`
}

// Input is everything a resolution reads.
type Input struct {
	Raid Raid
	// Members are the squad characters in slot order.
	Members      []roster.Character
	RadarLevel   int
	Ledger       resource.Amounts
	StorageLimit int
}

// Resolution is the outcome of a successful resolve.
type Resolution struct {
	Raid Raid
	// Members are the squad characters after fates and xp, in slot order.
	Members []roster.Character
	Ledger  resource.Amounts
	// Credited is the loot actually added after storage caps.
	Credited resource.Amounts
	Trace    Trace
}

// Resolve rolls the raid outcome and applies it to the squad and ledger.
//
// Steps run in a fixed order: raid failure, loot, extraction failure,
// betrayal (ally mode), desertion, casualties. A failed raid skips straight
// to casualties. Loot modifiers multiply per holder and each adjustment is
// rounded to whole units.
func Resolve(in Input, now time.Time, roller dice.Roller, rules Rules, rosterRules roster.Rules) (Resolution, error) {
	r := in.Raid
	if r.Status == Resolved {
		return Resolution{}, apperrors.New(apperrors.CodeInvalidState, fmt.Sprintf("raid %s already resolved", r.ID))
	}
	if r.Status != InProgress {
		return Resolution{}, apperrors.New(apperrors.CodeInvalidState, fmt.Sprintf("raid %s is %s", r.ID, r.Status))
	}
	if now.Before(r.EndAt) {
		return Resolution{}, apperrors.WithMetadata(apperrors.CodeInvalidState,
			fmt.Sprintf("raid %s not finished until %s", r.ID, r.EndAt.Format(time.RFC3339)),
			map[string]string{"EndAt": r.EndAt.Format(time.RFC3339)})
	}
	if len(in.Members) != len(r.Members) {
		return Resolution{}, fmt.Errorf("raid %s has %d slots but %d members were loaded", r.ID, len(r.Members), len(in.Members))
	}
	for i, c := range in.Members {
		if c.ID != r.Members[i].CharacterID {
			return Resolution{}, fmt.Errorf("raid %s slot %d holds %s, loaded %s", r.ID, i, r.Members[i].CharacterID, c.ID)
		}
	}
	tpl, err := rules.Template(r.Map)
	if err != nil {
		return Resolution{}, err
	}

	res := &resolver{
		rules:  rules,
		roller: roller,
		tpl:    tpl,
		squad:  in.Members,
		fates:  make([]Fate, len(in.Members)),
	}
	for i := range res.fates {
		res.fates[i] = Survived
	}
	outcome := res.run(r.AllyMode, in.RadarLevel)

	xp := rules.XPFailure
	if outcome.Success {
		xp = rules.XPSuccess
	}
	members := make([]roster.Character, len(in.Members))
	slots := make([]Member, len(in.Members))
	for i, c := range in.Members {
		slots[i] = Member{CharacterID: c.ID, Fate: res.fates[i]}
		if res.fates[i] == Survived {
			c = rosterRules.GainXP(c, xp)
			c.Status = roster.Idle
			slots[i].XPGained = xp
		} else {
			c.Status = roster.Dead
			outcome.Casualties++
		}
		members[i] = c
	}

	ledger, credited := in.Ledger.Credit(resource.Amounts{Gold: outcome.LootGold, Scrap: outcome.LootScrap}, in.StorageLimit)

	r.Status = Resolved
	r.Members = slots
	r.Outcome = &outcome
	r.ResolvedAt = now
	return Resolution{
		Raid:     r,
		Members:  members,
		Ledger:   ledger,
		Credited: credited,
		Trace:    res.trace,
	}, nil
}

type resolver struct {
	rules  Rules
	roller dice.Roller
	tpl    Template
	squad  []roster.Character
	fates  []Fate
	trace  Trace

	gold  int
	scrap int
}

func (s *resolver) run(allyMode bool, radarLevel int) Outcome {
	levelBonus := s.rules.LevelFailBonus * (s.averageLevel() - 1)

	raidFail := s.tpl.BaseRaidFail - levelBonus + s.sum(func(m TraitModifier) float64 { return m.RaidFail })
	if allyMode {
		raidFail -= s.rules.AllyRaidFailBonus
	}
	if s.chance(StepRaidFail, "", raidFail) {
		s.casualties()
		return Outcome{}
	}

	s.trace.RolledGold = s.roller.Between(s.tpl.LootGold.Min, s.tpl.LootGold.Max)
	s.trace.RolledScrap = s.roller.Between(s.tpl.LootScrap.Min, s.tpl.LootScrap.Max)
	s.trace.RewardFactor = s.rewardFactor()
	s.gold, s.scrap = s.trace.RolledGold, s.trace.RolledScrap
	s.scale(s.trace.RewardFactor)

	extracted := true
	extractFail := s.tpl.BaseExtractFail - levelBonus + s.sum(func(m TraitModifier) float64 { return m.ExtractFail })
	if s.chance(StepExtractFail, "", extractFail) {
		extracted = false
		if s.anyHolds(roster.MedicTrait) {
			s.scale(s.rules.MedicSalvage)
		} else {
			s.gold, s.scrap = 0, 0
		}
	}

	betrayed := false
	if allyMode {
		betrayal := s.rules.BetrayalBase - s.rules.BetrayalPerRadarLevel*float64(radarLevel)
		if s.chance(StepBetrayal, "", betrayal) {
			betrayed = true
			s.scale(s.rules.BetrayalLootFactor)
			s.betrayalKill()
		} else {
			s.scale(s.rules.AllyLootFactor)
		}
	}

	s.desertions()
	s.casualties()

	return Outcome{
		Success:           true,
		LootGold:          s.gold,
		LootScrap:         s.scrap,
		BetrayalOccurred:  betrayed,
		ExtractionSuccess: extracted,
	}
}

func (s *resolver) betrayalKill() {
	if !s.chance(StepBetrayKill, "", s.rules.BetrayalKillChance) {
		return
	}
	var alive []int
	for i, fate := range s.fates {
		if fate == Survived {
			alive = append(alive, i)
		}
	}
	if len(alive) == 0 {
		return
	}
	victim := alive[s.roller.Intn(len(alive))]
	s.fates[victim] = Killed
	s.trace.Victim = s.squad[victim].ID
}

// desertions lets each surviving Untrustworthy member steal a share of the
// remaining loot and leave.
func (s *resolver) desertions() {
	for i, c := range s.squad {
		if s.fates[i] != Survived || !c.HasTrait(roster.Untrustworthy) {
			continue
		}
		if s.chance(StepDesertion, c.ID, s.rules.DesertionChance) {
			s.gold -= int(math.Floor(float64(s.gold) * s.rules.DesertionTheft))
			s.scrap -= int(math.Floor(float64(s.scrap) * s.rules.DesertionTheft))
			s.fates[i] = Deserted
		}
	}
}

func (s *resolver) casualties() {
	base := s.rules.DeathBase[s.tpl.Difficulty]
	for i, c := range s.squad {
		if s.fates[i] != Survived {
			continue
		}
		p := clamp(base-s.rules.DeathPerLevel*float64(c.Level), s.rules.DeathMin, s.rules.DeathMax)
		if s.chance(StepCasualty, c.ID, p) {
			s.fates[i] = Killed
		}
	}
}

// chance clamps p to [0, 1], draws once and records the draw.
func (s *resolver) chance(step, subject string, p float64) bool {
	p = clamp(p, 0, 1)
	hit, value := dice.Chance(s.roller, p)
	s.trace.Rolls = append(s.trace.Rolls, Roll{Step: step, Subject: subject, Chance: p, Value: value, Hit: hit})
	return hit
}

func (s *resolver) scale(factor float64) {
	s.gold = scale(s.gold, factor)
	s.scrap = scale(s.scrap, factor)
}

func (s *resolver) averageLevel() float64 {
	if len(s.squad) == 0 {
		return 1
	}
	total := 0
	for _, c := range s.squad {
		total += c.Level
	}
	return float64(total) / float64(len(s.squad))
}

// sum adds one modifier per trait holder.
func (s *resolver) sum(pick func(TraitModifier) float64) float64 {
	total := 0.0
	for _, c := range s.squad {
		for _, t := range c.Traits {
			total += pick(s.rules.Traits[t])
		}
	}
	return total
}

// rewardFactor multiplies (1 + reward) once per trait holder.
func (s *resolver) rewardFactor() float64 {
	factor := 1.0
	for _, c := range s.squad {
		for _, t := range c.Traits {
			factor *= 1 + s.rules.Traits[t].Reward
		}
	}
	return factor
}

func (s *resolver) anyHolds(t roster.Trait) bool {
	for _, c := range s.squad {
		if c.HasTrait(t) {
			return true
		}
	}
	return false
}

func scale(value int, factor float64) int {
	return max(int(math.Round(float64(value)*factor)), 0)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
