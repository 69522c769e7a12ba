package raid

import (
	"math"
	"testing"
	"time"

	"github.com/louisbranch/throne-of-dust/internal/core/dice"
	"github.com/louisbranch/throne-of-dust/internal/core/dice/mocks"
	apperrors "github.com/louisbranch/throne-of-dust/internal/platform/errors"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/resource"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/roster"
	"go.uber.org/mock/gomock"
)

var resolvedAt = epoch.Add(time.Hour)

func TestResolveCleanSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	roller := mocks.NewMockRoller(ctrl)
	gomock.InOrder(
		roller.EXPECT().Float().Return(0.5),
		roller.EXPECT().Between(12, 20).Return(16),
		roller.EXPECT().Between(3, 8).Return(5),
		roller.EXPECT().Float().Return(0.9),
		roller.EXPECT().Float().Return(0.5),
		roller.EXPECT().Float().Return(0.5),
	)

	in := Input{
		Raid:         inProgress(AbandonedOutpost, false, "a", "b"),
		Members:      []roster.Character{idle("a", 1), idle("b", 1)},
		Ledger:       resource.Amounts{Gold: 90, Scrap: 98},
		StorageLimit: 100,
	}
	in.Members[0].Status = roster.InRaid
	in.Members[1].Status = roster.InRaid
	in.Members[1].XP = 45

	got, err := Resolve(in, resolvedAt, roller, testRules(), testRosterRules())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	out := got.Raid.Outcome
	if out == nil || !out.Success || !out.ExtractionSuccess || out.BetrayalOccurred || out.Casualties != 0 {
		t.Fatalf("outcome = %+v", out)
	}
	if out.LootGold != 16 || out.LootScrap != 5 {
		t.Fatalf("loot = %d/%d", out.LootGold, out.LootScrap)
	}
	if got.Raid.Status != Resolved || !got.Raid.ResolvedAt.Equal(resolvedAt) {
		t.Fatalf("raid = %+v", got.Raid)
	}
	if got.Ledger != (resource.Amounts{Gold: 106, Scrap: 100}) {
		t.Fatalf("ledger = %+v", got.Ledger)
	}
	if got.Credited != (resource.Amounts{Gold: 16, Scrap: 2}) {
		t.Fatalf("credited = %+v", got.Credited)
	}
	a, b := got.Members[0], got.Members[1]
	if a.Status != roster.Idle || a.Level != 1 || a.XP != 10 {
		t.Fatalf("a = %+v", a)
	}
	if b.Status != roster.Idle || b.Level != 2 || b.XP != 5 {
		t.Fatalf("b = %+v", b)
	}
	for _, m := range got.Raid.Members {
		if m.Fate != Survived || m.XPGained != 10 {
			t.Fatalf("member = %+v", m)
		}
	}
	if len(got.Trace.Rolls) != 4 || got.Trace.RolledGold != 16 || got.Trace.RewardFactor != 1 {
		t.Fatalf("trace = %+v", got.Trace)
	}
	if in.Raid.Status != InProgress {
		t.Fatal("input raid must not be mutated")
	}
}

func TestResolveRaidFailureSkipsLoot(t *testing.T) {
	ctrl := gomock.NewController(t)
	roller := mocks.NewMockRoller(ctrl)
	gomock.InOrder(
		roller.EXPECT().Float().Return(0.1),
		roller.EXPECT().Float().Return(0.01),
		roller.EXPECT().Float().Return(0.9),
	)

	in := Input{
		Raid:         inProgress(AbandonedOutpost, false, "a", "b"),
		Members:      []roster.Character{idle("a", 1), idle("b", 1)},
		Ledger:       resource.Amounts{Gold: 90},
		StorageLimit: 100,
	}
	got, err := Resolve(in, resolvedAt, roller, testRules(), testRosterRules())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	out := got.Raid.Outcome
	if out.Success || out.ExtractionSuccess || out.LootGold != 0 || out.LootScrap != 0 || out.Casualties != 1 {
		t.Fatalf("outcome = %+v", out)
	}
	if got.Ledger != in.Ledger {
		t.Fatalf("ledger changed: %+v", got.Ledger)
	}
	if got.Members[0].Status != roster.Dead || got.Raid.Members[0].Fate != Killed || got.Raid.Members[0].XPGained != 0 {
		t.Fatalf("a = %+v / %+v", got.Members[0], got.Raid.Members[0])
	}
	if got.Members[1].Status != roster.Idle || got.Members[1].XP != 5 {
		t.Fatalf("b = %+v", got.Members[1])
	}
}

func TestResolveAllyBetrayalWithMedicSalvage(t *testing.T) {
	ctrl := gomock.NewController(t)
	roller := mocks.NewMockRoller(ctrl)
	gomock.InOrder(
		roller.EXPECT().Float().Return(0.5),
		roller.EXPECT().Between(30, 50).Return(40),
		roller.EXPECT().Between(10, 18).Return(12),
		roller.EXPECT().Float().Return(0.1),
		roller.EXPECT().Float().Return(0.05),
		roller.EXPECT().Float().Return(0.2),
		roller.EXPECT().Intn(2).Return(1),
		roller.EXPECT().Float().Return(0.5),
	)

	in := Input{
		Raid:         inProgress(RuinedFort, true, "looter", "medic"),
		Members:      []roster.Character{idle("looter", 1, roster.Looter), idle("medic", 1, roster.MedicTrait)},
		RadarLevel:   2,
		StorageLimit: 500,
	}
	got, err := Resolve(in, resolvedAt, roller, testRules(), testRosterRules())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	out := got.Raid.Outcome
	if !out.Success || out.ExtractionSuccess || !out.BetrayalOccurred || out.Casualties != 1 {
		t.Fatalf("outcome = %+v", out)
	}
	// 40*1.15=46 -> salvage 23 -> betrayal 14; 12*1.15=14 -> 7 -> 4.
	if out.LootGold != 14 || out.LootScrap != 4 {
		t.Fatalf("loot = %d/%d", out.LootGold, out.LootScrap)
	}
	if got.Trace.Victim != "medic" || got.Members[1].Status != roster.Dead {
		t.Fatalf("victim = %q, medic = %+v", got.Trace.Victim, got.Members[1])
	}
	steps := []string{StepRaidFail, StepExtractFail, StepBetrayal, StepBetrayKill, StepCasualty}
	if len(got.Trace.Rolls) != len(steps) {
		t.Fatalf("rolls = %+v", got.Trace.Rolls)
	}
	for i, step := range steps {
		if got.Trace.Rolls[i].Step != step {
			t.Fatalf("roll %d = %s, want %s", i, got.Trace.Rolls[i].Step, step)
		}
	}
	if c := got.Trace.Rolls[0].Chance; math.Abs(c-0.20) > 1e-9 {
		t.Fatalf("raid fail chance = %v", c)
	}
	if c := got.Trace.Rolls[2].Chance; math.Abs(c-0.16) > 1e-9 {
		t.Fatalf("betrayal chance = %v", c)
	}
}

func TestResolveAllyBonusAndDesertion(t *testing.T) {
	ctrl := gomock.NewController(t)
	roller := mocks.NewMockRoller(ctrl)
	gomock.InOrder(
		roller.EXPECT().Float().Return(0.3),
		roller.EXPECT().Between(12, 20).Return(20),
		roller.EXPECT().Between(3, 8).Return(8),
		roller.EXPECT().Float().Return(0.5),
		roller.EXPECT().Float().Return(0.9),
		roller.EXPECT().Float().Return(0.05),
		roller.EXPECT().Float().Return(0.9),
	)

	in := Input{
		Raid:         inProgress(AbandonedOutpost, true, "shifty", "loyal"),
		Members:      []roster.Character{idle("shifty", 1, roster.Untrustworthy), idle("loyal", 1)},
		StorageLimit: 100,
	}
	got, err := Resolve(in, resolvedAt, roller, testRules(), testRosterRules())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	out := got.Raid.Outcome
	// 20*1.05=21, 8*1.05=8; desertion takes floor(10%).
	if out.LootGold != 19 || out.LootScrap != 8 || out.Casualties != 1 || out.BetrayalOccurred {
		t.Fatalf("outcome = %+v", out)
	}
	if got.Raid.Members[0].Fate != Deserted || got.Members[0].Status != roster.Dead {
		t.Fatalf("shifty = %+v", got.Raid.Members[0])
	}
	if got.Raid.Members[1].Fate != Survived || got.Members[1].XP != 10 {
		t.Fatalf("loyal = %+v", got.Raid.Members[1])
	}
	if c := got.Trace.Rolls[0].Chance; c != 0 {
		t.Fatalf("raid fail chance should clamp to 0, got %v", c)
	}
}

func TestResolveLevelBonusLowersRaidFail(t *testing.T) {
	ctrl := gomock.NewController(t)
	roller := mocks.NewMockRoller(ctrl)
	roller.EXPECT().Float().Return(0.0).Times(3)

	in := Input{
		Raid:    inProgress(AbandonedOutpost, false, "a", "b"),
		Members: []roster.Character{idle("a", 3), idle("b", 3)},
	}
	got, err := Resolve(in, resolvedAt, roller, testRules(), testRosterRules())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if c := got.Trace.Rolls[0].Chance; math.Abs(c-0.14) > 1e-9 {
		t.Fatalf("raid fail chance = %v", c)
	}
	// level 3 casualty chance: 0.05 - 0.03
	if c := got.Trace.Rolls[1].Chance; math.Abs(c-0.02) > 1e-9 {
		t.Fatalf("casualty chance = %v", c)
	}
}

func TestResolveRejectsInvalidState(t *testing.T) {
	done := inProgress(AbandonedOutpost, false, "a")
	done.Status = Resolved
	scheduled := inProgress(AbandonedOutpost, false, "a")
	scheduled.Status = Scheduled

	tests := []struct {
		name string
		raid Raid
		now  time.Time
	}{
		{"already resolved", done, resolvedAt},
		{"not started", scheduled, resolvedAt},
		{"before end", inProgress(AbandonedOutpost, false, "a"), epoch.Add(time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Input{Raid: tt.raid, Members: []roster.Character{idle("a", 1)}}
			_, err := Resolve(in, tt.now, dice.NewSeeded(1), testRules(), testRosterRules())
			if !apperrors.IsCode(err, apperrors.CodeInvalidState) {
				t.Fatalf("expected INVALID_STATE, got %v", err)
			}
		})
	}
}

func TestResolveRejectsMismatchedMembers(t *testing.T) {
	in := Input{Raid: inProgress(AbandonedOutpost, false, "a"), Members: []roster.Character{idle("b", 1)}}
	if _, err := Resolve(in, resolvedAt, dice.NewSeeded(1), testRules(), testRosterRules()); err == nil {
		t.Fatal("expected error")
	}
}

func TestResolveIsReproducibleFromSeed(t *testing.T) {
	in := Input{
		Raid:         inProgress(DeepWarrens, true, "a", "b", "c"),
		Members:      []roster.Character{idle("a", 2, roster.Untrustworthy), idle("b", 4, roster.Looter), idle("c", 1, roster.MedicTrait)},
		StorageLimit: 1000,
	}
	first, err := Resolve(in, resolvedAt, dice.NewSeeded(42), testRules(), testRosterRules())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	second, err := Resolve(in, resolvedAt, dice.NewSeeded(42), testRules(), testRosterRules())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if *first.Raid.Outcome != *second.Raid.Outcome || len(first.Trace.Rolls) != len(second.Trace.Rolls) {
		t.Fatalf("outcomes differ: %+v vs %+v", first.Raid.Outcome, second.Raid.Outcome)
	}
}

func TestAbandonedOutpostFailureRate(t *testing.T) {
	const runs = 20000
	roller := dice.NewSeeded(7)
	failures := 0
	for range runs {
		in := Input{
			Raid:    inProgress(AbandonedOutpost, false, "a"),
			Members: []roster.Character{idle("a", 1)},
		}
		got, err := Resolve(in, resolvedAt, roller, testRules(), testRosterRules())
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if !got.Raid.Outcome.Success {
			failures++
		}
	}
	rate := float64(failures) / runs
	if rate < 0.135 || rate > 0.165 {
		t.Fatalf("failure rate = %.3f, want about 0.15", rate)
	}
}
