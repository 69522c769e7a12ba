package building

import (
	"testing"
	"time"

	apperrors "github.com/louisbranch/throne-of-dust/internal/platform/errors"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/resource"
)

var testRules = Rules{
	StarterLevels: map[Type]int{
		TownHall: 1, LumberMill: 1, Quarry: 1, Mine: 1,
		Treasury: 0, Storehouse: 1, TrainingYard: 1, Radar: 0,
	},
	UpgradeCost: resource.Amounts{Wood: 40, Stone: 35, Scrap: 15},
	Production: map[Type]Production{
		LumberMill: {Resource: resource.Wood, PerLevelHour: 30},
		Quarry:     {Resource: resource.Stone, PerLevelHour: 25},
		Mine:       {Resource: resource.Scrap, PerLevelHour: 20},
		Treasury:   {Resource: resource.Gold, PerLevelHour: 25},
	},
}

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestUpgradeInsufficientWoodLeavesGold(t *testing.T) {
	set := NewSet(map[Type]int{TownHall: 1}, epoch)
	ledger := resource.Amounts{Stone: 100, Scrap: 100, Gold: 100}

	_, next, err := Upgrade(set, LumberMill, ledger, epoch, testRules)
	if !apperrors.IsCode(err, apperrors.CodeInsufficientResources) {
		t.Fatalf("expected insufficient resources, got %v", err)
	}
	if next.Gold != 100 || next != ledger {
		t.Fatalf("ledger changed: %+v", next)
	}
	if cost := testRules.CostFor(0); cost != (resource.Amounts{Wood: 40, Stone: 35, Scrap: 15}) {
		t.Fatalf("CostFor(0) = %+v", cost)
	}
}

func TestUpgradeDebitsAndStamps(t *testing.T) {
	set := NewSet(testRules.StarterLevels, epoch)
	ledger := resource.Amounts{Wood: 200, Stone: 200, Scrap: 200, Gold: 7}
	now := epoch.Add(time.Minute)

	b, next, err := Upgrade(set, LumberMill, ledger, now, testRules)
	if err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if b.Level != 2 {
		t.Fatalf("level = %d, want 2", b.Level)
	}
	if !b.LastActionAt.Equal(now) {
		t.Fatalf("last action = %v", b.LastActionAt)
	}
	want := resource.Amounts{Wood: 120, Stone: 130, Scrap: 170, Gold: 7}
	if next != want {
		t.Fatalf("ledger = %+v, want %+v", next, want)
	}
}

func TestUpgradeGating(t *testing.T) {
	set := NewSet(map[Type]int{TownHall: 1, Radar: 2}, epoch)
	rich := resource.Amounts{Wood: 10000, Stone: 10000, Scrap: 10000}

	_, next, err := Upgrade(set, Radar, rich, epoch, testRules)
	if !apperrors.IsCode(err, apperrors.CodeGatingViolation) {
		t.Fatalf("expected gating violation, got %v", err)
	}
	if next != rich {
		t.Fatal("ledger changed on gating failure")
	}

	// Gating takes precedence over affordability.
	_, _, err = Upgrade(set, Radar, resource.Amounts{}, epoch, testRules)
	if !apperrors.IsCode(err, apperrors.CodeGatingViolation) {
		t.Fatalf("expected gating before affordability, got %v", err)
	}

	if _, _, err := Upgrade(set, TownHall, rich, epoch, testRules); err != nil {
		t.Fatalf("town hall is never gated: %v", err)
	}
}

func TestUpgradeSequenceKeepsInvariant(t *testing.T) {
	set := NewSet(testRules.StarterLevels, epoch)
	ledger := resource.Amounts{Wood: 100000, Stone: 100000, Scrap: 100000}
	order := []Type{LumberMill, LumberMill, LumberMill, TownHall, LumberMill, LumberMill, Radar, Radar, Radar}
	for _, t2 := range order {
		b, next, err := Upgrade(set, t2, ledger, epoch, testRules)
		if err == nil {
			set[t2] = b
			ledger = next
		}
		for _, kind := range resource.Kinds {
			if ledger.Get(kind) < 0 {
				t.Fatalf("%s negative", kind)
			}
		}
		for _, bt := range Types {
			if bt != TownHall && set.Level(bt) > set.Level(TownHall)+1 {
				t.Fatalf("%s level %d above town hall %d", bt, set.Level(bt), set.Level(TownHall))
			}
		}
	}
	if set.Level(LumberMill) != 3 || set.Level(TownHall) != 2 || set.Level(Radar) != 3 {
		t.Fatalf("unexpected levels %d %d %d", set.Level(LumberMill), set.Level(TownHall), set.Level(Radar))
	}
}

func TestProduced(t *testing.T) {
	b := Building{Type: LumberMill, Level: 2, LastCollectedAt: epoch}
	tests := []struct {
		elapsed time.Duration
		want    int
	}{
		{0, 0},
		{-time.Hour, 0},
		{time.Hour, 60},
		{90 * time.Minute, 90},
		{59 * time.Second, 0},
		{61 * time.Second, 1},
	}
	for _, tt := range tests {
		got := Produced(b, epoch.Add(tt.elapsed), testRules)
		if got.Wood != tt.want {
			t.Fatalf("Produced(%v) = %d, want %d", tt.elapsed, got.Wood, tt.want)
		}
	}
	if got := Produced(Building{Type: Radar, Level: 3, LastCollectedAt: epoch}, epoch.Add(time.Hour), testRules); !got.IsZero() {
		t.Fatalf("radar produced %+v", got)
	}
}

func TestCollect(t *testing.T) {
	set := NewSet(testRules.StarterLevels, epoch)
	b := set[Treasury]
	b.Level = 1
	set[Treasury] = b
	now := epoch.Add(2 * time.Hour)

	res := Collect(set, resource.Amounts{Wood: 1480}, 1500, now, testRules)
	want := resource.Amounts{Wood: 20, Stone: 50, Scrap: 40, Gold: 50}
	if res.Applied != want {
		t.Fatalf("applied = %+v, want %+v", res.Applied, want)
	}
	if res.Ledger.Wood != 1500 {
		t.Fatalf("wood = %d, want cap", res.Ledger.Wood)
	}
	if len(res.Buildings) != 4 {
		t.Fatalf("expected 4 producers, got %d", len(res.Buildings))
	}
	for _, b := range res.Buildings {
		if !b.LastCollectedAt.Equal(now) {
			t.Fatalf("%s not stamped", b.Type)
		}
	}
}

func TestCollectOne(t *testing.T) {
	set := NewSet(testRules.StarterLevels, epoch)
	now := epoch.Add(time.Hour)

	res := CollectOne(set, Quarry, resource.Amounts{}, 1500, now, testRules)
	if res.Applied != (resource.Amounts{Stone: 25}) || len(res.Buildings) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	res = CollectOne(set, Radar, resource.Amounts{Gold: 3}, 1500, now, testRules)
	if !res.Applied.IsZero() || len(res.Buildings) != 0 || res.Ledger.Gold != 3 {
		t.Fatalf("radar collect = %+v", res)
	}
}

func TestParseType(t *testing.T) {
	for _, bt := range Types {
		if got, err := ParseType(string(bt)); err != nil || got != bt {
			t.Fatalf("ParseType(%s) = %s, %v", bt, got, err)
		}
	}
	if _, err := ParseType("CASTLE"); !apperrors.IsCode(err, apperrors.CodeInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestRulesValidate(t *testing.T) {
	if err := testRules.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	bad := testRules
	bad.StarterLevels = map[Type]int{TownHall: 1}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected missing starter level error")
	}
	bad = testRules
	bad.Production = map[Type]Production{LumberMill: {Resource: "TIMBER", PerLevelHour: 1}}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected unknown resource error")
	}
}
