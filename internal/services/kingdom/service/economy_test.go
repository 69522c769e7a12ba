package service

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/louisbranch/throne-of-dust/internal/platform/errors"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/building"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/resource"
)

func TestCollectCreditsHourlyProduction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	playerID := f.register(t, "ash_lord")

	f.clock.Advance(time.Hour)
	result, err := f.svc.Collect(ctx, playerID)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	want := resource.Amounts{Wood: 30, Stone: 25, Scrap: 20}
	if result.Applied != want {
		t.Fatalf("applied = %+v, want %+v", result.Applied, want)
	}
	if result.Ledger != (resource.Amounts{Wood: 90, Stone: 75, Scrap: 50, Gold: 30}) {
		t.Fatalf("ledger = %+v", result.Ledger)
	}

	again, err := f.svc.Collect(ctx, playerID)
	if err != nil {
		t.Fatalf("collect again: %v", err)
	}
	if !again.Applied.IsZero() {
		t.Fatalf("second collect applied %+v", again.Applied)
	}
}

func TestCollectTruncatesAtStorageLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	playerID := f.register(t, "ash_lord")

	if err := f.store.PutLedger(ctx, playerID, resource.Amounts{Wood: 2240, Gold: 5}); err != nil {
		t.Fatalf("put ledger: %v", err)
	}
	f.clock.Advance(time.Hour)
	result, err := f.svc.Collect(ctx, playerID)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if result.Ledger.Wood != 2250 || result.Applied.Wood != 10 {
		t.Fatalf("wood = %d applied %d", result.Ledger.Wood, result.Applied.Wood)
	}
}

func TestCollectBuilding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	playerID := f.register(t, "ash_lord")
	f.clock.Advance(2 * time.Hour)

	result, err := f.svc.CollectBuilding(ctx, playerID, building.Quarry)
	if err != nil {
		t.Fatalf("collect quarry: %v", err)
	}
	if result.Applied != (resource.Amounts{Stone: 50}) {
		t.Fatalf("applied = %+v", result.Applied)
	}
	if len(result.Buildings) != 1 || !result.Buildings[0].LastCollectedAt.Equal(f.clock.Now()) {
		t.Fatalf("buildings = %+v", result.Buildings)
	}

	// The lumber mill still holds its two hours.
	mill, err := f.svc.CollectBuilding(ctx, playerID, building.LumberMill)
	if err != nil {
		t.Fatalf("collect mill: %v", err)
	}
	if mill.Applied.Wood != 60 {
		t.Fatalf("wood applied = %d, want 60", mill.Applied.Wood)
	}

	none, err := f.svc.CollectBuilding(ctx, playerID, building.TownHall)
	if err != nil {
		t.Fatalf("collect town hall: %v", err)
	}
	if !none.Applied.IsZero() || len(none.Buildings) != 0 {
		t.Fatalf("town hall collect = %+v", none)
	}

	_, err = f.svc.CollectBuilding(ctx, playerID, building.Type("CASTLE"))
	assertCode(t, err, apperrors.CodeInvalidArgument)
}

func TestUpgradePaysAndGates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	playerID := f.register(t, "ash_lord")

	result, err := f.svc.Upgrade(ctx, playerID, building.Radar)
	if err != nil {
		t.Fatalf("upgrade radar: %v", err)
	}
	if result.Building.Level != 1 || !result.Building.LastActionAt.Equal(epoch) {
		t.Fatalf("radar = %+v", result.Building)
	}
	if result.Ledger != (resource.Amounts{Wood: 20, Stone: 15, Scrap: 15, Gold: 30}) {
		t.Fatalf("ledger = %+v", result.Ledger)
	}

	_, err = f.svc.Upgrade(ctx, playerID, building.Radar)
	assertCode(t, err, apperrors.CodeInsufficientResources)
	state, err := f.svc.State(ctx, playerID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.Ledger != result.Ledger {
		t.Fatalf("failed upgrade changed ledger: %+v", state.Ledger)
	}

	if err := f.store.PutLedger(ctx, playerID, resource.Amounts{Wood: 1000, Stone: 1000, Scrap: 1000}); err != nil {
		t.Fatalf("put ledger: %v", err)
	}
	if _, err := f.svc.Upgrade(ctx, playerID, building.Radar); err != nil {
		t.Fatalf("upgrade radar to 2: %v", err)
	}
	_, err = f.svc.Upgrade(ctx, playerID, building.Radar)
	assertCode(t, err, apperrors.CodeGatingViolation)

	if _, err := f.svc.Upgrade(ctx, playerID, building.TownHall); err != nil {
		t.Fatalf("upgrade town hall: %v", err)
	}
	if _, err := f.svc.Upgrade(ctx, playerID, building.Radar); err != nil {
		t.Fatalf("upgrade radar after town hall: %v", err)
	}

	_, err = f.svc.Upgrade(ctx, playerID, building.Type("CASTLE"))
	assertCode(t, err, apperrors.CodeInvalidArgument)
}

func TestLumberMillUpgradeWithoutWood(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	playerID := f.register(t, "ash_lord")

	if err := f.store.PutLedger(ctx, playerID, resource.Amounts{Gold: 100}); err != nil {
		t.Fatalf("put ledger: %v", err)
	}
	state, err := f.svc.State(ctx, playerID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	mill := state.Buildings[1]
	mill.Level = 0
	if err := f.store.PutBuilding(ctx, playerID, mill); err != nil {
		t.Fatalf("put building: %v", err)
	}

	_, err = f.svc.Upgrade(ctx, playerID, building.LumberMill)
	assertCode(t, err, apperrors.CodeInsufficientResources)

	state, err = f.svc.State(ctx, playerID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.Ledger.Gold != 100 {
		t.Fatalf("gold = %d, want 100", state.Ledger.Gold)
	}
	if cost := state.UpgradeCosts[building.LumberMill]; cost != (resource.Amounts{Wood: 40, Stone: 35, Scrap: 15}) {
		t.Fatalf("lumber mill cost = %+v", cost)
	}
}
