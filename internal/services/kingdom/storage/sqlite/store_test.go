package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/core/filter"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/building"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/raid"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/resource"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/roster"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/storage"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/storage/cursor"
)

var epoch = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "kingdom.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func seedPlayer(t *testing.T, store *Store, id string) storage.Player {
	t.Helper()
	p := storage.Player{
		ID:           id,
		Username:     "user_" + id,
		PasswordHash: "hash",
		Ledger:       resource.Amounts{Wood: 60, Stone: 50, Scrap: 30, Gold: 30},
		CreatedAt:    epoch,
	}
	if err := store.CreatePlayer(context.Background(), p); err != nil {
		t.Fatalf("create player: %v", err)
	}
	return p
}

func seedCharacter(t *testing.T, store *Store, playerID, id string) roster.Character {
	t.Helper()
	c := roster.Character{ID: id, Name: "Ryn Ash", Class: roster.Scout, Status: roster.Idle, Level: 1, CreatedAt: epoch}
	if err := store.PutCharacter(context.Background(), playerID, c); err != nil {
		t.Fatalf("put character: %v", err)
	}
	return c
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), ""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestPlayerRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	want := seedPlayer(t, store, "p1")

	got, err := store.GetPlayer(ctx, "p1")
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if got != want {
		t.Fatalf("player = %+v, want %+v", got, want)
	}
	byName, err := store.GetPlayerByUsername(ctx, "user_p1")
	if err != nil || byName.ID != "p1" {
		t.Fatalf("get by username = %+v, %v", byName, err)
	}

	if err := store.PutLedger(ctx, "p1", resource.Amounts{Gold: 5}); err != nil {
		t.Fatalf("put ledger: %v", err)
	}
	got, err = store.GetPlayer(ctx, "p1")
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if got.Ledger != (resource.Amounts{Gold: 5}) {
		t.Fatalf("ledger = %+v", got.Ledger)
	}
}

func TestPlayerErrors(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	p := seedPlayer(t, store, "p1")

	p.ID = "p2"
	if err := store.CreatePlayer(ctx, p); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("duplicate username err = %v", err)
	}
	if _, err := store.GetPlayer(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing player err = %v", err)
	}
	if err := store.PutLedger(ctx, "missing", resource.Amounts{}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing ledger err = %v", err)
	}
}

func TestBuildingsRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	seedPlayer(t, store, "p1")

	set := building.NewSet(map[building.Type]int{building.TownHall: 1, building.LumberMill: 1}, epoch)
	for _, b := range set.Ordered() {
		if err := store.PutBuilding(ctx, "p1", b); err != nil {
			t.Fatalf("put building: %v", err)
		}
	}
	yard := set[building.TrainingYard]
	yard.Level = 2
	yard.RecruitsCount = 3
	yard.LastActionAt = epoch.Add(time.Minute)
	if err := store.PutBuilding(ctx, "p1", yard); err != nil {
		t.Fatalf("update building: %v", err)
	}

	got, err := store.ListBuildings(ctx, "p1")
	if err != nil {
		t.Fatalf("list buildings: %v", err)
	}
	if len(got) != len(building.Types) {
		t.Fatalf("buildings = %d", len(got))
	}
	if got[building.TrainingYard] != yard {
		t.Fatalf("yard = %+v, want %+v", got[building.TrainingYard], yard)
	}
	if mill := got[building.LumberMill]; mill.Level != 1 || !mill.LastActionAt.IsZero() || !mill.LastCollectedAt.Equal(epoch) {
		t.Fatalf("mill = %+v", mill)
	}
}

func TestCharactersRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	seedPlayer(t, store, "p1")
	seedPlayer(t, store, "p2")

	c := seedCharacter(t, store, "p1", "c1")
	c.Traits = []roster.Trait{roster.Looter, roster.MedicTrait}
	c.Level, c.XP, c.Status = 5, 12, roster.InRaid
	if err := store.PutCharacter(ctx, "p1", c); err != nil {
		t.Fatalf("put character: %v", err)
	}

	got, err := store.GetCharacter(ctx, "p1", "c1")
	if err != nil {
		t.Fatalf("get character: %v", err)
	}
	if got.Level != 5 || got.XP != 12 || got.Status != roster.InRaid || len(got.Traits) != 2 || got.Traits[1] != roster.MedicTrait {
		t.Fatalf("character = %+v", got)
	}
	if _, err := store.GetCharacter(ctx, "p2", "c1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("foreign character err = %v", err)
	}

	seedCharacter(t, store, "p1", "c2")
	all, err := store.ListCharacters(ctx, "p1")
	if err != nil {
		t.Fatalf("list characters: %v", err)
	}
	if len(all) != 2 || all[0].ID != "c1" || all[1].ID != "c2" {
		t.Fatalf("characters = %+v", all)
	}
}

func TestRaidRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	seedPlayer(t, store, "p1")
	seedCharacter(t, store, "p1", "a")
	seedCharacter(t, store, "p1", "b")

	r := raid.Raid{
		ID:       "r1",
		PlayerID: "p1",
		Map:      raid.RuinedFort,
		Status:   raid.InProgress,
		AllyMode: true,
		Members:  []raid.Member{{CharacterID: "a"}, {CharacterID: "b"}},
		StartAt:  epoch,
		EndAt:    epoch.Add(15 * time.Minute),
	}
	if err := store.PutRaid(ctx, r); err != nil {
		t.Fatalf("put raid: %v", err)
	}
	got, err := store.GetRaid(ctx, "p1", "r1")
	if err != nil {
		t.Fatalf("get raid: %v", err)
	}
	if got.Outcome != nil || !got.AllyMode || got.Status != raid.InProgress || len(got.Members) != 2 || got.Members[1].CharacterID != "b" {
		t.Fatalf("raid = %+v", got)
	}

	r.Status = raid.Resolved
	r.Outcome = &raid.Outcome{Success: true, LootGold: 14, LootScrap: 4, BetrayalOccurred: true, Casualties: 1}
	r.ResolvedAt = epoch.Add(time.Hour)
	r.Members = []raid.Member{{CharacterID: "a", Fate: raid.Survived, XPGained: 10}, {CharacterID: "b", Fate: raid.Killed}}
	if err := store.PutRaid(ctx, r); err != nil {
		t.Fatalf("update raid: %v", err)
	}
	got, err = store.GetRaid(ctx, "p1", "r1")
	if err != nil {
		t.Fatalf("get raid: %v", err)
	}
	if got.Outcome == nil || *got.Outcome != *r.Outcome || !got.ResolvedAt.Equal(r.ResolvedAt) {
		t.Fatalf("outcome = %+v at %v", got.Outcome, got.ResolvedAt)
	}
	if got.Members[0].Fate != raid.Survived || got.Members[0].XPGained != 10 || got.Members[1].Fate != raid.Killed {
		t.Fatalf("members = %+v", got.Members)
	}

	if _, err := store.GetRaid(ctx, "p2", "r1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("foreign raid err = %v", err)
	}
	active, err := store.ListActiveRaids(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("active = %+v", active)
	}
}

func TestListRaidsPagesAndFilters(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	seedPlayer(t, store, "p1")
	seedCharacter(t, store, "p1", "a")

	for i := range 5 {
		r := raid.Raid{
			ID:       fmt.Sprintf("r%d", i),
			PlayerID: "p1",
			Map:      raid.AbandonedOutpost,
			Status:   raid.InProgress,
			Members:  []raid.Member{{CharacterID: "a"}},
			StartAt:  epoch.Add(time.Duration(i) * time.Minute),
			EndAt:    epoch.Add(time.Duration(i+5) * time.Minute),
		}
		if i%2 == 0 {
			r.Map = raid.DeepWarrens
		}
		if err := store.PutRaid(ctx, r); err != nil {
			t.Fatalf("put raid: %v", err)
		}
	}

	first, err := store.ListRaids(ctx, storage.RaidQuery{PlayerID: "p1", Descending: true, Limit: 2})
	if err != nil {
		t.Fatalf("list raids: %v", err)
	}
	if len(first) != 2 || first[0].ID != "r4" || first[1].ID != "r3" {
		t.Fatalf("first page = %v", raidIDs(first))
	}

	last := first[1]
	after := cursor.NewNextPageCursor(toMillis(last.StartAt), last.ID, true, "", "")
	second, err := store.ListRaids(ctx, storage.RaidQuery{PlayerID: "p1", Descending: true, After: &after, Limit: 10})
	if err != nil {
		t.Fatalf("list raids: %v", err)
	}
	if ids := raidIDs(second); len(ids) != 3 || ids[0] != "r2" || ids[2] != "r0" {
		t.Fatalf("second page = %v", ids)
	}

	cond, err := filter.ParseRaidFilter(`map = "DEEP_WARRENS"`)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	deep, err := store.ListRaids(ctx, storage.RaidQuery{PlayerID: "p1", Where: cond, Limit: 10})
	if err != nil {
		t.Fatalf("list raids: %v", err)
	}
	if ids := raidIDs(deep); len(ids) != 3 || ids[0] != "r0" || ids[2] != "r4" {
		t.Fatalf("filtered = %v", ids)
	}

	active, err := store.ListActiveRaids(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 5 || len(active[0].Members) != 1 {
		t.Fatalf("active = %v", raidIDs(active))
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	seedPlayer(t, store, "p1")

	boom := errors.New("boom")
	err := store.InTx(ctx, func(q storage.Queries) error {
		if err := q.PutLedger(ctx, "p1", resource.Amounts{Gold: 999}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx err = %v", err)
	}
	got, err := store.GetPlayer(ctx, "p1")
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if got.Ledger.Gold != 30 {
		t.Fatalf("gold = %d, want rollback to 30", got.Ledger.Gold)
	}

	err = store.InTx(ctx, func(q storage.Queries) error {
		return q.PutLedger(ctx, "p1", resource.Amounts{Gold: 7})
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	got, err = store.GetPlayer(ctx, "p1")
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if got.Ledger.Gold != 7 {
		t.Fatalf("gold = %d, want 7", got.Ledger.Gold)
	}
}

func raidIDs(raids []raid.Raid) []string {
	ids := make([]string, len(raids))
	for i, r := range raids {
		ids[i] = r.ID
	}
	return ids
}
