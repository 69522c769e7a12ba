package audit

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/raid"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/resource"
)

func readAll(t *testing.T, path string) []Record {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var records []Record
	if err := Decode(f, func(rec Record) error {
		records = append(records, rec)
		return nil
	}); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return records
}

func TestWriterRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 3, 1, 12, 59, 0, 0, time.UTC)
	w := NewWriter(dir)
	w.now = func() time.Time { return now }

	rec := Record{
		RaidID:   "r1",
		PlayerID: "p1",
		Map:      raid.RuinedFort,
		Seed:     42,
		Trace:    raid.Trace{Rolls: []raid.Roll{{Step: raid.StepRaidFail, Chance: 0.2, Value: 0.5}}, RolledGold: 40},
		Outcome:  raid.Outcome{Success: true, LootGold: 14},
		Credited: resource.Amounts{Gold: 14},
		Members:  []raid.Member{{CharacterID: "a", Fate: raid.Survived, XPGained: 10}},
	}
	if err := w.Write(rec); err != nil {
		t.Fatalf("write: %v", err)
	}
	second := rec
	second.RaidID = "r2"
	if err := w.Write(second); err != nil {
		t.Fatalf("write: %v", err)
	}
	now = now.Add(time.Minute)
	third := rec
	third.RaidID = "r3"
	if err := w.Write(third); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	noon := readAll(t, filepath.Join(dir, "raids-2025-03-01-12.jsonl.zst"))
	if len(noon) != 2 || noon[0].RaidID != "r1" || noon[1].RaidID != "r2" {
		t.Fatalf("noon records = %+v", noon)
	}
	got := noon[0]
	if got.Seed != 42 || got.Trace.RolledGold != 40 || len(got.Trace.Rolls) != 1 || got.Outcome.LootGold != 14 || got.Members[0].Fate != raid.Survived {
		t.Fatalf("record = %+v", got)
	}

	one := readAll(t, w.PathForHour(now))
	if len(one) != 1 || one[0].RaidID != "r3" {
		t.Fatalf("13h records = %+v", one)
	}
}

func TestWriterAppendsAfterReopen(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, id := range []string{"r1", "r2"} {
		w := NewWriter(dir)
		w.now = func() time.Time { return now }
		if err := w.Write(Record{RaidID: id}); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	records := readAll(t, filepath.Join(dir, "raids-2025-03-01-12.jsonl.zst"))
	if len(records) != 2 || records[1].RaidID != "r2" {
		t.Fatalf("records = %+v", records)
	}
}

func TestNewRecord(t *testing.T) {
	resolvedAt := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
	res := raid.Resolution{
		Raid: raid.Raid{
			ID:         "r1",
			PlayerID:   "p1",
			Map:        raid.DeepWarrens,
			AllyMode:   true,
			Outcome:    &raid.Outcome{Success: false, Casualties: 2},
			ResolvedAt: resolvedAt,
		},
		Credited: resource.Amounts{},
	}
	rec := NewRecord(res, 3, 99)
	if rec.RaidID != "r1" || !rec.AllyMode || rec.RadarLevel != 3 || rec.Seed != 99 || rec.Outcome.Casualties != 2 || !rec.ResolvedAt.Equal(resolvedAt) {
		t.Fatalf("record = %+v", rec)
	}
}
