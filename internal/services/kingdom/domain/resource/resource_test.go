package resource

import (
	"testing"

	apperrors "github.com/louisbranch/throne-of-dust/internal/platform/errors"
)

func TestSpend(t *testing.T) {
	ledger := Amounts{Wood: 100, Stone: 50, Scrap: 20, Gold: 100}

	next, err := ledger.Spend(Amounts{Wood: 40, Stone: 35, Scrap: 15})
	if err != nil {
		t.Fatalf("spend: %v", err)
	}
	want := Amounts{Wood: 60, Stone: 15, Scrap: 5, Gold: 100}
	if next != want {
		t.Fatalf("Spend = %+v, want %+v", next, want)
	}
}

func TestSpendIsAllOrNothing(t *testing.T) {
	ledger := Amounts{Wood: 0, Stone: 50, Scrap: 20, Gold: 100}

	next, err := ledger.Spend(Amounts{Wood: 40, Stone: 35, Scrap: 15})
	if !apperrors.IsCode(err, apperrors.CodeInsufficientResources) {
		t.Fatalf("expected insufficient resources, got %v", err)
	}
	if next != ledger {
		t.Fatalf("ledger changed on failure: %+v", next)
	}
	meta := apperrors.GetMetadata(err)
	if meta["Resource"] != "WOOD" || meta["Required"] != "40" || meta["Available"] != "0" {
		t.Fatalf("unexpected metadata %v", meta)
	}
}

func TestSpendRejectsNegativeCost(t *testing.T) {
	if _, err := (Amounts{}).Spend(Amounts{Gold: -5}); !apperrors.IsCode(err, apperrors.CodeInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestCreditCapsStorage(t *testing.T) {
	tests := []struct {
		name        string
		ledger      Amounts
		delta       Amounts
		limit       int
		wantLedger  Amounts
		wantApplied Amounts
	}{
		{
			name:        "under cap",
			ledger:      Amounts{Wood: 10},
			delta:       Amounts{Wood: 30, Gold: 25},
			limit:       1500,
			wantLedger:  Amounts{Wood: 40, Gold: 25},
			wantApplied: Amounts{Wood: 30, Gold: 25},
		},
		{
			name:        "truncated at cap",
			ledger:      Amounts{Wood: 1490, Stone: 1500, Scrap: 1400},
			delta:       Amounts{Wood: 30, Stone: 5, Scrap: 20},
			limit:       1500,
			wantLedger:  Amounts{Wood: 1500, Stone: 1500, Scrap: 1420},
			wantApplied: Amounts{Wood: 10, Stone: 0, Scrap: 20},
		},
		{
			name:        "gold uncapped",
			ledger:      Amounts{Gold: 5000},
			delta:       Amounts{Gold: 900},
			limit:       1500,
			wantLedger:  Amounts{Gold: 5900},
			wantApplied: Amounts{Gold: 900},
		},
		{
			name:        "negative delta ignored",
			ledger:      Amounts{Wood: 10},
			delta:       Amounts{Wood: -10},
			limit:       1500,
			wantLedger:  Amounts{Wood: 10},
			wantApplied: Amounts{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, applied := tt.ledger.Credit(tt.delta, tt.limit)
			if got != tt.wantLedger {
				t.Fatalf("ledger = %+v, want %+v", got, tt.wantLedger)
			}
			if applied != tt.wantApplied {
				t.Fatalf("applied = %+v, want %+v", applied, tt.wantApplied)
			}
			for _, kind := range Kinds {
				if kind.Capped() && got.Get(kind) > tt.limit && tt.ledger.Get(kind) <= tt.limit {
					t.Fatalf("%s above limit: %d", kind, got.Get(kind))
				}
			}
		})
	}
}

func TestCreditNeverLowersOverfullCounter(t *testing.T) {
	got, applied := Amounts{Scrap: 1600}.Credit(Amounts{Scrap: 10}, 1500)
	if got.Scrap != 1600 || applied.Scrap != 0 {
		t.Fatalf("got %+v applied %+v", got, applied)
	}
}

func TestStorageLimit(t *testing.T) {
	rules := Rules{StorageBase: 1500, StoragePerLevel: 750}
	for level, want := range map[int]int{0: 1500, 1: 2250, 4: 4500} {
		if got := rules.StorageLimit(level); got != want {
			t.Fatalf("StorageLimit(%d) = %d, want %d", level, got, want)
		}
	}
	limits := rules.Limits(1)
	if limits.Wood != 2250 || limits.Gold != -1 {
		t.Fatalf("Limits(1) = %+v", limits)
	}
}

func TestParseKind(t *testing.T) {
	for _, kind := range Kinds {
		got, err := ParseKind(string(kind))
		if err != nil || got != kind {
			t.Fatalf("ParseKind(%s) = %s, %v", kind, got, err)
		}
	}
	if _, err := ParseKind("wood"); err == nil {
		t.Fatal("expected lowercase name to be rejected")
	}
}

func TestRulesValidate(t *testing.T) {
	valid := Rules{Starting: Amounts{Wood: 60, Stone: 50, Scrap: 30, Gold: 30}, StorageBase: 1500, StoragePerLevel: 750}
	if err := valid.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	bad := valid
	bad.Starting.Gold = -1
	if err := bad.Validate(); err == nil {
		t.Fatal("expected negative start rejected")
	}
	bad = valid
	bad.StorageBase = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected zero storage rejected")
	}
	bad = valid
	bad.Starting.Wood = 2000
	if err := bad.Validate(); err == nil {
		t.Fatal("expected overfull start rejected")
	}
}
