package wire

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	apperrors "github.com/louisbranch/throne-of-dust/internal/platform/errors"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/raid"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/roster"
)

func TestDecodeAcceptsValidBodies(t *testing.T) {
	var start StartRaidRequest
	if err := Decode(SchemaStartRaid, []byte(`{"map":"RUINED_FORT","memberIds":["a","b"],"allyMode":true}`), &start); err != nil {
		t.Fatalf("decode start: %v", err)
	}
	req := start.Domain()
	if req.Map != raid.RuinedFort || len(req.MemberIDs) != 2 || !req.AllyMode {
		t.Fatalf("start = %+v", req)
	}

	var recruit RecruitRequest
	if err := Decode(SchemaRecruit, nil, &recruit); err != nil {
		t.Fatalf("decode empty recruit: %v", err)
	}
	if err := Decode(SchemaRecruit, []byte(`{"characterClass":"MEDIC","traits":["LOOTER"]}`), &recruit); err != nil {
		t.Fatalf("decode recruit: %v", err)
	}
	if got := recruit.Domain(); got.Class != roster.Medic || got.Traits[0] != roster.Looter {
		t.Fatalf("recruit = %+v", got)
	}

	var list ListRaidsRequest
	if err := Decode(SchemaListRaids, []byte(`{"pageSize":20,"filter":"success = true"}`), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Service().PageSize != 20 {
		t.Fatalf("list = %+v", list)
	}
}

func TestDecodeRejectsInvalidBodies(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		body   string
		field  string
	}{
		{name: "missing password", schema: SchemaCredentials, body: `{"username":"ash"}`, field: "body"},
		{name: "unknown field", schema: SchemaCredentials, body: `{"username":"ash","password":"x","admin":true}`, field: "body"},
		{name: "wrong type", schema: SchemaStartRaid, body: `{"map":"RUINED_FORT","memberIds":"a"}`, field: "memberIds"},
		{name: "unknown class", schema: SchemaRecruit, body: `{"characterClass":"BARD"}`, field: "characterClass"},
		{name: "fractional page size", schema: SchemaListRaids, body: `{"pageSize":2.5}`, field: "pageSize"},
		{name: "malformed", schema: SchemaAddTrait, body: `{"trait":`, field: "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst map[string]any
			err := Decode(tt.schema, []byte(tt.body), &dst)
			if !apperrors.IsCode(err, apperrors.CodeInvalidArgument) {
				t.Fatalf("expected invalid argument, got %v", err)
			}
			if got := apperrors.GetMetadata(err)["Field"]; got != tt.field {
				t.Fatalf("field = %q, want %q", got, tt.field)
			}
		})
	}

	if err := Decode("nope", []byte(`{}`), &struct{}{}); err == nil {
		t.Fatal("expected error for unknown schema")
	}
}

func TestNewRaidIncludesOutcome(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	r := raid.Raid{
		ID:         "r1",
		Map:        raid.AbandonedOutpost,
		Status:     raid.Resolved,
		Members:    []raid.Member{{CharacterID: "a", Fate: raid.Killed}},
		StartAt:    at,
		EndAt:      at.Add(5 * time.Minute),
		Outcome:    &raid.Outcome{Success: false, Casualties: 1},
		ResolvedAt: at.Add(time.Hour),
	}
	raw, err := json.Marshal(NewRaid(r))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(raw)
	for _, want := range []string{`"success":false`, `"memberIds":["a"]`, `"fate":"KILLED"`, `"casualties":1`, `"resolvedAt"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("body %s missing %s", body, want)
		}
	}

	pending, err := json.Marshal(NewRaid(raid.Raid{ID: "r2", Status: raid.InProgress}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(pending), `"success"`) || strings.Contains(string(pending), `"resolvedAt"`) {
		t.Fatalf("pending raid rendered outcome: %s", pending)
	}
}
