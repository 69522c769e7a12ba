package raid

import (
	"fmt"
	"strconv"
	"time"

	apperrors "github.com/louisbranch/throne-of-dust/internal/platform/errors"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/resource"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/roster"
)

// StartRequest selects a map, a squad and the ally mode.
type StartRequest struct {
	Map       MapID
	MemberIDs []string
	AllyMode  bool
}

// Started is the outcome of a successful start.
type Started struct {
	Raid Raid
	// Members are the squad characters, now InRaid, in request order.
	Members []roster.Character
	Ledger  resource.Amounts
}

// Start validates the squad, pays the entry cost and creates an IN_PROGRESS
// raid ending after the template duration.
//
// owned holds the caller's characters by id; ids outside it are NOT_FOUND.
// Checks run in order: members idle, squad size, entry gold.
func Start(req StartRequest, id, playerID string, owned map[string]roster.Character, yardLevel int, ledger resource.Amounts, now time.Time, rules Rules, rosterRules roster.Rules) (Started, error) {
	tpl, err := rules.Template(req.Map)
	if err != nil {
		return Started{}, err
	}

	var notIdle []string
	for _, memberID := range req.MemberIDs {
		c, ok := owned[memberID]
		if !ok {
			return Started{}, apperrors.WithMetadata(apperrors.CodeNotFound,
				fmt.Sprintf("character %s not found", memberID), map[string]string{"Kind": "character"})
		}
		if c.Status != roster.Idle {
			notIdle = append(notIdle, memberID)
		}
	}
	if len(notIdle) > 0 {
		return Started{}, roster.NotIdle(notIdle)
	}

	squadCap := min(rosterRules.SquadCap(yardLevel), tpl.SquadCap)
	if err := checkSquad(req.MemberIDs, squadCap); err != nil {
		return Started{}, err
	}

	next, err := ledger.Spend(resource.Amounts{Gold: tpl.EntryCostGold})
	if err != nil {
		return Started{}, err
	}

	members := make([]roster.Character, 0, len(req.MemberIDs))
	slots := make([]Member, 0, len(req.MemberIDs))
	for _, memberID := range req.MemberIDs {
		c := owned[memberID]
		c.Status = roster.InRaid
		members = append(members, c)
		slots = append(slots, Member{CharacterID: memberID})
	}
	return Started{
		Raid: Raid{
			ID:       id,
			PlayerID: playerID,
			Map:      req.Map,
			Status:   InProgress,
			AllyMode: req.AllyMode,
			Members:  slots,
			StartAt:  now,
			EndAt:    now.Add(tpl.Duration()),
		},
		Members: members,
		Ledger:  next,
	}, nil
}

func checkSquad(ids []string, squadCap int) error {
	invalid := func(reason string) error {
		return apperrors.WithMetadata(apperrors.CodeSquadSizeInvalid, reason,
			map[string]string{"Cap": strconv.Itoa(squadCap), "Size": strconv.Itoa(len(ids))})
	}
	if len(ids) < 1 || len(ids) > squadCap {
		return invalid(fmt.Sprintf("squad size %d outside 1..%d", len(ids), squadCap))
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return invalid(fmt.Sprintf("character %s listed twice", id))
		}
		seen[id] = true
	}
	return nil
}
