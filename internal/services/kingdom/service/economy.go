package service

import (
	"context"
	"fmt"
	"time"

	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/core/filter"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/building"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/raid"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/resource"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/roster"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/storage"
)

// maxActiveRaids bounds the in-progress raids returned with the state.
const maxActiveRaids = 100

// State is everything a client renders for a player.
type State struct {
	PlayerID string
	Username string
	Ledger   resource.Amounts
	// Limits are the per-resource caps; gold reports -1.
	Limits       resource.Amounts
	Buildings    []building.Building
	UpgradeCosts map[building.Type]resource.Amounts
	Characters   []roster.Character
	AliveCount   int
	RosterCap    int
	SquadCap     int
	RecruitCost  resource.Amounts
	// RecruitReadyAt is zero when recruiting is not on cooldown.
	RecruitReadyAt time.Time
	ActiveRaids    []raid.Raid
}

// UpgradeResult is the upgraded building and the ledger after payment.
type UpgradeResult struct {
	Building building.Building
	Ledger   resource.Amounts
}

// State reads the player's full kingdom.
func (s *Service) State(ctx context.Context, playerID string) (state State, err error) {
	ctx, span := s.startSpan(ctx, "State", playerID)
	defer func() { endSpan(span, err) }()

	err = s.mutate(ctx, playerID, func(q storage.Queries) error {
		k, err := loadKingdom(ctx, q, playerID)
		if err != nil {
			return err
		}
		characters, err := q.ListCharacters(ctx, playerID)
		if err != nil {
			return fmt.Errorf("list characters: %w", err)
		}
		active, err := q.ListRaids(ctx, storage.RaidQuery{
			PlayerID:   playerID,
			Where:      filter.SQLCondition{Clause: "status = ?", Params: []any{string(raid.InProgress)}},
			Descending: true,
			Limit:      maxActiveRaids,
		})
		if err != nil {
			return fmt.Errorf("list active raids: %w", err)
		}
		state = s.buildState(k, characters, active)
		return nil
	})
	return state, err
}

func (s *Service) buildState(k kingdom, characters []roster.Character, active []raid.Raid) State {
	yard := k.buildings[building.TrainingYard]
	state := State{
		PlayerID:     k.player.ID,
		Username:     k.player.Username,
		Ledger:       k.player.Ledger,
		Limits:       s.rules.Ledger.Limits(k.buildings.Level(building.Storehouse)),
		Buildings:    k.buildings.Ordered(),
		UpgradeCosts: make(map[building.Type]resource.Amounts, len(k.buildings)),
		Characters:   characters,
		AliveCount:   roster.CountAlive(characters),
		RosterCap:    s.rules.Roster.RosterCap(yard.Level),
		SquadCap:     s.rules.Roster.SquadCap(yard.Level),
		RecruitCost:  s.rules.Roster.RecruitCost(yard.RecruitsCount),
		ActiveRaids:  active,
	}
	for t, b := range k.buildings {
		state.UpgradeCosts[t] = s.rules.Buildings.CostFor(b.Level)
	}
	if !yard.LastActionAt.IsZero() {
		if ready := yard.LastActionAt.Add(s.rules.Roster.RecruitCooldown); ready.After(s.clock()) {
			state.RecruitReadyAt = ready
		}
	}
	return state
}

// Collect credits production from every producing building.
func (s *Service) Collect(ctx context.Context, playerID string) (result building.CollectResult, err error) {
	ctx, span := s.startSpan(ctx, "Collect", playerID)
	defer func() { endSpan(span, err) }()

	err = s.mutate(ctx, playerID, func(q storage.Queries) error {
		k, err := loadKingdom(ctx, q, playerID)
		if err != nil {
			return err
		}
		result = building.Collect(k.buildings, k.player.Ledger, k.storageLimit(s), s.clock(), s.rules.Buildings)
		return s.saveCollect(ctx, q, playerID, result)
	})
	return result, err
}

// CollectBuilding credits production from a single building.
func (s *Service) CollectBuilding(ctx context.Context, playerID string, t building.Type) (result building.CollectResult, err error) {
	ctx, span := s.startSpan(ctx, "CollectBuilding", playerID)
	defer func() { endSpan(span, err) }()

	if _, err := building.ParseType(string(t)); err != nil {
		return building.CollectResult{}, err
	}
	err = s.mutate(ctx, playerID, func(q storage.Queries) error {
		k, err := loadKingdom(ctx, q, playerID)
		if err != nil {
			return err
		}
		result = building.CollectOne(k.buildings, t, k.player.Ledger, k.storageLimit(s), s.clock(), s.rules.Buildings)
		return s.saveCollect(ctx, q, playerID, result)
	})
	return result, err
}

func (s *Service) saveCollect(ctx context.Context, q storage.Queries, playerID string, result building.CollectResult) error {
	for _, b := range result.Buildings {
		if err := q.PutBuilding(ctx, playerID, b); err != nil {
			return fmt.Errorf("save building %s: %w", b.Type, err)
		}
	}
	if err := q.PutLedger(ctx, playerID, result.Ledger); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// Upgrade raises one building a level and pays for it.
func (s *Service) Upgrade(ctx context.Context, playerID string, t building.Type) (result UpgradeResult, err error) {
	ctx, span := s.startSpan(ctx, "Upgrade", playerID)
	defer func() { endSpan(span, err) }()

	if _, err := building.ParseType(string(t)); err != nil {
		return UpgradeResult{}, err
	}
	err = s.mutate(ctx, playerID, func(q storage.Queries) error {
		k, err := loadKingdom(ctx, q, playerID)
		if err != nil {
			return err
		}
		b, ledger, err := building.Upgrade(k.buildings, t, k.player.Ledger, s.clock(), s.rules.Buildings)
		if err != nil {
			return err
		}
		if err := q.PutBuilding(ctx, playerID, b); err != nil {
			return fmt.Errorf("save building %s: %w", b.Type, err)
		}
		if err := q.PutLedger(ctx, playerID, ledger); err != nil {
			return fmt.Errorf("save ledger: %w", err)
		}
		result = UpgradeResult{Building: b, Ledger: ledger}
		return nil
	})
	return result, err
}
