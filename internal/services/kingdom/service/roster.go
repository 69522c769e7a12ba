package service

import (
	"context"
	"fmt"

	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/building"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/roster"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/storage"
)

// Recruit hires a character at the Training Yard.
func (s *Service) Recruit(ctx context.Context, playerID string, req roster.RecruitRequest) (result roster.Recruitment, err error) {
	ctx, span := s.startSpan(ctx, "Recruit", playerID)
	defer func() { endSpan(span, err) }()

	if req.Class != "" {
		if _, err := roster.ParseClass(string(req.Class)); err != nil {
			return roster.Recruitment{}, err
		}
	}
	for _, t := range req.Traits {
		if _, err := roster.ParseTrait(string(t)); err != nil {
			return roster.Recruitment{}, err
		}
	}
	roller, err := s.newRoller()
	if err != nil {
		return roster.Recruitment{}, fmt.Errorf("create roller: %w", err)
	}
	characterID, err := s.newID()
	if err != nil {
		return roster.Recruitment{}, fmt.Errorf("generate character id: %w", err)
	}

	err = s.mutate(ctx, playerID, func(q storage.Queries) error {
		k, err := loadKingdom(ctx, q, playerID)
		if err != nil {
			return err
		}
		characters, err := q.ListCharacters(ctx, playerID)
		if err != nil {
			return fmt.Errorf("list characters: %w", err)
		}
		yard := k.buildings[building.TrainingYard]
		recruited, err := roster.Recruit(req, yard, roster.CountAlive(characters), k.player.Ledger,
			characterID, s.clock(), roller, s.rules.Roster)
		if err != nil {
			return err
		}
		if err := q.PutCharacter(ctx, playerID, recruited.Character); err != nil {
			return fmt.Errorf("save character: %w", err)
		}
		if err := q.PutBuilding(ctx, playerID, recruited.Yard); err != nil {
			return fmt.Errorf("save training yard: %w", err)
		}
		if err := q.PutLedger(ctx, playerID, recruited.Ledger); err != nil {
			return fmt.Errorf("save ledger: %w", err)
		}
		result = recruited
		return nil
	})
	return result, err
}

// AddTrait assigns a trait to an idle character with a free slot.
func (s *Service) AddTrait(ctx context.Context, playerID, characterID string, trait roster.Trait) (character roster.Character, err error) {
	ctx, span := s.startSpan(ctx, "AddTrait", playerID)
	defer func() { endSpan(span, err) }()

	if _, err := roster.ParseTrait(string(trait)); err != nil {
		return roster.Character{}, err
	}
	err = s.mutate(ctx, playerID, func(q storage.Queries) error {
		c, err := q.GetCharacter(ctx, playerID, characterID)
		if err != nil {
			return storageError(err, "character", characterID)
		}
		updated, err := roster.AddTrait(c, trait, s.rules.Roster)
		if err != nil {
			return err
		}
		if err := q.PutCharacter(ctx, playerID, updated); err != nil {
			return fmt.Errorf("save character: %w", err)
		}
		character = updated
		return nil
	})
	return character, err
}
