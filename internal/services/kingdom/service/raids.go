package service

import (
	"context"
	"fmt"

	apperrors "github.com/louisbranch/throne-of-dust/internal/platform/errors"
	"github.com/louisbranch/throne-of-dust/internal/platform/grpc/pagination"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/audit"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/core/filter"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/building"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/raid"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/roster"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/storage"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/storage/cursor"
)

const (
	defaultListRaidsPageSize = 20
	maxListRaidsPageSize     = 100
	orderStartAtDesc         = "start_at desc"
)

var raidOrderBy = pagination.OrderByConfig{
	Default: orderStartAtDesc,
	Allowed: []string{"start_at", "start_at asc", orderStartAtDesc},
}

// ListRaidsRequest selects a page of raid history.
type ListRaidsRequest struct {
	Filter    string
	OrderBy   string
	PageSize  int32
	PageToken string
}

// RaidPage is one page of raids and the token for the next one.
type RaidPage struct {
	Raids []raid.Raid
	// NextPageToken is empty on the last page.
	NextPageToken string
}

// StartRaid sends a squad on a raid.
func (s *Service) StartRaid(ctx context.Context, playerID string, req raid.StartRequest) (started raid.Started, err error) {
	ctx, span := s.startSpan(ctx, "StartRaid", playerID)
	defer func() { endSpan(span, err) }()

	if _, err := raid.ParseMap(string(req.Map)); err != nil {
		return raid.Started{}, err
	}
	raidID, err := s.newID()
	if err != nil {
		return raid.Started{}, fmt.Errorf("generate raid id: %w", err)
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
		owned := make(map[string]roster.Character, len(characters))
		for _, c := range characters {
			owned[c.ID] = c
		}
		out, err := raid.Start(req, raidID, playerID, owned, k.buildings.Level(building.TrainingYard),
			k.player.Ledger, s.clock(), s.rules.Raid, s.rules.Roster)
		if err != nil {
			return err
		}
		if err := q.PutRaid(ctx, out.Raid); err != nil {
			return fmt.Errorf("save raid: %w", err)
		}
		for _, c := range out.Members {
			if err := q.PutCharacter(ctx, playerID, c); err != nil {
				return fmt.Errorf("save character %s: %w", c.ID, err)
			}
		}
		if err := q.PutLedger(ctx, playerID, out.Ledger); err != nil {
			return fmt.Errorf("save ledger: %w", err)
		}
		started = out
		return nil
	})
	if err != nil {
		return raid.Started{}, err
	}
	if s.notifier != nil {
		s.notifier.RaidStarted(started.Raid)
	}
	return started, nil
}

// ResolveRaid rolls the outcome of a finished raid and applies it. A raid
// resolves once; later calls fail with INVALID_STATE.
func (s *Service) ResolveRaid(ctx context.Context, playerID, raidID string) (resolution raid.Resolution, err error) {
	ctx, span := s.startSpan(ctx, "ResolveRaid", playerID)
	defer func() { endSpan(span, err) }()

	roller, err := s.newRoller()
	if err != nil {
		return raid.Resolution{}, fmt.Errorf("create roller: %w", err)
	}

	var radarLevel int
	err = s.mutate(ctx, playerID, func(q storage.Queries) error {
		r, err := q.GetRaid(ctx, playerID, raidID)
		if err != nil {
			return storageError(err, "raid", raidID)
		}
		k, err := loadKingdom(ctx, q, playerID)
		if err != nil {
			return err
		}
		members := make([]roster.Character, 0, len(r.Members))
		for _, m := range r.Members {
			c, err := q.GetCharacter(ctx, playerID, m.CharacterID)
			if err != nil {
				return storageError(err, "character", m.CharacterID)
			}
			members = append(members, c)
		}
		radarLevel = k.buildings.Level(building.Radar)
		out, err := raid.Resolve(raid.Input{
			Raid:         r,
			Members:      members,
			RadarLevel:   radarLevel,
			Ledger:       k.player.Ledger,
			StorageLimit: k.storageLimit(s),
		}, s.clock(), roller, s.rules.Raid, s.rules.Roster)
		if err != nil {
			return err
		}
		for _, c := range out.Members {
			if err := q.PutCharacter(ctx, playerID, c); err != nil {
				return fmt.Errorf("save character %s: %w", c.ID, err)
			}
		}
		if err := q.PutLedger(ctx, playerID, out.Ledger); err != nil {
			return fmt.Errorf("save ledger: %w", err)
		}
		if err := q.PutRaid(ctx, out.Raid); err != nil {
			return fmt.Errorf("save raid: %w", err)
		}
		resolution = out
		return nil
	})
	if err != nil {
		return raid.Resolution{}, err
	}
	s.writeAudit(audit.NewRecord(resolution, radarLevel, roller.Seed()))
	if s.notifier != nil {
		s.notifier.RaidResolved(resolution.Raid)
	}
	return resolution, nil
}

// ListRaids returns the player's raids, newest first unless ordered
// otherwise.
func (s *Service) ListRaids(ctx context.Context, playerID string, req ListRaidsRequest) (page RaidPage, err error) {
	ctx, span := s.startSpan(ctx, "ListRaids", playerID)
	defer func() { endSpan(span, err) }()

	pageSize := pagination.ClampPageSize(req.PageSize, pagination.PageSizeConfig{
		Default: defaultListRaidsPageSize,
		Max:     maxListRaidsPageSize,
	})
	orderBy, err := pagination.NormalizeOrderBy(req.OrderBy, raidOrderBy)
	if err != nil {
		return RaidPage{}, invalidArgument("order_by", err)
	}
	descending := orderBy == orderStartAtDesc

	where, err := filter.ParseRaidFilter(req.Filter)
	if err != nil {
		return RaidPage{}, invalidArgument("filter", err)
	}

	query := storage.RaidQuery{
		PlayerID:   playerID,
		Where:      where,
		Descending: descending,
		Limit:      pageSize + 1,
	}
	if req.PageToken != "" {
		c, err := cursor.Decode(req.PageToken)
		if err != nil {
			return RaidPage{}, invalidArgument("page_token", err)
		}
		if err := cursor.Validate(c, req.Filter, orderBy); err != nil {
			return RaidPage{}, invalidArgument("page_token", err)
		}
		query.After = &c
	}

	raids, err := s.store.ListRaids(ctx, query)
	if err != nil {
		return RaidPage{}, err
	}
	if len(raids) <= pageSize {
		return RaidPage{Raids: raids}, nil
	}
	raids = raids[:pageSize]
	last := raids[len(raids)-1]
	token, err := cursor.Encode(cursor.NewNextPageCursor(last.StartAt.UnixMilli(), last.ID, descending, req.Filter, orderBy))
	if err != nil {
		return RaidPage{}, fmt.Errorf("encode page token: %w", err)
	}
	return RaidPage{Raids: raids, NextPageToken: token}, nil
}

func invalidArgument(field string, err error) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidArgument, err.Error(), map[string]string{"Field": field})
}
