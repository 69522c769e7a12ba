package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/raid"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/storage"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/storage/cursor"
)

const raidColumns = `id, player_id, map_id, status, ally_mode, start_at, end_at,
       success, loot_gold, loot_scrap, betrayal_occurred, extraction_success, casualties, resolved_at`

// PutRaid inserts or updates a raid and replaces its member rows. Callers
// run it inside InTx.
func (s *Store) PutRaid(ctx context.Context, r raid.Raid) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("raid id is required")
	}

	var (
		success    sql.NullBool
		outcome    raid.Outcome
		resolvedAt sql.NullInt64
	)
	if r.Outcome != nil {
		outcome = *r.Outcome
		success = sql.NullBool{Bool: outcome.Success, Valid: true}
		resolvedAt = toNullMillis(r.ResolvedAt)
	}

	_, err := s.q.ExecContext(
		ctx,
		`INSERT INTO raids (`+raidColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   status = excluded.status,
		   success = excluded.success,
		   loot_gold = excluded.loot_gold,
		   loot_scrap = excluded.loot_scrap,
		   betrayal_occurred = excluded.betrayal_occurred,
		   extraction_success = excluded.extraction_success,
		   casualties = excluded.casualties,
		   resolved_at = excluded.resolved_at
		 WHERE raids.player_id = excluded.player_id`,
		r.ID,
		r.PlayerID,
		string(r.Map),
		string(r.Status),
		r.AllyMode,
		toMillis(r.StartAt),
		toMillis(r.EndAt),
		success,
		outcome.LootGold,
		outcome.LootScrap,
		outcome.BetrayalOccurred,
		outcome.ExtractionSuccess,
		outcome.Casualties,
		resolvedAt,
	)
	if err != nil {
		return fmt.Errorf("put raid: %w", err)
	}

	if _, err := s.q.ExecContext(ctx, `DELETE FROM raid_members WHERE raid_id = ?`, r.ID); err != nil {
		return fmt.Errorf("put raid members: %w", err)
	}
	for slot, m := range r.Members {
		if _, err := s.q.ExecContext(
			ctx,
			`INSERT INTO raid_members (raid_id, slot, character_id, fate, xp_gained) VALUES (?, ?, ?, ?, ?)`,
			r.ID,
			slot,
			m.CharacterID,
			string(m.Fate),
			m.XPGained,
		); err != nil {
			return fmt.Errorf("put raid member %d: %w", slot, err)
		}
	}
	return nil
}

// GetRaid returns one raid owned by playerID.
func (s *Store) GetRaid(ctx context.Context, playerID, id string) (raid.Raid, error) {
	if err := s.ready(ctx); err != nil {
		return raid.Raid{}, err
	}
	row := s.q.QueryRowContext(ctx, `SELECT `+raidColumns+` FROM raids WHERE player_id = ? AND id = ?`, playerID, id)
	r, err := scanRaid(row)
	if err != nil {
		return raid.Raid{}, notFound(err, "get raid")
	}
	raids := []raid.Raid{r}
	if err := s.loadMembers(ctx, raids); err != nil {
		return raid.Raid{}, err
	}
	return raids[0], nil
}

// ListRaids returns up to q.Limit raids ordered by (start_at, id).
func (s *Store) ListRaids(ctx context.Context, q storage.RaidQuery) ([]raid.Raid, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + raidColumns + ` FROM raids WHERE player_id = ?`)
	args := []any{q.PlayerID}
	if q.Where.Clause != "" {
		sb.WriteString(" AND (" + q.Where.Clause + ")")
		args = append(args, q.Where.Params...)
	}
	if q.After != nil {
		op := ">"
		if q.After.Dir == cursor.DirectionBackward {
			op = "<"
		}
		sb.WriteString(fmt.Sprintf(" AND (start_at %s ? OR (start_at = ? AND id %s ?))", op, op))
		args = append(args, q.After.StartAt, q.After.StartAt, q.After.ID)
	}
	if q.Descending {
		sb.WriteString(" ORDER BY start_at DESC, id DESC")
	} else {
		sb.WriteString(" ORDER BY start_at ASC, id ASC")
	}
	sb.WriteString(" LIMIT ?")
	args = append(args, q.Limit)

	raids, err := s.queryRaids(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list raids: %w", err)
	}
	if err := s.loadMembers(ctx, raids); err != nil {
		return nil, err
	}
	return raids, nil
}

// ListActiveRaids returns every IN_PROGRESS raid, soonest due first.
func (s *Store) ListActiveRaids(ctx context.Context) ([]raid.Raid, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	raids, err := s.queryRaids(
		ctx,
		`SELECT `+raidColumns+` FROM raids WHERE status = ? ORDER BY end_at, id`,
		string(raid.InProgress),
	)
	if err != nil {
		return nil, fmt.Errorf("list active raids: %w", err)
	}
	if err := s.loadMembers(ctx, raids); err != nil {
		return nil, err
	}
	return raids, nil
}

func (s *Store) queryRaids(ctx context.Context, query string, args ...any) ([]raid.Raid, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var raids []raid.Raid
	for rows.Next() {
		r, err := scanRaid(rows)
		if err != nil {
			return nil, err
		}
		raids = append(raids, r)
	}
	return raids, rows.Err()
}

// loadMembers fills Members for each raid. It runs after the raid rows are
// closed so it works on a single transaction connection.
func (s *Store) loadMembers(ctx context.Context, raids []raid.Raid) error {
	for i := range raids {
		rows, err := s.q.QueryContext(
			ctx,
			`SELECT character_id, fate, xp_gained FROM raid_members WHERE raid_id = ? ORDER BY slot`,
			raids[i].ID,
		)
		if err != nil {
			return fmt.Errorf("load raid members: %w", err)
		}
		var members []raid.Member
		for rows.Next() {
			var m raid.Member
			var fate string
			if err := rows.Scan(&m.CharacterID, &fate, &m.XPGained); err != nil {
				_ = rows.Close()
				return fmt.Errorf("load raid members: %w", err)
			}
			m.Fate = raid.Fate(fate)
			members = append(members, m)
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return fmt.Errorf("load raid members: %w", err)
		}
		raids[i].Members = members
	}
	return nil
}

func scanRaid(row rowScanner) (raid.Raid, error) {
	var (
		r          raid.Raid
		mapID      string
		status     string
		startAt    int64
		endAt      int64
		success    sql.NullBool
		outcome    raid.Outcome
		resolvedAt sql.NullInt64
	)
	if err := row.Scan(
		&r.ID,
		&r.PlayerID,
		&mapID,
		&status,
		&r.AllyMode,
		&startAt,
		&endAt,
		&success,
		&outcome.LootGold,
		&outcome.LootScrap,
		&outcome.BetrayalOccurred,
		&outcome.ExtractionSuccess,
		&outcome.Casualties,
		&resolvedAt,
	); err != nil {
		return raid.Raid{}, err
	}
	var err error
	if r.Map, err = raid.ParseMap(mapID); err != nil {
		return raid.Raid{}, err
	}
	if r.Status, err = raid.ParseStatus(status); err != nil {
		return raid.Raid{}, err
	}
	r.StartAt = fromMillis(startAt)
	r.EndAt = fromMillis(endAt)
	if success.Valid {
		outcome.Success = success.Bool
		r.Outcome = &outcome
		r.ResolvedAt = fromNullMillis(resolvedAt)
	}
	return r, nil
}
