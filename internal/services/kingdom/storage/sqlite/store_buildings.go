package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/building"
)

// ListBuildings returns every building a player owns.
func (s *Store) ListBuildings(ctx context.Context, playerID string) (building.Set, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(
		ctx,
		`SELECT type, level, last_collected_at, last_action_at, recruits_count
		   FROM buildings
		  WHERE player_id = ?`,
		playerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list buildings: %w", err)
	}
	defer rows.Close()

	set := make(building.Set, len(building.Types))
	for rows.Next() {
		var b building.Building
		var kind string
		var lastCollected int64
		var lastAction sql.NullInt64
		if err := rows.Scan(&kind, &b.Level, &lastCollected, &lastAction, &b.RecruitsCount); err != nil {
			return nil, fmt.Errorf("list buildings: %w", err)
		}
		t, err := building.ParseType(kind)
		if err != nil {
			return nil, fmt.Errorf("list buildings: %w", err)
		}
		b.Type = t
		b.LastCollectedAt = fromMillis(lastCollected)
		b.LastActionAt = fromNullMillis(lastAction)
		set[t] = b
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list buildings: %w", err)
	}
	return set, nil
}

// PutBuilding inserts or replaces one building.
func (s *Store) PutBuilding(ctx context.Context, playerID string, b building.Building) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.q.ExecContext(
		ctx,
		`INSERT INTO buildings (player_id, type, level, last_collected_at, last_action_at, recruits_count)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(player_id, type) DO UPDATE SET
		   level = excluded.level,
		   last_collected_at = excluded.last_collected_at,
		   last_action_at = excluded.last_action_at,
		   recruits_count = excluded.recruits_count`,
		playerID,
		string(b.Type),
		b.Level,
		toMillis(b.LastCollectedAt),
		toNullMillis(b.LastActionAt),
		b.RecruitsCount,
	)
	if err != nil {
		return fmt.Errorf("put building %s: %w", b.Type, err)
	}
	return nil
}
