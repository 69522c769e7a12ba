package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/roster"
)

const characterColumns = `id, name, class, status, level, xp, traits, created_at`

// ListCharacters returns a player's characters, dead ones included, oldest
// first.
func (s *Store) ListCharacters(ctx context.Context, playerID string) ([]roster.Character, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(
		ctx,
		`SELECT `+characterColumns+`
		   FROM characters
		  WHERE player_id = ?
		  ORDER BY created_at, id`,
		playerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	defer rows.Close()

	var characters []roster.Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("list characters: %w", err)
		}
		characters = append(characters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	return characters, nil
}

// GetCharacter returns one character owned by playerID.
func (s *Store) GetCharacter(ctx context.Context, playerID, id string) (roster.Character, error) {
	if err := s.ready(ctx); err != nil {
		return roster.Character{}, err
	}
	row := s.q.QueryRowContext(
		ctx,
		`SELECT `+characterColumns+` FROM characters WHERE player_id = ? AND id = ?`,
		playerID,
		id,
	)
	c, err := scanCharacter(row)
	if err != nil {
		return roster.Character{}, notFound(err, "get character")
	}
	return c, nil
}

// PutCharacter inserts or replaces one character.
func (s *Store) PutCharacter(ctx context.Context, playerID string, c roster.Character) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("character id is required")
	}
	_, err := s.q.ExecContext(
		ctx,
		`INSERT INTO characters (id, player_id, name, class, status, level, xp, traits, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   class = excluded.class,
		   status = excluded.status,
		   level = excluded.level,
		   xp = excluded.xp,
		   traits = excluded.traits
		 WHERE characters.player_id = excluded.player_id`,
		c.ID,
		playerID,
		c.Name,
		string(c.Class),
		string(c.Status),
		c.Level,
		c.XP,
		joinTraits(c.Traits),
		toMillis(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("put character: %w", err)
	}
	return nil
}

func scanCharacter(row rowScanner) (roster.Character, error) {
	var c roster.Character
	var class, status, traits string
	var createdAt int64
	if err := row.Scan(&c.ID, &c.Name, &class, &status, &c.Level, &c.XP, &traits, &createdAt); err != nil {
		return roster.Character{}, err
	}
	var err error
	if c.Class, err = roster.ParseClass(class); err != nil {
		return roster.Character{}, err
	}
	if c.Status, err = roster.ParseStatus(status); err != nil {
		return roster.Character{}, err
	}
	if c.Traits, err = splitTraits(traits); err != nil {
		return roster.Character{}, err
	}
	c.CreatedAt = fromMillis(createdAt)
	return c, nil
}

func joinTraits(traits []roster.Trait) string {
	names := make([]string, len(traits))
	for i, t := range traits {
		names[i] = string(t)
	}
	return strings.Join(names, ",")
}

func splitTraits(value string) ([]roster.Trait, error) {
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	traits := make([]roster.Trait, 0, len(parts))
	for _, part := range parts {
		t, err := roster.ParseTrait(part)
		if err != nil {
			return nil, err
		}
		traits = append(traits, t)
	}
	return traits, nil
}
