package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/resource"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/storage"
)

// CreatePlayer inserts an account and its ledger.
func (s *Store) CreatePlayer(ctx context.Context, p storage.Player) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("player id is required")
	}
	if strings.TrimSpace(p.Username) == "" {
		return fmt.Errorf("username is required")
	}

	_, err := s.q.ExecContext(
		ctx,
		`INSERT INTO players (id, username, password_hash, wood, stone, scrap, gold, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.Username,
		p.PasswordHash,
		p.Ledger.Wood,
		p.Ledger.Stone,
		p.Ledger.Scrap,
		p.Ledger.Gold,
		toMillis(p.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create player: %w", err)
	}
	return nil
}

const playerColumns = `id, username, password_hash, wood, stone, scrap, gold, created_at`

// GetPlayer returns one player by id.
func (s *Store) GetPlayer(ctx context.Context, id string) (storage.Player, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Player{}, err
	}
	row := s.q.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = ?`, id)
	p, err := scanPlayer(row)
	if err != nil {
		return storage.Player{}, notFound(err, "get player")
	}
	return p, nil
}

// GetPlayerByUsername returns one player by username.
func (s *Store) GetPlayerByUsername(ctx context.Context, username string) (storage.Player, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Player{}, err
	}
	row := s.q.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE username = ?`, username)
	p, err := scanPlayer(row)
	if err != nil {
		return storage.Player{}, notFound(err, "get player by username")
	}
	return p, nil
}

// PutLedger overwrites a player's resource counters.
func (s *Store) PutLedger(ctx context.Context, playerID string, ledger resource.Amounts) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.q.ExecContext(
		ctx,
		`UPDATE players SET wood = ?, stone = ?, scrap = ?, gold = ? WHERE id = ?`,
		ledger.Wood,
		ledger.Stone,
		ledger.Scrap,
		ledger.Gold,
		playerID,
	)
	if err != nil {
		return fmt.Errorf("put ledger: %w", err)
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (storage.Player, error) {
	var p storage.Player
	var createdAt int64
	if err := row.Scan(
		&p.ID,
		&p.Username,
		&p.PasswordHash,
		&p.Ledger.Wood,
		&p.Ledger.Stone,
		&p.Ledger.Scrap,
		&p.Ledger.Gold,
		&createdAt,
	); err != nil {
		return storage.Player{}, err
	}
	p.CreatedAt = fromMillis(createdAt)
	return p, nil
}
