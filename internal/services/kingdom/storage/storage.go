package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/core/filter"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/building"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/raid"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/resource"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/roster"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/storage/cursor"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// Player is an account together with its resource ledger.
type Player struct {
	ID           string
	Username     string
	PasswordHash string
	Ledger       resource.Amounts
	CreatedAt    time.Time
}

// RaidQuery selects one page of a player's raids.
type RaidQuery struct {
	PlayerID   string
	Where      filter.SQLCondition
	Descending bool
	// After resumes listing past a cursor; nil starts from the first raid.
	After *cursor.Cursor
	// Limit is the maximum number of rows returned.
	Limit int
}

// Queries are the reads and writes available inside and outside a
// transaction.
type Queries interface {
	CreatePlayer(ctx context.Context, p Player) error
	GetPlayer(ctx context.Context, id string) (Player, error)
	GetPlayerByUsername(ctx context.Context, username string) (Player, error)
	PutLedger(ctx context.Context, playerID string, ledger resource.Amounts) error

	ListBuildings(ctx context.Context, playerID string) (building.Set, error)
	PutBuilding(ctx context.Context, playerID string, b building.Building) error

	ListCharacters(ctx context.Context, playerID string) ([]roster.Character, error)
	GetCharacter(ctx context.Context, playerID, id string) (roster.Character, error)
	PutCharacter(ctx context.Context, playerID string, c roster.Character) error

	PutRaid(ctx context.Context, r raid.Raid) error
	GetRaid(ctx context.Context, playerID, id string) (raid.Raid, error)
	ListRaids(ctx context.Context, q RaidQuery) ([]raid.Raid, error)
	// ListActiveRaids returns every IN_PROGRESS raid across players.
	ListActiveRaids(ctx context.Context) ([]raid.Raid, error)
}

// Store is the kingdom persistence boundary. InTx runs fn inside one
// transaction and commits only when fn returns nil.
type Store interface {
	Queries
	InTx(ctx context.Context, fn func(Queries) error) error
	Close() error
}
