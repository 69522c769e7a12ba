// Package service runs kingdom operations against storage.
//
// Every operation that touches a player's state holds that player's lock and
// runs inside one store transaction, so operations of one player never
// interleave and a failed step leaves nothing behind.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/throne-of-dust/internal/core/dice"
	apperrors "github.com/louisbranch/throne-of-dust/internal/platform/errors"
	"github.com/louisbranch/throne-of-dust/internal/platform/id"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/audit"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/auth"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/building"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/raid"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/tuning"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/storage"
)

const tracerName = "github.com/louisbranch/throne-of-dust/internal/services/kingdom/service"

// Roller is a dice roller that can report the seed it was built from.
type Roller interface {
	dice.Roller
	Seed() int64
}

// AuditSink receives one record per resolved raid.
type AuditSink interface {
	Write(rec audit.Record) error
}

// Notifier learns about raid lifecycle changes after they commit.
type Notifier interface {
	RaidStarted(r raid.Raid)
	RaidResolved(r raid.Raid)
}

// Config wires a Service.
type Config struct {
	Store  storage.Store
	Rules  tuning.Rules
	Tokens auth.TokenConfig
	// Audit and Notifier are optional.
	Audit    AuditSink
	Notifier Notifier
	// BcryptCost of zero uses the bcrypt default.
	BcryptCost int
	Now        func() time.Time
	NewID      func() (string, error)
	NewRoller  func() (Roller, error)
}

// Service implements the kingdom operations.
type Service struct {
	store      storage.Store
	rules      tuning.Rules
	tokens     auth.TokenConfig
	audit      AuditSink
	notifier   Notifier
	bcryptCost int
	dummyHash  string
	now        func() time.Time
	newID      func() (string, error)
	newRoller  func() (Roller, error)
	locks      *playerLocks
	tracer     trace.Tracer
}

// New validates cfg and builds a Service.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if err := cfg.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("tuning: %w", err)
	}
	if err := cfg.Tokens.Validate(); err != nil {
		return nil, err
	}
	s := &Service{
		store:      cfg.Store,
		rules:      cfg.Rules,
		tokens:     cfg.Tokens,
		audit:      cfg.Audit,
		notifier:   cfg.Notifier,
		bcryptCost: cfg.BcryptCost,
		now:        cfg.Now,
		newID:      cfg.NewID,
		newRoller:  cfg.NewRoller,
		locks:      newPlayerLocks(),
		tracer:     otel.Tracer(tracerName),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = id.NewID
	}
	if s.newRoller == nil {
		s.newRoller = func() (Roller, error) { return dice.NewUnpredictable() }
	}
	if s.tokens.Now == nil {
		s.tokens.Now = s.now
	}
	// Logins for unknown usernames compare against this hash.
	dummy, err := auth.HashPassword("throne-of-dust-unknown-player", s.bcryptCost)
	if err != nil {
		return nil, err
	}
	s.dummyHash = dummy
	return s, nil
}

// Rules returns the balance constants in use.
func (s *Service) Rules() tuning.Rules {
	return s.rules
}

func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *Service) startSpan(ctx context.Context, name, playerID string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "kingdom."+name, trace.WithAttributes(attribute.String("player.id", playerID)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
	span.End()
}

// mutate runs fn under the player's lock inside one transaction.
func (s *Service) mutate(ctx context.Context, playerID string, fn func(storage.Queries) error) error {
	unlock := s.locks.lock(playerID)
	defer unlock()
	return s.store.InTx(ctx, fn)
}

// kingdom is the player row plus the buildings most operations need.
type kingdom struct {
	player    storage.Player
	buildings building.Set
}

func (k kingdom) storageLimit(s *Service) int {
	return s.rules.Ledger.StorageLimit(k.buildings.Level(building.Storehouse))
}

func loadKingdom(ctx context.Context, q storage.Queries, playerID string) (kingdom, error) {
	player, err := q.GetPlayer(ctx, playerID)
	if err != nil {
		return kingdom{}, storageError(err, "player", playerID)
	}
	set, err := q.ListBuildings(ctx, playerID)
	if err != nil {
		return kingdom{}, storageError(err, "buildings", playerID)
	}
	return kingdom{player: player, buildings: set}, nil
}

// storageError turns storage sentinels into coded errors.
func storageError(err error, kind, key string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.WithMetadata(apperrors.CodeNotFound,
			fmt.Sprintf("%s %s not found", kind, key), map[string]string{"Kind": kind})
	case errors.Is(err, storage.ErrAlreadyExists):
		return apperrors.WithMetadata(apperrors.CodeAlreadyExists,
			fmt.Sprintf("%s %s already exists", kind, key), map[string]string{"Kind": kind})
	default:
		return fmt.Errorf("%s %s: %w", kind, key, err)
	}
}

func (s *Service) writeAudit(rec audit.Record) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Write(rec); err != nil {
		log.Printf("audit raid %s: %v", rec.RaidID, err)
	}
}
