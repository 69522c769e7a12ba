package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/louisbranch/throne-of-dust/internal/platform/errors"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/auth"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/building"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/storage"
)

// Session is a signed bearer token and whom it identifies.
type Session struct {
	Token     string
	PlayerID  string
	Username  string
	ExpiresAt time.Time
}

// Register creates a player with the starting ledger and buildings and
// signs a session for it.
func (s *Service) Register(ctx context.Context, username, password string) (session Session, err error) {
	ctx, span := s.startSpan(ctx, "Register", "")
	defer func() { endSpan(span, err) }()

	if err := auth.ValidateCredentials(username, password); err != nil {
		return Session{}, err
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return Session{}, err
	}
	playerID, err := s.newID()
	if err != nil {
		return Session{}, fmt.Errorf("generate player id: %w", err)
	}
	now := s.clock()
	player := storage.Player{
		ID:           playerID,
		Username:     username,
		PasswordHash: hash,
		Ledger:       s.rules.Ledger.Starting,
		CreatedAt:    now,
	}
	err = s.mutate(ctx, playerID, func(q storage.Queries) error {
		if err := q.CreatePlayer(ctx, player); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				return apperrors.WithMetadata(apperrors.CodeAlreadyExists,
					fmt.Sprintf("username %s is taken", username), map[string]string{"Kind": "player"})
			}
			return fmt.Errorf("create player: %w", err)
		}
		for _, b := range building.NewSet(s.rules.Buildings.StarterLevels, now).Ordered() {
			if err := q.PutBuilding(ctx, playerID, b); err != nil {
				return fmt.Errorf("create building %s: %w", b.Type, err)
			}
		}
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	return s.issue(playerID, username)
}

// Login exchanges a username and password for a session.
func (s *Service) Login(ctx context.Context, username, password string) (session Session, err error) {
	ctx, span := s.startSpan(ctx, "Login", "")
	defer func() { endSpan(span, err) }()

	player, err := s.store.GetPlayerByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Same bcrypt work as a wrong password.
			_ = auth.CheckPassword(s.dummyHash, password)
			return Session{}, apperrors.New(apperrors.CodeInvalidCredentials, "invalid username or password")
		}
		return Session{}, fmt.Errorf("get player: %w", err)
	}
	if err := auth.CheckPassword(player.PasswordHash, password); err != nil {
		return Session{}, err
	}
	return s.issue(player.ID, player.Username)
}

// Authenticate verifies a bearer token and returns its claims.
func (s *Service) Authenticate(token string) (auth.Claims, error) {
	return auth.Verify(token, s.tokens)
}

func (s *Service) issue(playerID, username string) (Session, error) {
	token, claims, err := auth.Issue(playerID, username, s.tokens)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		PlayerID:  claims.PlayerID,
		Username:  claims.Username,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}
