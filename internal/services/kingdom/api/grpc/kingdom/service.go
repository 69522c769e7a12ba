// Package kingdom serves the kingdom operations over gRPC.
package kingdom

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	apperrors "github.com/louisbranch/throne-of-dust/internal/platform/errors"
	"github.com/louisbranch/throne-of-dust/internal/platform/requestctx"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/api/wire"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/building"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/roster"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/service"
)

// Service adapts the kingdom service to kingdom.v1.KingdomService.
type Service struct {
	svc *service.Service
}

// NewService wraps svc.
func NewService(svc *service.Service) *Service {
	return &Service{svc: svc}
}

// Register creates an account and returns its session.
func (s *Service) Register(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req wire.Credentials
	if err := decode(in, wire.SchemaCredentials, &req); err != nil {
		return nil, err
	}
	session, err := s.svc.Register(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	return encode(wire.NewSession(session))
}

// Login exchanges credentials for a session.
func (s *Service) Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req wire.Credentials
	if err := decode(in, wire.SchemaCredentials, &req); err != nil {
		return nil, err
	}
	session, err := s.svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	return encode(wire.NewSession(session))
}

// GetState returns the caller's ledger, buildings and roster.
func (s *Service) GetState(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	state, err := s.svc.State(ctx, requestctx.PlayerIDFromContext(ctx))
	if err != nil {
		return nil, err
	}
	return encode(wire.NewState(state))
}

// Collect gathers production from every building.
func (s *Service) Collect(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.svc.Collect(ctx, requestctx.PlayerIDFromContext(ctx))
	if err != nil {
		return nil, err
	}
	return encode(wire.NewCollect(res))
}

// CollectBuilding gathers production from the building named by type.
func (s *Service) CollectBuilding(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	t, err := requiredString(in, "type")
	if err != nil {
		return nil, err
	}
	res, err := s.svc.CollectBuilding(ctx, requestctx.PlayerIDFromContext(ctx), building.Type(t))
	if err != nil {
		return nil, err
	}
	return encode(wire.NewCollect(res))
}

// UpgradeBuilding raises the level of the building named by type.
func (s *Service) UpgradeBuilding(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	t, err := requiredString(in, "type")
	if err != nil {
		return nil, err
	}
	res, err := s.svc.Upgrade(ctx, requestctx.PlayerIDFromContext(ctx), building.Type(t))
	if err != nil {
		return nil, err
	}
	return encode(wire.NewUpgrade(res))
}

// Recruit adds a character to the roster.
func (s *Service) Recruit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req wire.RecruitRequest
	if err := decode(in, wire.SchemaRecruit, &req); err != nil {
		return nil, err
	}
	res, err := s.svc.Recruit(ctx, requestctx.PlayerIDFromContext(ctx), req.Domain())
	if err != nil {
		return nil, err
	}
	return encode(wire.NewRecruitment(res))
}

// AddTrait reads characterId alongside the add_trait body.
func (s *Service) AddTrait(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	characterID, err := requiredString(in, "characterId")
	if err != nil {
		return nil, err
	}
	var req wire.AddTraitRequest
	if err := decode(without(in, "characterId"), wire.SchemaAddTrait, &req); err != nil {
		return nil, err
	}
	c, err := s.svc.AddTrait(ctx, requestctx.PlayerIDFromContext(ctx), characterID, roster.Trait(req.Trait))
	if err != nil {
		return nil, err
	}
	return encode(wire.NewCharacter(c))
}

// StartRaid sends a squad on a raid.
func (s *Service) StartRaid(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req wire.StartRaidRequest
	if err := decode(in, wire.SchemaStartRaid, &req); err != nil {
		return nil, err
	}
	res, err := s.svc.StartRaid(ctx, requestctx.PlayerIDFromContext(ctx), req.Domain())
	if err != nil {
		return nil, err
	}
	return encode(wire.NewStartedRaid(res))
}

// ResolveRaid settles a due raid named by raidId.
func (s *Service) ResolveRaid(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	raidID, err := requiredString(in, "raidId")
	if err != nil {
		return nil, err
	}
	res, err := s.svc.ResolveRaid(ctx, requestctx.PlayerIDFromContext(ctx), raidID)
	if err != nil {
		return nil, err
	}
	return encode(wire.NewResolution(res))
}

// ListRaids returns one page of the caller's raids.
func (s *Service) ListRaids(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req wire.ListRaidsRequest
	if err := decode(in, wire.SchemaListRaids, &req); err != nil {
		return nil, err
	}
	page, err := s.svc.ListRaids(ctx, requestctx.PlayerIDFromContext(ctx), req.Service())
	if err != nil {
		return nil, err
	}
	return encode(wire.NewRaidPage(page))
}

// decode validates a Struct payload with the same schema the HTTP body uses.
func decode(in *structpb.Struct, schema string, dst any) error {
	var raw []byte
	if in != nil {
		var err error
		raw, err = json.Marshal(in.AsMap())
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInvalidArgument, "encode payload", err)
		}
	}
	return wire.Decode(schema, raw, dst)
}

func encode(view any) (*structpb.Struct, error) {
	data, err := json.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	out, err := structpb.NewStruct(payload)
	if err != nil {
		return nil, fmt.Errorf("build response struct: %w", err)
	}
	return out, nil
}

func requiredString(in *structpb.Struct, field string) (string, error) {
	v, ok := in.GetFields()[field]
	if !ok {
		return "", apperrors.WithMetadata(apperrors.CodeInvalidArgument,
			field+" is required", map[string]string{"Field": field})
	}
	str, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok || str.StringValue == "" {
		return "", apperrors.WithMetadata(apperrors.CodeInvalidArgument,
			field+" must be a non-empty string", map[string]string{"Field": field})
	}
	return str.StringValue, nil
}

func without(in *structpb.Struct, field string) *structpb.Struct {
	out := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(in.GetFields()))}
	for k, v := range in.GetFields() {
		if k != field {
			out.Fields[k] = v
		}
	}
	return out
}
