// Package wire holds the JSON shapes shared by the HTTP and gRPC transports.
//
// Request bodies are validated against embedded JSON Schemas before they are
// decoded. Field names follow the original REST client (camelCase).
package wire

import (
	"time"

	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/building"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/raid"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/resource"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/roster"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/service"
)

// Credentials is the register and login body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RecruitRequest is the recruit body. Both fields are optional.
type RecruitRequest struct {
	CharacterClass string   `json:"characterClass,omitempty"`
	Traits         []string `json:"traits,omitempty"`
}

// Domain converts the request into the roster form.
func (r RecruitRequest) Domain() roster.RecruitRequest {
	req := roster.RecruitRequest{Class: roster.Class(r.CharacterClass)}
	for _, t := range r.Traits {
		req.Traits = append(req.Traits, roster.Trait(t))
	}
	return req
}

// AddTraitRequest is the add-trait body.
type AddTraitRequest struct {
	Trait string `json:"trait"`
}

// StartRaidRequest is the start-raid body.
type StartRaidRequest struct {
	Map       string   `json:"map"`
	MemberIDs []string `json:"memberIds"`
	AllyMode  bool     `json:"allyMode"`
}

// Domain converts the request into the raid form.
func (r StartRaidRequest) Domain() raid.StartRequest {
	return raid.StartRequest{Map: raid.MapID(r.Map), MemberIDs: r.MemberIDs, AllyMode: r.AllyMode}
}

// ListRaidsRequest is the raid history query.
type ListRaidsRequest struct {
	Filter    string `json:"filter,omitempty"`
	OrderBy   string `json:"orderBy,omitempty"`
	PageSize  int32  `json:"pageSize,omitempty"`
	PageToken string `json:"pageToken,omitempty"`
}

// Service converts the request into the service form.
func (r ListRaidsRequest) Service() service.ListRaidsRequest {
	return service.ListRaidsRequest{Filter: r.Filter, OrderBy: r.OrderBy, PageSize: r.PageSize, PageToken: r.PageToken}
}

// Session is the register and login response.
type Session struct {
	Token     string    `json:"token"`
	PlayerID  string    `json:"playerId"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewSession renders a service session.
func NewSession(s service.Session) Session {
	return Session{Token: s.Token, PlayerID: s.PlayerID, Username: s.Username, ExpiresAt: s.ExpiresAt}
}

// Building is one building with the cost of its next level.
type Building struct {
	Type            string            `json:"type"`
	Level           int               `json:"level"`
	LastCollectedAt time.Time         `json:"lastCollectedAt"`
	LastActionAt    *time.Time        `json:"lastActionAt,omitempty"`
	RecruitsCount   int               `json:"recruitsCount,omitempty"`
	UpgradeCost     *resource.Amounts `json:"upgradeCost,omitempty"`
}

// NewBuilding renders b; cost may be nil.
func NewBuilding(b building.Building, cost *resource.Amounts) Building {
	return Building{
		Type:            string(b.Type),
		Level:           b.Level,
		LastCollectedAt: b.LastCollectedAt,
		LastActionAt:    optionalTime(b.LastActionAt),
		RecruitsCount:   b.RecruitsCount,
		UpgradeCost:     cost,
	}
}

// Character is one roster member.
type Character struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Class     string    `json:"characterClass"`
	Status    string    `json:"status"`
	Level     int       `json:"level"`
	XP        int       `json:"xp"`
	Traits    []string  `json:"traits"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewCharacter renders c.
func NewCharacter(c roster.Character) Character {
	traits := make([]string, 0, len(c.Traits))
	for _, t := range c.Traits {
		traits = append(traits, string(t))
	}
	return Character{
		ID:        c.ID,
		Name:      c.Name,
		Class:     string(c.Class),
		Status:    string(c.Status),
		Level:     c.Level,
		XP:        c.XP,
		Traits:    traits,
		CreatedAt: c.CreatedAt,
	}
}

// Member is one raid slot.
type Member struct {
	CharacterID string `json:"characterId"`
	Fate        string `json:"fate,omitempty"`
	XPGained    int    `json:"xpGained,omitempty"`
}

// Raid is a raid with its outcome fields once resolved.
type Raid struct {
	ID         string     `json:"id"`
	Map        string     `json:"map"`
	Status     string     `json:"status"`
	AllyMode   bool       `json:"allyMode"`
	MemberIDs  []string   `json:"memberIds"`
	Members    []Member   `json:"members"`
	StartAt    time.Time  `json:"startAt"`
	EndAt      time.Time  `json:"endAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`

	Success           *bool `json:"success,omitempty"`
	LootGold          int   `json:"lootGold"`
	LootScrap         int   `json:"lootScrap"`
	BetrayalOccurred  bool  `json:"betrayalOccurred"`
	ExtractionSuccess bool  `json:"extractionSuccess"`
	Casualties        int   `json:"casualties"`
}

// NewRaid renders r.
func NewRaid(r raid.Raid) Raid {
	out := Raid{
		ID:         r.ID,
		Map:        string(r.Map),
		Status:     string(r.Status),
		AllyMode:   r.AllyMode,
		MemberIDs:  r.MemberIDs(),
		Members:    make([]Member, 0, len(r.Members)),
		StartAt:    r.StartAt,
		EndAt:      r.EndAt,
		ResolvedAt: optionalTime(r.ResolvedAt),
	}
	for _, m := range r.Members {
		out.Members = append(out.Members, Member{CharacterID: m.CharacterID, Fate: string(m.Fate), XPGained: m.XPGained})
	}
	if o := r.Outcome; o != nil {
		success := o.Success
		out.Success = &success
		out.LootGold = o.LootGold
		out.LootScrap = o.LootScrap
		out.BetrayalOccurred = o.BetrayalOccurred
		out.ExtractionSuccess = o.ExtractionSuccess
		out.Casualties = o.Casualties
	}
	return out
}

// NewRaids renders a list of raids.
func NewRaids(raids []raid.Raid) []Raid {
	out := make([]Raid, 0, len(raids))
	for _, r := range raids {
		out = append(out, NewRaid(r))
	}
	return out
}

// State is the player state response. Ledger counters sit at the top level
// as the original client expects.
type State struct {
	PlayerID       string           `json:"playerId"`
	Username       string           `json:"username"`
	Wood           int              `json:"wood"`
	Stone          int              `json:"stone"`
	Scrap          int              `json:"scrap"`
	Gold           int              `json:"gold"`
	Limits         resource.Amounts `json:"limits"`
	Buildings      []Building       `json:"buildings"`
	Characters     []Character      `json:"characters"`
	AliveCount     int              `json:"aliveCount"`
	RosterCap      int              `json:"rosterCap"`
	SquadCap       int              `json:"squadCap"`
	RecruitCost    resource.Amounts `json:"recruitCost"`
	RecruitReadyAt *time.Time       `json:"recruitReadyAt,omitempty"`
	ActiveRaids    []Raid           `json:"activeRaids"`
}

// NewState renders s.
func NewState(s service.State) State {
	out := State{
		PlayerID:       s.PlayerID,
		Username:       s.Username,
		Wood:           s.Ledger.Wood,
		Stone:          s.Ledger.Stone,
		Scrap:          s.Ledger.Scrap,
		Gold:           s.Ledger.Gold,
		Limits:         s.Limits,
		Buildings:      make([]Building, 0, len(s.Buildings)),
		Characters:     make([]Character, 0, len(s.Characters)),
		AliveCount:     s.AliveCount,
		RosterCap:      s.RosterCap,
		SquadCap:       s.SquadCap,
		RecruitCost:    s.RecruitCost,
		RecruitReadyAt: optionalTime(s.RecruitReadyAt),
		ActiveRaids:    NewRaids(s.ActiveRaids),
	}
	for _, b := range s.Buildings {
		cost, ok := s.UpgradeCosts[b.Type]
		if !ok {
			out.Buildings = append(out.Buildings, NewBuilding(b, nil))
			continue
		}
		out.Buildings = append(out.Buildings, NewBuilding(b, &cost))
	}
	for _, c := range s.Characters {
		out.Characters = append(out.Characters, NewCharacter(c))
	}
	return out
}

// Collect is the collect response.
type Collect struct {
	Ledger    resource.Amounts `json:"ledger"`
	Collected resource.Amounts `json:"collected"`
	Buildings []Building       `json:"buildings"`
}

// NewCollect renders a collection.
func NewCollect(res building.CollectResult) Collect {
	out := Collect{Ledger: res.Ledger, Collected: res.Applied, Buildings: make([]Building, 0, len(res.Buildings))}
	for _, b := range res.Buildings {
		out.Buildings = append(out.Buildings, NewBuilding(b, nil))
	}
	return out
}

// Upgrade is the upgrade response.
type Upgrade struct {
	NewLevel      int              `json:"newLevel"`
	GoldRemaining int              `json:"goldRemaining"`
	Building      Building         `json:"building"`
	Ledger        resource.Amounts `json:"ledger"`
}

// NewUpgrade renders an upgrade.
func NewUpgrade(res service.UpgradeResult) Upgrade {
	return Upgrade{
		NewLevel:      res.Building.Level,
		GoldRemaining: res.Ledger.Gold,
		Building:      NewBuilding(res.Building, nil),
		Ledger:        res.Ledger,
	}
}

// Recruitment is the recruit response.
type Recruitment struct {
	Character Character        `json:"character"`
	Ledger    resource.Amounts `json:"ledger"`
}

// NewRecruitment renders a recruitment.
func NewRecruitment(res roster.Recruitment) Recruitment {
	return Recruitment{Character: NewCharacter(res.Character), Ledger: res.Ledger}
}

// StartedRaid is the start-raid response.
type StartedRaid struct {
	Raid   Raid             `json:"raid"`
	Ledger resource.Amounts `json:"ledger"`
}

// NewStartedRaid renders a started raid.
func NewStartedRaid(res raid.Started) StartedRaid {
	return StartedRaid{Raid: NewRaid(res.Raid), Ledger: res.Ledger}
}

// Resolution is the resolve response.
type Resolution struct {
	Raid       Raid             `json:"raid"`
	Ledger     resource.Amounts `json:"ledger"`
	Credited   resource.Amounts `json:"credited"`
	Characters []Character      `json:"characters"`
}

// NewResolution renders a resolution.
func NewResolution(res raid.Resolution) Resolution {
	out := Resolution{
		Raid:       NewRaid(res.Raid),
		Ledger:     res.Ledger,
		Credited:   res.Credited,
		Characters: make([]Character, 0, len(res.Members)),
	}
	for _, c := range res.Members {
		out.Characters = append(out.Characters, NewCharacter(c))
	}
	return out
}

// RaidPage is the list-raids response.
type RaidPage struct {
	Raids         []Raid `json:"raids"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}

// NewRaidPage renders a page.
func NewRaidPage(p service.RaidPage) RaidPage {
	return RaidPage{Raids: NewRaids(p.Raids), NextPageToken: p.NextPageToken}
}

// Error is the error response body.
type Error struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
