package rest

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/api/wire"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/building"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/roster"
)

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req wire.Credentials
	if err := decodeBody(r, wire.SchemaCredentials, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	session, err := h.svc.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, wire.NewSession(session))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req wire.Credentials
	if err := decodeBody(r, wire.SchemaCredentials, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	session, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.NewSession(session))
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := h.svc.State(r.Context(), playerID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.NewState(state))
}

func (h *Handler) handleCollect(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Collect(r.Context(), playerID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.NewCollect(res))
}

func (h *Handler) handleCollectBuilding(w http.ResponseWriter, r *http.Request) {
	t := building.Type(mux.Vars(r)["type"])
	res, err := h.svc.CollectBuilding(r.Context(), playerID(r), t)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.NewCollect(res))
}

func (h *Handler) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	t := building.Type(mux.Vars(r)["type"])
	res, err := h.svc.Upgrade(r.Context(), playerID(r), t)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.NewUpgrade(res))
}

func (h *Handler) handleRecruit(w http.ResponseWriter, r *http.Request) {
	var req wire.RecruitRequest
	if err := decodeBody(r, wire.SchemaRecruit, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.svc.Recruit(r.Context(), playerID(r), req.Domain())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, wire.NewRecruitment(res))
}

func (h *Handler) handleAddTrait(w http.ResponseWriter, r *http.Request) {
	var req wire.AddTraitRequest
	if err := decodeBody(r, wire.SchemaAddTrait, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.svc.AddTrait(r.Context(), playerID(r), mux.Vars(r)["id"], roster.Trait(req.Trait))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.NewCharacter(c))
}

func (h *Handler) handleStartRaid(w http.ResponseWriter, r *http.Request) {
	var req wire.StartRaidRequest
	if err := decodeBody(r, wire.SchemaStartRaid, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.svc.StartRaid(r.Context(), playerID(r), req.Domain())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, wire.NewStartedRaid(res))
}

func (h *Handler) handleResolveRaid(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ResolveRaid(r.Context(), playerID(r), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.NewResolution(res))
}

func (h *Handler) handleListRaids(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := wire.ListRaidsRequest{
		Filter:    q.Get("filter"),
		OrderBy:   q.Get("order_by"),
		PageToken: q.Get("page_token"),
	}
	if raw := q.Get("page_size"); raw != "" {
		size, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			h.writeError(w, r, invalidQuery("page_size", err))
			return
		}
		req.PageSize = int32(size)
	}
	page, err := h.svc.ListRaids(r.Context(), playerID(r), req.Service())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.NewRaidPage(page))
}
