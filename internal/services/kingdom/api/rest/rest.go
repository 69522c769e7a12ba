// Package rest serves the kingdom operations as an HTTP/JSON API.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	apperrors "github.com/louisbranch/throne-of-dust/internal/platform/errors"
	"github.com/louisbranch/throne-of-dust/internal/platform/i18n/catalog"
	"github.com/louisbranch/throne-of-dust/internal/platform/requestctx"
	"github.com/louisbranch/throne-of-dust/internal/platform/timeouts"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/api/wire"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/auth"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/feed"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/service"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 64 << 10

// Handler routes HTTP requests to the kingdom service.
type Handler struct {
	svc      *service.Service
	hub      *feed.Hub
	locales  *catalog.Bundle
	upgrader websocket.Upgrader
}

// New builds a handler. hub may be nil, which disables the raid feed.
func New(svc *service.Service, hub *feed.Hub) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("service is required")
	}
	return &Handler{
		svc:     svc,
		hub:     hub,
		locales: catalog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}, nil
}

// Routes returns the router serving every endpoint.
func (h *Handler) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(h.withLocale)

	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Handle("/auth/register", h.timed(h.handleRegister)).Methods(http.MethodPost)
	api.Handle("/auth/login", h.timed(h.handleLogin)).Methods(http.MethodPost)

	api.Handle("/player/state", h.authed(h.handleState)).Methods(http.MethodGet)
	api.Handle("/player/collect", h.authed(h.handleCollect)).Methods(http.MethodPost)
	api.Handle("/buildings/{type}/collect", h.authed(h.handleCollectBuilding)).Methods(http.MethodPost)
	api.Handle("/buildings/{type}/upgrade", h.authed(h.handleUpgrade)).Methods(http.MethodPost)
	api.Handle("/training/recruit", h.authed(h.handleRecruit)).Methods(http.MethodPost)
	api.Handle("/characters/{id}/traits", h.authed(h.handleAddTrait)).Methods(http.MethodPost)
	api.Handle("/raids/start", h.authed(h.handleStartRaid)).Methods(http.MethodPost)
	api.Handle("/raids/feed", h.authenticate(http.HandlerFunc(h.handleFeed))).Methods(http.MethodGet)
	api.Handle("/raids/{id}/resolve", h.authed(h.handleResolveRaid)).Methods(http.MethodPost)
	api.Handle("/raids", h.authed(h.handleListRaids)).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		h.writeError(w, req, apperrors.New(apperrors.CodeNotFound, "no route for "+req.URL.Path))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, wire.Error{Code: "METHOD_NOT_ALLOWED", Message: req.Method + " not allowed"})
	})
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withLocale resolves Accept-Language against the message catalog.
func (h *Handler) withLocale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale := h.locales.Match(r.Header.Get("Accept-Language"))
		next.ServeHTTP(w, r.WithContext(requestctx.WithLocale(r.Context(), locale)))
	})
}

// timed bounds a handler with the request timeout.
func (h *Handler) timed(fn http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Request)
		defer cancel()
		fn(w, r.WithContext(ctx))
	})
}

// authed requires a bearer token and bounds the handler with the request
// timeout.
func (h *Handler) authed(fn http.HandlerFunc) http.Handler {
	return h.authenticate(h.timed(fn))
}

func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			h.writeError(w, r, apperrors.New(apperrors.CodeUnauthorized, "missing bearer token"))
			return
		}
		claims, err := h.svc.Authenticate(token)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(requestctx.WithPlayerID(r.Context(), claims.PlayerID)))
	})
}

// bearerToken reads the Authorization header, falling back to the
// access_token query parameter that browsers use for websockets.
func bearerToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		return auth.BearerToken(header)
	}
	if token := r.URL.Query().Get("access_token"); token != "" {
		return token, true
	}
	return "", false
}

func playerID(r *http.Request) string {
	return requestctx.PlayerIDFromContext(r.Context())
}

func decodeBody(r *http.Request, schema string, dst any) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, "read body", err)
	}
	if len(raw) > maxBodyBytes {
		return apperrors.WithMetadata(apperrors.CodeInvalidArgument,
			fmt.Sprintf("body exceeds %d bytes", maxBodyBytes), map[string]string{"Field": "body"})
	}
	return wire.Decode(schema, raw, dst)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	locale := requestctx.LocaleFromContext(r.Context())
	code, message := apperrors.Localize(err, locale)
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, wire.Error{Code: string(code), Message: message, Metadata: apperrors.GetMetadata(err)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(payload)
}
