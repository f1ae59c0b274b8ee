package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nexonext/core/events"
	"nexonext/core/types"
	"nexonext/native/matrix"
	"nexonext/observability"
	"nexonext/observability/logging"
	"nexonext/storage"
)

// Config captures the dependencies required to construct the server.
type Config struct {
	Store      *storage.Store
	Engine     *matrix.Engine
	Log        *slog.Logger
	RateLimits map[string]RateLimit
}

// Server exposes the matrix engine over HTTP.
type Server struct {
	store  *storage.Store
	engine *matrix.Engine
	log    *slog.Logger

	router http.Handler
}

// New constructs a configured HTTP router over the engine and store.
func New(cfg Config) *Server {
	logger := cfg.Log
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		store:  cfg.Store,
		engine: cfg.Engine,
		log:    logger,
	}
	srv.router = srv.buildRouter(NewRateLimiter(cfg.RateLimits))
	return srv
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter(limiter *RateLimiter) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Route("/v1", func(api chi.Router) {
		api.With(limiter.Middleware("purchase")).Post("/matrix/purchase", s.instrument("purchase", s.handlePurchase))
		api.With(limiter.Middleware("unfreeze")).Post("/matrix/unfreeze", s.instrument("unfreeze", s.handleUnfreeze))
		api.With(limiter.Middleware("gift")).Post("/gift", s.instrument("gift", s.handleGift))
		api.With(limiter.Middleware("members")).Get("/members/{id}", s.instrument("member", s.handleMember))
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func (s *Server) instrument(route string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		handler(ww, r)
		observability.API().Observe(route, ww.Status(), time.Since(start))
	}
}

type purchaseRequest struct {
	MemberID string `json:"member_id"`
	Program  string `json:"program"`
	Level    int    `json:"level"`
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	var msg string
	evts, err := s.store.Update(r.Context(), func(tx *storage.TxState) error {
		var opErr error
		msg, opErr = s.engine.PurchaseLevel(tx, req.MemberID, req.Program, req.Level)
		return opErr
	})
	observability.Engine().ObserveOperation("purchase", req.Program, err)
	if err != nil {
		s.writeEngineError(w, r, "purchase", err)
		return
	}
	s.recordEngineEvents(evts)
	s.log.Info("level purchased",
		slog.String("member", req.MemberID),
		slog.String("program", req.Program),
		slog.Int("level", req.Level))
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

type unfreezeRequest struct {
	MemberID string `json:"member_id"`
	Program  string `json:"program"`
	Level    int    `json:"level"`
}

func (s *Server) handleUnfreeze(w http.ResponseWriter, r *http.Request) {
	var req unfreezeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	var msg string
	evts, err := s.store.Update(r.Context(), func(tx *storage.TxState) error {
		var opErr error
		msg, opErr = s.engine.UnfreezeLevel(tx, req.MemberID, req.Program, req.Level)
		return opErr
	})
	observability.Engine().ObserveOperation("unfreeze", req.Program, err)
	if err != nil {
		s.writeEngineError(w, r, "unfreeze", err)
		return
	}
	s.recordEngineEvents(evts)
	s.log.Info("level unfrozen",
		slog.String("member", req.MemberID),
		slog.String("program", req.Program),
		slog.Int("level", req.Level))
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

type giftRequest struct {
	SenderID       string `json:"sender_id"`
	RecipientEmail string `json:"recipient_email"`
	Amount         string `json:"amount"`
}

func (s *Server) handleGift(w http.ResponseWriter, r *http.Request) {
	var req giftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(req.Amount), 10)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	var msg string
	evts, err := s.store.Update(r.Context(), func(tx *storage.TxState) error {
		var opErr error
		msg, opErr = s.engine.SendGift(tx, req.SenderID, req.RecipientEmail, amount)
		return opErr
	})
	observability.Engine().ObserveOperation("gift", "", err)
	if err != nil {
		s.writeEngineError(w, r, "gift", err)
		return
	}
	s.recordEngineEvents(evts)
	s.log.Info("gift sent",
		slog.String("sender", req.SenderID),
		slog.String("recipient", logging.MaskEmail(req.RecipientEmail)))
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

type memberResponse struct {
	ID           string                        `json:"id"`
	Email        string                        `json:"email"`
	ReferralCode string                        `json:"referralCode"`
	ReferredBy   string                        `json:"referredBy,omitempty"`
	Balance      string                        `json:"balance"`
	Packages     map[string]types.PackageState `json:"packages"`
	CreatedAt    time.Time                     `json:"createdAt"`
}

func (s *Server) handleMember(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	member, err := s.store.Member(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "member not found")
			return
		}
		s.log.Error("member lookup failed", slog.String("member", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	balance := "0"
	if member.Balance != nil {
		balance = member.Balance.String()
	}
	writeJSON(w, http.StatusOK, memberResponse{
		ID:           member.ID,
		Email:        member.Email,
		ReferralCode: member.ReferralCode,
		ReferredBy:   member.ReferredBy,
		Balance:      balance,
		Packages:     member.Packages,
		CreatedAt:    member.CreatedAt,
	})
}

// writeEngineError maps engine sentinels onto HTTP statuses. Validation
// failures surface their message verbatim; anything unexpected stays generic.
func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	switch {
	case errors.Is(err, matrix.ErrMemberNotFound), errors.Is(err, matrix.ErrRecipientNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, matrix.ErrUnknownProgram),
		errors.Is(err, matrix.ErrUnknownLevel),
		errors.Is(err, matrix.ErrLevelNotLocked),
		errors.Is(err, matrix.ErrLevelOutOfOrder),
		errors.Is(err, matrix.ErrLevelNotFrozen),
		errors.Is(err, matrix.ErrInsufficientFunds),
		errors.Is(err, matrix.ErrInvalidAmount),
		errors.Is(err, matrix.ErrSelfGift):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("engine operation failed",
			slog.String("operation", operation),
			slog.String("request", chimw.GetReqID(r.Context())),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) recordEngineEvents(evts []types.Event) {
	m := observability.Engine()
	for _, evt := range evts {
		program := evt.Attributes["program"]
		switch evt.Type {
		case events.TypeActionPassedUp:
			m.RecordPassUp(program)
		case events.TypeMatrixRecycled:
			m.RecordRecycle(program)
		case events.TypeMatrixFrozen:
			m.RecordFreeze(program)
		case events.TypeAdminCredited:
			m.RecordAdminCredit(program, evt.Attributes["reason"])
		case events.TypeBoxSelfSeeded:
			m.RecordSelfSeed(program)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
