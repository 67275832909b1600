package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/fearless-draft/internal/engine"
	"github.com/DoyleJ11/fearless-draft/internal/lobby"
	"github.com/DoyleJ11/fearless-draft/internal/types"
)

const (
	MaxNumberOfGames = 5
	MaxTurnTimerSec  = 300

	codeLength   = 6
	codeAttempts = 10
)

var errCodeSpace = errors.New("no free series code")

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, codeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func (s *Server) CreateSeries(w http.ResponseWriter, r *http.Request) {
	var req types.CreateSeriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	rules, names, err := s.seriesOptions(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	code, err := s.freeCode(r.Context())
	if err != nil {
		s.log.Error("generate series code", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "failed to generate code")
		return
	}

	state := engine.NewSeries(code, rules, names)
	if _, err := s.deps.Hub.Create(r.Context(), code, state); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "failed to create series")
		return
	}
	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		if err := s.deps.Store.SaveSnapshot(ctx, lobby.Snapshot{Version: 0, State: state}); err != nil {
			s.log.Warn("save initial snapshot failed", zap.String("series_id", code), zap.Error(err))
		}
		cancel()
	}
	s.log.Info("series created",
		zap.String("series_id", code),
		zap.Int("games", rules.NumberOfGames),
		zap.Bool("fearless", rules.Fearless))

	snap := types.NewSeriesSnapshot(0, state)
	writeJSON(w, http.StatusCreated, types.CreateSeriesResponse{
		Code:  code,
		URLs:  viewURLs(code),
		State: &snap,
	})
}

func (s *Server) seriesOptions(req types.CreateSeriesRequest) (engine.Rules, map[engine.Side]string, error) {
	rules := s.deps.Defaults.Rules()
	names := s.deps.Defaults.SideNames()

	if req.NumberOfGames != 0 {
		rules.NumberOfGames = req.NumberOfGames
	}
	if req.FearlessDraft != nil {
		rules.Fearless = *req.FearlessDraft
	}
	if req.TurnTimerSec != 0 {
		rules.TurnTimerSec = req.TurnTimerSec
	}
	if req.BlueName != "" {
		names[engine.SideBlue] = req.BlueName
	}
	if req.RedName != "" {
		names[engine.SideRed] = req.RedName
	}

	if rules.NumberOfGames < 1 || rules.NumberOfGames > MaxNumberOfGames {
		return rules, nil, fmt.Errorf("number_of_games must be between 1 and %d", MaxNumberOfGames)
	}
	if rules.TurnTimerSec < 1 || rules.TurnTimerSec > MaxTurnTimerSec {
		return rules, nil, fmt.Errorf("turn_timer_sec must be between 1 and %d", MaxTurnTimerSec)
	}
	return rules, names, nil
}

// freeCode draws codes until one is unknown to the hub and its loader.
func (s *Server) freeCode(ctx context.Context) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		c, err := GenerateCode()
		if err != nil {
			return "", err
		}
		lb, err := s.deps.Hub.Lookup(ctx, c)
		if err != nil {
			return "", err
		}
		if lb == nil {
			return c, nil
		}
		s.log.Debug("collision on code, regenerating", zap.String("code", c))
	}
	return "", errCodeSpace
}

func viewURLs(code string) map[string]string {
	q := url.QueryEscape(code)
	return map[string]string{
		"blue":      "/ws?code=" + q + "&view=blue",
		"red":       "/ws?code=" + q + "&view=red",
		"spectator": "/ws?code=" + q + "&view=spectator",
	}
}

func (s *Server) GetSeries(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "id")
	lb, err := s.deps.Hub.Lookup(r.Context(), code)
	if err != nil {
		s.log.Error("lobby lookup failed", zap.String("series_id", code), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "lobby unavailable")
		return
	}
	if lb == nil {
		writeError(w, http.StatusNotFound, "not_found", "series not found")
		return
	}

	reply := make(chan lobby.View, 1)
	if err := lb.Send(r.Context(), lobby.GetState{Reply: reply}); err != nil {
		writeError(w, http.StatusNotFound, "not_found", "series not found")
		return
	}
	select {
	case v := <-reply:
		writeJSON(w, http.StatusOK, types.NewSeriesSnapshot(v.Version, v.State))
	case <-lb.Done():
		writeError(w, http.StatusNotFound, "not_found", "series not found")
	case <-r.Context().Done():
	}
}

func (s *Server) ListSeriesEvents(w http.ResponseWriter, r *http.Request) {
	if s.deps.Events == nil {
		writeError(w, http.StatusNotImplemented, "unavailable", "event history is not stored")
		return
	}
	records, err := s.deps.Events.ListEvents(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.log.Error("list events failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) ListCatalog(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.Catalog.ListItems(r.Context())
	if err != nil {
		s.log.Warn("catalog unavailable", zap.Error(err))
		writeError(w, http.StatusBadGateway, "catalog_unavailable", "catalog unavailable")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, types.ErrorBody{Code: code, Message: message})
}
