package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/rook-computer/confetti/internal/state"
)

// maxTriggerBody bounds the trigger request body.
const maxTriggerBody = 4 << 10

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// TriggerRequest is the body of POST /api/v1/confetti. A missing durationMs
// keeps the current duration.
type TriggerRequest struct {
	Active     *bool  `json:"active"`
	DurationMs *int64 `json:"durationMs,omitempty"`
}

// MaxDurationMs is the largest durationMs magnitude that fits a time.Duration.
const MaxDurationMs = math.MaxInt64 / int64(time.Millisecond)

var errDurationRange = fmt.Errorf("durationMs must be between %d and %d", -MaxDurationMs, MaxDurationMs)

// Duration returns the requested duration and whether one was sent.
func (r TriggerRequest) Duration() (time.Duration, bool, error) {
	if r.DurationMs == nil {
		return 0, false, nil
	}
	ms := *r.DurationMs
	if ms > MaxDurationMs || ms < -MaxDurationMs {
		return 0, false, errDurationRange
	}
	return time.Duration(ms) * time.Millisecond, true, nil
}

type APIV1Handlers struct {
	// TriggerFunc applies an active flag and an optional duration.
	TriggerFunc func(ctx context.Context, active bool, duration time.Duration, hasDuration bool) error
	// BurstFunc restarts the effect.
	BurstFunc func(ctx context.Context) error
	// StatusFunc returns the current host state.
	StatusFunc func() state.State
}

type triggerStatus struct {
	Active     bool      `json:"active"`
	DurationMs int64     `json:"durationMs"`
	Preset     string    `json:"preset,omitempty"`
	Source     string    `json:"source,omitempty"`
	At         time.Time `json:"at,omitempty"`
}

type effectStatus struct {
	Phase      string  `json:"phase"`
	Active     bool    `json:"active"`
	Activation uint64  `json:"activation"`
	Particles  int     `json:"particles"`
	Alpha      float64 `json:"alpha"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

type statusResponse struct {
	Phase   string        `json:"phase"`
	Caption string        `json:"caption,omitempty"`
	Error   string        `json:"error,omitempty"`
	Trigger triggerStatus `json:"trigger"`
	Effect  effectStatus  `json:"effect"`
}

func apiV1Router(handlers APIV1Handlers) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/confetti", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handleStatus(w, r, handlers.StatusFunc)
		case http.MethodPost:
			handleTrigger(w, r, handlers.TriggerFunc)
		default:
			writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		}
	})
	mux.HandleFunc("/confetti/burst", func(w http.ResponseWriter, r *http.Request) {
		handleBurst(w, r, handlers.BurstFunc)
	})
	return mux
}

func handleTrigger(w http.ResponseWriter, r *http.Request, triggerFunc func(ctx context.Context, active bool, duration time.Duration, hasDuration bool) error) {
	if triggerFunc == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "trigger not configured")
		return
	}

	var req TriggerRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxTriggerBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.Active == nil {
		writeAPIError(w, http.StatusBadRequest, "missing_active", "active is required")
		return
	}

	d, hasDuration, err := req.Duration()
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_duration", err.Error())
		return
	}
	if err := triggerFunc(r.Context(), *req.Active, d, hasDuration); err != nil {
		if errors.Is(err, ErrBusy) {
			writeAPIError(w, http.StatusConflict, "not_ready", err.Error())
			return
		}
		writeAPIError(w, http.StatusInternalServerError, "trigger_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, okResponse{OK: true})
}

func handleBurst(w http.ResponseWriter, r *http.Request, burstFunc func(ctx context.Context) error) {
	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if burstFunc == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "burst not configured")
		return
	}
	if err := burstFunc(r.Context()); err != nil {
		if errors.Is(err, ErrBusy) {
			writeAPIError(w, http.StatusConflict, "not_ready", err.Error())
			return
		}
		writeAPIError(w, http.StatusInternalServerError, "burst_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, okResponse{OK: true})
}

func handleStatus(w http.ResponseWriter, r *http.Request, statusFunc func() state.State) {
	if statusFunc == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "status not configured")
		return
	}
	writeJSON(w, http.StatusOK, newStatusResponse(statusFunc()))
}

func newStatusResponse(snap state.State) statusResponse {
	return statusResponse{
		Phase:   snap.Phase.String(),
		Caption: snap.Caption,
		Error:   snap.Err,
		Trigger: triggerStatus{
			Active:     snap.Trigger.Active,
			DurationMs: snap.Trigger.Duration.Milliseconds(),
			Preset:     snap.Trigger.Preset,
			Source:     snap.Trigger.Source,
			At:         snap.Trigger.At,
		},
		Effect: effectStatus{
			Phase:      snap.Effect.Phase,
			Active:     snap.Effect.Active,
			Activation: snap.Effect.Activation,
			Particles:  snap.Effect.Particles,
			Alpha:      snap.Effect.Alpha,
			Width:      snap.Effect.Width,
			Height:     snap.Effect.Height,
		},
	}
}

// ErrBusy is returned by trigger handlers while the host is not ready; the
// API answers 409.
var ErrBusy = errors.New("host not ready")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Error: code, Message: message})
}
