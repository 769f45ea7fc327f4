package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rook-computer/confetti/internal/buttons"
)

// SimControl exposes simulator-only endpoints for scripting the window:
// synthetic button presses and window resizes.
type SimControl struct {
	Keys *buttons.ChanButtons
	// Resize changes the window size in logical pixels.
	Resize func(width, height int)
}

func (c *SimControl) register(mux *http.ServeMux) {
	mux.HandleFunc("/sim/button/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/sim/button/"), "/")
		ev := buttons.Event(name)
		switch ev {
		case buttons.Toggle, buttons.Burst, buttons.Exit:
		default:
			writeSimError(w, http.StatusBadRequest, "unknown button "+name)
			return
		}
		if c.Keys == nil || !c.Keys.Emit(ev) {
			writeSimError(w, http.StatusServiceUnavailable, "button queue unavailable")
			return
		}
		writeSimJSON(w, http.StatusOK, map[string]any{"ok": true, "button": name})
	})

	mux.HandleFunc("/sim/window", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeSimError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if req.Width <= 0 || req.Height <= 0 {
			writeSimError(w, http.StatusBadRequest, "width and height must be positive")
			return
		}
		if c.Resize != nil {
			c.Resize(req.Width, req.Height)
		}
		writeSimJSON(w, http.StatusOK, map[string]any{"ok": true, "width": req.Width, "height": req.Height})
	})
}

func writeSimJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSimError(w http.ResponseWriter, status int, message string) {
	writeSimJSON(w, status, map[string]any{"error": message})
}
