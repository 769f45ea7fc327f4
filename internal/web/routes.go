package web

import "net/http"

// RegisterAPIV1 registers the public API routes under /api/v1/.
func RegisterAPIV1(mux *http.ServeMux, handlers APIV1Handlers) {
	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", apiV1Router(handlers)))
}

// NewDefaultMux builds the mux shared by the framebuffer host and the
// simulator. With dev set, responses carry permissive CORS headers. Extra
// routes are registered on the same mux.
func NewDefaultMux(handlers APIV1Handlers, dev bool, extra ...func(*http.ServeMux)) http.Handler {
	mux := http.NewServeMux()
	RegisterAPIV1(mux, handlers)
	for _, register := range extra {
		register(mux)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, okResponse{OK: true})
	})
	if dev {
		return WithDevCORS(mux)
	}
	return mux
}
