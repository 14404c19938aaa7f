package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID)

	// routes without authorization
	router.Group(func(r chi.Router) {
		r.Use(withLogging)
		r.Use(withGZip)

		r.Get("/api/version", h.getServerVersion)
		r.Get("/ping", h.ping)
	})

	// sync API, bearer token required
	router.Group(func(r chi.Router) {
		r.Use(withLogging)
		r.Use(withGZip)
		r.Use(h.auth)

		r.Post("/api/sync/push", h.push)
		r.Post("/api/sync/pull", h.pull)
	})

	// the websocket upgrade needs the raw response writer, so the
	// wrapping middleware stays off this route
	router.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Get("/api/sync/ws", h.realtime)
	})

	router.MethodNotAllowed(CheckHTTPMethod(router))

	return router
}
