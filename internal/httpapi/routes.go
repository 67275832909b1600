package httpapi

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/DoyleJ11/fearless-draft/internal/catalog"
	"github.com/DoyleJ11/fearless-draft/internal/config"
	"github.com/DoyleJ11/fearless-draft/internal/hub"
	"github.com/DoyleJ11/fearless-draft/internal/lobby"
	"github.com/DoyleJ11/fearless-draft/internal/store"
	"github.com/DoyleJ11/fearless-draft/internal/ws"
)

type Deps struct {
	Hub     *hub.Hub
	Catalog catalog.Provider
	// Store receives the initial snapshot of new series. Optional.
	Store lobby.Store
	// Events serves GET /series/{id}/events. Optional.
	Events      store.EventLog
	Defaults    config.SeriesDefaults
	CORSOrigins []string
	Logger      *zap.Logger
}

type Server struct {
	deps Deps
	log  *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if len(d.CORSOrigins) == 0 {
		d.CORSOrigins = []string{"*"}
	}
	s := &Server{deps: d, log: d.Logger}

	r := chi.NewRouter()

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/catalog", s.ListCatalog)
	r.Post("/series", s.CreateSeries)
	r.Get("/series/{id}", s.GetSeries)
	r.Get("/series/{id}/events", s.ListSeriesEvents)
	r.Get("/ws", ws.Handler(d.Hub, ws.Options{
		Logger:         d.Logger,
		OriginPatterns: originHosts(d.CORSOrigins),
	}))

	c := cors.New(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{http.MethodHead, http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(r)
}

// originHosts turns CORS origins into the host patterns websocket.Accept
// matches against.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
			continue
		}
		hosts = append(hosts, o)
	}
	return hosts
}
