package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/relscope/internal/packageservice"
)

// RouterConfig carries the settings NewRouter needs beyond the service.
type RouterConfig struct {
	AuthEnabled    bool
	Token          string
	MaxUploadBytes int64
	Viewer         ViewerSettings
	// Events serves the server-sent event stream when set.
	Events http.Handler
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(svc *packageservice.Service, cfg RouterConfig) chi.Router {
	h := NewHandler(svc, cfg.MaxUploadBytes, cfg.Viewer)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(cfg.AuthEnabled, cfg.Token))

	r.Get("/settings", h.Settings)
	r.Get("/workspace", h.Workspace)

	r.Route("/packages", func(r chi.Router) {
		r.Get("/", h.ListPackages)
		r.Post("/", h.OpenPackage)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetPackage)
			r.Delete("/", h.ClosePackage)
			r.Post("/reload", h.ReloadPackage)
			r.Post("/save", h.SavePackage)
			r.Get("/download", h.DownloadPackage)
			r.Get("/tree", h.GetTree)
			r.Get("/graph", h.GetGraph)
			r.Get("/search", h.Search)
			r.Get("/select", h.SelectPart)
			r.Get("/parts", h.ListParts)
			r.Get("/parts/*", h.GetPart)
			r.Put("/parts/*", h.PutPart)
			r.Post("/parts/*", h.CreatePart)
			r.Delete("/parts/*", h.DeletePart)
			r.Get("/deps/*", h.GetDependencies)
		})
	})

	r.Get("/previews/{handle}", h.GetPreview)

	if cfg.Events != nil {
		r.Handle("/events", cfg.Events)
	}

	return r
}
