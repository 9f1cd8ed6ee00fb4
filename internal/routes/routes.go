package routes

import (
	"net/http"
	"time"

	"github.com/AnshRaj112/inkwell-backend/internal/handlers"
	"github.com/AnshRaj112/inkwell-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps is everything the router needs.
type Deps struct {
	Auth     *handlers.AuthHandler
	Journals *handlers.JournalHandler
	Profiles *handlers.ProfileHandler
	Sessions middleware.Authenticator

	// Redis backs the per-user write limits; nil disables them.
	Redis redis.Cmdable
	Log   *zap.Logger

	AllowedOrigins []string
	Production     bool
	AllowedHost    string

	// StorageDir is served under /storage when set (local driver).
	StorageDir string
}

func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(d.Log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(d.AllowedOrigins))
	if d.Production {
		for _, mw := range middleware.ProductionSecurity(d.AllowedHost) {
			r.Use(mw)
		}
	}

	r.Get("/health", handlers.Health)
	if d.StorageDir != "" {
		r.Handle("/storage/*", handlers.StorageFiles("/storage", d.StorageDir))
	}

	writes := passThrough
	prints := passThrough
	if d.Redis != nil {
		writes = middleware.NewWindowLimit(d.Redis, "writes", time.Minute, 30, d.Log).Handler
		prints = middleware.NewWindowLimit(d.Redis, "prints", time.Hour, 5, d.Log).Handler
	}

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.LoginRateLimit())
			r.Post("/auth/signup", d.Auth.Signup)
			r.Post("/auth/signin", d.Auth.Signin)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(d.Sessions))

			r.Post("/auth/signout", d.Auth.Signout)
			r.Get("/auth/me", d.Auth.Me)

			r.Get("/journals", d.Journals.ListJournals)
			r.With(writes).Post("/journals", d.Journals.CreateJournal)
			r.Get("/journals/archive", d.Journals.ListArchivedJournals)
			r.Post("/journals/archive", d.Journals.ToggleArchive)
			r.Get("/journals/search", d.Journals.SearchJournals)
			r.Delete("/journals/{journalID}", d.Journals.DeleteJournal)
			r.Get("/journals/{journalID}/pdf", d.Journals.GeneratePDF)
			r.With(prints).Post("/journals/{journalID}/print", d.Journals.CreatePrintJob)
			r.Get("/journals/{journalID}/print-jobs", d.Journals.ListPrintJobs)

			r.Get("/pages", d.Journals.ListPages)
			r.With(writes).Post("/pages", d.Journals.CreatePage)
			r.Get("/pages/{pageID}", d.Journals.GetPage)
			r.Delete("/pages/{pageID}", d.Journals.DeletePage)

			r.Get("/profile", d.Profiles.GetProfile)
			r.Patch("/profile", d.Profiles.UpdateProfile)
		})
	})

	return r
}

func passThrough(next http.Handler) http.Handler { return next }
