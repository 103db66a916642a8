package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Dosada05/association-portal/docs"
	"github.com/Dosada05/association-portal/guard"
	"github.com/Dosada05/association-portal/handlers"
	"github.com/Dosada05/association-portal/metrics"
	"github.com/Dosada05/association-portal/middleware"
)

type Deps struct {
	Cookies        *middleware.CookieStore
	ClientRoot     func(http.Handler) http.Handler
	AuthError      http.Handler
	LoginLimiter   *middleware.RateLimiter
	AllowedOrigins []string
	Logger         *slog.Logger

	Auth          *handlers.AuthHandler
	Dashboard     *handlers.DashboardHandler
	Admin         *handlers.AdminHandler
	Association   *handlers.AssociationHandler
	Members       *handlers.MemberHandler
	Competitions  *handlers.CompetitionHandler
	Registrations *handlers.RegistrationHandler
	WebSocket     *handlers.WebSocketHandler
}

func SetupRoutes(router chi.Router, d Deps) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestLogger(d.Logger))
	router.Use(chiMiddleware.Recoverer)
	router.Use(metrics.Instrument)

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", metrics.Handler())
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	router.Group(func(r chi.Router) {
		r.Use(d.ClientRoot)

		r.Get("/ws", d.WebSocket.ServeWs)

		// HTML pages
		r.Group(func(r chi.Router) {
			r.Use(middleware.SecurityHeaders)
			r.Use(chiMiddleware.NoCache)

			page := func(path string) func(http.Handler) http.Handler {
				return middleware.Guarded(path, d.Cookies, d.AuthError, d.Logger)
			}

			r.With(page(guard.PathRoot)).Get(guard.PathRoot, handlers.Root)
			r.With(page(guard.PathLogin)).Get(guard.PathLogin, d.Auth.LoginForm)
			r.With(page(guard.PathLogin), d.LoginLimiter.Limit).Post(guard.PathLogin, d.Auth.Login)
			r.Post("/logout", d.Auth.Logout)
			r.With(page(guard.PathDashboard)).Get(guard.PathDashboard, d.Dashboard.Page)
			r.With(page(guard.PathAdmin)).Get(guard.PathAdmin, d.Admin.Page)
		})

		r.Route("/api/v1", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   d.AllowedOrigins,
				AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
				AllowCredentials: true,
				MaxAge:           300,
			}))
			r.Use(middleware.RequireSession)
			r.Use(chiMiddleware.Timeout(30 * time.Second))

			r.Get("/dashboard", d.Dashboard.State)

			r.Route("/association", func(r chi.Router) {
				r.Get("/", d.Association.GetMine)
				r.Put("/", d.Association.PutMine)
				r.Post("/logo", d.Association.UploadLogo)
			})

			r.Route("/members", func(r chi.Router) {
				r.Get("/", d.Members.ListMembers)
				r.Post("/", d.Members.CreateMember)
				r.Put("/{memberID}", d.Members.UpdateMember)
				r.Delete("/{memberID}", d.Members.DeleteMember)
			})

			r.Route("/registrations", func(r chi.Router) {
				r.Get("/", d.Registrations.ListMine)
				r.Post("/", d.Registrations.Register)
			})

			r.Route("/competitions", func(r chi.Router) {
				r.Get("/", d.Competitions.ListUpcoming)
				r.Get("/{competitionID}", d.Competitions.GetCompetition)
				r.Get("/{competitionID}/results", d.Competitions.ListResults)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.Post("/", d.Competitions.CreateCompetition)
					r.Put("/{competitionID}", d.Competitions.UpdateCompetition)
					r.Delete("/{competitionID}", d.Competitions.DeleteCompetition)
					r.Post("/{competitionID}/results", d.Competitions.RecordResult)
				})
			})

			r.With(middleware.RequireAdmin).Get("/admin", d.Admin.State)
		})
	})
}
