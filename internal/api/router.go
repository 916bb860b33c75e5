package api

import (
	"net/http"
	"time"

	"codearena/internal/api/handler"
	"codearena/internal/app/service"
	"codearena/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	authService *service.AuthService,
	problemService *service.ProblemService,
	submissionService *service.SubmissionService,
	discussionService *service.DiscussionService,
	solutionService *service.SolutionService,
	userService *service.UserService,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	// Judging runs synchronously inside the request, so the timeout must
	// cover the slowest provider path (remote polling plus local fallback).
	r.Use(chiMiddleware.Timeout(120 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Verifies bearer tokens and puts claims in context; enforcement happens
	// per route group in middleware.Authenticator.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(api chi.Router) {
		authHandler := handler.NewAuthHandler(authService)
		api.Route("/auth", authHandler.RegisterRoutes)

		problemHandler := handler.NewProblemHandler(problemService)
		solutionHandler := handler.NewSolutionHandler(solutionService)
		api.Route("/problems", func(pr chi.Router) {
			problemHandler.RegisterRoutes(pr)
			pr.Route("/{problemID}/solution", solutionHandler.RegisterRoutes)
		})

		submissionHandler := handler.NewSubmissionHandler(submissionService)
		api.Route("/submissions", submissionHandler.RegisterRoutes)

		discussionHandler := handler.NewDiscussionHandler(discussionService)
		api.Route("/discussions", discussionHandler.RegisterRoutes)

		userHandler := handler.NewUserHandler(userService)
		api.Route("/users", userHandler.RegisterRoutes)
	})

	return r
}
