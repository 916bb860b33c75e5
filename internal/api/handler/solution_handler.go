package handler

import (
	"encoding/json"
	"net/http"

	"codearena/internal/api/middleware"
	"codearena/internal/app/service"
	"codearena/internal/common"

	"github.com/go-chi/chi/v5"
)

type SolutionHandler struct {
	solutionService *service.SolutionService
}

func NewSolutionHandler(solutionService *service.SolutionService) *SolutionHandler {
	return &SolutionHandler{solutionService: solutionService}
}

// Routes are nested under /problems/{problemID}/solution.
func (h *SolutionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.getSolution)

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.Authenticator, middleware.AdminOnly)
		admin.Put("/", h.upsertSolution)
		admin.Delete("/", h.deleteSolution)
	})
}

func (h *SolutionHandler) getSolution(w http.ResponseWriter, r *http.Request) {
	role, _ := middleware.GetUserRoleFromContext(r.Context())
	sol, err := h.solutionService.GetSolution(r.Context(), role, chi.URLParam(r, "problemID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, sol)
}

func (h *SolutionHandler) upsertSolution(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req service.UpsertSolutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	sol, err := h.solutionService.UpsertSolution(r.Context(), userID, chi.URLParam(r, "problemID"), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, sol)
}

func (h *SolutionHandler) deleteSolution(w http.ResponseWriter, r *http.Request) {
	if err := h.solutionService.DeleteSolution(r.Context(), chi.URLParam(r, "problemID")); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "solution deleted"})
}
