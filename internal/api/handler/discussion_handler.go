package handler

import (
	"encoding/json"
	"net/http"

	"codearena/internal/api/middleware"
	"codearena/internal/app/service"
	"codearena/internal/common"
	"codearena/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type DiscussionHandler struct {
	discussionService *service.DiscussionService
}

func NewDiscussionHandler(discussionService *service.DiscussionService) *DiscussionHandler {
	return &DiscussionHandler{discussionService: discussionService}
}

func (h *DiscussionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listDiscussions)
	r.Get("/{discussionID}", h.getDiscussion)

	r.Group(func(auth chi.Router) {
		auth.Use(middleware.Authenticator)
		auth.Post("/", h.createDiscussion)
		auth.Delete("/{discussionID}", h.deleteDiscussion)
		auth.Post("/{discussionID}/comments", h.addComment)
		auth.Post("/{discussionID}/vote", h.vote)
	})
}

func (h *DiscussionHandler) listDiscussions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.DiscussionFilter{
		ProblemID: q.Get("problem_id"),
		UserID:    q.Get("user_id"),
		Tag:       q.Get("tag"),
		Page:      queryInt(q.Get("page"), 1),
		Limit:     queryInt(q.Get("limit"), 20),
	}

	discussions, total, err := h.discussionService.ListDiscussions(r.Context(), filter)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]any{
		"discussions": discussions,
		"total":       total,
		"page":        filter.Page,
	})
}

func (h *DiscussionHandler) getDiscussion(w http.ResponseWriter, r *http.Request) {
	d, err := h.discussionService.GetDiscussion(r.Context(), chi.URLParam(r, "discussionID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, d)
}

func (h *DiscussionHandler) createDiscussion(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req service.CreateDiscussionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	d, err := h.discussionService.CreateDiscussion(r.Context(), userID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, d)
}

func (h *DiscussionHandler) deleteDiscussion(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	role, _ := middleware.GetUserRoleFromContext(r.Context())

	if err := h.discussionService.DeleteDiscussion(r.Context(), userID, role, chi.URLParam(r, "discussionID")); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "discussion deleted"})
}

func (h *DiscussionHandler) addComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req service.AddCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	c, err := h.discussionService.AddComment(r.Context(), userID, chi.URLParam(r, "discussionID"), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, c)
}

func (h *DiscussionHandler) vote(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req struct {
		Direction string `json:"direction"` // "up" or "down"
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if req.Direction != "up" && req.Direction != "down" {
		common.RespondWithError(w, http.StatusBadRequest, "direction must be \"up\" or \"down\"")
		return
	}

	score, err := h.discussionService.Vote(r.Context(), userID, chi.URLParam(r, "discussionID"), req.Direction == "up")
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]int{"vote_score": score})
}
