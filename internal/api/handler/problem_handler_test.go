package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"codearena/internal/app/service"
	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"
)

type fakeCatalogRepo struct {
	repository.ProblemRepository
	random           *model.Problem
	randomDifficulty model.ProblemDifficulty
	stats            *model.ProblemStats
}

func (f *fakeCatalogRepo) GetRandomProblem(ctx context.Context, difficulty model.ProblemDifficulty) (*model.Problem, error) {
	f.randomDifficulty = difficulty
	if f.random == nil {
		return nil, common.ErrNotFound
	}
	return f.random, nil
}

func (f *fakeCatalogRepo) GetProblemStats(ctx context.Context) (*model.ProblemStats, error) {
	return f.stats, nil
}

func newCatalogHandler(repo *fakeCatalogRepo) *ProblemHandler {
	return NewProblemHandler(service.NewProblemService(repo, nil))
}

func TestRandomProblemAppliesDifficulty(t *testing.T) {
	repo := &fakeCatalogRepo{
		random: &model.Problem{ID: "p1", Title: "Two Sum", Slug: "two-sum", Difficulty: model.DifficultyEasy},
	}
	h := newCatalogHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/random?difficulty=easy", nil)
	rec := httptest.NewRecorder()
	h.randomProblem(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if repo.randomDifficulty != model.DifficultyEasy {
		t.Errorf("difficulty passed through = %q, want easy", repo.randomDifficulty)
	}
	var resp struct {
		Problem *model.Problem `json:"problem"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Problem == nil || resp.Problem.ID != "p1" {
		t.Errorf("problem = %+v, want p1 under a problem key", resp.Problem)
	}
}

func TestRandomProblemEmptyCatalog(t *testing.T) {
	h := newCatalogHandler(&fakeCatalogRepo{})

	req := httptest.NewRequest(http.MethodGet, "/random", nil)
	rec := httptest.NewRecorder()
	h.randomProblem(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var resp common.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "No problems found" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestRandomProblemRejectsUnknownDifficulty(t *testing.T) {
	h := newCatalogHandler(&fakeCatalogRepo{})

	req := httptest.NewRequest(http.MethodGet, "/random?difficulty=impossible", nil)
	rec := httptest.NewRecorder()
	h.randomProblem(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestProblemStatsSummarizesCatalog(t *testing.T) {
	repo := &fakeCatalogRepo{
		stats: &model.ProblemStats{
			ByDifficulty: []model.ProblemDifficultyStats{
				{Difficulty: model.DifficultyEasy, Count: 2, TotalSubmissions: 10, TotalAccepted: 6},
				{Difficulty: model.DifficultyHard, Count: 1, TotalSubmissions: 4, TotalAccepted: 1},
			},
			TotalProblems:    3,
			TotalSubmissions: 14,
		},
	}
	h := newCatalogHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	h.problemStats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Stats *model.ProblemStats `json:"stats"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Stats == nil || resp.Stats.TotalProblems != 3 || len(resp.Stats.ByDifficulty) != 2 {
		t.Errorf("stats = %+v", resp.Stats)
	}
}
