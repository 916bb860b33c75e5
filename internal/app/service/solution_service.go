package service

import (
	"context"
	"fmt"

	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

type SolutionService struct {
	solutionRepo repository.SolutionRepository
	problemRepo  repository.ProblemRepository
}

func NewSolutionService(solutionRepo repository.SolutionRepository, problemRepo repository.ProblemRepository) *SolutionService {
	return &SolutionService{solutionRepo: solutionRepo, problemRepo: problemRepo}
}

type UpsertSolutionRequest struct {
	TextSolution string           `json:"text_solution"`
	Video        *model.VideoLink `json:"video,omitempty"`
	Resources    []model.Resource `json:"resources,omitempty"`
	IsPublished  *bool            `json:"is_published,omitempty"`
}

func (r UpsertSolutionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TextSolution, validation.Required),
	)
}

// UpsertSolution creates the editorial for a problem or revises the existing
// one, bumping its version.
func (s *SolutionService) UpsertSolution(ctx context.Context, adminID, problemID string, req UpsertSolutionRequest) (*model.Solution, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), common.ErrValidation)
	}
	if _, err := s.problemRepo.FindProblemByID(ctx, problemID); err != nil {
		return nil, err
	}

	published := true
	if req.IsPublished != nil {
		published = *req.IsPublished
	}

	existing, err := s.solutionRepo.FindSolutionByProblemID(ctx, problemID)
	if err != nil {
		if !common.IsNotFound(err) {
			return nil, err
		}
		sol := &model.Solution{
			ID:           uuid.NewString(),
			ProblemID:    problemID,
			TextSolution: req.TextSolution,
			Video:        req.Video,
			Resources:    req.Resources,
			IsPublished:  published,
			CreatedByID:  adminID,
		}
		if err := s.solutionRepo.CreateSolution(ctx, sol); err != nil {
			return nil, err
		}
		return s.solutionRepo.FindSolutionByProblemID(ctx, problemID)
	}

	existing.TextSolution = req.TextSolution
	existing.Video = req.Video
	existing.Resources = req.Resources
	existing.IsPublished = published
	existing.UpdatedByID = &adminID
	if err := s.solutionRepo.UpdateSolution(ctx, existing); err != nil {
		return nil, err
	}
	return s.solutionRepo.FindSolutionByProblemID(ctx, problemID)
}

// GetSolution returns the editorial for a problem. Unpublished editorials
// are only visible to admins.
func (s *SolutionService) GetSolution(ctx context.Context, requesterRole, problemID string) (*model.Solution, error) {
	sol, err := s.solutionRepo.FindSolutionByProblemID(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if !sol.IsPublished && requesterRole != model.RoleAdmin {
		return nil, common.ErrNotFound
	}
	return sol, nil
}

func (s *SolutionService) DeleteSolution(ctx context.Context, problemID string) error {
	return s.solutionRepo.DeleteSolution(ctx, problemID)
}
