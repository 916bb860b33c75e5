package service

import (
	"context"
	"database/sql"
	"fmt"

	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type ProblemService struct {
	problemRepo repository.ProblemRepository
	db          *sql.DB // For transactions
}

func NewProblemService(problemRepo repository.ProblemRepository, db *sql.DB) *ProblemService {
	return &ProblemService{problemRepo: problemRepo, db: db}
}

type CreateProblemRequest struct {
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Difficulty  model.ProblemDifficulty `json:"difficulty"`
	Tags        []string                `json:"tags"`
	Constraints []string                `json:"constraints"`
	Hints       []string                `json:"hints"`
	Examples    []model.Example         `json:"examples"`
	TestCases   []model.TestCase        `json:"test_cases"`
	InitialCode map[string]string       `json:"initial_code"`
}

func (r CreateProblemRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Description, validation.Required),
		validation.Field(&r.Difficulty, validation.Required, validation.By(func(v any) error {
			if !model.ValidDifficulty(v.(model.ProblemDifficulty)) {
				return fmt.Errorf("must be easy, medium or hard")
			}
			return nil
		})),
		validation.Field(&r.TestCases, validation.Required, validation.Length(1, 0)),
	)
}

type UpdateProblemRequest struct {
	Title       *string                  `json:"title,omitempty"`
	Description *string                  `json:"description,omitempty"`
	Difficulty  *model.ProblemDifficulty `json:"difficulty,omitempty"`
	Tags        *[]string                `json:"tags,omitempty"`
	Constraints *[]string                `json:"constraints,omitempty"`
	Hints       *[]string                `json:"hints,omitempty"`
	Examples    *[]model.Example         `json:"examples,omitempty"`
	TestCases   *[]model.TestCase        `json:"test_cases,omitempty"`
	InitialCode *map[string]string       `json:"initial_code,omitempty"`
	IsActive    *bool                    `json:"is_active,omitempty"`
}

func (s *ProblemService) CreateProblem(ctx context.Context, userID string, req CreateProblemRequest) (*model.Problem, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), common.ErrValidation)
	}

	problem := &model.Problem{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Slug:        slug.Make(req.Title),
		Description: req.Description,
		Difficulty:  req.Difficulty,
		Tags:        req.Tags,
		Constraints: req.Constraints,
		Hints:       req.Hints,
		Examples:    req.Examples,
		InitialCode: req.InitialCode,
		IsActive:    true,
		CreatedByID: &userID,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Rollback if not committed

	if err := s.problemRepo.CreateProblem(ctx, tx, problem); err != nil {
		return nil, err
	}
	if err := s.problemRepo.AddTagsToProblem(ctx, tx, problem.ID, req.Tags); err != nil {
		return nil, err
	}

	testCases := make([]model.TestCase, len(req.TestCases))
	for i, tc := range req.TestCases {
		tc.ID = uuid.NewString()
		tc.ProblemID = problem.ID
		testCases[i] = tc
	}
	if err := s.problemRepo.AddTestCasesToProblem(ctx, tx, problem.ID, testCases); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}

	problem.TestCases = testCases
	return problem, nil
}

func (s *ProblemService) UpdateProblem(ctx context.Context, problemID string, req UpdateProblemRequest) (*model.Problem, error) {
	problem, err := s.problemRepo.FindProblemByID(ctx, problemID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		problem.Title = *req.Title
		problem.Slug = slug.Make(*req.Title)
	}
	if req.Description != nil {
		problem.Description = *req.Description
	}
	if req.Difficulty != nil {
		if !model.ValidDifficulty(*req.Difficulty) {
			return nil, fmt.Errorf("difficulty must be easy, medium or hard: %w", common.ErrValidation)
		}
		problem.Difficulty = *req.Difficulty
	}
	if req.Constraints != nil {
		problem.Constraints = *req.Constraints
	}
	if req.Hints != nil {
		problem.Hints = *req.Hints
	}
	if req.Examples != nil {
		problem.Examples = *req.Examples
	}
	if req.InitialCode != nil {
		problem.InitialCode = *req.InitialCode
	}
	if req.IsActive != nil {
		problem.IsActive = *req.IsActive
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.problemRepo.UpdateProblem(ctx, tx, problem); err != nil {
		return nil, err
	}

	if req.Tags != nil {
		if err := s.problemRepo.ClearProblemTags(ctx, tx, problemID); err != nil {
			return nil, err
		}
		if err := s.problemRepo.AddTagsToProblem(ctx, tx, problemID, *req.Tags); err != nil {
			return nil, err
		}
		problem.Tags = *req.Tags
	}

	if req.TestCases != nil {
		if len(*req.TestCases) == 0 {
			return nil, fmt.Errorf("problem must keep at least one test case: %w", common.ErrValidation)
		}
		if err := s.problemRepo.DeleteTestCasesByProblemID(ctx, tx, problemID); err != nil {
			return nil, err
		}
		testCases := make([]model.TestCase, len(*req.TestCases))
		for i, tc := range *req.TestCases {
			tc.ID = uuid.NewString()
			tc.ProblemID = problemID
			testCases[i] = tc
		}
		if err := s.problemRepo.AddTestCasesToProblem(ctx, tx, problemID, testCases); err != nil {
			return nil, err
		}
		problem.TestCases = testCases
	}

	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}
	return problem, nil
}

func (s *ProblemService) DeleteProblem(ctx context.Context, problemID string) error {
	// Soft delete keeps submission history intact.
	return s.problemRepo.DeactivateProblem(ctx, problemID)
}

// GetProblem resolves by ID first, then by slug, and attaches tags and the
// public subset of test cases.
func (s *ProblemService) GetProblem(ctx context.Context, idOrSlug string, includeHidden bool) (*model.Problem, error) {
	problem, err := s.problemRepo.FindProblemByID(ctx, idOrSlug)
	if err != nil {
		if !common.IsNotFound(err) {
			return nil, err
		}
		problem, err = s.problemRepo.FindProblemBySlug(ctx, idOrSlug)
		if err != nil {
			return nil, err
		}
	}
	if !problem.IsActive && !includeHidden {
		return nil, common.ErrNotFound
	}

	tags, err := s.problemRepo.GetTagsByProblemID(ctx, problem.ID)
	if err != nil {
		return nil, err
	}
	problem.Tags = tags

	testCases, err := s.problemRepo.GetTestCasesByProblemID(ctx, problem.ID)
	if err != nil {
		return nil, err
	}
	if includeHidden {
		problem.TestCases = testCases
	} else {
		public := []model.TestCase{}
		for _, tc := range testCases {
			if tc.IsPublic {
				public = append(public, tc)
			}
		}
		problem.TestCases = public
	}
	return problem, nil
}

type ProblemListResponse struct {
	Problems   []model.Problem `json:"problems"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
}

func (s *ProblemService) ListProblems(ctx context.Context, filter model.ProblemFilter) (*ProblemListResponse, error) {
	if filter.Difficulty != "" && !model.ValidDifficulty(filter.Difficulty) {
		return nil, fmt.Errorf("difficulty must be easy, medium or hard: %w", common.ErrValidation)
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	problems, total, err := s.problemRepo.ListProblems(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range problems {
		tags, err := s.problemRepo.GetTagsByProblemID(ctx, problems[i].ID)
		if err != nil {
			return nil, err
		}
		problems[i].Tags = tags
	}

	totalPages := (total + filter.Limit - 1) / filter.Limit
	return &ProblemListResponse{
		Problems:   problems,
		Total:      total,
		Page:       filter.Page,
		TotalPages: totalPages,
	}, nil
}

// GetRandomProblem picks an active problem at random, optionally limited
// to one difficulty.
func (s *ProblemService) GetRandomProblem(ctx context.Context, difficulty model.ProblemDifficulty) (*model.Problem, error) {
	if difficulty != "" && !model.ValidDifficulty(difficulty) {
		return nil, fmt.Errorf("difficulty must be easy, medium or hard: %w", common.ErrValidation)
	}
	return s.problemRepo.GetRandomProblem(ctx, difficulty)
}

// GetStats summarizes the active problem catalog per difficulty.
func (s *ProblemService) GetStats(ctx context.Context) (*model.ProblemStats, error) {
	return s.problemRepo.GetProblemStats(ctx)
}
