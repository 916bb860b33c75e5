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

type DiscussionService struct {
	discussionRepo repository.DiscussionRepository
	problemRepo    repository.ProblemRepository
}

func NewDiscussionService(discussionRepo repository.DiscussionRepository, problemRepo repository.ProblemRepository) *DiscussionService {
	return &DiscussionService{discussionRepo: discussionRepo, problemRepo: problemRepo}
}

type CreateDiscussionRequest struct {
	ProblemID string   `json:"problem_id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags"`
}

func (r CreateDiscussionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ProblemID, validation.Required),
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Content, validation.Required, validation.Length(1, 10000)),
	)
}

type AddCommentRequest struct {
	Content string `json:"content"`
}

func (r AddCommentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required, validation.Length(1, 2000)),
	)
}

func (s *DiscussionService) CreateDiscussion(ctx context.Context, userID string, req CreateDiscussionRequest) (*model.Discussion, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), common.ErrValidation)
	}
	if _, err := s.problemRepo.FindProblemByID(ctx, req.ProblemID); err != nil {
		return nil, err
	}

	d := &model.Discussion{
		ID:        uuid.NewString(),
		ProblemID: req.ProblemID,
		UserID:    userID,
		Title:     req.Title,
		Content:   req.Content,
		Tags:      req.Tags,
	}
	if err := s.discussionRepo.CreateDiscussion(ctx, nil, d); err != nil {
		return nil, err
	}
	return s.discussionRepo.FindDiscussionByID(ctx, d.ID)
}

// GetDiscussion returns one discussion with its comments and bumps the view
// counter. The bump is best effort.
func (s *DiscussionService) GetDiscussion(ctx context.Context, id string) (*model.Discussion, error) {
	d, err := s.discussionRepo.FindDiscussionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.discussionRepo.IncrementViews(ctx, id); err == nil {
		d.Views++
	}

	comments, err := s.discussionRepo.GetCommentsByDiscussionID(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Comments = comments
	return d, nil
}

func (s *DiscussionService) ListDiscussions(ctx context.Context, filter model.DiscussionFilter) ([]model.Discussion, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	return s.discussionRepo.ListDiscussions(ctx, filter)
}

// DeleteDiscussion is allowed for the author and admins.
func (s *DiscussionService) DeleteDiscussion(ctx context.Context, requesterID, requesterRole, id string) error {
	d, err := s.discussionRepo.FindDiscussionByID(ctx, id)
	if err != nil {
		return err
	}
	if d.UserID != requesterID && requesterRole != model.RoleAdmin {
		return common.ErrForbidden
	}
	return s.discussionRepo.DeleteDiscussion(ctx, id)
}

func (s *DiscussionService) AddComment(ctx context.Context, userID, discussionID string, req AddCommentRequest) (*model.Comment, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), common.ErrValidation)
	}
	d, err := s.discussionRepo.FindDiscussionByID(ctx, discussionID)
	if err != nil {
		return nil, err
	}
	if d.IsLocked {
		return nil, fmt.Errorf("discussion is locked: %w", common.ErrForbidden)
	}

	c := &model.Comment{
		ID:           uuid.NewString(),
		DiscussionID: discussionID,
		UserID:       userID,
		Content:      req.Content,
	}
	if err := s.discussionRepo.AddComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Vote applies an up or down vote. Repeating the same vote retracts it.
func (s *DiscussionService) Vote(ctx context.Context, userID, discussionID string, up bool) (int, error) {
	if _, err := s.discussionRepo.FindDiscussionByID(ctx, discussionID); err != nil {
		return 0, err
	}
	value := model.VoteUp
	if !up {
		value = model.VoteDown
	}
	return s.discussionRepo.SetVote(ctx, discussionID, userID, value)
}
