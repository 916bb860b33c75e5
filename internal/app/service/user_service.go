package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"
	"codearena/internal/platform/cache"
	"codearena/pkg/logger"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/redis/go-redis/v9"
)

type UserService struct {
	userRepo repository.UserRepository
	rdb      *redis.Client // nil disables leaderboard caching
	cacheTTL time.Duration
}

func NewUserService(userRepo repository.UserRepository, rdb *redis.Client, cacheTTL time.Duration) *UserService {
	return &UserService{userRepo: userRepo, rdb: rdb, cacheTTL: cacheTTL}
}

type UpdateProfileRequest struct {
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	Bio      string `json:"bio"`
	Location string `json:"location"`
	Website  string `json:"website"`
	Github   string `json:"github"`
}

func (r UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(0, 100)),
		validation.Field(&r.Bio, validation.Length(0, 500)),
		validation.Field(&r.Website, is.URL),
		validation.Field(&r.Avatar, is.URL),
	)
}

// GetProfile returns the public view of a user, including their solved set.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*model.User, []model.SolvedProblem, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	user.HashedPassword = ""
	user.Email = "" // Not exposed on public profiles

	solved, err := s.userRepo.GetSolvedProblems(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return user, solved, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*model.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), common.ErrValidation)
	}
	profile := model.UserProfile{
		Name:     req.Name,
		Avatar:   req.Avatar,
		Bio:      req.Bio,
		Location: req.Location,
		Website:  req.Website,
		Github:   req.Github,
	}
	if err := s.userRepo.UpdateProfile(ctx, userID, profile); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.HashedPassword = ""
	return user, nil
}

type LeaderboardResponse struct {
	Entries    []model.LeaderboardEntry `json:"entries"`
	Total      int                      `json:"total"`
	Page       int                      `json:"page"`
	TotalPages int                      `json:"total_pages"`
}

// GetLeaderboard serves ranked users through a read-through cache. Entries
// are at most cacheTTL stale, which is acceptable for a ranking page.
func (s *UserService) GetLeaderboard(ctx context.Context, page, limit int) (*LeaderboardResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	key := fmt.Sprintf("leaderboard:p%d:l%d", page, limit)
	if s.rdb != nil {
		var cached LeaderboardResponse
		err := cache.GetJSON(ctx, s.rdb, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			logger.Warnf("leaderboard cache read failed: %v", err)
		}
	}

	entries, total, err := s.userRepo.GetLeaderboard(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	resp := &LeaderboardResponse{
		Entries:    entries,
		Total:      total,
		Page:       page,
		TotalPages: (total + limit - 1) / limit,
	}

	if s.rdb != nil {
		if err := cache.SetJSON(ctx, s.rdb, key, resp, s.cacheTTL); err != nil {
			logger.Warnf("leaderboard cache write failed: %v", err)
		}
	}
	return resp, nil
}
