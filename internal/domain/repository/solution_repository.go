package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"codearena/internal/common"
	"codearena/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type SolutionRepository interface {
	CreateSolution(ctx context.Context, s *model.Solution) error
	UpdateSolution(ctx context.Context, s *model.Solution) error
	FindSolutionByProblemID(ctx context.Context, problemID string) (*model.Solution, error)
	DeleteSolution(ctx context.Context, problemID string) error
}

type pgSolutionRepository struct {
	db *sql.DB
}

func NewPgSolutionRepository(db *sql.DB) SolutionRepository {
	return &pgSolutionRepository{db: db}
}

func (r *pgSolutionRepository) CreateSolution(ctx context.Context, s *model.Solution) error {
	video, err := marshalJSON(s.Video)
	if err != nil {
		return fmt.Errorf("pgSolutionRepository.CreateSolution marshal video: %w", err)
	}
	resources, err := marshalJSON(s.Resources)
	if err != nil {
		return fmt.Errorf("pgSolutionRepository.CreateSolution marshal resources: %w", err)
	}
	query := `INSERT INTO solutions (id, problem_id, text_solution, video, resources, is_published, version, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, 1, $7)`
	_, err = r.db.ExecContext(ctx, query,
		s.ID, s.ProblemID, s.TextSolution, video, resources, s.IsPublished, s.CreatedByID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // One solution per problem
			return fmt.Errorf("solution for this problem already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgSolutionRepository.CreateSolution: %w", err)
	}
	return nil
}

func (r *pgSolutionRepository) UpdateSolution(ctx context.Context, s *model.Solution) error {
	video, err := marshalJSON(s.Video)
	if err != nil {
		return fmt.Errorf("pgSolutionRepository.UpdateSolution marshal video: %w", err)
	}
	resources, err := marshalJSON(s.Resources)
	if err != nil {
		return fmt.Errorf("pgSolutionRepository.UpdateSolution marshal resources: %w", err)
	}
	query := `UPDATE solutions SET
	            text_solution = $1, video = $2, resources = $3, is_published = $4,
	            version = version + 1, updated_by = $5, updated_at = CURRENT_TIMESTAMP
	          WHERE problem_id = $6`
	res, err := r.db.ExecContext(ctx, query,
		s.TextSolution, video, resources, s.IsPublished, s.UpdatedByID, s.ProblemID)
	if err != nil {
		return fmt.Errorf("pgSolutionRepository.UpdateSolution: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgSolutionRepository) FindSolutionByProblemID(ctx context.Context, problemID string) (*model.Solution, error) {
	query := `SELECT s.id, s.problem_id, p.title, s.text_solution, s.video, s.resources,
	                 s.is_published, s.version, s.created_by, s.updated_by, s.created_at, s.updated_at
	          FROM solutions s
	          JOIN problems p ON s.problem_id = p.id
	          WHERE s.problem_id = $1`
	s := &model.Solution{}
	var video, resources []byte
	err := r.db.QueryRowContext(ctx, query, problemID).Scan(
		&s.ID, &s.ProblemID, &s.ProblemTitle, &s.TextSolution, &video, &resources,
		&s.IsPublished, &s.Version, &s.CreatedByID, &s.UpdatedByID, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSolutionRepository.FindSolutionByProblemID: %w", err)
	}
	if err := unmarshalJSON(video, &s.Video); err != nil {
		return nil, fmt.Errorf("pgSolutionRepository.FindSolutionByProblemID unmarshal video: %w", err)
	}
	if err := unmarshalJSON(resources, &s.Resources); err != nil {
		return nil, fmt.Errorf("pgSolutionRepository.FindSolutionByProblemID unmarshal resources: %w", err)
	}
	return s, nil
}

func (r *pgSolutionRepository) DeleteSolution(ctx context.Context, problemID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM solutions WHERE problem_id = $1`, problemID)
	if err != nil {
		return fmt.Errorf("pgSolutionRepository.DeleteSolution: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}
