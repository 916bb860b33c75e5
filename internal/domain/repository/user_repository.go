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

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, profile model.UserProfile) error
	GetSolvedProblems(ctx context.Context, userID string) ([]model.SolvedProblem, error)
	GetLeaderboard(ctx context.Context, limit, offset int) ([]model.LeaderboardEntry, int, error)
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

const userColumns = `id, username, email, hashed_password, role,
	       profile_name, profile_avatar, profile_bio, profile_location, profile_website, profile_github,
	       total_solved, easy_solved, medium_solved, hard_solved, reputation,
	       created_at, updated_at`

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, username, email, hashed_password, role)
	          VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.Email, user.HashedPassword, user.Role)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint violation
			return fmt.Errorf("user with given username or email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.HashedPassword, &user.Role,
		&user.Profile.Name, &user.Profile.Avatar, &user.Profile.Bio,
		&user.Profile.Location, &user.Profile.Website, &user.Profile.Github,
		&user.Stats.TotalSolved, &user.Stats.EasySolved, &user.Stats.MediumSolved,
		&user.Stats.HardSolved, &user.Stats.Reputation,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := r.scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("pgUserRepository.FindByEmail: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	user, err := r.scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("pgUserRepository.FindByUsername: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := r.scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("pgUserRepository.FindByID: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) UpdateProfile(ctx context.Context, userID string, p model.UserProfile) error {
	query := `UPDATE users SET
	            profile_name = $1, profile_avatar = $2, profile_bio = $3,
	            profile_location = $4, profile_website = $5, profile_github = $6,
	            updated_at = CURRENT_TIMESTAMP
	          WHERE id = $7`
	res, err := r.db.ExecContext(ctx, query, p.Name, p.Avatar, p.Bio, p.Location, p.Website, p.Github, userID)
	if err != nil {
		return fmt.Errorf("pgUserRepository.UpdateProfile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgUserRepository) GetSolvedProblems(ctx context.Context, userID string) ([]model.SolvedProblem, error) {
	query := `SELECT sp.problem_id, sp.submission_id, sp.solved_at, p.title
	          FROM solved_problems sp
	          JOIN problems p ON sp.problem_id = p.id
	          WHERE sp.user_id = $1
	          ORDER BY sp.solved_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.GetSolvedProblems query: %w", err)
	}
	defer rows.Close()

	solved := []model.SolvedProblem{}
	for rows.Next() {
		var sp model.SolvedProblem
		if err := rows.Scan(&sp.ProblemID, &sp.SubmissionID, &sp.SolvedAt, &sp.ProblemTitle); err != nil {
			return nil, fmt.Errorf("pgUserRepository.GetSolvedProblems scan: %w", err)
		}
		solved = append(solved, sp)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgUserRepository.GetSolvedProblems rows.Err: %w", err)
	}
	return solved, nil
}

func (r *pgUserRepository) GetLeaderboard(ctx context.Context, limit, offset int) ([]model.LeaderboardEntry, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgUserRepository.GetLeaderboard count: %w", err)
	}

	query := `SELECT id, username, profile_avatar,
	                 total_solved, easy_solved, medium_solved, hard_solved, reputation
	          FROM users
	          ORDER BY total_solved DESC, reputation DESC, username ASC
	          LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pgUserRepository.GetLeaderboard query: %w", err)
	}
	defer rows.Close()

	entries := []model.LeaderboardEntry{}
	rank := offset
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Avatar,
			&e.TotalSolved, &e.EasySolved, &e.MediumSolved, &e.HardSolved, &e.Reputation); err != nil {
			return nil, 0, fmt.Errorf("pgUserRepository.GetLeaderboard scan: %w", err)
		}
		rank++
		e.Rank = rank
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgUserRepository.GetLeaderboard rows.Err: %w", err)
	}
	return entries, total, nil
}
