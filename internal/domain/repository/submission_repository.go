package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"codearena/internal/common"
	"codearena/internal/domain/model"
)

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error
	GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error)
	// UpdateSubmissionResult persists the terminal verdict and metrics after judging.
	UpdateSubmissionResult(ctx context.Context, tx *sql.Tx, sub *model.Submission) error
	ListSubmissions(ctx context.Context, filter model.SubmissionFilter) ([]model.Submission, int, error)
	// GetUserSubmissionStats aggregates one user's submission history by
	// status, language, solved-problem difficulty, and per-day activity
	// over the last seven days.
	GetUserSubmissionStats(ctx context.Context, userID string) (*model.SubmissionStats, error)

	// MarkProblemSolved records the first acceptance for a user/problem pair and
	// bumps the user's per-difficulty counters. Re-solves are no-ops; the bool
	// reports whether this call was the first acceptance.
	MarkProblemSolved(ctx context.Context, tx *sql.Tx, userID, problemID, submissionID string, difficulty model.ProblemDifficulty) (bool, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func (r *pgSubmissionRepository) exec(tx *sql.Tx) execer {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *pgSubmissionRepository) CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	query := `INSERT INTO submissions (id, user_id, problem_id, language, code, status, total_test_cases)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.exec(tx).ExecContext(ctx, query,
		sub.ID, sub.UserID, sub.ProblemID, sub.Language, sub.Code, sub.Status, sub.TotalTestCases)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	query := `SELECT s.id, s.user_id, s.problem_id, s.language, s.code, s.status,
	                 s.runtime_ms, s.memory_kb, s.test_cases_passed, s.total_test_cases,
	                 s.error_message, s.submitted_at, s.updated_at,
	                 u.username, p.title
	          FROM submissions s
	          JOIN users u ON s.user_id = u.id
	          JOIN problems p ON s.problem_id = p.id
	          WHERE s.id = $1`
	sub := &model.Submission{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&sub.ID, &sub.UserID, &sub.ProblemID, &sub.Language, &sub.Code, &sub.Status,
		&sub.RuntimeMs, &sub.MemoryKb, &sub.TestCasesPassed, &sub.TotalTestCases,
		&sub.ErrorMessage, &sub.SubmittedAt, &sub.UpdatedAt,
		&sub.UserUsername, &sub.ProblemTitle,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionByID: %w", err)
	}
	return sub, nil
}

func (r *pgSubmissionRepository) UpdateSubmissionResult(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	query := `UPDATE submissions SET
	            status = $1, runtime_ms = $2, memory_kb = $3,
	            test_cases_passed = $4, total_test_cases = $5, error_message = $6,
	            updated_at = CURRENT_TIMESTAMP
	          WHERE id = $7`
	res, err := r.exec(tx).ExecContext(ctx, query,
		sub.Status, sub.RuntimeMs, sub.MemoryKb,
		sub.TestCasesPassed, sub.TotalTestCases, sub.ErrorMessage, sub.ID)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.UpdateSubmissionResult: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgSubmissionRepository) ListSubmissions(ctx context.Context, filter model.SubmissionFilter) ([]model.Submission, int, error) {
	var conditions []string
	var args []any
	argID := 1

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("s.user_id = $%d", argID))
		args = append(args, filter.UserID)
		argID++
	}
	if filter.ProblemID != "" {
		conditions = append(conditions, fmt.Sprintf("s.problem_id = $%d", argID))
		args = append(args, filter.ProblemID)
		argID++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", argID))
		args = append(args, filter.Status)
		argID++
	}
	if filter.Language != "" {
		conditions = append(conditions, fmt.Sprintf("s.language = $%d", argID))
		args = append(args, filter.Language)
		argID++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM submissions s` + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListSubmissions count: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	query := `SELECT s.id, s.user_id, s.problem_id, s.language, s.status,
	                 s.runtime_ms, s.memory_kb, s.test_cases_passed, s.total_test_cases,
	                 s.submitted_at, s.updated_at, u.username, p.title
	          FROM submissions s
	          JOIN users u ON s.user_id = u.id
	          JOIN problems p ON s.problem_id = p.id` +
		whereClause +
		fmt.Sprintf(" ORDER BY s.submitted_at DESC LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListSubmissions query: %w", err)
	}
	defer rows.Close()

	subs := []model.Submission{}
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(&s.ID, &s.UserID, &s.ProblemID, &s.Language, &s.Status,
			&s.RuntimeMs, &s.MemoryKb, &s.TestCasesPassed, &s.TotalTestCases,
			&s.SubmittedAt, &s.UpdatedAt, &s.UserUsername, &s.ProblemTitle); err != nil {
			return nil, 0, fmt.Errorf("pgSubmissionRepository.ListSubmissions scan: %w", err)
		}
		subs = append(subs, s)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListSubmissions rows.Err: %w", err)
	}
	return subs, total, nil
}

// groupCounts runs a two-column (key, count) GROUP BY query into a map.
func (r *pgSubmissionRepository) groupCounts(ctx context.Context, query string, args ...any) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

func (r *pgSubmissionRepository) GetUserSubmissionStats(ctx context.Context, userID string) (*model.SubmissionStats, error) {
	stats := &model.SubmissionStats{}

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM submissions WHERE user_id = $1`, userID).Scan(&stats.TotalSubmissions)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.GetUserSubmissionStats total: %w", err)
	}

	stats.ByStatus, err = r.groupCounts(ctx,
		`SELECT status, COUNT(*) FROM submissions WHERE user_id = $1 GROUP BY status`, userID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.GetUserSubmissionStats by status: %w", err)
	}

	stats.ByLanguage, err = r.groupCounts(ctx,
		`SELECT language, COUNT(*) FROM submissions WHERE user_id = $1 GROUP BY language`, userID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.GetUserSubmissionStats by language: %w", err)
	}

	stats.ByDifficulty, err = r.groupCounts(ctx,
		`SELECT p.difficulty, COUNT(*)
		 FROM submissions s JOIN problems p ON s.problem_id = p.id
		 WHERE s.user_id = $1 AND s.status = $2
		 GROUP BY p.difficulty`, userID, model.StatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.GetUserSubmissionStats by difficulty: %w", err)
	}

	stats.RecentActivity, err = r.groupCounts(ctx,
		`SELECT to_char(submitted_at, 'YYYY-MM-DD') AS day, COUNT(*)
		 FROM submissions
		 WHERE user_id = $1 AND submitted_at >= CURRENT_TIMESTAMP - INTERVAL '7 days'
		 GROUP BY day ORDER BY day`, userID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.GetUserSubmissionStats recent activity: %w", err)
	}

	return stats, nil
}

func (r *pgSubmissionRepository) MarkProblemSolved(ctx context.Context, tx *sql.Tx, userID, problemID, submissionID string, difficulty model.ProblemDifficulty) (bool, error) {
	query := `INSERT INTO solved_problems (user_id, problem_id, submission_id)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (user_id, problem_id) DO NOTHING`
	res, err := r.exec(tx).ExecContext(ctx, query, userID, problemID, submissionID)
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.MarkProblemSolved insert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.MarkProblemSolved rows affected: %w", err)
	}
	if n == 0 {
		return false, nil // already solved
	}

	var column string
	switch difficulty {
	case model.DifficultyEasy:
		column = "easy_solved"
	case model.DifficultyMedium:
		column = "medium_solved"
	case model.DifficultyHard:
		column = "hard_solved"
	default:
		return false, fmt.Errorf("pgSubmissionRepository.MarkProblemSolved: unknown difficulty %q", difficulty)
	}
	statsQuery := fmt.Sprintf(`UPDATE users SET
	            total_solved = total_solved + 1,
	            %s = %s + 1,
	            updated_at = CURRENT_TIMESTAMP
	          WHERE id = $1`, column, column)
	if _, err := r.exec(tx).ExecContext(ctx, statsQuery, userID); err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.MarkProblemSolved stats: %w", err)
	}
	return true, nil
}
