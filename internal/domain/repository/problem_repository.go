package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"codearena/internal/common"
	"codearena/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type ProblemRepository interface {
	CreateProblem(ctx context.Context, tx *sql.Tx, problem *model.Problem) error
	UpdateProblem(ctx context.Context, tx *sql.Tx, problem *model.Problem) error
	DeactivateProblem(ctx context.Context, id string) error
	FindProblemByID(ctx context.Context, id string) (*model.Problem, error)
	FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error)
	ListProblems(ctx context.Context, filter model.ProblemFilter) ([]model.Problem, int, error)
	// GetRandomProblem picks one active problem uniformly at random,
	// optionally restricted to a difficulty. Returns a slim projection.
	GetRandomProblem(ctx context.Context, difficulty model.ProblemDifficulty) (*model.Problem, error)
	GetProblemStats(ctx context.Context) (*model.ProblemStats, error)

	AddTestCasesToProblem(ctx context.Context, tx *sql.Tx, problemID string, testCases []model.TestCase) error
	GetTestCasesByProblemID(ctx context.Context, problemID string) ([]model.TestCase, error) // For judging/admin
	DeleteTestCasesByProblemID(ctx context.Context, tx *sql.Tx, problemID string) error

	AddTagsToProblem(ctx context.Context, tx *sql.Tx, problemID string, tags []string) error
	GetTagsByProblemID(ctx context.Context, problemID string) ([]string, error)
	ClearProblemTags(ctx context.Context, tx *sql.Tx, problemID string) error

	// RecordSubmissionResult bumps the problem's submission counters and
	// recomputes the acceptance rate in a single statement.
	RecordSubmissionResult(ctx context.Context, tx *sql.Tx, problemID string, accepted bool) error
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

// execer lets queries run either on the pool or inside a caller-owned tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *pgProblemRepository) exec(tx *sql.Tx) execer {
	if tx != nil {
		return tx
	}
	return r.db
}

func marshalJSON(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func unmarshalJSON(data []byte, dest any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}

func (r *pgProblemRepository) CreateProblem(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	constraints, err := marshalJSON(p.Constraints)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.CreateProblem marshal constraints: %w", err)
	}
	hints, err := marshalJSON(p.Hints)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.CreateProblem marshal hints: %w", err)
	}
	examples, err := marshalJSON(p.Examples)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.CreateProblem marshal examples: %w", err)
	}
	initialCode, err := marshalJSON(p.InitialCode)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.CreateProblem marshal initial_code: %w", err)
	}

	query := `INSERT INTO problems (id, title, slug, description, difficulty, constraints, hints, examples, initial_code, is_active, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = r.exec(tx).ExecContext(ctx, query,
		p.ID, p.Title, p.Slug, p.Description, p.Difficulty,
		constraints, hints, examples, initialCode, p.IsActive, p.CreatedByID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint for slug
			return fmt.Errorf("problem with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgProblemRepository.CreateProblem: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) UpdateProblem(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	constraints, err := marshalJSON(p.Constraints)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.UpdateProblem marshal constraints: %w", err)
	}
	hints, err := marshalJSON(p.Hints)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.UpdateProblem marshal hints: %w", err)
	}
	examples, err := marshalJSON(p.Examples)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.UpdateProblem marshal examples: %w", err)
	}
	initialCode, err := marshalJSON(p.InitialCode)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.UpdateProblem marshal initial_code: %w", err)
	}

	query := `UPDATE problems SET
	            title = $1, slug = $2, description = $3, difficulty = $4,
	            constraints = $5, hints = $6, examples = $7, initial_code = $8,
	            is_active = $9, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $10`
	res, err := r.exec(tx).ExecContext(ctx, query,
		p.Title, p.Slug, p.Description, p.Difficulty,
		constraints, hints, examples, initialCode, p.IsActive, p.ID)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.UpdateProblem: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgProblemRepository) DeactivateProblem(ctx context.Context, id string) error {
	query := `UPDATE problems SET is_active = FALSE, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.DeactivateProblem: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

const problemColumns = `id, title, slug, description, difficulty, constraints, hints, examples, initial_code,
	       total_submissions, correct_submissions, acceptance_rate, is_active, created_by, created_at, updated_at`

func (r *pgProblemRepository) scanProblem(row *sql.Row) (*model.Problem, error) {
	p := &model.Problem{}
	var constraints, hints, examples, initialCode []byte
	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Description, &p.Difficulty,
		&constraints, &hints, &examples, &initialCode,
		&p.TotalSubmissions, &p.CorrectSubmissions, &p.AcceptanceRate,
		&p.IsActive, &p.CreatedByID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	if err := unmarshalJSON(constraints, &p.Constraints); err != nil {
		return nil, fmt.Errorf("unmarshal constraints: %w", err)
	}
	if err := unmarshalJSON(hints, &p.Hints); err != nil {
		return nil, fmt.Errorf("unmarshal hints: %w", err)
	}
	if err := unmarshalJSON(examples, &p.Examples); err != nil {
		return nil, fmt.Errorf("unmarshal examples: %w", err)
	}
	if err := unmarshalJSON(initialCode, &p.InitialCode); err != nil {
		return nil, fmt.Errorf("unmarshal initial_code: %w", err)
	}
	return p, nil
}

func (r *pgProblemRepository) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems WHERE id = $1`
	p, err := r.scanProblem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("pgProblemRepository.FindProblemByID: %w", err)
	}
	return p, nil
}

func (r *pgProblemRepository) FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems WHERE slug = $1`
	p, err := r.scanProblem(r.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("pgProblemRepository.FindProblemBySlug: %w", err)
	}
	return p, nil
}

func (r *pgProblemRepository) ListProblems(ctx context.Context, filter model.ProblemFilter) ([]model.Problem, int, error) {
	var baseQuery strings.Builder
	baseQuery.WriteString(`
	    SELECT DISTINCT p.id, p.title, p.slug, p.difficulty,
	           p.total_submissions, p.correct_submissions, p.acceptance_rate,
	           p.is_active, p.created_at, p.updated_at
	    FROM problems p`)

	var countQuery strings.Builder
	countQuery.WriteString(`SELECT COUNT(DISTINCT p.id) FROM problems p`)

	conditions := []string{"p.is_active = TRUE"}
	var args []any
	argID := 1

	if filter.Tag != "" {
		join := " JOIN problem_tags pt ON p.id = pt.problem_id"
		baseQuery.WriteString(join)
		countQuery.WriteString(join)
		conditions = append(conditions, fmt.Sprintf("pt.tag = $%d", argID))
		args = append(args, filter.Tag)
		argID++
	}
	if filter.Difficulty != "" {
		conditions = append(conditions, fmt.Sprintf("p.difficulty = $%d", argID))
		args = append(args, filter.Difficulty)
		argID++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(p.title ILIKE $%d OR p.description ILIKE $%d)", argID, argID))
		args = append(args, "%"+filter.Search+"%")
		argID++
	}

	whereClause := " WHERE " + strings.Join(conditions, " AND ")
	baseQuery.WriteString(whereClause)
	countQuery.WriteString(whereClause)

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery.String(), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems count: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}
	baseQuery.WriteString(fmt.Sprintf(" ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d", argID, argID+1))
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, baseQuery.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems query: %w", err)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		var p model.Problem
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.Difficulty,
			&p.TotalSubmissions, &p.CorrectSubmissions, &p.AcceptanceRate,
			&p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems scan: %w", err)
		}
		problems = append(problems, p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems rows.Err: %w", err)
	}
	return problems, total, nil
}

func (r *pgProblemRepository) GetRandomProblem(ctx context.Context, difficulty model.ProblemDifficulty) (*model.Problem, error) {
	query := `SELECT id, title, slug, difficulty FROM problems WHERE is_active = TRUE`
	args := []any{}
	if difficulty != "" {
		query += ` AND difficulty = $1`
		args = append(args, difficulty)
	}
	query += ` ORDER BY random() LIMIT 1`

	p := &model.Problem{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.Title, &p.Slug, &p.Difficulty)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.GetRandomProblem: %w", err)
	}
	return p, nil
}

func (r *pgProblemRepository) GetProblemStats(ctx context.Context) (*model.ProblemStats, error) {
	query := `SELECT difficulty, COUNT(*),
	                 COALESCE(SUM(total_submissions), 0), COALESCE(SUM(correct_submissions), 0)
	          FROM problems WHERE is_active = TRUE
	          GROUP BY difficulty ORDER BY difficulty`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetProblemStats query: %w", err)
	}
	defer rows.Close()

	stats := &model.ProblemStats{ByDifficulty: []model.ProblemDifficultyStats{}}
	for rows.Next() {
		var row model.ProblemDifficultyStats
		if err := rows.Scan(&row.Difficulty, &row.Count, &row.TotalSubmissions, &row.TotalAccepted); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.GetProblemStats scan: %w", err)
		}
		stats.ByDifficulty = append(stats.ByDifficulty, row)
		stats.TotalProblems += row.Count
		stats.TotalSubmissions += row.TotalSubmissions
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetProblemStats rows.Err: %w", err)
	}
	return stats, nil
}

func (r *pgProblemRepository) AddTestCasesToProblem(ctx context.Context, tx *sql.Tx, problemID string, testCases []model.TestCase) error {
	if len(testCases) == 0 {
		return nil
	}
	query := `INSERT INTO test_cases (id, problem_id, input, expected_output, is_public, sort_order)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	for i, tc := range testCases {
		tc.SortOrder = i + 1 // Auto-assign sort order
		_, err := r.exec(tx).ExecContext(ctx, query, tc.ID, problemID, tc.Input, tc.ExpectedOutput, tc.IsPublic, tc.SortOrder)
		if err != nil {
			return fmt.Errorf("pgProblemRepository.AddTestCasesToProblem exec for test case %s: %w", tc.ID, err)
		}
	}
	return nil
}

func (r *pgProblemRepository) GetTestCasesByProblemID(ctx context.Context, problemID string) ([]model.TestCase, error) {
	query := `SELECT id, problem_id, input, expected_output, is_public, sort_order, created_at
	          FROM test_cases WHERE problem_id = $1 ORDER BY sort_order ASC`
	rows, err := r.db.QueryContext(ctx, query, problemID)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetTestCasesByProblemID query: %w", err)
	}
	defer rows.Close()

	var testCases []model.TestCase
	for rows.Next() {
		var tc model.TestCase
		if err := rows.Scan(&tc.ID, &tc.ProblemID, &tc.Input, &tc.ExpectedOutput, &tc.IsPublic, &tc.SortOrder, &tc.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.GetTestCasesByProblemID scan: %w", err)
		}
		testCases = append(testCases, tc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetTestCasesByProblemID rows.Err: %w", err)
	}
	return testCases, nil
}

func (r *pgProblemRepository) DeleteTestCasesByProblemID(ctx context.Context, tx *sql.Tx, problemID string) error {
	_, err := r.exec(tx).ExecContext(ctx, `DELETE FROM test_cases WHERE problem_id = $1`, problemID)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.DeleteTestCasesByProblemID: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) AddTagsToProblem(ctx context.Context, tx *sql.Tx, problemID string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	query := `INSERT INTO problem_tags (problem_id, tag) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for _, tag := range tags {
		if _, err := r.exec(tx).ExecContext(ctx, query, problemID, tag); err != nil {
			return fmt.Errorf("pgProblemRepository.AddTagsToProblem exec for tag %q: %w", tag, err)
		}
	}
	return nil
}

func (r *pgProblemRepository) GetTagsByProblemID(ctx context.Context, problemID string) ([]string, error) {
	query := `SELECT tag FROM problem_tags WHERE problem_id = $1 ORDER BY tag ASC`
	rows, err := r.db.QueryContext(ctx, query, problemID)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetTagsByProblemID query: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.GetTagsByProblemID scan: %w", err)
		}
		tags = append(tags, tag)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetTagsByProblemID rows.Err: %w", err)
	}
	return tags, nil
}

func (r *pgProblemRepository) ClearProblemTags(ctx context.Context, tx *sql.Tx, problemID string) error {
	_, err := r.exec(tx).ExecContext(ctx, `DELETE FROM problem_tags WHERE problem_id = $1`, problemID)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.ClearProblemTags: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) RecordSubmissionResult(ctx context.Context, tx *sql.Tx, problemID string, accepted bool) error {
	// Single statement so concurrent submissions never lose an increment.
	query := `UPDATE problems SET
	            total_submissions = total_submissions + 1,
	            correct_submissions = correct_submissions + CASE WHEN $2 THEN 1 ELSE 0 END,
	            acceptance_rate = ROUND(
	              (correct_submissions + CASE WHEN $2 THEN 1 ELSE 0 END)::numeric * 100
	              / (total_submissions + 1), 1),
	            updated_at = CURRENT_TIMESTAMP
	          WHERE id = $1`
	res, err := r.exec(tx).ExecContext(ctx, query, problemID, accepted)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.RecordSubmissionResult: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}
