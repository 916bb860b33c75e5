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

type DiscussionRepository interface {
	CreateDiscussion(ctx context.Context, tx *sql.Tx, d *model.Discussion) error
	FindDiscussionByID(ctx context.Context, id string) (*model.Discussion, error)
	ListDiscussions(ctx context.Context, filter model.DiscussionFilter) ([]model.Discussion, int, error)
	DeleteDiscussion(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error

	AddComment(ctx context.Context, comment *model.Comment) error
	GetCommentsByDiscussionID(ctx context.Context, discussionID string) ([]model.Comment, error)

	// SetVote upserts a user's vote and returns the recomputed score.
	SetVote(ctx context.Context, discussionID, userID string, value int) (int, error)
}

type pgDiscussionRepository struct {
	db *sql.DB
}

func NewPgDiscussionRepository(db *sql.DB) DiscussionRepository {
	return &pgDiscussionRepository{db: db}
}

func (r *pgDiscussionRepository) exec(tx *sql.Tx) execer {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *pgDiscussionRepository) CreateDiscussion(ctx context.Context, tx *sql.Tx, d *model.Discussion) error {
	tags, err := marshalJSON(d.Tags)
	if err != nil {
		return fmt.Errorf("pgDiscussionRepository.CreateDiscussion marshal tags: %w", err)
	}
	query := `INSERT INTO discussions (id, problem_id, user_id, title, content, tags)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = r.exec(tx).ExecContext(ctx, query, d.ID, d.ProblemID, d.UserID, d.Title, d.Content, tags)
	if err != nil {
		return fmt.Errorf("pgDiscussionRepository.CreateDiscussion: %w", err)
	}
	return nil
}

func (r *pgDiscussionRepository) FindDiscussionByID(ctx context.Context, id string) (*model.Discussion, error) {
	query := `SELECT d.id, d.problem_id, d.user_id, d.title, d.content, d.tags,
	                 d.views, d.is_pinned, d.is_locked, d.vote_score, d.comment_count,
	                 d.last_activity, d.created_at, d.updated_at, u.username, p.title
	          FROM discussions d
	          JOIN users u ON d.user_id = u.id
	          JOIN problems p ON d.problem_id = p.id
	          WHERE d.id = $1`
	d := &model.Discussion{}
	var tags []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.ProblemID, &d.UserID, &d.Title, &d.Content, &tags,
		&d.Views, &d.IsPinned, &d.IsLocked, &d.VoteScore, &d.CommentCount,
		&d.LastActivity, &d.CreatedAt, &d.UpdatedAt, &d.UserUsername, &d.ProblemTitle,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgDiscussionRepository.FindDiscussionByID: %w", err)
	}
	if err := unmarshalJSON(tags, &d.Tags); err != nil {
		return nil, fmt.Errorf("pgDiscussionRepository.FindDiscussionByID unmarshal tags: %w", err)
	}
	return d, nil
}

func (r *pgDiscussionRepository) ListDiscussions(ctx context.Context, filter model.DiscussionFilter) ([]model.Discussion, int, error) {
	var conditions []string
	var args []any
	argID := 1

	if filter.ProblemID != "" {
		conditions = append(conditions, fmt.Sprintf("d.problem_id = $%d", argID))
		args = append(args, filter.ProblemID)
		argID++
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("d.user_id = $%d", argID))
		args = append(args, filter.UserID)
		argID++
	}
	if filter.Tag != "" {
		// tags column is a jsonb string array
		conditions = append(conditions, fmt.Sprintf("d.tags ? $%d", argID))
		args = append(args, filter.Tag)
		argID++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM discussions d` + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgDiscussionRepository.ListDiscussions count: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	query := `SELECT d.id, d.problem_id, d.user_id, d.title, d.tags,
	                 d.views, d.is_pinned, d.is_locked, d.vote_score, d.comment_count,
	                 d.last_activity, d.created_at, d.updated_at, u.username, p.title
	          FROM discussions d
	          JOIN users u ON d.user_id = u.id
	          JOIN problems p ON d.problem_id = p.id` +
		whereClause +
		fmt.Sprintf(" ORDER BY d.is_pinned DESC, d.last_activity DESC LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgDiscussionRepository.ListDiscussions query: %w", err)
	}
	defer rows.Close()

	discussions := []model.Discussion{}
	for rows.Next() {
		var d model.Discussion
		var tags []byte
		if err := rows.Scan(&d.ID, &d.ProblemID, &d.UserID, &d.Title, &tags,
			&d.Views, &d.IsPinned, &d.IsLocked, &d.VoteScore, &d.CommentCount,
			&d.LastActivity, &d.CreatedAt, &d.UpdatedAt, &d.UserUsername, &d.ProblemTitle); err != nil {
			return nil, 0, fmt.Errorf("pgDiscussionRepository.ListDiscussions scan: %w", err)
		}
		if err := unmarshalJSON(tags, &d.Tags); err != nil {
			return nil, 0, fmt.Errorf("pgDiscussionRepository.ListDiscussions unmarshal tags: %w", err)
		}
		discussions = append(discussions, d)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgDiscussionRepository.ListDiscussions rows.Err: %w", err)
	}
	return discussions, total, nil
}

func (r *pgDiscussionRepository) DeleteDiscussion(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM discussions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgDiscussionRepository.DeleteDiscussion: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgDiscussionRepository) IncrementViews(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE discussions SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgDiscussionRepository.IncrementViews: %w", err)
	}
	return nil
}

func (r *pgDiscussionRepository) AddComment(ctx context.Context, c *model.Comment) error {
	query := `INSERT INTO discussion_comments (id, discussion_id, user_id, content)
	          VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, c.ID, c.DiscussionID, c.UserID, c.Content); err != nil {
		return fmt.Errorf("pgDiscussionRepository.AddComment: %w", err)
	}
	// Comment count and activity ride along on the parent row.
	bump := `UPDATE discussions SET
	           comment_count = comment_count + 1,
	           last_activity = CURRENT_TIMESTAMP
	         WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, bump, c.DiscussionID); err != nil {
		return fmt.Errorf("pgDiscussionRepository.AddComment bump: %w", err)
	}
	return nil
}

func (r *pgDiscussionRepository) GetCommentsByDiscussionID(ctx context.Context, discussionID string) ([]model.Comment, error) {
	query := `SELECT c.id, c.discussion_id, c.user_id, c.content, c.vote_score, c.created_at, u.username
	          FROM discussion_comments c
	          JOIN users u ON c.user_id = u.id
	          WHERE c.discussion_id = $1
	          ORDER BY c.created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, discussionID)
	if err != nil {
		return nil, fmt.Errorf("pgDiscussionRepository.GetCommentsByDiscussionID query: %w", err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.DiscussionID, &c.UserID, &c.Content, &c.VoteScore, &c.CreatedAt, &c.UserUsername); err != nil {
			return nil, fmt.Errorf("pgDiscussionRepository.GetCommentsByDiscussionID scan: %w", err)
		}
		comments = append(comments, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgDiscussionRepository.GetCommentsByDiscussionID rows.Err: %w", err)
	}
	return comments, nil
}

func (r *pgDiscussionRepository) SetVote(ctx context.Context, discussionID, userID string, value int) (int, error) {
	// Voting the same way twice retracts the vote, matching the toggle
	// behavior users expect from the frontend.
	upsert := `INSERT INTO discussion_votes (discussion_id, user_id, value)
	           VALUES ($1, $2, $3)
	           ON CONFLICT (discussion_id, user_id)
	           DO UPDATE SET value = CASE WHEN discussion_votes.value = $3 THEN 0 ELSE $3 END`
	if _, err := r.db.ExecContext(ctx, upsert, discussionID, userID, value); err != nil {
		return 0, fmt.Errorf("pgDiscussionRepository.SetVote upsert: %w", err)
	}

	recompute := `UPDATE discussions SET vote_score = (
	                SELECT COALESCE(SUM(value), 0) FROM discussion_votes WHERE discussion_id = $1
	              )
	              WHERE id = $1
	              RETURNING vote_score`
	var score int
	if err := r.db.QueryRowContext(ctx, recompute, discussionID).Scan(&score); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrNotFound
		}
		return 0, fmt.Errorf("pgDiscussionRepository.SetVote recompute: %w", err)
	}
	return score, nil
}
