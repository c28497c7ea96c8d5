// Package repository provides data access for the relay's activity log.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/emmetthe/interactive-db/internal/model"
)

// DefaultActivityLimit caps ListByWorkspace when no limit is given.
const DefaultActivityLimit = 100

// ActivityRepository stores presence and authorization events.
type ActivityRepository struct {
	db *sql.DB
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Record inserts an activity. Missing ID and timestamp are filled in.
func (r *ActivityRepository) Record(ctx context.Context, activity *model.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO workspace_activity (id, workspace_id, user_id, user_name, access_level, kind, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		activity.ID,
		activity.WorkspaceID,
		activity.UserID,
		activity.UserName,
		activity.AccessLevel,
		activity.Kind,
		activity.Detail,
		activity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}

	return nil
}

// ListByWorkspace returns the most recent activities of a workspace, newest first.
func (r *ActivityRepository) ListByWorkspace(ctx context.Context, workspaceID string, limit int) ([]*model.Activity, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}

	query := `
		SELECT id, workspace_id, user_id, user_name, access_level, kind, detail, created_at
		FROM workspace_activity
		WHERE workspace_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, workspaceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	activities := []*model.Activity{}
	for rows.Next() {
		activity := &model.Activity{}
		var detail sql.NullString

		err := rows.Scan(
			&activity.ID,
			&activity.WorkspaceID,
			&activity.UserID,
			&activity.UserName,
			&activity.AccessLevel,
			&activity.Kind,
			&detail,
			&activity.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}

		if detail.Valid {
			activity.Detail = detail.String
		}

		activities = append(activities, activity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity: %w", err)
	}

	return activities, nil
}

// CountByKind returns how many activities of a kind a user produced in a workspace.
func (r *ActivityRepository) CountByKind(ctx context.Context, workspaceID, userID string, kind model.ActivityKind) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM workspace_activity
		WHERE workspace_id = ? AND user_id = ? AND kind = ?
	`

	var count int
	err := r.db.QueryRowContext(ctx, query, workspaceID, userID, kind).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count activity: %w", err)
	}

	return count, nil
}
