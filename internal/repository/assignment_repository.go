package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Assignment mirrors the 'assignments' table. Draft assignments
// (is_published=false) exist for teachers only; students never see them.
type Assignment struct {
	ID           uint64     `json:"id"`
	ClassID      uint64     `json:"class_id"`
	StoryID      uint64     `json:"story_id"`
	Title        string     `json:"title"`
	Instructions string     `json:"instructions"`
	IsPublished  bool       `json:"is_published"`
	MaxAttempts  int        `json:"max_attempts"`
	DueAt        *time.Time `json:"due_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type AssignmentRepo struct{ DB *sql.DB }

func NewAssignmentRepo(db *sql.DB) *AssignmentRepo { return &AssignmentRepo{DB: db} }

const assignmentColumns = "id, class_id, story_id, title, COALESCE(instructions,''), is_published, max_attempts, due_at, created_at, updated_at"

func scanAssignment(row *sql.Row) (Assignment, error) {
	var a Assignment
	err := row.Scan(&a.ID, &a.ClassID, &a.StoryID, &a.Title, &a.Instructions,
		&a.IsPublished, &a.MaxAttempts, &a.DueAt, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Assignment{}, ErrNotFound
	}
	return a, err
}

// Create inserts an assignment and fills in its ID.
func (r *AssignmentRepo) Create(ctx context.Context, a *Assignment) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO assignments (class_id, story_id, title, instructions, is_published, max_attempts, due_at) VALUES (?,?,?,?,?,?,?)",
		a.ClassID, a.StoryID, a.Title, a.Instructions, a.IsPublished, a.MaxAttempts, a.DueAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// GetByID fetches an assignment by id.
func (r *AssignmentRepo) GetByID(ctx context.Context, id uint64) (Assignment, error) {
	return scanAssignment(r.DB.QueryRowContext(ctx,
		"SELECT "+assignmentColumns+" FROM assignments WHERE id=? LIMIT 1", id))
}

// ListByClass returns a class's assignments. publishedOnly is the student
// view; teachers and admins see drafts too.
func (r *AssignmentRepo) ListByClass(ctx context.Context, classID uint64, publishedOnly bool) ([]Assignment, error) {
	q := "SELECT " + assignmentColumns + " FROM assignments WHERE class_id=?"
	args := []interface{}{classID}
	if publishedOnly {
		q += " AND is_published=1"
	}
	q += " ORDER BY created_at DESC"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	assignments := make([]Assignment, 0)
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.ClassID, &a.StoryID, &a.Title, &a.Instructions,
			&a.IsPublished, &a.MaxAttempts, &a.DueAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// Update rewrites the mutable assignment fields.
func (r *AssignmentRepo) Update(ctx context.Context, a Assignment) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE assignments SET title=?, instructions=?, story_id=?, is_published=?, max_attempts=?, due_at=? WHERE id=?",
		a.Title, a.Instructions, a.StoryID, a.IsPublished, a.MaxAttempts, a.DueAt, a.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes an assignment; recordings keep their rows with a null
// assignment link.
func (r *AssignmentRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM assignments WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}
