package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Story mirrors the 'stories' table. Content is the reference transcript that
// recordings are scored against.
type Story struct {
	ID         uint64    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	GradeLevel int       `json:"grade_level"`
	WordCount  int       `json:"word_count"`
	CreatedAt  time.Time `json:"created_at"`
}

type StoryRepo struct{ DB *sql.DB }

func NewStoryRepo(db *sql.DB) *StoryRepo { return &StoryRepo{DB: db} }

const storyColumns = "id, title, content, grade_level, word_count, created_at"

// Create inserts a story; the word count is derived from the content.
func (r *StoryRepo) Create(ctx context.Context, st *Story) error {
	st.WordCount = len(strings.Fields(st.Content))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO stories (title, content, grade_level, word_count) VALUES (?,?,?,?)",
		st.Title, st.Content, st.GradeLevel, st.WordCount)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	st.ID = uint64(id)
	return nil
}

// GetByID fetches a story by id.
func (r *StoryRepo) GetByID(ctx context.Context, id uint64) (Story, error) {
	var st Story
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+storyColumns+" FROM stories WHERE id=? LIMIT 1", id).
		Scan(&st.ID, &st.Title, &st.Content, &st.GradeLevel, &st.WordCount, &st.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Story{}, ErrNotFound
	}
	return st, err
}

// List returns all stories ordered by grade then title.
func (r *StoryRepo) List(ctx context.Context) ([]Story, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+storyColumns+" FROM stories ORDER BY grade_level, title")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stories := make([]Story, 0)
	for rows.Next() {
		var st Story
		if err := rows.Scan(&st.ID, &st.Title, &st.Content, &st.GradeLevel, &st.WordCount, &st.CreatedAt); err != nil {
			return nil, err
		}
		stories = append(stories, st)
	}
	return stories, rows.Err()
}

// Update rewrites title, content and grade level, recounting words.
func (r *StoryRepo) Update(ctx context.Context, id uint64, title, content string, gradeLevel int) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE stories SET title=?, content=?, grade_level=?, word_count=? WHERE id=?",
		title, content, gradeLevel, len(strings.Fields(content)), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes a story. Assignments referencing it block the delete at the
// FK level, which surfaces as ErrConflict.
func (r *StoryRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM stories WHERE id=?", id)
	if err != nil {
		if strings.Contains(err.Error(), "1451") { // FK restrict
			return ErrConflict
		}
		return err
	}
	return requireRow(res)
}
