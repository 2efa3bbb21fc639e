package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Recording status lifecycle: uploaded -> processing -> completed | failed.
const (
	RecordingUploaded   = "uploaded"
	RecordingProcessing = "processing"
	RecordingCompleted  = "completed"
	RecordingFailed     = "failed"
)

// WordResult is one scored word from the analysis, stored as JSON on the row.
type WordResult struct {
	Word   string `json:"word"`
	Status string `json:"status"` // correct | missed | extra
}

// Recording mirrors the 'recordings' table. Scoring fields stay zero until
// the analysis consumer completes the row.
type Recording struct {
	ID              uint64       `json:"id"`
	StudentID       uint64       `json:"student_id"`
	AssignmentID    uint64       `json:"assignment_id,omitempty"`
	AudioKey        string       `json:"audio_key"`
	Status          string       `json:"status"`
	Transcript      string       `json:"transcript,omitempty"`
	AccuracyPct     float64      `json:"accuracy_pct"`
	FluencyScore    float64      `json:"fluency_score"`
	WordsPerMinute  float64      `json:"words_per_minute"`
	Pace            string       `json:"pace,omitempty"`
	DurationSeconds float64      `json:"duration_seconds"`
	Words           []WordResult `json:"words,omitempty"`
	FailureReason   string       `json:"failure_reason,omitempty"`
	Attempt         int          `json:"attempt"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

type RecordingRepo struct{ DB *sql.DB }

func NewRecordingRepo(db *sql.DB) *RecordingRepo { return &RecordingRepo{DB: db} }

const recordingColumns = "id, student_id, COALESCE(assignment_id,0), audio_key, status, COALESCE(transcript,''), accuracy_pct, fluency_score, words_per_minute, COALESCE(pace,''), duration_seconds, word_results, COALESCE(failure_reason,''), attempt, created_at, updated_at"

func scanRecording(scan func(dest ...interface{}) error) (Recording, error) {
	var (
		rec       Recording
		wordsJSON sql.NullString
	)
	err := scan(&rec.ID, &rec.StudentID, &rec.AssignmentID, &rec.AudioKey, &rec.Status,
		&rec.Transcript, &rec.AccuracyPct, &rec.FluencyScore, &rec.WordsPerMinute,
		&rec.Pace, &rec.DurationSeconds, &wordsJSON, &rec.FailureReason,
		&rec.Attempt, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Recording{}, ErrNotFound
	}
	if err != nil {
		return Recording{}, err
	}
	if wordsJSON.Valid && wordsJSON.String != "" {
		_ = json.Unmarshal([]byte(wordsJSON.String), &rec.Words)
	}
	return rec, nil
}

// Create inserts a freshly uploaded recording and fills in its ID.
func (r *RecordingRepo) Create(ctx context.Context, rec *Recording) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO recordings (student_id, assignment_id, audio_key, status, duration_seconds, attempt) VALUES (?,NULLIF(?,0),?,?,?,?)",
		rec.StudentID, rec.AssignmentID, rec.AudioKey, RecordingUploaded, rec.DurationSeconds, rec.Attempt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	rec.Status = RecordingUploaded
	return nil
}

// GetByID fetches a recording by id.
func (r *RecordingRepo) GetByID(ctx context.Context, id uint64) (Recording, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+recordingColumns+" FROM recordings WHERE id=? LIMIT 1", id)
	return scanRecording(row.Scan)
}

// ListByStudent returns a student's recordings, newest first.
func (r *RecordingRepo) ListByStudent(ctx context.Context, studentID uint64) ([]Recording, error) {
	return r.list(ctx,
		"SELECT "+recordingColumns+" FROM recordings WHERE student_id=? ORDER BY created_at DESC", studentID)
}

// ListByAssignment returns all submissions for an assignment; teacher view.
func (r *RecordingRepo) ListByAssignment(ctx context.Context, assignmentID uint64) ([]Recording, error) {
	return r.list(ctx,
		"SELECT "+recordingColumns+" FROM recordings WHERE assignment_id=? ORDER BY created_at DESC", assignmentID)
}

func (r *RecordingRepo) list(ctx context.Context, query string, arg interface{}) ([]Recording, error) {
	rows, err := r.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	recs := make([]Recording, 0)
	for rows.Next() {
		rec, err := scanRecording(rows.Scan)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// CountAttempts reports how many submissions a student already made against
// an assignment, enforcing max_attempts at upload time.
func (r *RecordingRepo) CountAttempts(ctx context.Context, studentID, assignmentID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM recordings WHERE student_id=? AND assignment_id=?",
		studentID, assignmentID).Scan(&n)
	return n, err
}

// MarkProcessing flips an uploaded recording to processing. The status guard
// keeps a redelivered queue message from reprocessing a finished row.
func (r *RecordingRepo) MarkProcessing(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE recordings SET status=? WHERE id=? AND status=?",
		RecordingProcessing, id, RecordingUploaded)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Complete stores the analysis scores and moves the row to completed.
func (r *RecordingRepo) Complete(ctx context.Context, rec Recording) error {
	wordsJSON, err := json.Marshal(rec.Words)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE recordings SET status=?, transcript=?, accuracy_pct=?, fluency_score=?, words_per_minute=?, pace=?, duration_seconds=?, word_results=?, failure_reason=NULL WHERE id=?",
		RecordingCompleted, rec.Transcript, rec.AccuracyPct, rec.FluencyScore,
		rec.WordsPerMinute, rec.Pace, rec.DurationSeconds, string(wordsJSON), rec.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Fail records why the analysis did not produce scores. No metrics are
// written; an unanalyzed recording stays visibly unanalyzed.
func (r *RecordingRepo) Fail(ctx context.Context, id uint64, reason string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE recordings SET status=?, failure_reason=? WHERE id=?",
		RecordingFailed, reason, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes a recording row.
func (r *RecordingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM recordings WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}
