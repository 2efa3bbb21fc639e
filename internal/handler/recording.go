package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/reading-practice/internal/authz"
	"github.com/iliyamo/reading-practice/internal/queue"
	"github.com/iliyamo/reading-practice/internal/repository"
	"github.com/iliyamo/reading-practice/internal/telemetry"
)

// maxUploadBytes caps a single recording upload at 25 MiB.
const maxUploadBytes = 25 << 20

// RecordingStore is the slice of the recording repository the handler needs.
type RecordingStore interface {
	Create(ctx context.Context, rec *repository.Recording) error
	GetByID(ctx context.Context, id uint64) (repository.Recording, error)
	ListByStudent(ctx context.Context, studentID uint64) ([]repository.Recording, error)
	ListByAssignment(ctx context.Context, assignmentID uint64) ([]repository.Recording, error)
	CountAttempts(ctx context.Context, studentID, assignmentID uint64) (int, error)
	Fail(ctx context.Context, id uint64, reason string) error
	Delete(ctx context.Context, id uint64) error
}

// RecordingBlobStore persists and serves the raw audio.
type RecordingBlobStore interface {
	Save(src io.Reader, originalName string) (string, error)
	Open(key string) (io.ReadCloser, error)
	Remove(key string) error
}

// RecordingPublisher hands freshly uploaded recordings to the analysis queue.
type RecordingPublisher interface {
	PublishRecordingSubmitted(ctx context.Context, ev queue.RecordingSubmittedEvent) error
}

// RecordingHandler implements /api/recordings: upload, listing, detail, audio
// playback and deletion. Scoring itself happens in the queue consumer.
type RecordingHandler struct {
	Recordings  RecordingStore
	Assignments AssignmentStore
	Classes     AssignmentClassStore
	Blobs       RecordingBlobStore
	Publisher   RecordingPublisher
}

func NewRecordingHandler(recordings RecordingStore, assignments AssignmentStore, classes AssignmentClassStore, blobs RecordingBlobStore, pub RecordingPublisher) *RecordingHandler {
	return &RecordingHandler{
		Recordings:  recordings,
		Assignments: assignments,
		Classes:     classes,
		Blobs:       blobs,
		Publisher:   pub,
	}
}

// Create handles POST /api/recordings (multipart/form-data: assignment_id +
// audio file). Only the signed-in student submits for themself; the attempt
// counter is checked before any bytes are stored.
func (h *RecordingHandler) Create(c echo.Context) error {
	id, ok := identity(c)
	if !ok {
		return unauthenticated(c, "sign in required")
	}
	if !authz.Can(id, authz.ActionCreate, authz.Resource{Kind: authz.KindRecording, StudentID: id.UserID}) {
		return forbidden(c)
	}

	assignmentID, ok := queryFormID(c, "assignment_id")
	if !ok {
		return badRequest(c, "assignment_id is required")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	a, err := h.Assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return storageErr(c, err, "assignment not found")
	}
	// Drafts and other classes' assignments look identical to a student:
	// absent.
	if !a.IsPublished || a.ClassID != id.ClassID {
		return respondErr(c, http.StatusNotFound, codeNotFound, "assignment not found")
	}
	if a.DueAt != nil && time.Now().After(*a.DueAt) {
		return badRequest(c, "assignment is past due")
	}

	attempts, err := h.Recordings.CountAttempts(ctx, id.UserID, assignmentID)
	if err != nil {
		return storageErr(c, err, "")
	}
	if attempts >= a.MaxAttempts {
		return respondErr(c, http.StatusConflict, codeConflict, "attempt limit reached")
	}

	file, err := c.FormFile("audio")
	if err != nil {
		return badRequest(c, "audio file is required")
	}
	if file.Size > maxUploadBytes {
		return badRequest(c, "audio file too large")
	}
	src, err := file.Open()
	if err != nil {
		return badRequest(c, "audio file is unreadable")
	}
	defer src.Close()

	key, err := h.Blobs.Save(src, file.Filename)
	if err != nil {
		c.Logger().Errorf("audio save failed: %v", err)
		return respondErr(c, http.StatusInternalServerError, codeInternal, "something went wrong")
	}

	rec := repository.Recording{
		StudentID:    id.UserID,
		AssignmentID: assignmentID,
		AudioKey:     key,
		Attempt:      attempts + 1,
	}
	if err := h.Recordings.Create(ctx, &rec); err != nil {
		_ = h.Blobs.Remove(key)
		return storageErr(c, err, "")
	}
	telemetry.Inc(telemetry.RecordingsSubmitted)

	ev := queue.RecordingSubmittedEvent{
		RecordingID:  rec.ID,
		StudentID:    rec.StudentID,
		AssignmentID: assignmentID,
		StoryID:      a.StoryID,
		AudioKey:     key,
		SubmittedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if err := h.Publisher.PublishRecordingSubmitted(ctx, ev); err != nil {
		// The row must not sit in "uploaded" forever when the broker is down.
		if ferr := h.Recordings.Fail(ctx, rec.ID, "analysis queue unavailable"); ferr == nil {
			rec.Status = repository.RecordingFailed
			rec.FailureReason = "analysis queue unavailable"
		}
	}
	return respond(c, http.StatusCreated, rec)
}

// List handles GET /api/recordings. Students get their own history; teachers
// and admins filter by ?assignment_id=N.
func (h *RecordingHandler) List(c echo.Context) error {
	id, ok := identity(c)
	if !ok {
		return unauthenticated(c, "sign in required")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if id.Role == repository.RoleStudent {
		recs, err := h.Recordings.ListByStudent(ctx, id.UserID)
		if err != nil {
			return storageErr(c, err, "")
		}
		return respond(c, http.StatusOK, recs)
	}

	assignmentID, ok := queryID(c, "assignment_id")
	if !ok || assignmentID == 0 {
		return badRequest(c, "assignment_id is required")
	}
	a, err := h.Assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return storageErr(c, err, "assignment not found")
	}
	cl, err := h.Classes.GetByID(ctx, a.ClassID)
	if err != nil {
		return storageErr(c, err, "assignment not found")
	}
	if !authz.Can(id, authz.ActionRead, authz.Resource{Kind: authz.KindRecording, TeacherID: cl.TeacherID, ClassID: cl.ID}) {
		return forbidden(c)
	}
	recs, err := h.Recordings.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return storageErr(c, err, "")
	}
	return respond(c, http.StatusOK, recs)
}

// Get handles GET /api/recordings/:id.
func (h *RecordingHandler) Get(c echo.Context) error {
	rec, err := h.authorizedRecording(c, authz.ActionRead)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, rec)
}

// Audio handles GET /api/recordings/:id/audio, streaming the stored blob.
func (h *RecordingHandler) Audio(c echo.Context) error {
	rec, err := h.authorizedRecording(c, authz.ActionRead)
	if err != nil {
		return err
	}
	blob, err := h.Blobs.Open(rec.AudioKey)
	if err != nil {
		return respondErr(c, http.StatusNotFound, codeNotFound, "audio not found")
	}
	defer blob.Close()
	return c.Stream(http.StatusOK, "application/octet-stream", blob)
}

// Delete handles DELETE /api/recordings/:id, removing both the row and the
// stored audio.
func (h *RecordingHandler) Delete(c echo.Context) error {
	rec, err := h.authorizedRecording(c, authz.ActionDelete)
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Recordings.Delete(ctx, rec.ID); err != nil {
		return storageErr(c, err, "recording not found")
	}
	if err := h.Blobs.Remove(rec.AudioKey); err != nil {
		c.Logger().Errorf("audio remove failed for %s: %v", rec.AudioKey, err)
	}
	return respond(c, http.StatusOK, echo.Map{"deleted": true})
}

// authorizedRecording loads the :id recording and runs the permission check,
// resolving class ownership when the recording still has an assignment.
// A non-nil error is already a written envelope response.
func (h *RecordingHandler) authorizedRecording(c echo.Context, act authz.Action) (repository.Recording, error) {
	id, ok := identity(c)
	if !ok {
		return repository.Recording{}, unauthenticated(c, "sign in required")
	}
	rid, ok := pathID(c)
	if !ok {
		return repository.Recording{}, badRequest(c, "invalid id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	rec, err := h.Recordings.GetByID(ctx, rid)
	if err != nil {
		return repository.Recording{}, storageErr(c, err, "recording not found")
	}
	res := authz.Resource{Kind: authz.KindRecording, StudentID: rec.StudentID}
	if rec.AssignmentID != 0 {
		if a, err := h.Assignments.GetByID(ctx, rec.AssignmentID); err == nil {
			if cl, err := h.Classes.GetByID(ctx, a.ClassID); err == nil {
				res.TeacherID = cl.TeacherID
				res.ClassID = cl.ID
			}
		}
	}
	if !authz.Can(id, act, res) {
		return repository.Recording{}, forbidden(c)
	}
	return rec, nil
}

// queryFormID reads a uint64 from either the query string or the multipart
// form, whichever carries it.
func queryFormID(c echo.Context, name string) (uint64, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		raw = c.FormValue(name)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	return id, err == nil && id != 0
}
