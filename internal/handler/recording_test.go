package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/reading-practice/internal/repository"
	"github.com/iliyamo/reading-practice/internal/session"
)

type recordingFixture struct {
	h          *RecordingHandler
	recordings *fakeRecordingStore
	blobs      *fakeBlobStore
	publisher  *fakePublisher
}

func newRecordingFixture(recs ...repository.Recording) *recordingFixture {
	classes := newFakeClasses(
		repository.Class{ID: 5, TeacherID: 10, Name: "3B"},
	)
	assignments := newFakeAssignments(
		repository.Assignment{ID: 201, ClassID: 5, StoryID: 1, Title: "Read aloud", IsPublished: true, MaxAttempts: 2},
		repository.Assignment{ID: 202, ClassID: 5, StoryID: 1, Title: "Draft", IsPublished: false, MaxAttempts: 2},
	)
	f := &recordingFixture{
		recordings: newFakeRecordingStore(recs...),
		blobs:      newFakeBlobStore(),
		publisher:  &fakePublisher{},
	}
	f.h = NewRecordingHandler(f.recordings, assignments, classes, f.blobs, f.publisher)
	return f
}

func TestUploadRecording(t *testing.T) {
	f := newRecordingFixture()

	c, rec := newMultipartCtx(t, "/api/recordings",
		map[string]string{"assignment_id": "201"}, "audio", "take1.webm", "fake-audio-bytes")
	asIdentity(c, studentID)
	require.NoError(t, f.h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var out repository.Recording
	raw, _ := json.Marshal(decodeEnvelope(t, rec).Data)
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, repository.RecordingUploaded, out.Status)
	assert.Equal(t, 1, out.Attempt)
	assert.Equal(t, studentID.UserID, out.StudentID)

	// Blob stored and event published with matching key.
	require.Len(t, f.publisher.published, 1)
	ev := f.publisher.published[0]
	assert.Equal(t, out.ID, ev.RecordingID)
	assert.Equal(t, uint64(1), ev.StoryID)
	_, err := f.blobs.Open(ev.AudioKey)
	assert.NoError(t, err)
}

func TestUploadRecordingAttemptLimit(t *testing.T) {
	f := newRecordingFixture(
		repository.Recording{ID: 301, StudentID: studentID.UserID, AssignmentID: 201, Status: repository.RecordingCompleted, Attempt: 1},
		repository.Recording{ID: 302, StudentID: studentID.UserID, AssignmentID: 201, Status: repository.RecordingFailed, Attempt: 2},
	)

	c, rec := newMultipartCtx(t, "/api/recordings",
		map[string]string{"assignment_id": "201"}, "audio", "take3.webm", "x")
	asIdentity(c, studentID)
	require.NoError(t, f.h.Create(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, codeConflict, decodeEnvelope(t, rec).Error)
	assert.Empty(t, f.publisher.published)
}

func TestUploadRecordingDraftAssignmentHidden(t *testing.T) {
	f := newRecordingFixture()

	c, rec := newMultipartCtx(t, "/api/recordings",
		map[string]string{"assignment_id": "202"}, "audio", "a.webm", "x")
	asIdentity(c, studentID)
	require.NoError(t, f.h.Create(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadRecordingOtherClassStudent(t *testing.T) {
	f := newRecordingFixture()

	outsider := session.Identity{UserID: 500, Role: repository.RoleStudent, ClassID: 99}
	c, rec := newMultipartCtx(t, "/api/recordings",
		map[string]string{"assignment_id": "201"}, "audio", "a.webm", "x")
	asIdentity(c, outsider)
	require.NoError(t, f.h.Create(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadRecordingTeacherForbidden(t *testing.T) {
	f := newRecordingFixture()

	c, rec := newMultipartCtx(t, "/api/recordings",
		map[string]string{"assignment_id": "201"}, "audio", "a.webm", "x")
	asIdentity(c, teacherID)
	require.NoError(t, f.h.Create(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUploadRecordingMissingFile(t *testing.T) {
	f := newRecordingFixture()

	c, rec := newMultipartCtx(t, "/api/recordings",
		map[string]string{"assignment_id": "201"}, "", "", "")
	asIdentity(c, studentID)
	require.NoError(t, f.h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadRecordingBrokerDown(t *testing.T) {
	f := newRecordingFixture()
	f.publisher.err = errors.New("dial tcp: connection refused")

	c, rec := newMultipartCtx(t, "/api/recordings",
		map[string]string{"assignment_id": "201"}, "audio", "a.webm", "x")
	asIdentity(c, studentID)
	require.NoError(t, f.h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var out repository.Recording
	raw, _ := json.Marshal(decodeEnvelope(t, rec).Data)
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, repository.RecordingFailed, out.Status)
	assert.Equal(t, "analysis queue unavailable", out.FailureReason)
}

func TestUploadRecordingPastDue(t *testing.T) {
	f := newRecordingFixture()
	past := time.Now().Add(-time.Hour)
	f.h.Assignments.(*fakeAssignments).byID[201] = repository.Assignment{
		ID: 201, ClassID: 5, StoryID: 1, IsPublished: true, MaxAttempts: 2, DueAt: &past,
	}

	c, rec := newMultipartCtx(t, "/api/recordings",
		map[string]string{"assignment_id": "201"}, "audio", "a.webm", "x")
	asIdentity(c, studentID)
	require.NoError(t, f.h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRecordings(t *testing.T) {
	f := newRecordingFixture(
		repository.Recording{ID: 301, StudentID: studentID.UserID, AssignmentID: 201, Status: repository.RecordingCompleted},
		repository.Recording{ID: 302, StudentID: 999, AssignmentID: 201, Status: repository.RecordingCompleted},
	)

	// A student sees only their own recordings, across assignments.
	c, rec := newJSONCtx(t, http.MethodGet, "/api/recordings", "")
	asIdentity(c, studentID)
	require.NoError(t, f.h.List(c))
	var out []repository.Recording
	raw, _ := json.Marshal(decodeEnvelope(t, rec).Data)
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Len(t, out, 1)
	assert.Equal(t, uint64(301), out[0].ID)

	// The owning teacher sees every submission for the assignment.
	c, rec = newJSONCtx(t, http.MethodGet, "/api/recordings?assignment_id=201", "")
	asIdentity(c, teacherID)
	require.NoError(t, f.h.List(c))
	raw, _ = json.Marshal(decodeEnvelope(t, rec).Data)
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Len(t, out, 2)

	// A foreign teacher does not.
	other := session.Identity{UserID: 77, Role: repository.RoleTeacher}
	c, rec = newJSONCtx(t, http.MethodGet, "/api/recordings?assignment_id=201", "")
	asIdentity(c, other)
	require.NoError(t, f.h.List(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetRecordingOwnership(t *testing.T) {
	f := newRecordingFixture(
		repository.Recording{ID: 301, StudentID: studentID.UserID, AssignmentID: 201, Status: repository.RecordingCompleted},
	)

	// Owner reads it.
	c, rec := newJSONCtx(t, http.MethodGet, "/api/recordings/301", "")
	asIdentity(c, studentID)
	setPathID(c, "301")
	require.NoError(t, f.h.Get(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// The class teacher reads it.
	c, rec = newJSONCtx(t, http.MethodGet, "/api/recordings/301", "")
	asIdentity(c, teacherID)
	setPathID(c, "301")
	require.NoError(t, f.h.Get(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Another student cannot.
	other := session.Identity{UserID: 999, Role: repository.RoleStudent, ClassID: 5}
	c, rec = newJSONCtx(t, http.MethodGet, "/api/recordings/301", "")
	asIdentity(c, other)
	setPathID(c, "301")
	require.NoError(t, f.h.Get(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteRecordingRemovesBlob(t *testing.T) {
	f := newRecordingFixture()

	// Upload first so the blob exists.
	c, rec := newMultipartCtx(t, "/api/recordings",
		map[string]string{"assignment_id": "201"}, "audio", "a.webm", "x")
	asIdentity(c, studentID)
	require.NoError(t, f.h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	var out repository.Recording
	raw, _ := json.Marshal(decodeEnvelope(t, rec).Data)
	require.NoError(t, json.Unmarshal(raw, &out))

	c, rec = newJSONCtx(t, http.MethodDelete, "/api/recordings/301", "")
	asIdentity(c, studentID)
	setPathID(c, "301")
	require.NoError(t, f.h.Delete(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	_, err := f.recordings.GetByID(nil, out.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.blobs.Open(out.AudioKey)
	assert.Error(t, err, "blob must go with the row")

	// Teachers cannot delete student recordings.
	f = newRecordingFixture(
		repository.Recording{ID: 301, StudentID: studentID.UserID, AssignmentID: 201},
	)
	c, rec = newJSONCtx(t, http.MethodDelete, "/api/recordings/301", "")
	asIdentity(c, teacherID)
	setPathID(c, "301")
	require.NoError(t, f.h.Delete(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
