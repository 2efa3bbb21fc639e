package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/reading-practice/internal/config"
	"github.com/iliyamo/reading-practice/internal/queue"
	"github.com/iliyamo/reading-practice/internal/repository"
	"github.com/iliyamo/reading-practice/internal/session"
)

func testConfig() config.Config {
	return config.Config{
		Env:         "test",
		BcryptCost:  4,
		SessionTTL:  time.Hour,
		ResetSecret: "test-secret",
		ResetTTL:    time.Minute,
	}
}

// newJSONCtx builds an echo context carrying a JSON body.
func newJSONCtx(t *testing.T, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// asIdentity marks the context as authenticated the way SessionAuth would.
func asIdentity(c echo.Context, id session.Identity) {
	c.Set("identity", id)
	c.Set("user_id", id.UserID)
	c.Set("role", id.Role)
}

func setPathID(c echo.Context, id string) {
	c.SetParamNames("id")
	c.SetParamValues(id)
}

// decodeEnvelope unpacks the response body into the shared envelope shape.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

var (
	teacherID = session.Identity{UserID: 10, Role: repository.RoleTeacher, FullName: "Ms Rivera"}
	adminID   = session.Identity{UserID: 1, Role: repository.RoleAdmin, FullName: "Root"}
	studentID = session.Identity{UserID: 100, Role: repository.RoleStudent, ClassID: 5, FullName: "Sam Reader"}
)

// ---- in-memory fakes --------------------------------------------------

type fakeUsers struct {
	byID   map[uint64]repository.User
	nextID uint64
}

func newFakeUsers(users ...repository.User) *fakeUsers {
	f := &fakeUsers{byID: make(map[uint64]repository.User), nextID: 1000}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) CreateAccount(_ context.Context, fullName, email, passwordHash, role string) (uint64, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return 0, repository.ErrConflict
		}
	}
	f.nextID++
	f.byID[f.nextID] = repository.User{
		ID: f.nextID, FullName: fullName, Email: email,
		PasswordHash: passwordHash, Role: role, IsActive: true,
	}
	return f.nextID, nil
}

func (f *fakeUsers) CreateStudent(_ context.Context, fullName string, classID, visualPasswordID uint64) (uint64, error) {
	f.nextID++
	f.byID[f.nextID] = repository.User{
		ID: f.nextID, FullName: fullName, Role: repository.RoleStudent,
		ClassID: classID, VisualPasswordID: visualPasswordID, IsActive: true,
	}
	return f.nextID, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (repository.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return repository.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (repository.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetStudentByNameAndClass(_ context.Context, fullName string, classID uint64) (repository.User, error) {
	for _, u := range f.byID {
		if u.Role == repository.RoleStudent && u.FullName == fullName && u.ClassID == classID {
			return u, nil
		}
	}
	return repository.User{}, repository.ErrNotFound
}

func (f *fakeUsers) List(context.Context) ([]repository.User, error) {
	out := make([]repository.User, 0, len(f.byID))
	for _, u := range f.byID {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUsers) ListByClass(_ context.Context, classID uint64) ([]repository.User, error) {
	out := make([]repository.User, 0)
	for _, u := range f.byID {
		if u.Role == repository.RoleStudent && u.ClassID == classID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) Update(_ context.Context, id uint64, fullName string, classID uint64, isActive bool) error {
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.FullName, u.ClassID, u.IsActive = fullName, classID, isActive
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) SetPassword(_ context.Context, id uint64, passwordHash string) error {
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) SetVisualPassword(_ context.Context, id, visualPasswordID uint64) error {
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.VisualPasswordID = visualPasswordID
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id uint64) error {
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeClasses struct {
	byID   map[uint64]repository.Class
	nextID uint64
}

func newFakeClasses(classes ...repository.Class) *fakeClasses {
	f := &fakeClasses{byID: make(map[uint64]repository.Class), nextID: 500}
	for _, cl := range classes {
		f.byID[cl.ID] = cl
	}
	return f
}

func (f *fakeClasses) Create(_ context.Context, cl *repository.Class) error {
	f.nextID++
	cl.ID = f.nextID
	f.byID[cl.ID] = *cl
	return nil
}

func (f *fakeClasses) GetByID(_ context.Context, id uint64) (repository.Class, error) {
	cl, ok := f.byID[id]
	if !ok {
		return repository.Class{}, repository.ErrNotFound
	}
	return cl, nil
}

func (f *fakeClasses) GetByAccessToken(_ context.Context, token string) (repository.Class, error) {
	for _, cl := range f.byID {
		if cl.AccessToken == token {
			return cl, nil
		}
	}
	return repository.Class{}, repository.ErrNotFound
}

func (f *fakeClasses) ListByTeacher(_ context.Context, teacherID uint64) ([]repository.Class, error) {
	out := make([]repository.Class, 0)
	for _, cl := range f.byID {
		if cl.TeacherID == teacherID {
			out = append(out, cl)
		}
	}
	return out, nil
}

func (f *fakeClasses) ListAll(context.Context) ([]repository.Class, error) {
	out := make([]repository.Class, 0, len(f.byID))
	for _, cl := range f.byID {
		out = append(out, cl)
	}
	return out, nil
}

func (f *fakeClasses) Update(_ context.Context, id uint64, name string, gradeLevel int, allowSelfEnroll bool) error {
	cl, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	cl.Name, cl.GradeLevel, cl.AllowSelfEnroll = name, gradeLevel, allowSelfEnroll
	f.byID[id] = cl
	return nil
}

func (f *fakeClasses) Delete(_ context.Context, id uint64) error {
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeStories struct {
	byID map[uint64]repository.Story
}

func newFakeStories(stories ...repository.Story) *fakeStories {
	f := &fakeStories{byID: make(map[uint64]repository.Story)}
	for _, st := range stories {
		f.byID[st.ID] = st
	}
	return f
}

func (f *fakeStories) Create(_ context.Context, st *repository.Story) error {
	st.ID = uint64(len(f.byID) + 1)
	st.WordCount = len(strings.Fields(st.Content))
	f.byID[st.ID] = *st
	return nil
}

func (f *fakeStories) GetByID(_ context.Context, id uint64) (repository.Story, error) {
	st, ok := f.byID[id]
	if !ok {
		return repository.Story{}, repository.ErrNotFound
	}
	return st, nil
}

func (f *fakeStories) List(context.Context) ([]repository.Story, error) {
	out := make([]repository.Story, 0, len(f.byID))
	for _, st := range f.byID {
		out = append(out, st)
	}
	return out, nil
}

func (f *fakeStories) Update(_ context.Context, id uint64, title, content string, gradeLevel int) error {
	st, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	st.Title, st.Content, st.GradeLevel = title, content, gradeLevel
	st.WordCount = len(strings.Fields(content))
	f.byID[id] = st
	return nil
}

func (f *fakeStories) Delete(_ context.Context, id uint64) error {
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeAssignments struct {
	byID   map[uint64]repository.Assignment
	nextID uint64
}

func newFakeAssignments(assignments ...repository.Assignment) *fakeAssignments {
	f := &fakeAssignments{byID: make(map[uint64]repository.Assignment), nextID: 200}
	for _, a := range assignments {
		f.byID[a.ID] = a
	}
	return f
}

func (f *fakeAssignments) Create(_ context.Context, a *repository.Assignment) error {
	f.nextID++
	a.ID = f.nextID
	f.byID[a.ID] = *a
	return nil
}

func (f *fakeAssignments) GetByID(_ context.Context, id uint64) (repository.Assignment, error) {
	a, ok := f.byID[id]
	if !ok {
		return repository.Assignment{}, repository.ErrNotFound
	}
	return a, nil
}

func (f *fakeAssignments) ListByClass(_ context.Context, classID uint64, publishedOnly bool) ([]repository.Assignment, error) {
	out := make([]repository.Assignment, 0)
	for _, a := range f.byID {
		if a.ClassID != classID {
			continue
		}
		if publishedOnly && !a.IsPublished {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAssignments) Update(_ context.Context, a repository.Assignment) error {
	if _, ok := f.byID[a.ID]; !ok {
		return repository.ErrNotFound
	}
	f.byID[a.ID] = a
	return nil
}

func (f *fakeAssignments) Delete(_ context.Context, id uint64) error {
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeRecordingStore struct {
	byID   map[uint64]repository.Recording
	nextID uint64
	failed map[uint64]string
}

func newFakeRecordingStore(recs ...repository.Recording) *fakeRecordingStore {
	f := &fakeRecordingStore{
		byID:   make(map[uint64]repository.Recording),
		nextID: 300,
		failed: make(map[uint64]string),
	}
	for _, r := range recs {
		f.byID[r.ID] = r
	}
	return f
}

func (f *fakeRecordingStore) Create(_ context.Context, rec *repository.Recording) error {
	f.nextID++
	rec.ID = f.nextID
	rec.Status = repository.RecordingUploaded
	f.byID[rec.ID] = *rec
	return nil
}

func (f *fakeRecordingStore) GetByID(_ context.Context, id uint64) (repository.Recording, error) {
	r, ok := f.byID[id]
	if !ok {
		return repository.Recording{}, repository.ErrNotFound
	}
	return r, nil
}

func (f *fakeRecordingStore) ListByStudent(_ context.Context, studentID uint64) ([]repository.Recording, error) {
	out := make([]repository.Recording, 0)
	for _, r := range f.byID {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRecordingStore) ListByAssignment(_ context.Context, assignmentID uint64) ([]repository.Recording, error) {
	out := make([]repository.Recording, 0)
	for _, r := range f.byID {
		if r.AssignmentID == assignmentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRecordingStore) CountAttempts(_ context.Context, studentID, assignmentID uint64) (int, error) {
	n := 0
	for _, r := range f.byID {
		if r.StudentID == studentID && r.AssignmentID == assignmentID {
			n++
		}
	}
	return n, nil
}

func (f *fakeRecordingStore) Fail(_ context.Context, id uint64, reason string) error {
	r, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.Status = repository.RecordingFailed
	r.FailureReason = reason
	f.byID[id] = r
	f.failed[id] = reason
	return nil
}

func (f *fakeRecordingStore) Delete(_ context.Context, id uint64) error {
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeVisualPasswords struct {
	items []repository.VisualPassword
}

func (f *fakeVisualPasswords) Exists(_ context.Context, id uint64) (bool, error) {
	for _, vp := range f.items {
		if vp.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeVisualPasswords) List(context.Context) ([]repository.VisualPassword, error) {
	return f.items, nil
}

type fakeBlobStore struct {
	blobs   map[string][]byte
	saveErr error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (f *fakeBlobStore) Save(src io.Reader, originalName string) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}
	key := "blob-" + originalName
	f.blobs[key] = data
	return key, nil
}

func (f *fakeBlobStore) Open(key string) (io.ReadCloser, error) {
	data, ok := f.blobs[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeBlobStore) Remove(key string) error {
	delete(f.blobs, key)
	return nil
}

type fakePublisher struct {
	published []queue.RecordingSubmittedEvent
	err       error
}

func (f *fakePublisher) PublishRecordingSubmitted(_ context.Context, ev queue.RecordingSubmittedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, ev)
	return nil
}

// newMultipartCtx builds a multipart upload request with an audio file part
// and the given form fields.
func newMultipartCtx(t *testing.T, path string, fields map[string]string, fileField, filename, fileBody string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		part, err := mw.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(fileBody))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}
