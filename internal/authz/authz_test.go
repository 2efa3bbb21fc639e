package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/reading-practice/internal/repository"
	"github.com/iliyamo/reading-practice/internal/session"
)

var (
	admin    = session.Identity{UserID: 1, Role: repository.RoleAdmin}
	teacher  = session.Identity{UserID: 10, Role: repository.RoleTeacher}
	studentA = session.Identity{UserID: 100, Role: repository.RoleStudent, ClassID: 5}
)

func TestAdminCanEverything(t *testing.T) {
	for _, kind := range []Kind{KindUser, KindClass, KindAssignment, KindRecording, KindStory} {
		for _, act := range []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete} {
			assert.True(t, Can(admin, act, Resource{Kind: kind}), "admin %s %s", act, kind)
		}
	}
}

func TestUserManagementIsAdminOnly(t *testing.T) {
	assert.False(t, Can(teacher, ActionRead, Resource{Kind: KindUser}))
	assert.False(t, Can(studentA, ActionRead, Resource{Kind: KindUser}))
	assert.False(t, Can(teacher, ActionCreate, Resource{Kind: KindUser}))
}

func TestClassPermissions(t *testing.T) {
	owned := Resource{Kind: KindClass, TeacherID: teacher.UserID, ClassID: 5}
	foreign := Resource{Kind: KindClass, TeacherID: 99, ClassID: 6}

	assert.True(t, Can(teacher, ActionCreate, Resource{Kind: KindClass, TeacherID: teacher.UserID}))
	assert.True(t, Can(teacher, ActionUpdate, owned))
	assert.True(t, Can(teacher, ActionDelete, owned))
	assert.False(t, Can(teacher, ActionUpdate, foreign))
	assert.False(t, Can(teacher, ActionDelete, foreign))

	// A student reads only the class they are enrolled in.
	assert.True(t, Can(studentA, ActionRead, owned))
	assert.False(t, Can(studentA, ActionRead, foreign))
	assert.False(t, Can(studentA, ActionUpdate, owned))
	assert.False(t, Can(studentA, ActionCreate, Resource{Kind: KindClass}))
}

func TestAssignmentPermissions(t *testing.T) {
	published := Resource{Kind: KindAssignment, TeacherID: teacher.UserID, ClassID: 5, Published: true}
	draft := Resource{Kind: KindAssignment, TeacherID: teacher.UserID, ClassID: 5, Published: false}
	otherClass := Resource{Kind: KindAssignment, TeacherID: 99, ClassID: 6, Published: true}

	assert.True(t, Can(teacher, ActionRead, draft))
	assert.True(t, Can(teacher, ActionUpdate, draft))
	assert.False(t, Can(teacher, ActionUpdate, otherClass))

	assert.True(t, Can(studentA, ActionRead, published))
	assert.False(t, Can(studentA, ActionRead, draft), "drafts are invisible to students")
	assert.False(t, Can(studentA, ActionRead, otherClass))
	assert.False(t, Can(studentA, ActionUpdate, published))
}

func TestStoryPermissions(t *testing.T) {
	st := Resource{Kind: KindStory}
	assert.True(t, Can(studentA, ActionRead, st))
	assert.True(t, Can(teacher, ActionRead, st))
	assert.True(t, Can(teacher, ActionCreate, st))
	assert.True(t, Can(teacher, ActionDelete, st))
	assert.False(t, Can(studentA, ActionCreate, st))
	assert.False(t, Can(studentA, ActionDelete, st))
}

func TestRecordingPermissions(t *testing.T) {
	own := Resource{Kind: KindRecording, StudentID: studentA.UserID, TeacherID: teacher.UserID, ClassID: 5}
	someoneElses := Resource{Kind: KindRecording, StudentID: 999, TeacherID: teacher.UserID, ClassID: 5}

	assert.True(t, Can(studentA, ActionCreate, own))
	assert.True(t, Can(studentA, ActionRead, own))
	assert.True(t, Can(studentA, ActionDelete, own))
	assert.False(t, Can(studentA, ActionRead, someoneElses))
	assert.False(t, Can(studentA, ActionDelete, someoneElses))

	// Teachers read submissions for their class but never mutate them.
	assert.True(t, Can(teacher, ActionRead, someoneElses))
	assert.False(t, Can(teacher, ActionUpdate, someoneElses))
	assert.False(t, Can(teacher, ActionDelete, someoneElses))
	foreign := Resource{Kind: KindRecording, StudentID: 999, TeacherID: 42, ClassID: 7}
	assert.False(t, Can(teacher, ActionRead, foreign))
}
