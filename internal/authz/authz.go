// Package authz is the single authorization gate. Every handler asks
// Can(identity, action, resource) instead of re-deriving role logic inline,
// so the permission table lives in exactly one place.
package authz

import (
	"github.com/iliyamo/reading-practice/internal/repository"
	"github.com/iliyamo/reading-practice/internal/session"
)

// Action is the verb being attempted on a resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Kind names the resource family.
type Kind string

const (
	KindUser       Kind = "user"
	KindClass      Kind = "class"
	KindAssignment Kind = "assignment"
	KindRecording  Kind = "recording"
	KindStory      Kind = "story"
)

// Resource carries the ownership facts the permission table needs. Zero
// values mean "not applicable": a class resource has no StudentID, a story
// has no ClassID.
type Resource struct {
	Kind      Kind
	TeacherID uint64 // owning teacher of the class this resource hangs off
	ClassID   uint64
	StudentID uint64 // owner student, recordings only
	Published bool   // assignments only
}

// Can reports whether id may perform act on res.
//
//	users:       admin only, all verbs
//	classes:     mutate -> owning teacher or admin; read -> owner, admin, enrolled student
//	assignments: as classes; student read additionally requires is_published
//	stories:     read -> any authenticated user; mutate -> teacher or admin
//	recordings:  create -> the student themself; read -> owner student,
//	             teacher owning the class, admin; delete -> owner student or admin
func Can(id session.Identity, act Action, res Resource) bool {
	if id.Role == repository.RoleAdmin {
		return true
	}
	switch res.Kind {
	case KindUser:
		return false
	case KindClass:
		return canClass(id, act, res)
	case KindAssignment:
		return canAssignment(id, act, res)
	case KindStory:
		return canStory(id, act)
	case KindRecording:
		return canRecording(id, act, res)
	}
	return false
}

func canClass(id session.Identity, act Action, res Resource) bool {
	switch id.Role {
	case repository.RoleTeacher:
		if act == ActionCreate {
			return true
		}
		return res.TeacherID == id.UserID
	case repository.RoleStudent:
		return act == ActionRead && res.ClassID != 0 && res.ClassID == id.ClassID
	}
	return false
}

func canAssignment(id session.Identity, act Action, res Resource) bool {
	switch id.Role {
	case repository.RoleTeacher:
		return res.TeacherID == id.UserID
	case repository.RoleStudent:
		return act == ActionRead && res.ClassID == id.ClassID && res.Published
	}
	return false
}

func canStory(id session.Identity, act Action) bool {
	if act == ActionRead {
		return true
	}
	return id.Role == repository.RoleTeacher
}

func canRecording(id session.Identity, act Action, res Resource) bool {
	switch id.Role {
	case repository.RoleStudent:
		switch act {
		case ActionCreate, ActionRead, ActionDelete:
			return res.StudentID == id.UserID
		}
		return false
	case repository.RoleTeacher:
		// Teachers read submissions for classes they own; status updates are
		// performed by the analysis consumer outside HTTP entirely.
		return act == ActionRead && res.TeacherID == id.UserID
	}
	return false
}
