package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Role values stored in users.role.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// User mirrors the 'users' table. Email and PasswordHash are null for
// students; ClassID is null for teachers and admins.
type User struct {
	ID               uint64    `json:"id"`
	FullName         string    `json:"full_name"`
	Email            string    `json:"email,omitempty"`
	PasswordHash     string    `json:"-"`
	Role             string    `json:"role"`
	ClassID          uint64    `json:"class_id,omitempty"`
	VisualPasswordID uint64    `json:"visual_password_id,omitempty"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id, full_name, COALESCE(email,''), COALESCE(password_hash,''), role, COALESCE(class_id,0), COALESCE(visual_password_id,0), is_active, created_at, updated_at"

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.Role,
		&u.ClassID, &u.VisualPasswordID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

// CreateAccount inserts a password-holding user (teacher or admin) and
// returns its ID.
func (r *UserRepo) CreateAccount(ctx context.Context, fullName, email, passwordHash, role string) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (full_name, email, password_hash, role) VALUES (?,?,?,?)",
		fullName, email, passwordHash, role)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// CreateStudent inserts a student profile bound to a class. Students carry no
// email or password; the visual password may be zero on first contact and set
// later through SetVisualPassword.
func (r *UserRepo) CreateStudent(ctx context.Context, fullName string, classID, visualPasswordID uint64) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (full_name, role, class_id, visual_password_id) VALUES (?,?,?,NULLIF(?,0))",
		fullName, RoleStudent, classID, visualPasswordID)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetStudentByNameAndClass resolves a student identity inside one class. The
// match is case-insensitive on the trimmed full name, which is how children
// type their own names.
func (r *UserRepo) GetStudentByNameAndClass(ctx context.Context, fullName string, classID uint64) (User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE role=? AND class_id=? AND LOWER(full_name)=LOWER(?) LIMIT 1",
		RoleStudent, classID, strings.TrimSpace(fullName)))
}

// List returns all users, newest first. Admin-only at the handler layer.
func (r *UserRepo) List(ctx context.Context) ([]User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

// ListByClass returns the student roster of a class.
func (r *UserRepo) ListByClass(ctx context.Context, classID uint64) ([]User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE role=? AND class_id=? ORDER BY full_name",
		RoleStudent, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func collectUsers(rows *sql.Rows) ([]User, error) {
	users := make([]User, 0)
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.Role,
			&u.ClassID, &u.VisualPasswordID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Update changes the mutable profile fields. Role is immutable after
// creation and is deliberately not updatable here.
func (r *UserRepo) Update(ctx context.Context, id uint64, fullName string, classID uint64, isActive bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET full_name=?, class_id=NULLIF(?,0), is_active=? WHERE id=?",
		fullName, classID, isActive, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetPassword stores a new bcrypt hash for a teacher or admin account.
func (r *UserRepo) SetPassword(ctx context.Context, id uint64, passwordHash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=? AND role IN (?,?)",
		passwordHash, id, RoleTeacher, RoleAdmin)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetVisualPassword records a student's picked icon; used on first join.
func (r *UserRepo) SetVisualPassword(ctx context.Context, id, visualPasswordID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET visual_password_id=? WHERE id=? AND role=?",
		visualPasswordID, id, RoleStudent)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes a user row.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// requireRow converts "zero rows affected" into ErrNotFound so callers get a
// 404 instead of silently succeeding.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
