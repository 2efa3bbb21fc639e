package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Class mirrors the 'classes' table. AccessToken is the shared secret
// students use to self-enroll; AllowSelfEnroll gates that flow per class.
type Class struct {
	ID              uint64    `json:"id"`
	TeacherID       uint64    `json:"teacher_id"`
	Name            string    `json:"name"`
	GradeLevel      int       `json:"grade_level"`
	AccessToken     string    `json:"access_token"`
	AllowSelfEnroll bool      `json:"allow_self_enroll"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type ClassRepo struct{ DB *sql.DB }

func NewClassRepo(db *sql.DB) *ClassRepo { return &ClassRepo{DB: db} }

const classColumns = "id, teacher_id, name, grade_level, access_token, allow_self_enroll, created_at, updated_at"

func scanClass(row *sql.Row) (Class, error) {
	var cl Class
	err := row.Scan(&cl.ID, &cl.TeacherID, &cl.Name, &cl.GradeLevel,
		&cl.AccessToken, &cl.AllowSelfEnroll, &cl.CreatedAt, &cl.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Class{}, ErrNotFound
	}
	return cl, err
}

// Create inserts a class and fills in its ID.
func (r *ClassRepo) Create(ctx context.Context, cl *Class) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO classes (teacher_id, name, grade_level, access_token, allow_self_enroll) VALUES (?,?,?,?,?)",
		cl.TeacherID, cl.Name, cl.GradeLevel, cl.AccessToken, cl.AllowSelfEnroll)
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
	cl.ID = uint64(id)
	return nil
}

// GetByID fetches a class by id.
func (r *ClassRepo) GetByID(ctx context.Context, id uint64) (Class, error) {
	return scanClass(r.DB.QueryRowContext(ctx,
		"SELECT "+classColumns+" FROM classes WHERE id=? LIMIT 1", id))
}

// GetByAccessToken resolves a class from its enrollment token.
func (r *ClassRepo) GetByAccessToken(ctx context.Context, token string) (Class, error) {
	return scanClass(r.DB.QueryRowContext(ctx,
		"SELECT "+classColumns+" FROM classes WHERE access_token=? LIMIT 1", token))
}

// ListByTeacher returns the classes a teacher owns.
func (r *ClassRepo) ListByTeacher(ctx context.Context, teacherID uint64) ([]Class, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+classColumns+" FROM classes WHERE teacher_id=? ORDER BY name", teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectClasses(rows)
}

// ListAll returns every class; admin view.
func (r *ClassRepo) ListAll(ctx context.Context) ([]Class, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+classColumns+" FROM classes ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectClasses(rows)
}

func collectClasses(rows *sql.Rows) ([]Class, error) {
	classes := make([]Class, 0)
	for rows.Next() {
		var cl Class
		if err := rows.Scan(&cl.ID, &cl.TeacherID, &cl.Name, &cl.GradeLevel,
			&cl.AccessToken, &cl.AllowSelfEnroll, &cl.CreatedAt, &cl.UpdatedAt); err != nil {
			return nil, err
		}
		classes = append(classes, cl)
	}
	return classes, rows.Err()
}

// Update changes name, grade level and the self-enroll flag.
func (r *ClassRepo) Update(ctx context.Context, id uint64, name string, gradeLevel int, allowSelfEnroll bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE classes SET name=?, grade_level=?, allow_self_enroll=? WHERE id=?",
		name, gradeLevel, allowSelfEnroll, id)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	return requireRow(res)
}

// Delete removes a class. Enrolled students keep their profiles but lose the
// class link via the FK's ON DELETE SET NULL.
func (r *ClassRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM classes WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}
