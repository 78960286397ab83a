package coursework

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/studycoach/internal/grading"
)

type SQLStore struct {
	db     *sql.DB
	grader grading.Grader
	now    func() time.Time
}

func NewSQLStore(db *sql.DB, g grading.Grader) *SQLStore {
	return &SQLStore{db: db, grader: g, now: time.Now}
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) UpsertItem(ctx context.Context, it CourseItem) (CourseItem, error) {
	if err := validateItem(it); err != nil {
		return CourseItem{}, err
	}
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	for i := range it.Attempts {
		if err := gradeQuestions(ctx, s.grader, it.Attempts[i].Questions); err != nil {
			return CourseItem{}, err
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return CourseItem{}, err
	}
	defer func() { _ = tx.Rollback() }()

	// without attempts the stored ones stay, and the counters follow them
	replace := len(it.Attempts) > 0
	if !replace {
		if it.Attempts, err = loadAttempts(ctx, tx, it.ID); err != nil {
			return CourseItem{}, err
		}
	}
	normalizeAttempts(&it)

	_, err = tx.ExecContext(ctx, `INSERT INTO course_items
		(id,student_id,course_id,type,title,points_possible,latest_score,attempt_count,due_at,status,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
			student_id=EXCLUDED.student_id, course_id=EXCLUDED.course_id, type=EXCLUDED.type,
			title=EXCLUDED.title, points_possible=EXCLUDED.points_possible, latest_score=EXCLUDED.latest_score,
			attempt_count=EXCLUDED.attempt_count, due_at=EXCLUDED.due_at, status=EXCLUDED.status,
			updated_at=EXCLUDED.updated_at`,
		it.ID, it.StudentID, it.CourseID, string(it.Type), it.Title, it.PointsPossible,
		nullFloat(it.LatestScore), it.AttemptCount, nullUnix(it.DueDate), string(it.Status), s.now().Unix())
	if err != nil {
		return CourseItem{}, fmt.Errorf("upsert item: %w", err)
	}
	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM item_attempts WHERE item_id=$1`, it.ID); err != nil {
			return CourseItem{}, fmt.Errorf("replace attempts: %w", err)
		}
		for _, a := range it.Attempts {
			if a.SubmittedAt.IsZero() {
				a.SubmittedAt = s.now().UTC()
			}
			if err := insertAttempt(ctx, tx, it.ID, a); err != nil {
				return CourseItem{}, err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return CourseItem{}, err
	}
	return s.GetItem(ctx, it.ID)
}

func (s *SQLStore) GetItem(ctx context.Context, id string) (CourseItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM course_items WHERE id=$1`, id)
	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CourseItem{}, ErrNotFound
		}
		return CourseItem{}, err
	}
	if it.Attempts, err = loadAttempts(ctx, s.db, it.ID); err != nil {
		return CourseItem{}, err
	}
	return it, nil
}

func (s *SQLStore) ListItems(ctx context.Context, opts ListOpts) ([]CourseItem, error) {
	q := `SELECT ` + itemColumns + ` FROM course_items WHERE 1=1`
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		q += " AND " + cond + "$" + strconv.Itoa(len(args))
	}
	if opts.StudentID != "" {
		add("student_id=", opts.StudentID)
	}
	if opts.CourseID != "" {
		add("course_id=", opts.CourseID)
	}
	if opts.Status != "" {
		add("status=", string(opts.Status))
	}
	q += ` ORDER BY course_id, due_at, id`
	if opts.Limit > 0 {
		args = append(args, opts.Limit, opts.Offset)
		q += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	out := []CourseItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	// close before issuing attempt queries: sqlite runs on a single connection
	_ = rows.Close()

	for i := range out {
		if out[i].Attempts, err = loadAttempts(ctx, s.db, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLStore) RecordAttempt(ctx context.Context, itemID string, a Attempt) (CourseItem, error) {
	if err := gradeQuestions(ctx, s.grader, a.Questions); err != nil {
		return CourseItem{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return CourseItem{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM course_items WHERE id=$1`, itemID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CourseItem{}, ErrNotFound
		}
		return CourseItem{}, err
	}
	var last sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(attempt_no) FROM item_attempts WHERE item_id=$1`, itemID).Scan(&last); err != nil {
		return CourseItem{}, err
	}
	a.AttemptNo = int(last.Int64) + 1
	if a.SubmittedAt.IsZero() {
		a.SubmittedAt = s.now().UTC()
	}
	if err := insertAttempt(ctx, tx, itemID, a); err != nil {
		return CourseItem{}, err
	}

	status := StatusSubmitted
	if a.Score != nil {
		status = StatusGraded
	}
	if _, err := tx.ExecContext(ctx, `UPDATE course_items
		SET latest_score=COALESCE($1, latest_score), attempt_count=attempt_count+1, status=$2, updated_at=$3
		WHERE id=$4`,
		nullFloat(a.Score), string(status), s.now().Unix(), itemID); err != nil {
		return CourseItem{}, fmt.Errorf("update item: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return CourseItem{}, err
	}
	return s.GetItem(ctx, itemID)
}

func (s *SQLStore) ListCourses(ctx context.Context, studentID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT course_id FROM course_items WHERE student_id=$1 ORDER BY course_id`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ---- helpers ----

const itemColumns = `id,student_id,course_id,type,title,points_possible,latest_score,attempt_count,due_at,status`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(r rowScanner) (CourseItem, error) {
	var (
		it          CourseItem
		typ, status string
		latest      sql.NullFloat64
		due         sql.NullInt64
	)
	if err := r.Scan(&it.ID, &it.StudentID, &it.CourseID, &typ, &it.Title, &it.PointsPossible,
		&latest, &it.AttemptCount, &due, &status); err != nil {
		return CourseItem{}, err
	}
	it.Type = ItemType(typ)
	it.Status = Status(status)
	if latest.Valid {
		v := latest.Float64
		it.LatestScore = &v
	}
	if due.Valid {
		d := time.Unix(due.Int64, 0).UTC()
		it.DueDate = &d
	}
	return it, nil
}

func loadAttempts(ctx context.Context, q queryer, itemID string) ([]Attempt, error) {
	rows, err := q.QueryContext(ctx, `SELECT attempt_no,submitted_at,score,questions_json,submission_json
		FROM item_attempts WHERE item_id=$1 ORDER BY attempt_no`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		var (
			a         Attempt
			submitted int64
			score     sql.NullFloat64
			qjson     string
			sjson     string
		)
		if err := rows.Scan(&a.AttemptNo, &submitted, &score, &qjson, &sjson); err != nil {
			return nil, err
		}
		a.SubmittedAt = time.Unix(submitted, 0).UTC()
		if score.Valid {
			v := score.Float64
			a.Score = &v
		}
		if qjson != "" && qjson != "null" {
			if err := json.Unmarshal([]byte(qjson), &a.Questions); err != nil {
				return nil, fmt.Errorf("attempt %d questions: %w", a.AttemptNo, err)
			}
		}
		if sjson != "" {
			var sub Submission
			if err := json.Unmarshal([]byte(sjson), &sub); err != nil {
				return nil, fmt.Errorf("attempt %d submission: %w", a.AttemptNo, err)
			}
			a.Submission = &sub
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func insertAttempt(ctx context.Context, tx *sql.Tx, itemID string, a Attempt) error {
	qjson := "[]"
	if len(a.Questions) > 0 {
		buf, err := json.Marshal(a.Questions)
		if err != nil {
			return err
		}
		qjson = string(buf)
	}
	sjson := ""
	if a.Submission != nil {
		buf, err := json.Marshal(a.Submission)
		if err != nil {
			return err
		}
		sjson = string(buf)
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO item_attempts
		(item_id,attempt_no,submitted_at,score,questions_json,submission_json)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		itemID, a.AttemptNo, a.SubmittedAt.Unix(), nullFloat(a.Score), qjson, sjson)
	if err != nil {
		return fmt.Errorf("insert attempt %d: %w", a.AttemptNo, err)
	}
	return nil
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}
