// Package ledger owns the append-only record of point awards. Totals are
// never kept in a running counter column; every award is an insert, so
// concurrent writers cannot lose each other's updates.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lcb-colegios/hogwarts-points/internal/ctxutil"
	"github.com/lcb-colegios/hogwarts-points/internal/metrics"
	"github.com/lcb-colegios/hogwarts-points/internal/models"
	"github.com/lcb-colegios/hogwarts-points/internal/observability"
	"go.uber.org/zap"
)

type Store struct {
	db      *sql.DB
	log     *zap.Logger
	onWrite []func(schoolID uuid.UUID)
}

func New(database *sql.DB, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: database, log: log}
}

// OnWrite registers a hook fired synchronously after every committed write,
// before control returns to the caller. The read cache's Invalidate goes here.
func (s *Store) OnWrite(fn func(schoolID uuid.UUID)) {
	s.onWrite = append(s.onWrite, fn)
}

func (s *Store) fireWrite(schoolID uuid.UUID) {
	for _, fn := range s.onWrite {
		fn(schoolID)
	}
}

// RecordEvent appends one signed award for a student in the named category.
// The name-to-id resolution and the insert share one transaction, so a
// concurrent category rename cannot orphan the event.
func (s *Store) RecordEvent(ctx context.Context, actor models.Actor, studentID int64, categoryName string, delta int) (int64, error) {
	ctx = ctxutil.WithOp(ctx, "ledger.RecordEvent")
	if delta == 0 {
		metrics.RejectEvent("noop")
		return 0, ErrNoOp
	}

	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id, err := s.insertEvent(ctx, tx, actor, studentID, categoryName, delta)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.RejectEvent("not_found")
		} else {
			observability.CaptureOpErr(ctx, err)
		}
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		observability.CaptureOpErr(ctx, err)
		return 0, fmt.Errorf("commit: %w", err)
	}

	metrics.EventsRecorded.Inc()
	s.log.Info("point event recorded",
		zap.Int64("student_id", studentID),
		zap.String("category", categoryName),
		zap.Int("delta", delta),
	)
	s.fireWrite(actor.SchoolID)
	return id, nil
}

func (s *Store) insertEvent(ctx context.Context, tx *sql.Tx, actor models.Actor, studentID int64, categoryName string, delta int) (int64, error) {
	// Student must exist in the actor's school; a caller-supplied row is
	// never trusted without rechecking scope.
	var exists bool
	err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM students WHERE id = $1 AND school_id = $2)`,
		studentID, actor.SchoolID,
	).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("check student: %w", err)
	}
	if !exists {
		return 0, fmt.Errorf("%w: student %d", ErrNotFound, studentID)
	}

	var categoryID uuid.UUID
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE school_id = $1 AND name = $2`,
		actor.SchoolID, categoryName,
	).Scan(&categoryID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: category %q", ErrNotFound, categoryName)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve category: %w", err)
	}

	var teacherID *uuid.UUID
	if actor.Attributed() {
		teacherID = &actor.TeacherID
	}

	var eventID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO point_events (student_id, category_id, quantity, teacher_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		studentID, categoryID, delta, teacherID,
	).Scan(&eventID)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return eventID, nil
}

type FailedStudent struct {
	StudentID int64
	Err       error
}

type BulkResult struct {
	Succeeded []int64
	Failed    []FailedStudent
}

// RecordBulk awards the same delta to every listed student, one transaction
// per row. A student that fails lookup is reported and skipped; the rest are
// still credited. Storage faults abort the loop and surface alongside the
// partial result.
func (s *Store) RecordBulk(ctx context.Context, actor models.Actor, studentIDs []int64, categoryName string, delta int) (BulkResult, error) {
	ctx = ctxutil.WithOp(ctx, "ledger.RecordBulk")
	var res BulkResult
	if delta == 0 {
		metrics.RejectEvent("noop")
		return res, ErrNoOp
	}

	wrote := false
	defer func() {
		if wrote {
			s.fireWrite(actor.SchoolID)
		}
	}()

	for _, studentID := range studentIDs {
		id, err := s.recordOne(ctx, actor, studentID, categoryName, delta)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				metrics.RejectEvent("not_found")
				res.Failed = append(res.Failed, FailedStudent{StudentID: studentID, Err: err})
				continue
			}
			observability.CaptureOpErr(ctx, err)
			return res, err
		}
		res.Succeeded = append(res.Succeeded, id)
		wrote = true
		metrics.EventsRecorded.Inc()
	}

	s.log.Info("bulk award recorded",
		zap.String("category", categoryName),
		zap.Int("delta", delta),
		zap.Int("succeeded", len(res.Succeeded)),
		zap.Int("failed", len(res.Failed)),
	)
	return res, nil
}

func (s *Store) recordOne(ctx context.Context, actor models.Actor, studentID int64, categoryName string, delta int) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id, err := s.insertEvent(ctx, tx, actor, studentID, categoryName, delta)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}
