// Package admin covers the director-gated maintenance operations: editing
// student records and managing the teaching staff. Awarding points is open to
// any authenticated teacher and lives in the ledger package.
package admin

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lcb-colegios/hogwarts-points/internal/ctxutil"
	"github.com/lcb-colegios/hogwarts-points/internal/db"
	"github.com/lcb-colegios/hogwarts-points/internal/models"
	"go.uber.org/zap"
)

var ErrForbidden = errors.New("operation requires the director role")

type Service struct {
	db      *sql.DB
	log     *zap.Logger
	onWrite []func(schoolID uuid.UUID)
}

func New(database *sql.DB, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: database, log: log}
}

func (s *Service) OnWrite(fn func(schoolID uuid.UUID)) {
	s.onWrite = append(s.onWrite, fn)
}

func (s *Service) fireWrite(schoolID uuid.UUID) {
	for _, fn := range s.onWrite {
		fn(schoolID)
	}
}

// UpdateStudent rewrites a student's code, names, grade and fraternity.
func (s *Service) UpdateStudent(ctx context.Context, actor models.Actor, student models.Student) error {
	ctx = ctxutil.WithOp(ctx, "admin.UpdateStudent")
	if !actor.IsDirector() {
		return ErrForbidden
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	if err := db.UpdateStudent(ctx, s.db, actor.SchoolID, student); err != nil {
		return err
	}
	s.log.Info("student updated", zap.Int64("student_id", student.ID))
	s.fireWrite(actor.SchoolID)
	return nil
}

// CreateTeacher registers a staff member in the actor's school. Credential
// provisioning belongs to the auth collaborator, not here.
func (s *Service) CreateTeacher(ctx context.Context, actor models.Actor, t models.Teacher) (uuid.UUID, error) {
	ctx = ctxutil.WithOp(ctx, "admin.CreateTeacher")
	if !actor.IsDirector() {
		return uuid.Nil, ErrForbidden
	}
	t.SchoolID = actor.SchoolID
	if t.Role == "" {
		t.Role = models.RoleTeacher
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	id, err := db.CreateTeacher(ctx, s.db, t)
	if err != nil {
		return uuid.Nil, err
	}
	s.log.Info("teacher created", zap.String("email", t.Email), zap.String("role", string(t.Role)))
	return id, nil
}
