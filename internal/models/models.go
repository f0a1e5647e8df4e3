package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleTeacher  Role = "teacher"
	RoleDirector Role = "director"
)

// Actor is the authenticated caller a collaborating auth layer resolved for
// the current request. Every store and report call takes it explicitly; there
// is no ambient "current user".
type Actor struct {
	TeacherID uuid.UUID
	Role      Role
	SchoolID  uuid.UUID
}

// Attributed reports whether the actor carries a real teacher identity.
// An unattributed actor records NULL attribution, never a fabricated id.
func (a Actor) Attributed() bool { return a.TeacherID != uuid.Nil }

func (a Actor) IsDirector() bool { return a.Role == RoleDirector }

type School struct {
	ID   uuid.UUID
	Name string
}

type Fraternity struct {
	ID       uuid.UUID
	Name     string
	SchoolID uuid.UUID
}

// Category is one of the award dimensions a school configures ("values" in
// the legacy system: Respeto, Honestidad, ...).
type Category struct {
	ID       uuid.UUID
	Name     string
	SchoolID uuid.UUID
}

type Student struct {
	ID           int64
	Code         string
	GivenName    string
	FamilyName   string
	Grade        string
	FraternityID *uuid.UUID
	SchoolID     uuid.UUID
}

func (s Student) FullName() string {
	return s.GivenName + " " + s.FamilyName
}

type Teacher struct {
	ID           uuid.UUID
	Email        string
	GivenNames   string
	FamilyNames  string
	Role         Role
	Subject      *string
	Area         *string
	Grades       *string
	FraternityID *uuid.UUID
	SchoolID     uuid.UUID
}

func (t Teacher) FullName() string {
	return t.GivenNames + " " + t.FamilyNames
}

// PointEvent is the atomic unit of the ledger: one signed, attributed award
// or deduction. Rows are append-only; a correction is an offsetting insert.
type PointEvent struct {
	ID         int64
	StudentID  int64
	CategoryID uuid.UUID
	Quantity   int
	TeacherID  *uuid.UUID
	CreatedAt  time.Time
}
