package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProfileDocument is one document in the employers/employees collections.
// Fields are schemaless: screens supply their own fallbacks for anything
// missing.
type ProfileDocument struct {
	bun.BaseModel `bun:"table:profiles,alias:prf"`
	Collection    string         `bun:"collection,pk" json:"collection"`
	UserID        string         `bun:"user_id,pk" json:"user_id"`
	Fields        map[string]any `bun:"fields" json:"fields,omitempty"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Job is a posting created by an employer.
type Job struct {
	bun.BaseModel `bun:"table:jobs,alias:job"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	EmployerID    string     `bun:"employer_id,notnull" json:"employer_id,omitempty"`
	Title         string     `bun:"title,notnull" json:"title,omitempty"`
	Description   string     `bun:"description" json:"description,omitempty"`
	Location      string     `bun:"location" json:"location,omitempty"`
	Category      string     `bun:"category" json:"category,omitempty"`
	Pay           string     `bun:"pay" json:"pay,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// ApplicationStatus tracks employer review progress.
type ApplicationStatus = string

const (
	ApplicationApplied  ApplicationStatus = "applied"
	ApplicationReviewed ApplicationStatus = "reviewed"
)

// Application is an employee's application to a job, including the
// employer's review feedback once given.
type Application struct {
	bun.BaseModel `bun:"table:applications,alias:app"`
	ID            uuid.UUID         `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	JobID         uuid.UUID         `bun:"job_id,notnull,type:uuid" json:"job_id,omitempty"`
	EmployeeID    string            `bun:"employee_id,notnull" json:"employee_id,omitempty"`
	Note          string            `bun:"note" json:"note,omitempty"`
	Status        ApplicationStatus `bun:"status,notnull" json:"status,omitempty"`
	Feedback      string            `bun:"feedback" json:"feedback,omitempty"`
	CreatedAt     *time.Time        `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time        `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
