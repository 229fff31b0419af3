// Package store holds the profile and job repositories backing the
// marketplace screens: profile documents partitioned into the employer and
// employee collections, job postings, and applications with employer
// feedback.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	partdime "github.com/devprabhu18/PartDImeApp"
)

// ErrAlreadyApplied is returned when an employee applies twice to one job.
var ErrAlreadyApplied = goerrors.New("already applied to this job", goerrors.CategoryConflict).
	WithTextCode("JOB_ALREADY_APPLIED").
	WithCode(goerrors.CodeConflict)

// ErrJobNotFound is returned when a job id resolves to nothing.
var ErrJobNotFound = goerrors.New("job not found", goerrors.CategoryNotFound).
	WithTextCode("JOB_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// JobFilter narrows ListJobs. Zero values match everything.
type JobFilter struct {
	EmployerID string
	Category   string
	Location   string
	Limit      int
}

// Store bundles the profile, job, and application repositories over one
// bun/SQLite handle.
type Store struct {
	db           *bun.DB
	jobs         repository.Repository[*Job]
	applications repository.Repository[*Application]
	now          func() time.Time
}

var _ partdime.ProfileStore = (*Store)(nil)

// StoreOption customizes store construction.
type StoreOption func(*Store)

// WithStoreClock injects a custom clock (useful for tests).
func WithStoreClock(clock func() time.Time) StoreOption {
	return func(s *Store) {
		if clock != nil {
			s.now = clock
		}
	}
}

// New wraps an existing bun handle.
func New(db *bun.DB, opts ...StoreOption) *Store {
	s := &Store{
		db:           db,
		jobs:         newJobsRepository(db),
		applications: newApplicationsRepository(db),
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Open opens (or creates) the SQLite database at path and ensures all
// tables exist. Use ":memory:" for an ephemeral store.
func Open(ctx context.Context, path string, opts ...StoreOption) (*Store, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, err
	}

	s := New(bun.NewDB(sqldb, sqlitedialect.New()), opts...)
	if err := s.Init(ctx); err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return s, nil
}

func newJobsRepository(db *bun.DB) repository.Repository[*Job] {
	handlers := repository.ModelHandlers[*Job]{
		NewRecord: func() *Job { return &Job{} },
		GetID: func(record *Job) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Job, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "title"
		},
	}
	return repository.NewRepository(db, handlers)
}

func newApplicationsRepository(db *bun.DB) repository.Repository[*Application] {
	handlers := repository.ModelHandlers[*Application]{
		NewRecord: func() *Application { return &Application{} },
		GetID: func(record *Application) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Application, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "employee_id"
		},
	}
	return repository.NewRepository(db, handlers)
}

// Init creates the backing tables if they do not exist.
func (s *Store) Init(ctx context.Context) error {
	models := []any{
		(*ProfileDocument)(nil),
		(*Job)(nil),
		(*Application)(nil),
	}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// GetProfile fetches a profile document, reporting found=false when the
// user has no document in that collection.
func (s *Store) GetProfile(ctx context.Context, collection, id string) (map[string]any, bool, error) {
	doc := &ProfileDocument{}
	err := s.db.NewSelect().
		Model(doc).
		Where("prf.collection = ?", collection).
		Where("prf.user_id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return doc.Fields, true, nil
}

// SetProfile writes a profile document, replacing existing fields.
func (s *Store) SetProfile(ctx context.Context, collection, id string, fields map[string]any) error {
	now := s.now()
	doc := &ProfileDocument{
		Collection: collection,
		UserID:     id,
		Fields:     fields,
		CreatedAt:  &now,
		UpdatedAt:  &now,
	}
	_, err := s.db.NewInsert().
		Model(doc).
		On("CONFLICT (collection, user_id) DO UPDATE").
		Set("fields = EXCLUDED.fields").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// PostJob stores a new posting for the employer.
func (s *Store) PostJob(ctx context.Context, job *Job) (*Job, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	created, err := s.jobs.Create(ctx, job)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not create job posting")
	}
	return created, nil
}

// GetJob fetches one posting by id.
func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	job, err := s.jobs.GetByID(ctx, id.String())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// ListJobs browses postings, newest first.
func (s *Store) ListJobs(ctx context.Context, filter JobFilter) ([]*Job, error) {
	jobs := []*Job{}
	q := s.db.NewSelect().
		Model(&jobs).
		Order("created_at DESC")

	if filter.EmployerID != "" {
		q = q.Where("job.employer_id = ?", filter.EmployerID)
	}
	if filter.Category != "" {
		q = q.Where("job.category = ?", filter.Category)
	}
	if filter.Location != "" {
		q = q.Where("job.location = ?", filter.Location)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return jobs, nil
}

// Apply records an employee's application. Applying twice to the same job
// returns ErrAlreadyApplied.
func (s *Store) Apply(ctx context.Context, jobID uuid.UUID, employeeID, note string) (*Application, error) {
	if _, err := s.GetJob(ctx, jobID); err != nil {
		return nil, err
	}

	exists, err := s.db.NewSelect().
		Model((*Application)(nil)).
		Where("app.job_id = ?", jobID).
		Where("app.employee_id = ?", employeeID).
		Exists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyApplied
	}

	application := &Application{
		ID:         uuid.New(),
		JobID:      jobID,
		EmployeeID: employeeID,
		Note:       note,
		Status:     ApplicationApplied,
	}
	created, err := s.applications.Create(ctx, application)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not record application")
	}
	return created, nil
}

// ListApplicants returns all applications for a posting, oldest first, for
// employer review.
func (s *Store) ListApplicants(ctx context.Context, jobID uuid.UUID) ([]*Application, error) {
	applications := []*Application{}
	err := s.db.NewSelect().
		Model(&applications).
		Where("app.job_id = ?", jobID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return applications, nil
}

// SetFeedback records the employer's feedback and marks the application
// reviewed.
func (s *Store) SetFeedback(ctx context.Context, applicationID uuid.UUID, feedback string) error {
	now := s.now()
	res, err := s.db.NewUpdate().
		Model((*Application)(nil)).
		Set("feedback = ?", feedback).
		Set("status = ?", ApplicationReviewed).
		Set("updated_at = ?", now).
		Where("app.id = ?", applicationID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return goerrors.New("application not found", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
