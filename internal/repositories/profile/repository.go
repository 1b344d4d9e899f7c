// Package profile persists citizen profiles in Postgres. Profiles are
// mutated upstream; the engine only reads them.
package profile

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/setu-labs/sahayak/pkg/faults"
	"github.com/setu-labs/sahayak/pkg/models"
	"github.com/setu-labs/sahayak/pkg/tracing"
)

const table = "profiles"

var columns = []string{
	"id", "age", "annual_income", "gender", "location", "caste", "disability",
	"family", "occupation", "education_level", "language", "version", "updated_at",
}

// Repository handles profile persistence.
type Repository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewRepository creates a new profile repository.
func NewRepository(db *sqlx.DB, logger *zap.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger.With(zap.String("component", "profile-repository")),
	}
}

// GetProfile retrieves a profile by ID.
func (r *Repository) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	ctx, span := tracing.StartSpan(ctx, "profile.Repository.GetProfile")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, faults.ErrNotFound
		}
		r.logger.Error("failed to get profile", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return &profile, nil
}

// ListProfileIDs returns every profile ID, ordered for deterministic sweep
// batching.
func (r *Repository) ListProfileIDs(ctx context.Context) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "profile.Repository.ListProfileIDs")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id")
	sb.From(table)
	sb.OrderBy("id ASC")

	query, args := sb.Build()
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		r.logger.Error("failed to list profile ids", zap.Error(err))
		return nil, err
	}
	return ids, nil
}

// Save upserts a profile with a version guard against stale writes.
func (r *Repository) Save(ctx context.Context, p *models.Profile) error {
	ctx, span := tracing.StartSpan(ctx, "profile.Repository.Save")
	defer span.End()

	p.UpdatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(table)
	sb.Cols(columns...)
	sb.Values(p.ID, p.Age, p.AnnualIncome, p.Gender, p.Location, p.Caste, p.Disability,
		p.Family, p.Occupation, p.EducationLevel, p.Language, p.Version, p.UpdatedAt)

	query, args := sb.Build()
	query += ` ON CONFLICT (id) DO UPDATE SET
		age = EXCLUDED.age,
		annual_income = EXCLUDED.annual_income,
		gender = EXCLUDED.gender,
		location = EXCLUDED.location,
		caste = EXCLUDED.caste,
		disability = EXCLUDED.disability,
		family = EXCLUDED.family,
		occupation = EXCLUDED.occupation,
		education_level = EXCLUDED.education_level,
		language = EXCLUDED.language,
		version = EXCLUDED.version,
		updated_at = EXCLUDED.updated_at
		WHERE profiles.version < EXCLUDED.version`

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("failed to save profile", zap.String("id", p.ID), zap.Error(err))
		return err
	}
	return nil
}
