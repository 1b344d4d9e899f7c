// Package scheme persists the scheme catalog in Postgres. The engine reads
// schemes; catalog writes belong to the (out-of-scope) administration
// surface, which shares this repository.
package scheme

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

const table = "schemes"

var columns = []string{
	"id", "name", "category", "criteria", "benefit", "required_documents",
	"deadline", "embedding", "is_active", "version", "created_at", "updated_at",
}

// Repository handles scheme persistence.
type Repository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewRepository creates a new scheme repository.
func NewRepository(db *sqlx.DB, logger *zap.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger.With(zap.String("component", "scheme-repository")),
	}
}

// GetScheme retrieves a scheme by ID.
func (r *Repository) GetScheme(ctx context.Context, id string) (*models.Scheme, error) {
	ctx, span := tracing.StartSpan(ctx, "scheme.Repository.GetScheme")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var scheme models.Scheme
	if err := r.db.GetContext(ctx, &scheme, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, faults.ErrNotFound
		}
		r.logger.Error("failed to get scheme", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return &scheme, nil
}

// ListActive retrieves every active scheme, newest first. Used to bootstrap
// the in-memory catalog snapshot and for filter-only scans.
func (r *Repository) ListActive(ctx context.Context) ([]models.Scheme, error) {
	ctx, span := tracing.StartSpan(ctx, "scheme.Repository.ListActive")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("is_active", true))
	sb.OrderBy("updated_at DESC", "id ASC")

	query, args := sb.Build()
	var schemes []models.Scheme
	if err := r.db.SelectContext(ctx, &schemes, query, args...); err != nil {
		r.logger.Error("failed to list active schemes", zap.Error(err))
		return nil, err
	}
	return schemes, nil
}

// Save upserts a scheme. The version must strictly increase on every
// mutation; stale writes are rejected by the version guard.
func (r *Repository) Save(ctx context.Context, s *models.Scheme) error {
	ctx, span := tracing.StartSpan(ctx, "scheme.Repository.Save")
	defer span.End()

	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(table)
	sb.Cols(columns...)
	sb.Values(s.ID, s.Name, s.Category, s.Criteria, s.Benefit, s.RequiredDocuments,
		s.Deadline, s.Embedding, s.IsActive, s.Version, s.CreatedAt, s.UpdatedAt)

	query, args := sb.Build()
	query += ` ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		category = EXCLUDED.category,
		criteria = EXCLUDED.criteria,
		benefit = EXCLUDED.benefit,
		required_documents = EXCLUDED.required_documents,
		deadline = EXCLUDED.deadline,
		embedding = EXCLUDED.embedding,
		is_active = EXCLUDED.is_active,
		version = EXCLUDED.version,
		updated_at = EXCLUDED.updated_at
		WHERE schemes.version < EXCLUDED.version`

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("failed to save scheme", zap.String("id", s.ID), zap.Error(err))
		return err
	}
	return nil
}
