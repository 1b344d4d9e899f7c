package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/setu-labs/sahayak/pkg/matching"
	"github.com/setu-labs/sahayak/pkg/tracing"
)

// HistoryStore persists (profile)-[:EVALUATED]->(scheme) edges with the
// missing-criteria count and eligibility of the latest evaluation.
type HistoryStore struct {
	client *Client
	logger *zap.Logger
}

// NewHistoryStore creates a history store.
func NewHistoryStore(client *Client, logger *zap.Logger) *HistoryStore {
	return &HistoryStore{
		client: client,
		logger: logger.With(zap.String("component", "history")),
	}
}

// RecordEvaluation upserts the evaluation edge for (profile, scheme).
func (h *HistoryStore) RecordEvaluation(ctx context.Context, ev matching.Evaluation) error {
	ctx, span := tracing.StartSpan(ctx, "graph.HistoryStore.RecordEvaluation")
	defer span.End()

	cypher := `
		MERGE (p:Profile {id: $profile_id})
		MERGE (s:Scheme {id: $scheme_id})
		MERGE (p)-[r:EVALUATED]->(s)
		SET r.scheme_version = $scheme_version,
		    r.missing_count = $missing_count,
		    r.eligible = $eligible,
		    r.evaluated_at = $evaluated_at`
	params := map[string]any{
		"profile_id":     ev.ProfileID,
		"scheme_id":      ev.SchemeID,
		"scheme_version": ev.SchemeVersion,
		"missing_count":  ev.MissingCount,
		"eligible":       ev.Eligible,
		"evaluated_at":   ev.EvaluatedAt.UTC(),
	}

	_, err := h.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, cypher, params)
	})
	return err
}

// ProfilesEvaluatedAgainst returns every profile previously scored against
// the scheme. This is the primary targeted-sweep scope.
func (h *HistoryStore) ProfilesEvaluatedAgainst(ctx context.Context, schemeID string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.HistoryStore.ProfilesEvaluatedAgainst")
	defer span.End()

	cypher := `
		MATCH (p:Profile)-[:EVALUATED]->(s:Scheme {id: $scheme_id})
		RETURN p.id AS profile_id`
	return h.collectProfileIDs(ctx, cypher, map[string]any{"scheme_id": schemeID})
}

// NearMissProfiles returns profiles whose latest evaluation against the
// scheme had at most maxMissing unmet criteria. Bounds sweep cost when the
// full evaluated set is not wanted.
func (h *HistoryStore) NearMissProfiles(ctx context.Context, schemeID string, maxMissing int) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.HistoryStore.NearMissProfiles")
	defer span.End()

	cypher := `
		MATCH (p:Profile)-[r:EVALUATED]->(s:Scheme {id: $scheme_id})
		WHERE r.missing_count <= $max_missing AND NOT r.eligible
		RETURN p.id AS profile_id`
	return h.collectProfileIDs(ctx, cypher, map[string]any{
		"scheme_id":   schemeID,
		"max_missing": maxMissing,
	})
}

// EligibleSchemes returns the scheme IDs the profile was last evaluated as
// eligible for, used to detect newly-eligible transitions during sweeps.
func (h *HistoryStore) EligibleSchemes(ctx context.Context, profileID string) (map[string]bool, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.HistoryStore.EligibleSchemes")
	defer span.End()

	cypher := `
		MATCH (p:Profile {id: $profile_id})-[r:EVALUATED]->(s:Scheme)
		WHERE r.eligible
		RETURN s.id AS scheme_id`

	result, err := h.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{"profile_id": profileID})
		if err != nil {
			return nil, err
		}
		eligible := make(map[string]bool)
		for res.Next(ctx) {
			if id, ok := res.Record().Get("scheme_id"); ok {
				if s, ok := id.(string); ok {
					eligible[s] = true
				}
			}
		}
		return eligible, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]bool), nil
}

func (h *HistoryStore) collectProfileIDs(ctx context.Context, cypher string, params map[string]any) ([]string, error) {
	result, err := h.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		var ids []string
		for res.Next(ctx) {
			if id, ok := res.Record().Get("profile_id"); ok {
				if s, ok := id.(string); ok {
					ids = append(ids, s)
				}
			}
		}
		return ids, res.Err()
	})
	if err != nil {
		return nil, err
	}
	ids, _ := result.([]string)
	return ids, nil
}
