package vision

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pawtrait/platform/internal/db"
)

// maxDescriptionLen, maxCareLen, maxHealthLen cap the synthesized enrichment
// fields to keep prompts and responses bounded (§4.3 stage 4).
const (
	maxDescriptionLen = 500
	maxCareLen        = 500
	maxHealthLen      = 500
)

// RetrievalIndex queries the breed-knowledge retrieval store (§4.3 stage 4).
type RetrievalIndex interface {
	Query(ctx context.Context, query string, topK int) ([]RetrievalChunk, error)
	Ingest(ctx context.Context, chunks []RetrievalChunk) (int, error)
	Status(ctx context.Context) (map[string]any, error)
}

// RetrievalStore is a Postgres full-text-search-backed RetrievalIndex (§6
// "Vision persists only the retrieval index"). It holds breed-knowledge
// passages and ranks them with the same `plainto_tsquery`/`ts_rank`
// machinery the rest of the platform uses for text search, rather than a
// vector store or embedding model — those are out of scope.
type RetrievalStore struct {
	dbtx db.DBTX
}

// NewRetrievalStore creates a RetrievalStore.
func NewRetrievalStore(dbtx db.DBTX) *RetrievalStore {
	return &RetrievalStore{dbtx: dbtx}
}

// Query implements RetrievalIndex, ranking passages by full-text relevance
// to query and returning the top-K.
func (s *RetrievalStore) Query(ctx context.Context, query string, topK int) ([]RetrievalChunk, error) {
	sql := `SELECT rc.text, rc.source
		FROM retrieval_chunks rc, plainto_tsquery('english', $1) q
		WHERE rc.search_vector @@ q
		ORDER BY ts_rank(rc.search_vector, q) DESC
		LIMIT $2`

	rows, err := s.dbtx.Query(ctx, sql, query, topK)
	if err != nil {
		return nil, fmt.Errorf("querying retrieval index: %w", err)
	}
	defer rows.Close()

	var chunks []RetrievalChunk
	for rows.Next() {
		var c RetrievalChunk
		if err := rows.Scan(&c.Text, &c.Source); err != nil {
			return nil, fmt.Errorf("scanning retrieval chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Ingest implements RetrievalIndex, appending chunks to the index.
func (s *RetrievalStore) Ingest(ctx context.Context, chunks []RetrievalChunk) (int, error) {
	var inserted int
	for _, c := range chunks {
		_, err := s.dbtx.Exec(ctx,
			`INSERT INTO retrieval_chunks (text, source, search_vector) VALUES ($1, $2, to_tsvector('english', $1))`,
			c.Text, c.Source)
		if err != nil {
			return inserted, fmt.Errorf("ingesting retrieval chunk: %w", err)
		}
		inserted++
	}
	return inserted, nil
}

// Status implements RetrievalIndex, reporting the index's current size.
func (s *RetrievalStore) Status(ctx context.Context) (map[string]any, error) {
	var count int
	row := s.dbtx.QueryRow(ctx, `SELECT count(*) FROM retrieval_chunks`)
	if err := row.Scan(&count); err != nil {
		if err == pgx.ErrNoRows {
			count = 0
		} else {
			return nil, fmt.Errorf("counting retrieval chunks: %w", err)
		}
	}
	return map[string]any{"chunk_count": count, "ready": count > 0}, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func dedupeSources(chunks []RetrievalChunk) []string {
	seen := make(map[string]bool)
	var sources []string
	for _, c := range chunks {
		if c.Source == "" || seen[c.Source] {
			continue
		}
		seen[c.Source] = true
		sources = append(sources, c.Source)
	}
	if sources == nil {
		sources = []string{}
	}
	return sources
}

// SynthesizeEnrichment assembles EnrichedInfo from a position-ordered list of
// chunks: first chunk is description, second is care summary, third is
// health info (§4.3 stage 4). Returns nil if chunks is empty.
func SynthesizeEnrichment(chunks []RetrievalChunk) *EnrichedInfo {
	if len(chunks) == 0 {
		return nil
	}

	info := &EnrichedInfo{Sources: dedupeSources(chunks)}
	if len(chunks) > 0 {
		info.Description = truncate(chunks[0].Text, maxDescriptionLen)
	}
	if len(chunks) > 1 {
		info.CareSummary = truncate(chunks[1].Text, maxCareLen)
	}
	if len(chunks) > 2 {
		info.HealthInfo = truncate(chunks[2].Text, maxHealthLen)
	}
	return info
}

// unionTopK merges per-parent-breed retrieval results, taking topK chunks
// from each parent's result set (§4.3 stage 4 crossbreed enrichment).
func unionTopK(resultsPerParent [][]RetrievalChunk, topK int) []RetrievalChunk {
	var out []RetrievalChunk
	for _, chunks := range resultsPerParent {
		if len(chunks) > topK {
			chunks = chunks[:topK]
		}
		out = append(out, chunks...)
	}
	return out
}
