// Package graph mirrors enriched papers into a Neo4j knowledge graph and
// pulls contextual text back out at answer time. Every operation is
// best-effort: the graph is an enrichment layer, never a dependency.
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"paperpulse/internal/domain"
)

// Neo4jStore implements domain.GraphStore against a Neo4j instance.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// NewNeo4jStore connects to Neo4j and verifies connectivity. An empty URI
// returns (nil, nil) so callers can run without a graph.
func NewNeo4jStore(ctx context.Context, uri, user, password, database string, logger *slog.Logger) (*Neo4jStore, error) {
	if uri == "" {
		return nil, nil
	}

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""), func(cfg *neo4j.Config) {
		cfg.MaxConnectionPoolSize = 25
		cfg.SocketConnectTimeout = 10 * time.Second
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify neo4j connectivity: %w", err)
	}

	return &Neo4jStore{driver: driver, database: database, logger: logger}, nil
}

// UpsertPapers mirrors papers and their authors into the graph with a
// single batched MERGE per label.
func (s *Neo4jStore) UpsertPapers(ctx context.Context, papers []domain.Paper) error {
	if len(papers) == 0 {
		return nil
	}

	nodes := make([]map[string]any, 0, len(papers))
	for _, p := range papers {
		nodes = append(nodes, map[string]any{
			"paper_id":       p.CanonicalID,
			"title":          p.Title,
			"source":         p.Source,
			"url":            p.URL,
			"published_date": p.PublishedDate.Format("2006-01-02"),
			"authors":        p.Authors,
		})
	}

	query := `
		UNWIND $papers AS p
		MERGE (paper:Paper {paper_id: p.paper_id})
		SET paper.title = p.title,
		    paper.source = p.source,
		    paper.url = p.url,
		    paper.published_date = p.published_date
		WITH paper, p
		UNWIND p.authors AS authorName
		MERGE (a:Author {name_lower: toLower(trim(authorName))})
		ON CREATE SET a.name = trim(authorName)
		MERGE (a)-[:AUTHORED]->(paper)`

	if err := s.write(ctx, query, map[string]any{"papers": nodes}); err != nil {
		return fmt.Errorf("failed to upsert papers: %w", err)
	}

	s.logger.Info("graph_papers_upserted", slog.Int("paper_count", len(papers)))
	return nil
}

// UpsertConcepts links extracted concepts to an existing paper node.
func (s *Neo4jStore) UpsertConcepts(ctx context.Context, paperID string, concepts []string) error {
	if len(concepts) == 0 {
		return nil
	}

	query := `
		MATCH (p:Paper {paper_id: $paper_id})
		UNWIND $concepts AS conceptName
		MERGE (c:Concept {name_lower: toLower(trim(conceptName))})
		ON CREATE SET c.name = trim(conceptName)
		MERGE (p)-[:INVOLVES_CONCEPT]->(c)`

	if err := s.write(ctx, query, map[string]any{"paper_id": paperID, "concepts": concepts}); err != nil {
		return fmt.Errorf("failed to upsert concepts: %w", err)
	}
	return nil
}

// UpsertCitations records CITES edges around one paper. Cited papers not
// yet mirrored get a placeholder node that later upserts fill in.
func (s *Neo4jStore) UpsertCitations(ctx context.Context, paperID string, links domain.CitationLinks) error {
	if links.Empty() {
		return nil
	}

	if len(links.References) > 0 {
		query := `
			MATCH (citing:Paper {paper_id: $paper_id})
			UNWIND $cited_ids AS citedID
			MERGE (cited:Paper {paper_id: citedID})
			MERGE (citing)-[:CITES]->(cited)`
		if err := s.write(ctx, query, map[string]any{
			"paper_id": paperID, "cited_ids": links.References,
		}); err != nil {
			return fmt.Errorf("failed to upsert references: %w", err)
		}
	}

	if len(links.Citations) > 0 {
		query := `
			MATCH (cited:Paper {paper_id: $paper_id})
			UNWIND $citing_ids AS citingID
			MERGE (citing:Paper {paper_id: citingID})
			MERGE (citing)-[:CITES]->(cited)`
		if err := s.write(ctx, query, map[string]any{
			"paper_id": paperID, "citing_ids": links.Citations,
		}); err != nil {
			return fmt.Errorf("failed to upsert citations: %w", err)
		}
	}

	s.logger.Info("graph_citations_upserted",
		slog.String("paper_id", paperID),
		slog.Int("reference_count", len(links.References)),
		slog.Int("citation_count", len(links.Citations)))
	return nil
}

// RelatedPapers scores neighbors over three signals: shared concepts
// weigh 3, citation co-neighbors 2, shared authors 1. Placeholder nodes
// without a title are excluded.
func (s *Neo4jStore) RelatedPapers(ctx context.Context, paperID string, limit int) ([]domain.RelatedPaper, error) {
	if limit <= 0 {
		limit = 10
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer func() { _ = session.Close(ctx) }()

	query := `
		MATCH (source:Paper {paper_id: $paper_id})
		OPTIONAL MATCH (source)-[:INVOLVES_CONCEPT]->(c:Concept)<-[:INVOLVES_CONCEPT]-(related1:Paper)
		WHERE related1.paper_id <> $paper_id
		OPTIONAL MATCH (source)-[:CITES]->(:Paper)<-[:CITES]-(related2:Paper)
		WHERE related2.paper_id <> $paper_id
		OPTIONAL MATCH (source)<-[:CITES]-(:Paper)-[:CITES]->(related3:Paper)
		WHERE related3.paper_id <> $paper_id
		OPTIONAL MATCH (a:Author)-[:AUTHORED]->(source)
		OPTIONAL MATCH (a)-[:AUTHORED]->(related4:Paper)
		WHERE related4.paper_id <> $paper_id
		WITH collect(DISTINCT related1) AS conceptRelated,
		     collect(DISTINCT related2) AS citeFwd,
		     collect(DISTINCT related3) AS citeBack,
		     collect(DISTINCT related4) AS authorRelated
		UNWIND (
			[r IN conceptRelated | {paper: r, score: 3}] +
			[r IN citeFwd        | {paper: r, score: 2}] +
			[r IN citeBack       | {paper: r, score: 2}] +
			[r IN authorRelated  | {paper: r, score: 1}]
		) AS candidate
		WITH candidate.paper AS p, sum(candidate.score) AS relevance
		WHERE p IS NOT NULL AND p.title IS NOT NULL
		RETURN p.paper_id AS paper_id, p.title AS title,
		       p.url AS url, p.source AS source, relevance
		ORDER BY relevance DESC
		LIMIT $limit`

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"paper_id": paperID, "limit": limit})
		if err != nil {
			return nil, err
		}
		var related []domain.RelatedPaper
		for res.Next(ctx) {
			rec := res.Record()
			r := domain.RelatedPaper{
				PaperID: recordString(rec, "paper_id"),
				Title:   recordString(rec, "title"),
				URL:     recordString(rec, "url"),
				Source:  recordString(rec, "source"),
			}
			if v, ok := rec.Get("relevance"); ok {
				if n, ok := v.(int64); ok {
					r.Relevance = n
				}
			}
			related = append(related, r)
		}
		return related, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query related papers: %w", err)
	}
	return result.([]domain.RelatedPaper), nil
}

// ContextForPapers returns a short textual digest of concepts the given
// papers share and of direct citations between them, or "" when the graph
// has nothing to add.
func (s *Neo4jStore) ContextForPapers(ctx context.Context, paperIDs []string) (string, error) {
	if len(paperIDs) < 2 {
		return "", nil
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer func() { _ = session.Close(ctx) }()

	conceptQuery := `
		MATCH (a:Paper)-[:INVOLVES_CONCEPT]->(c:Concept)<-[:INVOLVES_CONCEPT]-(b:Paper)
		WHERE a.paper_id IN $paper_ids AND b.paper_id IN $paper_ids
		  AND a.paper_id < b.paper_id
		RETURN a.title AS titleA, b.title AS titleB, collect(DISTINCT c.name) AS shared
		LIMIT 10`
	citeQuery := `
		MATCH (a:Paper)-[:CITES]->(b:Paper)
		WHERE a.paper_id IN $paper_ids AND b.paper_id IN $paper_ids
		  AND a.title IS NOT NULL AND b.title IS NOT NULL
		RETURN a.title AS titleA, b.title AS titleB
		LIMIT 10`
	params := map[string]any{"paper_ids": paperIDs}

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		var lines []string

		res, err := tx.Run(ctx, conceptQuery, params)
		if err != nil {
			return nil, err
		}
		for res.Next(ctx) {
			rec := res.Record()
			titleA, _ := rec.Get("titleA")
			titleB, _ := rec.Get("titleB")
			shared, _ := rec.Get("shared")
			names := toStrings(shared)
			if len(names) == 0 {
				continue
			}
			lines = append(lines, fmt.Sprintf("%q and %q share concepts: %s",
				titleA, titleB, strings.Join(names, ", ")))
		}
		if err := res.Err(); err != nil {
			return nil, err
		}

		res, err = tx.Run(ctx, citeQuery, params)
		if err != nil {
			return nil, err
		}
		for res.Next(ctx) {
			rec := res.Record()
			titleA, _ := rec.Get("titleA")
			titleB, _ := rec.Get("titleB")
			lines = append(lines, fmt.Sprintf("%q cites %q", titleA, titleB))
		}
		return lines, res.Err()
	})
	if err != nil {
		return "", fmt.Errorf("failed to query graph context: %w", err)
	}

	lines := result.([]string)
	if len(lines) == 0 {
		return "", nil
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Neo4jStore) Close(ctx context.Context) error {
	if s == nil || s.driver == nil {
		return nil
	}
	return s.driver.Close(ctx)
}

func (s *Neo4jStore) write(ctx context.Context, query string, params map[string]any) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer func() { _ = session.Close(ctx) }()

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return nil, res.Err()
	})
	return err
}

func recordString(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func toStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

var _ domain.GraphStore = (*Neo4jStore)(nil)
