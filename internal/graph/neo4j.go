package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Driver abstracts the Cypher connection so the exporter can run against
// Neo4j, Memgraph or a mock.
type Driver interface {
	ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error)
	BuildIndices(ctx context.Context) error
	Close(ctx context.Context) error
}

const (
	MergeCityQuery = `
		MERGE (c:City {url: $url})
		SET c.name = $name,
			c.country = $country,
			c.source_page = $source_page,
			c.source_type = $source_type
		RETURN c.url AS url
	`

	MergeTwinEdgeQuery = `
		MATCH (a:City {url: $url_a})
		MATCH (b:City {url: $url_b})
		MERGE (a)-[:TWIN]->(b)
		MERGE (b)-[:TWIN]->(a)
	`

	MergeReferenceQuery = `
		MERGE (r:Reference {identity: $identity})
		SET r.url = $url,
			r.website = $website,
			r.title = $title,
			r.publisher = $publisher,
			r.language = $language,
			r.access_date = $access_date,
			r.date = $date
		RETURN r.identity AS identity
	`

	MergeCitationQuery = `
		MATCH (a:City {url: $url_a})
		MATCH (b:City {url: $url_b})
		MATCH (r:Reference {identity: $identity})
		MERGE (a)-[:CITES {pair: $pair}]->(r)
		MERGE (b)-[:CITES {pair: $pair}]->(r)
	`
)

// Neo4jDriver is the bolt-backed Driver.
type Neo4jDriver struct {
	Driver neo4j.DriverWithContext
}

func NewNeo4jDriver(uri, username, password string) (*Neo4jDriver, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}
	if err := driver.VerifyConnectivity(context.Background()); err != nil {
		return nil, err
	}
	return &Neo4jDriver{Driver: driver}, nil
}

func (d *Neo4jDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *Neo4jDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return *result, nil
}

func (d *Neo4jDriver) BuildIndices(ctx context.Context) error {
	queries := []string{
		"CREATE INDEX ON :City(url);",
		"CREATE INDEX ON :Reference(identity);",
	}
	for _, q := range queries {
		// Index may already exist; not fatal.
		_, _ = d.ExecuteQuery(ctx, q, nil)
	}
	return nil
}

// Export writes the whole store into the graph database, one MERGE per node
// and edge so re-export is idempotent.
func (s *Store) Export(ctx context.Context, d Driver) error {
	if err := d.BuildIndices(ctx); err != nil {
		return err
	}
	for _, url := range sortedKeys(s.cities) {
		node := s.cities[url]
		params := map[string]interface{}{
			"url":         node.URL,
			"name":        node.Name,
			"country":     node.Country,
			"source_page": node.SourcePage,
			"source_type": node.SourceType,
		}
		if _, err := d.ExecuteQuery(ctx, MergeCityQuery, params); err != nil {
			return fmt.Errorf("failed to export city '%s': %w", node.URL, err)
		}
	}
	for _, key := range sortedKeys(s.refs) {
		ref := s.refs[key]
		params := map[string]interface{}{
			"identity":    key,
			"url":         ref.URL,
			"website":     ref.Website,
			"title":       ref.Title,
			"publisher":   ref.Publisher,
			"language":    ref.Language,
			"access_date": ref.AccessDate,
			"date":        ref.Date,
		}
		if _, err := d.ExecuteQuery(ctx, MergeReferenceQuery, params); err != nil {
			return fmt.Errorf("failed to export reference '%s': %w", key, err)
		}
	}
	snap := s.toSnapshot()
	for _, city := range snap.Cities {
		for _, twin := range city.Twins {
			if twin < city.URL {
				continue // each undirected edge once
			}
			params := map[string]interface{}{
				"url_a": city.URL,
				"url_b": twin,
			}
			if _, err := d.ExecuteQuery(ctx, MergeTwinEdgeQuery, params); err != nil {
				return fmt.Errorf("failed to export twin edge %s-%s: %w", city.URL, twin, err)
			}
		}
	}
	for _, pair := range snap.Pairs {
		for _, ref := range pair.Refs {
			params := map[string]interface{}{
				"url_a":    pair.A,
				"url_b":    pair.B,
				"identity": ref,
				"pair":     pair.A + "|" + pair.B,
			}
			if _, err := d.ExecuteQuery(ctx, MergeCitationQuery, params); err != nil {
				return fmt.Errorf("failed to export citation %s-%s: %w", pair.A, pair.B, err)
			}
		}
	}
	return nil
}
