// Package wikidata talks to the structured knowledge base: SPARQL reads and
// reconciliation writes for twin-city (P190) statements.
package wikidata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const twinQuery = `
PREFIX wikibase: <http://wikiba.se/ontology#>
PREFIX p: <http://www.wikidata.org/prop/>
PREFIX ps: <http://www.wikidata.org/prop/statement/>
PREFIX pq: <http://www.wikidata.org/prop/qualifier/>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
PREFIX pr: <http://www.wikidata.org/prop/reference/>
PREFIX schema: <http://schema.org/>
PREFIX prov: <http://www.w3.org/ns/prov#>

SELECT ("{{CITY_URL}}" as ?sourceUrl)
?sourceId ?targetId ?targetUrl ?targetLabel ?starttime ?endtime ?retrieved ?referenceUrl ?referencePublisher ?referenceName
WHERE
{
  {
    ?sourceId ^schema:about <{{CITY_URL}}> .
  }
  ?sourceId p:P190 ?statement.
  ?statement ps:P190 ?targetId.

  OPTIONAL {
    ?targetId ^schema:about ?targetUrl .
    FILTER (REGEX (STR(?targetUrl), "://en.wikipedia"))
  }

  OPTIONAL { ?statement pq:P580 ?starttime. }
  OPTIONAL { ?statement pq:P582 ?endtime. }
  OPTIONAL {
    ?statement prov:wasDerivedFrom ?refnode .
    ?refnode pr:P813 ?retrieved .
  }
  OPTIONAL {
    ?statement prov:wasDerivedFrom ?refnode .
    ?refnode pr:P854 ?referenceUrl .
  }
  OPTIONAL {
    ?statement prov:wasDerivedFrom ?refnode .
    ?refnode pr:P123 ?referencePublisher .
  }
  OPTIONAL {
    ?statement prov:wasDerivedFrom ?refnode .
    ?refnode pr:P1476 ?referenceName .
  }
  SERVICE wikibase:label {
    bd:serviceParam wikibase:language "en".
    ?targetId rdfs:label ?targetLabel .
  }
}
`

const entityIDQuery = `
PREFIX schema: <http://schema.org/>
SELECT ?id
WHERE
{
  ?id ^schema:about <{{CITY_URL}}> .
}
`

// TwinReference is one reference attached to a P190 statement.
type TwinReference struct {
	URL       string `json:"url"`
	Name      string `json:"name,omitempty"`
	Publisher string `json:"publisher,omitempty"`
}

// TwinRecord is one twin-city statement of a source city, with its
// references regrouped under it.
type TwinRecord struct {
	SourceURL  string          `json:"sourceUrl"`
	SourceID   string          `json:"sourceId"`
	ID         string          `json:"id"`
	URL        string          `json:"url"`
	Name       string          `json:"name"`
	StartTime  string          `json:"starttime,omitempty"`
	EndTime    string          `json:"endtime,omitempty"`
	Retrieved  string          `json:"retrieved,omitempty"`
	References []TwinReference `json:"references"`
}

// Client queries the Wikidata SPARQL endpoint.
type Client struct {
	SPARQLURL string
	HTTP      *http.Client
}

func NewClient(sparqlURL string, timeout time.Duration) *Client {
	return &Client{
		SPARQLURL: sparqlURL,
		HTTP:      &http.Client{Timeout: timeout},
	}
}

// runQuery executes a SPARQL query with {{CITY_URL}} substituted, returning
// one flat string map per result row. Every call carries a unique comment
// and a no-cache header so the query service does not serve stale results.
func (c *Client) runQuery(ctx context.Context, query, cityURL string) ([]map[string]string, error) {
	query = fmt.Sprintf("#%s\n%s", uuid.New(), strings.ReplaceAll(query, "{{CITY_URL}}", cityURL))

	form := url.Values{}
	form.Set("query", query)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.SPARQLURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", "twin-cities-scraper/1.0")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sparql query failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sparql query failed: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sparql response read failed: %w", err)
	}

	var parsed struct {
		Results struct {
			Bindings []map[string]struct {
				Value string `json:"value"`
			} `json:"bindings"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("sparql response decode failed: %w", err)
	}

	rows := make([]map[string]string, 0, len(parsed.Results.Bindings))
	for _, binding := range parsed.Results.Bindings {
		row := make(map[string]string, len(binding))
		for k, v := range binding {
			row[k] = v.Value
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// TwinData returns the source city's twin statements, sorted ascending by
// target entity id. Rows repeating an id carry additional references and are
// folded into the preceding record.
func (c *Client) TwinData(ctx context.Context, cityURL string) ([]TwinRecord, error) {
	rows, err := c.runQuery(ctx, twinQuery, cityURL)
	if err != nil {
		return nil, err
	}

	var records []TwinRecord
	for _, row := range rows {
		target, ok := row["targetUrl"]
		if !ok {
			continue
		}
		unquoted, err := url.QueryUnescape(target)
		if err != nil {
			unquoted = target
		}
		ref, hasRef := rowReference(row)
		if n := len(records); n > 0 && records[n-1].ID == row["targetId"] {
			if hasRef {
				records[n-1].References = append(records[n-1].References, ref)
			}
			continue
		}
		record := TwinRecord{
			SourceURL:  row["sourceUrl"],
			SourceID:   row["sourceId"],
			ID:         row["targetId"],
			URL:        unquoted,
			Name:       row["targetLabel"],
			StartTime:  row["starttime"],
			EndTime:    row["endtime"],
			Retrieved:  row["retrieved"],
			References: []TwinReference{},
		}
		if hasRef {
			record.References = append(record.References, ref)
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func rowReference(row map[string]string) (TwinReference, bool) {
	refURL, ok := row["referenceUrl"]
	if !ok {
		return TwinReference{}, false
	}
	return TwinReference{
		URL:       refURL,
		Name:      row["referenceName"],
		Publisher: row["referencePublisher"],
	}, true
}

// EntityIDs returns the Wikidata item identifiers (bare "Q..." form) for a
// Wikipedia URL, possibly empty.
func (c *Client) EntityIDs(ctx context.Context, pageURL string) ([]string, error) {
	rows, err := c.runQuery(ctx, entityIDQuery, pageURL)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if id, ok := row["id"]; ok {
			parts := strings.Split(id, "/")
			ids = append(ids, parts[len(parts)-1])
		}
	}
	return ids, nil
}

// EntityURI resolves a Wikipedia URL to a full Wikidata entity URI, or ""
// when the page has no entity.
func (c *Client) EntityURI(ctx context.Context, pageURL string) (string, error) {
	if pageURL == "" {
		return "", nil
	}
	ids, err := c.EntityIDs(ctx, pageURL)
	if err != nil || len(ids) == 0 {
		return "", err
	}
	return "http://www.wikidata.org/entity/" + ids[len(ids)-1], nil
}
