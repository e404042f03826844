package wikidata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrIDNotFound signals that a city URL has no Wikidata entity; reconciliation
// cannot proceed without operator intervention.
var ErrIDNotFound = errors.New("ID in Wikidata not found")

// UpdateReference carries the reference fields an operator selected for
// publication.
type UpdateReference struct {
	URL        string `json:"url,omitempty"`
	Name       string `json:"name,omitempty"`
	Website    string `json:"website,omitempty"`
	Publisher  string `json:"publisher,omitempty"`
	Language   string `json:"language,omitempty"`
	AccessDate string `json:"accessDate,omitempty"`
	Date       string `json:"date,omitempty"`
}

// UpdateTwin names the twin side of the statement to publish.
type UpdateTwin struct {
	URL        string            `json:"url"`
	Name       string            `json:"name"`
	References []UpdateReference `json:"references"`
}

// UpdatePayload is a reconciliation request from the presentation layer.
type UpdatePayload struct {
	SourceURL string     `json:"sourceUrl"`
	SourceID  string     `json:"sourceId,omitempty"`
	Twin      UpdateTwin `json:"twin"`
}

// IDResolver resolves a Wikipedia URL to Wikidata item identifiers.
type IDResolver interface {
	EntityIDs(ctx context.Context, pageURL string) ([]string, error)
}

// ItemWriter performs the remote twin-claim mutation. The wire protocol is
// not this package's concern; errors come back with the remote service's own
// message and are surfaced to the operator verbatim.
type ItemWriter interface {
	WriteTwinClaim(ctx context.Context, itemID string, claim Claim, twinName string) error
	Label(ctx context.Context, itemID string) (string, error)
}

// Publisher reconciles a scraped twin relationship into Wikidata.
type Publisher struct {
	Resolver IDResolver
	Writer   ItemWriter
}

func NewPublisher(resolver IDResolver, writer ItemWriter) *Publisher {
	return &Publisher{Resolver: resolver, Writer: writer}
}

// Update writes the twin statement, and unless oneSided is set, the mirror
// statement on the twin's item as well. Failures are not retried: a rejected
// semantic edit replayed blindly risks duplicate or wrong writes.
func (p *Publisher) Update(ctx context.Context, payload UpdatePayload, oneSided bool) error {
	sourceID := strings.TrimSpace(payload.SourceID)
	if idx := strings.LastIndex(sourceID, "/"); idx >= 0 {
		sourceID = sourceID[idx+1:]
	}
	if sourceID == "" {
		var err error
		sourceID, err = p.resolveID(ctx, payload.SourceURL)
		if err != nil {
			return err
		}
	}
	targetID, err := p.resolveID(ctx, payload.Twin.URL)
	if err != nil {
		return err
	}

	claim, err := BuildClaim(targetID, payload.Twin.References)
	if err != nil {
		return err
	}
	if err := p.Writer.WriteTwinClaim(ctx, sourceID, claim, payload.Twin.Name); err != nil {
		return err
	}
	if oneSided {
		return nil
	}

	sourceName, err := p.Writer.Label(ctx, sourceID)
	if err != nil {
		return err
	}
	mirror, err := BuildClaim(sourceID, payload.Twin.References)
	if err != nil {
		return err
	}
	return p.Writer.WriteTwinClaim(ctx, targetID, mirror, sourceName)
}

func (p *Publisher) resolveID(ctx context.Context, pageURL string) (string, error) {
	ids, err := p.Resolver.EntityIDs(ctx, pageURL)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("%w: %s", ErrIDNotFound, pageURL)
	}
	return ids[0], nil
}

// Wikidata properties used by the twin-city claim.
const (
	PropTwinCity     = "P190"
	PropRetrieved    = "P813"
	PropReferenceURL = "P854"
	PropTitle        = "P1476"
)

// Claim is the wbeditentity-shaped document for one P190 statement.
type Claim struct {
	MainSnak   Snak                 `json:"mainsnak"`
	Type       string               `json:"type"`
	Rank       string               `json:"rank"`
	References []ReferenceSnakBlock `json:"references,omitempty"`
}

type Snak struct {
	SnakType  string     `json:"snaktype"`
	Property  string     `json:"property"`
	DataValue *DataValue `json:"datavalue,omitempty"`
}

type DataValue struct {
	Value interface{} `json:"value"`
	Type  string      `json:"type"`
}

type ReferenceSnakBlock struct {
	Snaks map[string][]Snak `json:"snaks"`
}

// BuildClaim constructs the claim document linking an item to targetID via
// P190, carrying one reference block per selected reference.
func BuildClaim(targetID string, refs []UpdateReference) (Claim, error) {
	claim := Claim{
		MainSnak: Snak{
			SnakType: "value",
			Property: PropTwinCity,
			DataValue: &DataValue{
				Value: map[string]interface{}{"entity-type": "item", "id": targetID},
				Type:  "wikibase-entityid",
			},
		},
		Type: "statement",
		Rank: "normal",
	}
	for _, ref := range refs {
		block, err := buildReferenceBlock(ref)
		if err != nil {
			return Claim{}, err
		}
		if len(block.Snaks) > 0 {
			claim.References = append(claim.References, block)
		}
	}
	return claim, nil
}

func buildReferenceBlock(ref UpdateReference) (ReferenceSnakBlock, error) {
	block := ReferenceSnakBlock{Snaks: make(map[string][]Snak)}
	if ref.AccessDate != "" {
		retrieved, err := parseAccessDate(ref.AccessDate)
		if err != nil {
			return ReferenceSnakBlock{}, err
		}
		block.Snaks[PropRetrieved] = []Snak{{
			SnakType: "value",
			Property: PropRetrieved,
			DataValue: &DataValue{
				Value: map[string]interface{}{
					"time":          retrieved.Format("+2006-01-02T15:04:05Z"),
					"timezone":      0,
					"before":        0,
					"after":         0,
					"precision":     11,
					"calendarmodel": "http://www.wikidata.org/entity/Q1985727",
				},
				Type: "time",
			},
		}}
	}
	if ref.URL != "" {
		block.Snaks[PropReferenceURL] = []Snak{{
			SnakType:  "value",
			Property:  PropReferenceURL,
			DataValue: &DataValue{Value: ref.URL, Type: "string"},
		}}
	}
	if ref.Name != "" {
		lang := ref.Language
		if lang == "" {
			lang = "en"
		}
		block.Snaks[PropTitle] = []Snak{{
			SnakType: "value",
			Property: PropTitle,
			DataValue: &DataValue{
				Value: map[string]interface{}{"text": ref.Name, "language": lang},
				Type:  "monolingualtext",
			},
		}}
	}
	return block, nil
}

var accessDateFormats = []string{"2 January 2006", "2006-01-02"}

// parseAccessDate reads an access-date string. Deduplicated references may
// carry several space-joined dates; the latest one wins. Written-out dates
// span three words, so candidate substrings are scanned as single words and
// three-word windows.
func parseAccessDate(s string) (time.Time, error) {
	if t, err := parseDate(strings.TrimSpace(s)); err == nil {
		return t, nil
	}
	fields := strings.Fields(s)
	var latest time.Time
	found := false
	consider := func(candidate string) {
		t, err := parseDate(candidate)
		if err != nil {
			return
		}
		if !found || t.After(latest) {
			latest = t
			found = true
		}
	}
	for i, part := range fields {
		consider(part)
		if i+3 <= len(fields) {
			consider(strings.Join(fields[i:i+3], " "))
		}
	}
	if !found {
		return time.Time{}, fmt.Errorf("no valid date format found in '%s'", s)
	}
	return latest, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range accessDateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("no valid date format found in '%s'", s)
}
