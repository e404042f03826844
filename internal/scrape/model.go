package scrape

// Reference is a single citation backing a city or a twinning agreement.
// Every field is optional; a bare external link produces a Reference with
// only URL set.
type Reference struct {
	URL        string `json:"url,omitempty"`
	Website    string `json:"website,omitempty"`
	Title      string `json:"title,omitempty"`
	Publisher  string `json:"publisher,omitempty"`
	Language   string `json:"language,omitempty"`
	AccessDate string `json:"access_date,omitempty"`
	Date       string `json:"date,omitempty"`
}

// IsZero reports whether no field of the reference is set.
func (r Reference) IsZero() bool {
	return r == Reference{}
}

// TwinCitiesAgreement records one twin relationship as scraped from the
// originating city's list entry.
type TwinCitiesAgreement struct {
	SecondCity    string       `json:"second_city"`
	SecondCountry string       `json:"second_country"`
	WikiURL       string       `json:"wiki_url"`
	WikiText      string       `json:"wiki_text"`
	Refs          []*Reference `json:"refs,omitempty"`
}

// SourceType values for City provenance.
const (
	SourceContinent = "continent"
	SourceCountry   = "country"
)

// City is one scraped listing entry with its twin agreements.
type City struct {
	Name       string                 `json:"name"`
	Country    string                 `json:"country"`
	WikiURL    string                 `json:"wiki_url"`
	WikiText   string                 `json:"wiki_text"`
	SourcePage string                 `json:"source_page,omitempty"`
	SourceType string                 `json:"source_type"`
	Refs       []*Reference           `json:"ref,omitempty"`
	TwinCities []*TwinCitiesAgreement `json:"twin_cities,omitempty"`
}
