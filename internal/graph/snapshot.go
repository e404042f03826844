package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/cinekele/twin-cities/internal/scrape"
)

// snapshot is the serialized form of a Store. The format is internal; the
// only contract is a lossless round-trip.
type snapshot struct {
	Cities     []snapshotCity               `json:"cities"`
	References map[string]*scrape.Reference `json:"references"`
	Pairs      []snapshotPair               `json:"pairs"`
}

type snapshotCity struct {
	URL        string   `json:"url"`
	Name       string   `json:"name"`
	Country    string   `json:"country,omitempty"`
	SourcePage string   `json:"source_page,omitempty"`
	SourceType string   `json:"source_type,omitempty"`
	Twins      []string `json:"twins,omitempty"`
	Refs       []string `json:"refs,omitempty"`
}

type snapshotPair struct {
	A    string   `json:"a"`
	B    string   `json:"b"`
	Refs []string `json:"refs"`
}

// Save writes the store to path.
func (s *Store) Save(path string) error {
	data, err := json.MarshalIndent(s.toSnapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize graph: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write graph to '%s': %w", path, err)
	}
	return nil
}

// Load reads a store previously written by Save.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph from '%s': %w", path, err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse graph file '%s': %w", path, err)
	}
	return fromSnapshot(&snap), nil
}

func (s *Store) toSnapshot() *snapshot {
	snap := &snapshot{References: s.refs}
	for _, url := range sortedKeys(s.cities) {
		node := s.cities[url]
		snap.Cities = append(snap.Cities, snapshotCity{
			URL:        node.URL,
			Name:       node.Name,
			Country:    node.Country,
			SourcePage: node.SourcePage,
			SourceType: node.SourceType,
			Twins:      sortedKeys(node.twins),
			Refs:       sortedKeys(node.refs),
		})
	}
	pairs := make([]pairKey, 0, len(s.pairs))
	for pair := range s.pairs {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
	for _, pair := range pairs {
		snap.Pairs = append(snap.Pairs, snapshotPair{
			A:    pair.A,
			B:    pair.B,
			Refs: sortedKeys(s.pairs[pair]),
		})
	}
	return snap
}

func fromSnapshot(snap *snapshot) *Store {
	s := NewStore()
	if snap.References != nil {
		s.refs = snap.References
	}
	for _, city := range snap.Cities {
		node := &cityNode{
			URL:        city.URL,
			Name:       city.Name,
			Country:    city.Country,
			SourcePage: city.SourcePage,
			SourceType: city.SourceType,
			twins:      make(map[string]struct{}, len(city.Twins)),
			refs:       make(map[string]struct{}, len(city.Refs)),
		}
		for _, twin := range city.Twins {
			node.twins[twin] = struct{}{}
		}
		for _, ref := range city.Refs {
			node.refs[ref] = struct{}{}
		}
		s.cities[city.URL] = node
	}
	for _, pair := range snap.Pairs {
		refs := make(map[string]struct{}, len(pair.Refs))
		for _, ref := range pair.Refs {
			refs[ref] = struct{}{}
		}
		s.pairs[newPairKey(pair.A, pair.B)] = refs
	}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
