package scrape

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// SaveCities writes the scraped cities to a JSON-lines file, one city per
// line, in the order they were scraped.
func SaveCities(path string, cities []*City) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create '%s': %w", path, err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, city := range cities {
		if err := enc.Encode(city); err != nil {
			f.Close()
			return fmt.Errorf("failed to write city '%s': %w", city.Name, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush '%s': %w", path, err)
	}
	return f.Close()
}

// LoadCities reads a JSON-lines file written by SaveCities.
func LoadCities(path string) ([]*City, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open '%s': %w", path, err)
	}
	defer f.Close()

	var cities []*City
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var city City
		if err := json.Unmarshal(line, &city); err != nil {
			return nil, fmt.Errorf("failed to parse city line: %w", err)
		}
		cities = append(cities, &city)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read '%s': %w", path, err)
	}
	return cities, nil
}
