package calendar

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"attendance.service/internal/core/model"
)

//go:embed seed.yaml
var defaultSeed []byte

type seedFile struct {
	Entries []seedEntry `yaml:"entries"`
}

type seedEntry struct {
	Title       string          `yaml:"title"`
	Description string          `yaml:"description"`
	Type        model.EntryType `yaml:"type"`
	Color       string          `yaml:"color"`
	StartDate   time.Time       `yaml:"startDate"`
	EndDate     time.Time       `yaml:"endDate"`
	IsFullDay   *bool           `yaml:"isFullDay"`
	Status      string          `yaml:"status"`
	Location    string          `yaml:"location"`
	Recurrence  string          `yaml:"recurrence"`
}

// LoadSeed parses a YAML list of sample entries. The entries carry no id or
// timestamps; the caller assigns them when storing.
func LoadSeed(r io.Reader) ([]model.CalendarEntry, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode calendar seed: %w", err)
	}

	out := make([]model.CalendarEntry, 0, len(f.Entries))
	for i, s := range f.Entries {
		e := model.CalendarEntry{
			Title:       s.Title,
			Description: s.Description,
			Type:        s.Type,
			Color:       s.Color,
			StartDate:   model.DateOf(s.StartDate),
			EndDate:     model.DateOf(s.EndDate),
			IsFullDay:   true,
			Status:      model.EntryStatus(s.Status),
			Location:    s.Location,
			Recurrence:  model.Recurrence(s.Recurrence),
		}
		if s.IsFullDay != nil {
			e.IsFullDay = *s.IsFullDay
		}
		if e.Status == "" {
			e.Status = model.EntryUpcoming
		}
		if e.Recurrence == "" {
			e.Recurrence = model.RecurNone
		}
		if err := Validate(e); err != nil {
			return nil, fmt.Errorf("calendar seed entry %d (%q): %w", i, s.Title, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// LoadSeedFile reads the seed from path, or the built-in sample when path is empty.
func LoadSeedFile(path string) ([]model.CalendarEntry, error) {
	if path == "" {
		return LoadSeed(bytes.NewReader(defaultSeed))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open calendar seed: %w", err)
	}
	defer f.Close()
	return LoadSeed(f)
}
