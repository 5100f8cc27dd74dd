// Package catalog turns raw competition listings from external feeds
// into stored competitions, deduplicated by source identity.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"running-bot/internal/models"
	"running-bot/internal/store"
	"running-bot/internal/util"
)

var numRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

type Adapter struct {
	store *store.Store
	ids   *gocache.Cache // source_key -> competition id
}

func New(st *store.Store) *Adapter {
	return &Adapter{
		store: st,
		ids:   gocache.New(24*time.Hour, time.Hour),
	}
}

// GetOrCreate resolves a raw listing to a competition id, creating the
// competition on first sight. Calling it twice with the same source key
// returns the same id and leaves the stored catalog untouched.
func (a *Adapter) GetOrCreate(l models.RawListing) (int64, error) {
	if l.SourceKey == "" {
		return 0, fmt.Errorf("listing %q has no source key", l.Name)
	}
	if id, ok := a.ids.Get(l.SourceKey); ok {
		return id.(int64), nil
	}

	c := models.Competition{
		SourceKey: l.SourceKey,
		Name:      l.Name,
		Date:      l.Date,
		City:      l.City,
		Distances: make([]models.Distance, 0, len(l.Distances)),
	}
	for _, raw := range l.Distances {
		c.Distances = append(c.Distances, NormalizeDistance(raw))
	}

	id, _, err := a.store.GetOrCreateCompetition(c)
	if err != nil {
		return 0, err
	}
	a.ids.Set(l.SourceKey, id, gocache.DefaultExpiration)
	return id, nil
}

// NormalizeDistance maps one heterogeneous catalog entry onto a
// {value, label} pair. A structured entry keeps both fields; a bare
// number becomes "<n> км"; free text keeps its label while the first
// numeric token (0 when absent) becomes the value.
func NormalizeDistance(raw any) models.Distance {
	switch v := raw.(type) {
	case map[string]any:
		d := models.Distance{}
		switch val := v["value"].(type) {
		case float64:
			d.Value = val
		case string:
			d.Value = firstNumber(val)
		}
		if label, ok := v["label"].(string); ok {
			d.Label = label
		}
		if d.Label == "" {
			d.Label = util.FormatKm(d.Value) + " км"
		}
		return d
	case float64:
		return models.Distance{Value: v, Label: util.FormatKm(v) + " км"}
	case int:
		return models.Distance{Value: float64(v), Label: util.FormatKm(float64(v)) + " км"}
	case string:
		return models.Distance{Value: firstNumber(v), Label: v}
	default:
		return models.Distance{}
	}
}

func firstNumber(s string) float64 {
	m := numRe.FindString(s)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

// ImportFile seeds competitions from a JSON file of raw listings.
// Safe to run on every start: listings already known by source key are
// skipped. Returns how many listings were processed.
func (a *Adapter) ImportFile(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	var listings []models.RawListing
	if err := json.Unmarshal(raw, &listings); err != nil {
		return 0, fmt.Errorf("decode %s: %w", path, err)
	}
	for _, l := range listings {
		if _, err := a.GetOrCreate(l); err != nil {
			return 0, fmt.Errorf("import %q: %w", l.SourceKey, err)
		}
	}
	return len(listings), nil
}
