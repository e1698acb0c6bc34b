// Package catalog holds the fixed country table and resolves typed answers to it.
package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"world-quiz-service/internal/domain"
)

//go:embed countries.yaml
var embeddedCountries []byte

// Loader fetches the country records from a backing store.
type Loader interface {
	LoadCountries(ctx context.Context) ([]domain.Country, error)
}

// Catalog is an immutable, indexed country table. Safe for concurrent reads.
type Catalog struct {
	countries []domain.Country
	byID      map[string]int
	byName    map[string]int
	shadowed  []Shadowed
}

// Shadowed records a name or alias that was ignored because an earlier record already claimed it.
type Shadowed struct {
	Name      string
	CountryID string
	ClaimedBy string
}

// New validates records and builds the lookup index. Catalog order decides which
// record wins when two records share a normalized name.
func New(countries []domain.Country) (*Catalog, error) {
	if len(countries) == 0 {
		return nil, fmt.Errorf("%w: no countries", domain.ErrInvalidCatalog)
	}
	c := &Catalog{
		countries: make([]domain.Country, 0, len(countries)),
		byID:      make(map[string]int, len(countries)),
		byName:    make(map[string]int, len(countries)*3),
	}
	for _, country := range countries {
		country.ID = strings.TrimSpace(country.ID)
		country.Name = strings.TrimSpace(country.Name)
		if country.ID == "" || country.Name == "" {
			return nil, fmt.Errorf("%w: record %q has an empty id or name", domain.ErrInvalidCatalog, country.ID)
		}
		if !country.Continent.Valid() {
			return nil, fmt.Errorf("%w: %s has unknown continent %q", domain.ErrInvalidCatalog, country.ID, country.Continent)
		}
		if _, dup := c.byID[country.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", domain.ErrInvalidCatalog, country.ID)
		}
		country.Aliases = append([]string(nil), country.Aliases...)

		pos := len(c.countries)
		c.countries = append(c.countries, country)
		c.byID[country.ID] = pos

		for _, name := range append([]string{country.Name}, country.Aliases...) {
			key := Normalize(name)
			if key == "" {
				continue
			}
			if owner, taken := c.byName[key]; taken {
				if owner != pos {
					c.shadowed = append(c.shadowed, Shadowed{Name: name, CountryID: country.ID, ClaimedBy: c.countries[owner].ID})
				}
				continue
			}
			c.byName[key] = pos
		}
	}
	return c, nil
}

// Default builds the embedded world catalog.
func Default() (*Catalog, error) {
	countries, err := Parse(embeddedCountries)
	if err != nil {
		return nil, err
	}
	return New(countries)
}

// Parse decodes a YAML list of country records.
func Parse(data []byte) ([]domain.Country, error) {
	var countries []domain.Country
	if err := yaml.Unmarshal(data, &countries); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCatalog, err)
	}
	return countries, nil
}

// Resolve maps free-text input to a catalog record.
func (c *Catalog) Resolve(input string) (domain.Country, bool) {
	key := Normalize(input)
	if key == "" {
		return domain.Country{}, false
	}
	pos, ok := c.byName[key]
	if !ok {
		return domain.Country{}, false
	}
	return c.countries[pos], true
}

// Countries returns a copy of the records in catalog order.
func (c *Catalog) Countries() []domain.Country {
	out := make([]domain.Country, len(c.countries))
	copy(out, c.countries)
	return out
}

// IDs returns the catalog ids in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.countries))
	for i, country := range c.countries {
		ids[i] = country.ID
	}
	return ids
}

// Size is the number of countries to discover.
func (c *Catalog) Size() int {
	return len(c.countries)
}

// Shadowed lists names that resolve to an earlier record than the one declaring them.
func (c *Catalog) Shadowed() []Shadowed {
	return append([]Shadowed(nil), c.shadowed...)
}

// EmbeddedLoader serves the catalog compiled into the binary.
type EmbeddedLoader struct{}

func (EmbeddedLoader) LoadCountries(context.Context) ([]domain.Country, error) {
	return Parse(embeddedCountries)
}

// FileLoader reads a YAML catalog from disk on every load.
type FileLoader struct {
	Path string
}

func (l FileLoader) LoadCountries(context.Context) ([]domain.Country, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	return Parse(data)
}

// StaticLoader serves a fixed slice of records (tests, demos).
type StaticLoader struct {
	countries []domain.Country
}

func NewStaticLoader(countries []domain.Country) *StaticLoader {
	return &StaticLoader{countries: countries}
}

func (l *StaticLoader) LoadCountries(context.Context) ([]domain.Country, error) {
	if len(l.countries) == 0 {
		return nil, domain.ErrCatalogUnavailable
	}
	return append([]domain.Country(nil), l.countries...), nil
}
