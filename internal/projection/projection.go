// Package projection derives display state from a session: map coloring,
// progress and the per-continent breakdowns. Every function here is pure.
package projection

import (
	"math"
	"sort"

	"world-quiz-service/internal/domain"
)

// Coloring assigns each catalog id its map paint: found when discovered, missed
// once the session is finished, neutral otherwise.
func Coloring(ids []string, discovered map[string]struct{}, finished bool) map[string]domain.Paint {
	out := make(map[string]domain.Paint, len(ids))
	for _, id := range ids {
		switch _, ok := discovered[id]; {
		case ok:
			out[id] = domain.PaintFound
		case finished:
			out[id] = domain.PaintMissed
		default:
			out[id] = domain.PaintNeutral
		}
	}
	return out
}

// Percentage is found/total rounded half away from zero.
func Percentage(found, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(found) / float64(total) * 100))
}

// Rating buckets a percentage into the result message tier.
func Rating(percentage int) string {
	switch {
	case percentage >= 90:
		return "excellent"
	case percentage >= 70:
		return "good"
	case percentage >= 50:
		return "ok"
	case percentage >= 30:
		return "beginner"
	default:
		return "study_more"
	}
}

// ContinentProgress counts found countries per continent in display order.
func ContinentProgress(countries []domain.Country, discovered map[string]struct{}) []domain.ContinentProgress {
	index := make(map[domain.Continent]int, len(domain.Continents))
	out := make([]domain.ContinentProgress, len(domain.Continents))
	for i, continent := range domain.Continents {
		index[continent] = i
		out[i] = domain.ContinentProgress{Continent: continent}
	}
	for _, country := range countries {
		i, ok := index[country.Continent]
		if !ok {
			continue
		}
		out[i].Total++
		if _, found := discovered[country.ID]; found {
			out[i].Found++
		}
	}
	return out
}

// Missed groups undiscovered countries by continent, keeping catalog order
// within a group. Continents with nothing missed are omitted.
func Missed(countries []domain.Country, discovered map[string]struct{}) []domain.ContinentGroup {
	return group(countries, func(c domain.Country) bool {
		_, found := discovered[c.ID]
		return !found
	})
}

// Discovered groups found countries by continent, sorted by name within a group.
func Discovered(countries []domain.Country, discovered map[string]struct{}) []domain.ContinentGroup {
	groups := group(countries, func(c domain.Country) bool {
		_, found := discovered[c.ID]
		return found
	})
	for _, g := range groups {
		sort.Slice(g.Countries, func(i, j int) bool {
			return g.Countries[i].Name < g.Countries[j].Name
		})
	}
	return groups
}

func group(countries []domain.Country, keep func(domain.Country) bool) []domain.ContinentGroup {
	byContinent := make(map[domain.Continent][]domain.Country)
	for _, country := range countries {
		if keep(country) {
			byContinent[country.Continent] = append(byContinent[country.Continent], country)
		}
	}
	groups := make([]domain.ContinentGroup, 0, len(byContinent))
	for _, continent := range domain.Continents {
		if list, ok := byContinent[continent]; ok {
			groups = append(groups, domain.ContinentGroup{Continent: continent, Countries: list})
		}
	}
	return groups
}
