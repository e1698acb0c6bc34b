package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"world-quiz-service/internal/domain"
)

// countryRow maps the countries table for bun.
type countryRow struct {
	bun.BaseModel `bun:"table:countries"`

	ID        string   `bun:"id,pk"`
	Name      string   `bun:"name,notnull"`
	Continent string   `bun:"continent,notnull"`
	Aliases   []string `bun:"aliases,array"`
	Position  int      `bun:"position,notnull"`
}

func toRows(countries []domain.Country) []countryRow {
	rows := make([]countryRow, len(countries))
	for i, c := range countries {
		aliases := c.Aliases
		if aliases == nil {
			aliases = []string{}
		}
		rows[i] = countryRow{
			ID:        c.ID,
			Name:      c.Name,
			Continent: string(c.Continent),
			Aliases:   aliases,
			Position:  i,
		}
	}
	return rows
}

// SeedCountries replaces the countries table with the given records, keeping their order.
func SeedCountries(ctx context.Context, db *bun.DB, countries []domain.Country) error {
	rows := toRows(countries)
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// positions are unique, so clear them before upserting the new order
		if _, err := tx.NewDelete().Model((*countryRow)(nil)).Where("TRUE").Exec(ctx); err != nil {
			return fmt.Errorf("clear countries: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("insert countries: %w", err)
		}
		return nil
	})
}

// SeedCountriesIfEmpty seeds the table only when it has no rows and reports
// whether it wrote anything.
func SeedCountriesIfEmpty(ctx context.Context, db *bun.DB, countries []domain.Country) (bool, error) {
	n, err := db.NewSelect().Model((*countryRow)(nil)).Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count countries: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	if err := SeedCountries(ctx, db, countries); err != nil {
		return false, err
	}
	return true, nil
}
