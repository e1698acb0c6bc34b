package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"world-quiz-service/internal/domain"
)

// CatalogLoader loads country records from the countries table in catalog order.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadCountries(ctx context.Context) ([]domain.Country, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, name, continent, aliases FROM countries ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("%w: query countries: %v", domain.ErrCatalogUnavailable, err)
	}
	defer rows.Close()

	var countries []domain.Country
	for rows.Next() {
		var (
			c         domain.Country
			continent string
		)
		if err := rows.Scan(&c.ID, &c.Name, &continent, &c.Aliases); err != nil {
			return nil, fmt.Errorf("scan country: %w", err)
		}
		c.Continent = domain.Continent(continent)
		countries = append(countries, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read countries: %v", domain.ErrCatalogUnavailable, err)
	}
	if len(countries) == 0 {
		return nil, fmt.Errorf("%w: countries table is empty, run seed", domain.ErrCatalogUnavailable)
	}
	return countries, nil
}
