package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"world-quiz-service/internal/catalog"
	"world-quiz-service/internal/domain"
)

// CatalogRepository caches the country records in Redis and falls back to a loader on cache miss.
// Records are stored as a JSON array: SET quiz:catalog:countries [...] EX ttl
type CatalogRepository struct {
	client *redis.Client
	loader catalog.Loader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewCatalogRepository(client *redis.Client, loader catalog.Loader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) GetCatalog(ctx context.Context) (*catalog.Catalog, error) {
	if cat, ok := r.cached(ctx); ok {
		return cat, nil
	}

	result, err, _ := r.sf.Do(catalogKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if cat, ok := r.cached(ctx); ok {
			return cat, nil
		}

		countries, err := r.loader.LoadCountries(ctx)
		if err != nil {
			return nil, err
		}
		cat, err := catalog.New(countries)
		if err != nil {
			return nil, err
		}

		payload, err := json.Marshal(countries)
		if err == nil {
			err = r.client.Set(ctx, catalogKey, payload, r.ttlWithJitter()).Err()
		}
		if err != nil {
			log.Warn().Err(err).Msg("redis: cache catalog")
		}
		return cat, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*catalog.Catalog), nil
}

// Invalidate drops the cached records so the next read reloads them.
func (r *CatalogRepository) Invalidate(ctx context.Context) error {
	return r.client.Del(ctx, catalogKey).Err()
}

// cached decodes the Redis copy. A corrupt copy is treated as a miss.
func (r *CatalogRepository) cached(ctx context.Context) (*catalog.Catalog, bool) {
	raw, err := r.client.Get(ctx, catalogKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("redis: read catalog")
		}
		return nil, false
	}
	var countries []domain.Country
	if err := json.Unmarshal(raw, &countries); err != nil {
		return nil, false
	}
	cat, err := catalog.New(countries)
	if err != nil {
		return nil, false
	}
	return cat, true
}

const catalogKey = "quiz:catalog:countries"

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
