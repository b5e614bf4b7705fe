package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
)

// Redis is a Cache shared by every instance talking to the same redis.
// The generation lives in <prefix>:generation, entries in <prefix>:principal:<generation>:<id>.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis returns a redis backed cache. A zero ttl uses the default of five minutes.
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	if prefix == "" {
		prefix = "users-permissions"
	}

	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) generationKey() string {
	return r.prefix + ":generation"
}

func (r *Redis) entryKey(generation, id uint64) string {
	return r.prefix + ":principal:" + strconv.FormatUint(generation, 10) + ":" + strconv.FormatUint(id, 10)
}

func (r *Redis) generation(ctx context.Context) (uint64, error) {
	g, err := r.client.Get(ctx, r.generationKey()).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}

	return g, err //nolint:wrapcheck
}

// Generation implements Cache.
func (r *Redis) Generation(ctx context.Context) (uint64, bool) {
	g, err := r.generation(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("principal cache: failed to read generation")
		return 0, false
	}

	return g, true
}

// Get implements Cache. Redis errors count as a miss.
func (r *Redis) Get(ctx context.Context, id uint64) (*models.User, bool) {
	g, err := r.generation(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("principal cache: failed to read generation")
		observe(BackendRedis, false)

		return nil, false
	}

	raw, err := r.client.Get(ctx, r.entryKey(g, id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Uint64("user_id", id).Msg("principal cache: failed to read entry")
		}

		observe(BackendRedis, false)

		return nil, false
	}

	var u models.User
	if err = json.Unmarshal(raw, &u); err != nil {
		log.Warn().Err(err).Uint64("user_id", id).Msg("principal cache: dropping undecodable entry")
		observe(BackendRedis, false)

		return nil, false
	}

	observe(BackendRedis, true)

	return &u, true
}

// Set implements Cache. The entry is keyed by the given generation, so a stale
// one is simply never read. The password hash is not part of the cached shape.
func (r *Redis) Set(ctx context.Context, generation uint64, u *models.User) {
	if u == nil {
		return
	}

	raw, err := json.Marshal(u)
	if err != nil {
		log.Warn().Err(err).Uint64("user_id", u.ID).Msg("principal cache: failed to encode entry")
		return
	}

	if err = r.client.Set(ctx, r.entryKey(generation, u.ID), raw, r.ttl).Err(); err != nil {
		log.Warn().Err(err).Uint64("user_id", u.ID).Msg("principal cache: failed to write entry")
	}
}

// Invalidate implements Cache.
func (r *Redis) Invalidate(ctx context.Context) {
	if err := r.client.Incr(ctx, r.generationKey()).Err(); err != nil {
		log.Error().Err(err).Msg("principal cache: failed to bump generation")
	}
}
