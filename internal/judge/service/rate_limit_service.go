package service

import (
	"context"
	"fmt"
	"time"

	"elevate/internal/common/cache"
	pkgerrors "elevate/pkg/errors"
)

// RateLimitService enforces fixed-window limits on top of a cache.
type RateLimitService struct {
	cache        cache.BasicOps
	cacheTimeout time.Duration
}

// NewRateLimitService creates a limiter over the given cache.
func NewRateLimitService(cacheClient cache.BasicOps, cacheTimeout time.Duration) *RateLimitService {
	if cacheTimeout <= 0 {
		cacheTimeout = time.Second
	}
	return &RateLimitService{cache: cacheClient, cacheTimeout: cacheTimeout}
}

// Allow counts one hit against key and fails with TooManyRequests once
// more than max hits land inside the window.
func (s *RateLimitService) Allow(ctx context.Context, key string, max int, window time.Duration) error {
	if s.cache == nil {
		return pkgerrors.New(pkgerrors.ServiceUnavailable).WithMessage("rate limit cache is unavailable")
	}
	if max <= 0 || window <= 0 {
		return nil
	}

	ctxCache, cancel := context.WithTimeout(ctx, s.cacheTimeout)
	defer cancel()

	acquired, err := s.cache.SetNX(ctxCache, key, 1, window)
	if err != nil {
		return pkgerrors.Wrapf(err, pkgerrors.CacheError, "rate limit check failed")
	}
	var count int64
	if acquired {
		count = 1
	} else {
		count, err = s.cache.Incr(ctxCache, key)
		if err != nil {
			return pkgerrors.Wrapf(err, pkgerrors.CacheError, "rate limit check failed")
		}
		// Repair a counter that lost its expiry.
		ttl, ttlErr := s.cache.TTL(ctxCache, key)
		if ttlErr == nil && ttl <= 0 {
			_ = s.cache.Expire(ctxCache, key, window)
		}
	}
	if int(count) > max {
		return pkgerrors.New(pkgerrors.TooManyRequests).WithMessage(fmt.Sprintf("rate limit exceeded for %s", key))
	}
	return nil
}
