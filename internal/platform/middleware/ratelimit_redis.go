// Copyright (c) 2026 Booklore. All rights reserved.
// Author: engineering@booklore.app

package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/booklore/booklore/internal/platform/apperr"
	"github.com/booklore/booklore/internal/platform/constants"
	"github.com/booklore/booklore/internal/platform/ctxutil"
)

// CredentialRateLimit is a strict fixed-window limiter for credential
// endpoints (login, signup, forgot-password). It is backed by Redis so the
// window survives process restarts and is shared across replicas.
//
// # Algorithm
//
// One counter per client IP per window. INCR the counter; the first hit in a
// window sets the TTL. A counter above the limit rejects with 429 and the
// window's remaining TTL as Retry-After.
//
// # Failure Mode
//
// Fails OPEN. If Redis is unreachable the request proceeds; locking every
// user out of login because the cache is down is worse than briefly losing
// brute-force protection. The incident is logged for alerting.
func CredentialRateLimit(client *redis.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ctx := request.Context()
			key := constants.RedisPrefixRateLimit + "cred:" + RealIP(request)

			// ── 1. Count the attempt ──────────────────────────────────────────
			count, err := client.Incr(ctx, key).Result()
			if err != nil {
				ctxutil.GetLogger(ctx).WarnContext(ctx, "credential_ratelimit_unavailable",
					slog.Any("error", err),
				)
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Arm the window on first hit ────────────────────────────────
			if count == 1 {
				if err := client.Expire(ctx, key, constants.CredentialRateWindow).Err(); err != nil {
					ctxutil.GetLogger(ctx).WarnContext(ctx, "credential_ratelimit_expire_failed",
						slog.Any("error", err),
					)
				}
			}

			// ── 3. Enforce the limit ──────────────────────────────────────────
			if count > int64(constants.CredentialRateLimit) {
				retryAfter := int(constants.CredentialRateWindow / time.Second)
				if ttl, err := client.TTL(ctx, key).Result(); err == nil && ttl > 0 {
					retryAfter = int(ttl / time.Second)
				}

				appError := apperr.RateLimited(retryAfter)
				writer.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(writer, appError.HTTPStatus, appError.Code, appError.Message)
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
