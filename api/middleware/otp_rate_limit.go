package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sabzico/fulfillment-backend/api/responses"
	"github.com/sabzico/fulfillment-backend/pkg/config"
	pkgerrors "github.com/sabzico/fulfillment-backend/pkg/errors"
	"github.com/sabzico/fulfillment-backend/pkg/logger"
)

// OtpAttemptStore counts OTP verification attempts against a target aggregate.
type OtpAttemptStore interface {
	OtpAttemptAllow(ctx context.Context, scope, id string, limit int64, window time.Duration) (bool, int64, error)
}

// OtpRateLimit throttles OTP verification attempts per target aggregate. The
// counter key is the URL parameter (delivery or return id), so a partner
// cycling codes against one handoff exhausts that handoff's budget only.
func OtpRateLimit(scope, urlParam string, cfg config.OtpConfig, store OtpAttemptStore, logg *logger.Logger) func(http.Handler) http.Handler {
	scope = strings.ToLower(strings.TrimSpace(scope))
	return func(next http.Handler) http.Handler {
		if store == nil || cfg.AttemptLimit <= 0 || cfg.AttemptWindow <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			id := strings.TrimSpace(chi.URLParam(r, urlParam))
			if id == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, urlParam+" is required"))
				return
			}

			allowed, count, err := store.OtpAttemptAllow(ctx, scope, id, cfg.AttemptLimit, cfg.AttemptWindow)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "otp rate limiting"))
				return
			}
			if !allowed {
				if logg != nil {
					logCtx := logg.WithFields(ctx, map[string]any{
						"scope":          scope,
						"target_id":      id,
						"attempts":       count,
						"limit":          cfg.AttemptLimit,
						"window_seconds": int(cfg.AttemptWindow.Seconds()),
					})
					logg.Warn(logCtx, "otp.rate_limit.blocked")
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many otp attempts"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
