package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sabzico/fulfillment-backend/pkg/config"
	pkgerrors "github.com/sabzico/fulfillment-backend/pkg/errors"
)

type fakeOtpStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeOtpStore() *fakeOtpStore {
	return &fakeOtpStore{counts: map[string]int64{}}
}

func (f *fakeOtpStore) OtpAttemptAllow(ctx context.Context, scope, id string, limit int64, window time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := scope + ":" + id
	f.counts[key]++
	return f.counts[key] <= limit, f.counts[key], nil
}

func otpTestHandler(store *fakeOtpStore, limit int64) http.Handler {
	cfg := config.OtpConfig{AttemptLimit: limit, AttemptWindow: time.Minute}
	r := chi.NewRouter()
	r.With(OtpRateLimit("delivery", "deliveryId", cfg, store, nil)).
		Post("/deliveries/{deliveryId}/verify-otp", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	return r
}

func TestOtpRateLimitBlocksAfterLimit(t *testing.T) {
	store := newFakeOtpStore()
	handler := otpTestHandler(store, 2)
	deliveryID := uuid.NewString()

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/deliveries/"+deliveryID+"/verify-otp", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if i < 2 && rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200 got %d", i, rec.Code)
		}
		if i == 2 {
			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("expected 429 got %d", rec.Code)
			}
			var payload struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
				t.Fatalf("unexpected code: %s", payload.Error.Code)
			}
		}
	}
}

func TestOtpRateLimitCountsPerTarget(t *testing.T) {
	store := newFakeOtpStore()
	handler := otpTestHandler(store, 1)

	first := httptest.NewRequest(http.MethodPost, "/deliveries/"+uuid.NewString()+"/verify-otp", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for first delivery got %d", rec.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/deliveries/"+uuid.NewString()+"/verify-otp", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for second delivery got %d", rec.Code)
	}
}

func TestOtpRateLimitStoreErrorIsDependency(t *testing.T) {
	store := newFakeOtpStore()
	store.err = fmt.Errorf("redis down")
	handler := otpTestHandler(store, 5)

	req := httptest.NewRequest(http.MethodPost, "/deliveries/"+uuid.NewString()+"/verify-otp", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}

func TestOtpRateLimitDisabledWithoutStore(t *testing.T) {
	cfg := config.OtpConfig{AttemptLimit: 1, AttemptWindow: time.Minute}
	r := chi.NewRouter()
	r.With(OtpRateLimit("delivery", "deliveryId", cfg, nil, nil)).
		Post("/deliveries/{deliveryId}/verify-otp", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

	deliveryID := uuid.NewString()
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/deliveries/"+deliveryID+"/verify-otp", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected pass-through got %d", rec.Code)
		}
	}
}
