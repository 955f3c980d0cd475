package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/matiasroldan/ars-rate-service/internal/domain/apperr"
)

func newTestClient(baseURL string) *OficialAPIClient {
	log := logrus.New()
	log.SetOutput(io.Discard)

	client := NewOficialAPIClient(nil, baseURL, log)
	client.backoff = time.Millisecond
	return client
}

func TestFetchCurrentMid(t *testing.T) {
	ctx := context.Background()

	t.Run("Numeric price fields", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, currentQuotePath, r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"moneda":"USD","casa":"oficial","compra":1050.0,"venta":1070.0,"fechaActualizacion":"2024-06-15T10:00:00.000Z"}`))
		}))
		defer server.Close()

		mid, err := newTestClient(server.URL).FetchCurrentMid(ctx)

		assert.NoError(t, err)
		assert.Equal(t, 1060.0, mid)
	})

	t.Run("String price fields", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"compra":"1050","venta":"1070"}`))
		}))
		defer server.Close()

		mid, err := newTestClient(server.URL).FetchCurrentMid(ctx)

		assert.NoError(t, err)
		assert.Equal(t, 1060.0, mid)
	})

	t.Run("Missing sell price is treated as no rate", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"compra":1050.0}`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).FetchCurrentMid(ctx)

		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})

	t.Run("Non-positive prices are treated as no rate", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"compra":-1.0,"venta":1070.0}`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).FetchCurrentMid(ctx)

		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})

	t.Run("Malformed JSON is an upstream failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>maintenance</html>`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).FetchCurrentMid(ctx)

		assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	})

	t.Run("Server error fails fast without retry", func(t *testing.T) {
		attempts := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).FetchCurrentMid(ctx)

		assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
		assert.Equal(t, 1, attempts)
	})

	t.Run("Rate limiting is retried with backoff", func(t *testing.T) {
		attempts := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts < 3 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write([]byte(`{"compra":1050.0,"venta":1070.0}`))
		}))
		defer server.Close()

		mid, err := newTestClient(server.URL).FetchCurrentMid(ctx)

		assert.NoError(t, err)
		assert.Equal(t, 1060.0, mid)
		assert.Equal(t, 3, attempts)
	})

	t.Run("Persistent rate limiting exhausts the attempts", func(t *testing.T) {
		attempts := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).FetchCurrentMid(ctx)

		assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
		assert.Equal(t, maxAttempts, attempts)
	})

	t.Run("Connection failure is an upstream failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // Refuses connections from here on

		_, err := newTestClient(server.URL).FetchCurrentMid(ctx)

		assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	})
}

func TestFetchHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("Parses and reduces the series to midpoints", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, historyPath, r.URL.Path)
			w.Write([]byte(`[
				{"casa":"oficial","fecha":"2024-06-14","compra":895.0,"venta":935.0},
				{"casa":"oficial","fecha":"2024-06-15","compra":"900","venta":"940"}
			]`))
		}))
		defer server.Close()

		entries, err := newTestClient(server.URL).FetchHistory(ctx)

		assert.NoError(t, err)
		assert.Len(t, entries, 2)
		assert.Equal(t, time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC), entries[0].Date)
		assert.Equal(t, 915.0, entries[0].Mid)
		assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), entries[1].Date)
		assert.Equal(t, 920.0, entries[1].Mid)
	})

	t.Run("Invalid entries are dropped, not fatal", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[
				{"fecha":"not-a-date","compra":895.0,"venta":935.0},
				{"fecha":"2024-06-14","compra":-895.0,"venta":935.0},
				{"fecha":"2024-06-15","compra":900.0,"venta":0},
				{"fecha":"2024-06-15","compra":"garbage","venta":940.0},
				{"fecha":"2024-06-16","compra":905.0,"venta":945.0}
			]`))
		}))
		defer server.Close()

		entries, err := newTestClient(server.URL).FetchHistory(ctx)

		assert.NoError(t, err)
		assert.Len(t, entries, 1)
		assert.Equal(t, 925.0, entries[0].Mid)
	})

	t.Run("Empty series is not an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		}))
		defer server.Close()

		entries, err := newTestClient(server.URL).FetchHistory(ctx)

		assert.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("Malformed JSON is an upstream failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"not":"an array"}`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).FetchHistory(ctx)

		assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	})
}
