// Package service implements the rate resolution logic.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/matiasroldan/ars-rate-service/internal/domain/apperr"
	"github.com/matiasroldan/ars-rate-service/internal/domain/entity"
	"github.com/matiasroldan/ars-rate-service/internal/domain/repository"
	domsvc "github.com/matiasroldan/ars-rate-service/internal/domain/service"
)

const (
	// DefaultCacheTTL bounds how long resolved rates and the historical
	// series are served from cache.
	DefaultCacheTTL = 5 * time.Minute

	// seriesCacheKey holds the full historical series, cached as a unit so
	// repeated point and range queries within the TTL avoid re-fetching.
	seriesCacheKey = "series:oficial"

	dayFormat = "2006-01-02"
)

// Resolver normalizes the two upstream views of the official quote into
// single-day and multi-day rates, with read-through/write-through caching
// around the expensive paths.
type Resolver struct {
	source domsvc.RateSource
	store  repository.RateStore
	ttl    time.Duration
	now    func() time.Time
	log    *logrus.Logger
}

// NewResolver creates a resolver. A non-positive ttl falls back to
// DefaultCacheTTL.
func NewResolver(source domsvc.RateSource, store repository.RateStore, ttl time.Duration, log *logrus.Logger) *Resolver {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if log == nil {
		log = logrus.New()
	}

	return &Resolver{
		source: source,
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		log:    log,
	}
}

// FetchRate resolves the rate for a single calendar day. Same-currency pairs
// short-circuit to 1.0 with no cache or network access. Requests for the
// current day hit the snapshot endpoint; past days resolve against the
// historical series with a nearest-prior-date fallback.
func (r *Resolver) FetchRate(ctx context.Context, from, to string, date time.Time) (*entity.Rate, error) {
	day := entity.Day(date)

	if from == to {
		return &entity.Rate{Date: day, From: from, To: to, Rate: 1.0}, nil
	}

	if err := validatePair(from, to); err != nil {
		return nil, err
	}

	key := rateKey(from, to, day)
	var cached entity.Rate
	if r.readCached(key, &cached) {
		return &cached, nil
	}

	var mid float64
	if day.Equal(entity.Day(r.now())) {
		m, err := r.source.FetchCurrentMid(ctx)
		if err != nil {
			return nil, err
		}
		mid = m
	} else {
		series, err := r.history(ctx)
		if err != nil {
			return nil, err
		}
		m, ok := latestOnOrBefore(series, day)
		if !ok {
			return nil, apperr.NotFound("no rate available on or before %s", day.Format(dayFormat))
		}
		mid = m
	}

	rate := &entity.Rate{Date: day, From: from, To: to, Rate: orient(from, mid)}
	r.writeCached(key, rate)

	r.log.WithFields(logrus.Fields{
		"from": from,
		"to":   to,
		"date": day.Format(dayFormat),
		"rate": rate.Rate,
	}).Info("Rate resolved")

	return rate, nil
}

// FetchRates resolves one rate per historical entry inside [start, end],
// ordered ascending by date.
func (r *Resolver) FetchRates(ctx context.Context, from, to string, start, end time.Time) ([]entity.Rate, error) {
	startDay, endDay := entity.Day(start), entity.Day(end)

	if startDay.After(endDay) {
		return nil, apperr.Validation("invalid date range: start %s is after end %s",
			startDay.Format(dayFormat), endDay.Format(dayFormat))
	}

	if from == to {
		var rates []entity.Rate
		for d := startDay; !d.After(endDay); d = d.AddDate(0, 0, 1) {
			rates = append(rates, entity.Rate{Date: d, From: from, To: to, Rate: 1.0})
		}
		return rates, nil
	}

	if err := validatePair(from, to); err != nil {
		return nil, err
	}

	key := rangeKey(from, to, startDay, endDay)
	var cached []entity.Rate
	if r.readCached(key, &cached) {
		return cached, nil
	}

	series, err := r.history(ctx)
	if err != nil {
		return nil, err
	}

	rates := make([]entity.Rate, 0, len(series))
	for _, e := range series {
		if e.Date.Before(startDay) || e.Date.After(endDay) {
			continue
		}
		rates = append(rates, entity.Rate{Date: e.Date, From: from, To: to, Rate: orient(from, e.Mid)})
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i].Date.Before(rates[j].Date) })

	r.writeCached(key, rates)

	r.log.WithFields(logrus.Fields{
		"from":  from,
		"to":    to,
		"start": startDay.Format(dayFormat),
		"end":   endDay.Format(dayFormat),
		"count": len(rates),
	}).Info("Rate range resolved")

	return rates, nil
}

// Healthy reports whether the current quote endpoint is serving usable
// prices. Every failure kind collapses to false; no error escapes.
func (r *Resolver) Healthy(ctx context.Context) bool {
	if _, err := r.source.FetchCurrentMid(ctx); err != nil {
		r.log.WithError(err).Warn("Health check failed")
		return false
	}
	return true
}

// history returns the full historical series, read through its own cache
// entry so repeated queries within the TTL share one upstream call.
func (r *Resolver) history(ctx context.Context) ([]entity.HistoricalEntry, error) {
	var series []entity.HistoricalEntry
	if r.readCached(seriesCacheKey, &series) {
		return series, nil
	}

	series, err := r.source.FetchHistory(ctx)
	if err != nil {
		return nil, err
	}

	r.writeCached(seriesCacheKey, series)
	return series, nil
}

// readCached loads key into dst. Cache failures degrade to a miss; they
// never fail a resolution.
func (r *Resolver) readCached(key string, dst interface{}) bool {
	data, ok, err := r.store.Get(key)
	if err != nil {
		r.log.WithError(err).WithField("key", key).Warn("Cache read failed")
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		r.log.WithError(err).WithField("key", key).Warn("Discarding undecodable cache entry")
		return false
	}
	return true
}

func (r *Resolver) writeCached(key string, src interface{}) {
	data, err := json.Marshal(src)
	if err != nil {
		r.log.WithError(err).WithField("key", key).Warn("Cache encode failed")
		return
	}
	if err := r.store.Set(key, data, r.ttl); err != nil {
		r.log.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}

// validatePair enforces the supported pair set: every pair must include the
// anchor currency and both sides must be drawn from {ARS, USD}. The message
// text is part of the observable contract.
func validatePair(from, to string) error {
	if from != entity.AnchorCurrency && to != entity.AnchorCurrency {
		return apperr.Validation("unsupported pair %s/%s: pairs must include the anchor currency %s",
			from, to, entity.AnchorCurrency)
	}
	if !supportedCurrency(from) || !supportedCurrency(to) {
		return apperr.Validation("unsupported pair %s/%s: only %s/%s and %s/%s are supported",
			from, to,
			entity.AnchorCurrency, entity.SecondaryCurrency,
			entity.SecondaryCurrency, entity.AnchorCurrency)
	}
	return nil
}

func supportedCurrency(code string) bool {
	return code == entity.AnchorCurrency || code == entity.SecondaryCurrency
}

// orient interprets an anchor-per-USD midpoint for the requested direction.
func orient(from string, mid float64) float64 {
	if from == entity.AnchorCurrency {
		return entity.Invert(mid)
	}
	return mid
}

// latestOnOrBefore picks the exact-date entry when present, otherwise the
// most recent entry on or before day. Future entries are never used.
func latestOnOrBefore(series []entity.HistoricalEntry, day time.Time) (float64, bool) {
	var best entity.HistoricalEntry
	found := false
	for _, e := range series {
		if e.Date.After(day) {
			continue
		}
		if !found || e.Date.After(best.Date) {
			best = e
			found = true
		}
	}
	return best.Mid, found
}

func rateKey(from, to string, day time.Time) string {
	return fmt.Sprintf("rate:%s:%s:%s", from, to, day.Format(dayFormat))
}

func rangeKey(from, to string, start, end time.Time) string {
	return fmt.Sprintf("rates:%s:%s:%s:%s", from, to, start.Format(dayFormat), end.Format(dayFormat))
}
