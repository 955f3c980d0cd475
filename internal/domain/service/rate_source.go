package service

import (
	"context"

	"github.com/matiasroldan/ars-rate-service/internal/domain/entity"
)

// RateSource provides the two upstream views of the official ARS/USD rate.
type RateSource interface {
	// FetchCurrentMid returns the midpoint of the current official quote.
	FetchCurrentMid(ctx context.Context) (float64, error)

	// FetchHistory returns the full historical quote series. The order of
	// entries is not guaranteed.
	FetchHistory(ctx context.Context) ([]entity.HistoricalEntry, error)
}
