// Package pricing computes fare quotes with surge multipliers derived from
// per-cell demand and supply signals.
package pricing

import (
	"context"
	"fmt"

	"github.com/ubi-africa/ride-core/core/logger"
	"github.com/ubi-africa/ride-core/core/model"
)

// SurgeReader resolves the current surge multiplier for a spatial cell.
// An absent or stale signal must yield 1.0.
type SurgeReader interface {
	Multiplier(ctx context.Context, cell string) (float64, error)
}

// StaticSurge is a SurgeReader that always returns the same multiplier.
// The zero value reads as no surge.
type StaticSurge struct {
	Value float64
}

func (s StaticSurge) Multiplier(context.Context, string) (float64, error) {
	if s.Value < 1.0 {
		return 1.0, nil
	}
	return s.Value, nil
}

// PromoSource resolves a promotional code to a discount amount in the
// currency's minor unit. Lookup failures degrade to a zero discount.
type PromoSource interface {
	Discount(ctx context.Context, code string, currency model.Currency) (int64, error)
}

// NopPromoSource never grants a discount.
type NopPromoSource struct{}

func (NopPromoSource) Discount(context.Context, string, model.Currency) (int64, error) {
	return 0, nil
}

// Engine computes deterministic fare quotes from the rate cards.
type Engine struct {
	cards map[model.Currency]*RateCard
	surge SurgeReader
	log   logger.Logger
}

// NewEngine builds a pricing engine. All dependencies are required.
func NewEngine(cards map[model.Currency]*RateCard, surge SurgeReader, log logger.Logger) (*Engine, error) {
	if len(cards) == 0 {
		return nil, fmt.Errorf("pricing: rate cards are required")
	}
	if surge == nil {
		return nil, fmt.Errorf("pricing: surge reader is required")
	}
	if log == nil {
		return nil, fmt.Errorf("pricing: logger is required")
	}
	return &Engine{cards: cards, surge: surge, log: log}, nil
}

// CalculatePrice returns the fare quote for a trip. The surge multiplier
// scales only the variable distance and duration components, and the promo
// discount never pulls the total below the class base fare.
func (e *Engine) CalculatePrice(
	ctx context.Context,
	class model.VehicleClass,
	distanceMeters float64,
	durationSeconds int64,
	currency model.Currency,
	cell string,
	promoDiscount int64,
) (*model.PriceQuote, error) {
	card, ok := e.cards[currency]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnsupportedCurrency, currency)
	}
	baseFare, ok := card.BaseFares[class]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnsupportedVehicleClass, class)
	}

	distanceFare := int64(distanceMeters / 1000.0 * float64(card.PerKmRates[class]))
	durationFare := int64(float64(durationSeconds) / 60.0 * float64(card.PerMinuteRates[class]))

	multiplier, err := e.surge.Multiplier(ctx, cell)
	if err != nil {
		e.log.Warnf("surge lookup failed for cell %s, using 1.0: %v", cell, err)
		multiplier = 1.0
	}
	if multiplier < 1.0 {
		multiplier = 1.0
	}

	surged := int64(float64(distanceFare+durationFare) * multiplier)
	if promoDiscount < 0 {
		promoDiscount = 0
	}
	total := baseFare + surged - promoDiscount
	if total < baseFare {
		total = baseFare
	}

	platformFee := int64(float64(total) * card.CommissionPercent)
	return &model.PriceQuote{
		BaseFare:        baseFare,
		DistanceFare:    distanceFare,
		DurationFare:    durationFare,
		SurgeMultiplier: multiplier,
		PromoDiscount:   promoDiscount,
		DriverEarnings:  total - platformFee,
		PlatformFee:     platformFee,
		Currency:        currency,
		Total:           total,
	}, nil
}

// EstimateAll quotes every vehicle class for the given trip, skipping
// classes the currency's rate card does not price.
func (e *Engine) EstimateAll(
	ctx context.Context,
	distanceMeters float64,
	durationSeconds int64,
	currency model.Currency,
	cell string,
) (map[model.VehicleClass]*model.PriceQuote, error) {
	if _, ok := e.cards[currency]; !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnsupportedCurrency, currency)
	}
	quotes := make(map[model.VehicleClass]*model.PriceQuote, len(model.KnownVehicleClasses))
	for _, class := range model.KnownVehicleClasses {
		q, err := e.CalculatePrice(ctx, class, distanceMeters, durationSeconds, currency, cell, 0)
		if err != nil {
			continue
		}
		quotes[class] = q
	}
	return quotes, nil
}
