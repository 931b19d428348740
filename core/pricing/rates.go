package pricing

import "github.com/ubi-africa/ride-core/core/model"

// RateCard holds per-class rates for one currency. All amounts are in the
// currency's minor unit.
type RateCard struct {
	Currency          model.Currency
	BaseFares         map[model.VehicleClass]int64
	PerKmRates        map[model.VehicleClass]int64
	PerMinuteRates    map[model.VehicleClass]int64
	CommissionPercent float64
}

// DefaultRateCards returns the launch-market rate tables.
func DefaultRateCards() map[model.Currency]*RateCard {
	return map[model.Currency]*RateCard{
		model.CurrencyNGN: {
			Currency: model.CurrencyNGN,
			BaseFares: map[model.VehicleClass]int64{
				model.ClassStandard: 30000,
				model.ClassPremium:  50000,
				model.ClassXL:       60000,
				model.ClassBoda:     15000,
				model.ClassTricycle: 20000,
			},
			PerKmRates: map[model.VehicleClass]int64{
				model.ClassStandard: 15000,
				model.ClassPremium:  25000,
				model.ClassXL:       30000,
				model.ClassBoda:     8000,
				model.ClassTricycle: 10000,
			},
			PerMinuteRates: map[model.VehicleClass]int64{
				model.ClassStandard: 2000,
				model.ClassPremium:  3500,
				model.ClassXL:       4000,
				model.ClassBoda:     1000,
				model.ClassTricycle: 1500,
			},
			CommissionPercent: 0.20,
		},
		model.CurrencyKES: {
			Currency: model.CurrencyKES,
			BaseFares: map[model.VehicleClass]int64{
				model.ClassStandard: 15000,
				model.ClassPremium:  25000,
				model.ClassXL:       30000,
				model.ClassBoda:     8000,
				model.ClassTricycle: 10000,
			},
			PerKmRates: map[model.VehicleClass]int64{
				model.ClassStandard: 4000,
				model.ClassPremium:  7000,
				model.ClassXL:       8500,
				model.ClassBoda:     2500,
				model.ClassTricycle: 3000,
			},
			PerMinuteRates: map[model.VehicleClass]int64{
				model.ClassStandard: 400,
				model.ClassPremium:  700,
				model.ClassXL:       850,
				model.ClassBoda:     200,
				model.ClassTricycle: 300,
			},
			CommissionPercent: 0.20,
		},
		model.CurrencyGHS: {
			Currency: model.CurrencyGHS,
			BaseFares: map[model.VehicleClass]int64{
				model.ClassStandard: 500,
				model.ClassPremium:  1000,
				model.ClassXL:       1200,
				model.ClassBoda:     250,
				model.ClassTricycle: 350,
			},
			PerKmRates: map[model.VehicleClass]int64{
				model.ClassStandard: 250,
				model.ClassPremium:  450,
				model.ClassXL:       550,
				model.ClassBoda:     150,
				model.ClassTricycle: 180,
			},
			PerMinuteRates: map[model.VehicleClass]int64{
				model.ClassStandard: 30,
				model.ClassPremium:  50,
				model.ClassXL:       60,
				model.ClassBoda:     15,
				model.ClassTricycle: 20,
			},
			CommissionPercent: 0.20,
		},
		model.CurrencyUSD: {
			Currency: model.CurrencyUSD,
			BaseFares: map[model.VehicleClass]int64{
				model.ClassStandard: 300,
				model.ClassPremium:  500,
				model.ClassXL:       600,
				model.ClassBoda:     150,
				model.ClassTricycle: 200,
			},
			PerKmRates: map[model.VehicleClass]int64{
				model.ClassStandard: 100,
				model.ClassPremium:  175,
				model.ClassXL:       210,
				model.ClassBoda:     60,
				model.ClassTricycle: 75,
			},
			PerMinuteRates: map[model.VehicleClass]int64{
				model.ClassStandard: 15,
				model.ClassPremium:  25,
				model.ClassXL:       30,
				model.ClassBoda:     8,
				model.ClassTricycle: 10,
			},
			CommissionPercent: 0.20,
		},
	}
}
