package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/iliyamo/credits-api/internal/model"
)

type ratesFile struct {
	Rates []struct {
		LowerLimit    float64 `yaml:"lower_limit"`
		UpperLimit    float64 `yaml:"upper_limit"`
		Rate          float64 `yaml:"rate"`
		StripePriceID string  `yaml:"stripe_price_id"`
	} `yaml:"credits_rate"`
}

// DefaultCreditsRates is the single tier used when no rates file is
// configured: 5 to 10000 fiat at 100 credits per unit.
func DefaultCreditsRates(priceID string) model.RateTable {
	return model.RateTable{{
		LowerLimit:    decimal.NewFromInt(5),
		UpperLimit:    decimal.NewFromInt(10000),
		Rate:          decimal.NewFromInt(100),
		StripePriceID: priceID,
	}}
}

// LoadCreditsRates reads the tier table from a YAML file. An empty path or a
// missing file yields the default table. Tiers without a price id inherit
// defaultPriceID.
func LoadCreditsRates(path, defaultPriceID string) (model.RateTable, error) {
	if path == "" {
		return DefaultCreditsRates(defaultPriceID), nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultCreditsRates(defaultPriceID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credits rates: %w", err)
	}
	var f ratesFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse credits rates: %w", err)
	}
	if len(f.Rates) == 0 {
		return DefaultCreditsRates(defaultPriceID), nil
	}

	table := make(model.RateTable, 0, len(f.Rates))
	for i, r := range f.Rates {
		if r.Rate <= 0 || r.UpperLimit < r.LowerLimit {
			return nil, fmt.Errorf("credits rate %d: invalid tier", i)
		}
		price := r.StripePriceID
		if price == "" {
			price = defaultPriceID
		}
		table = append(table, model.CreditsRate{
			LowerLimit:    decimal.NewFromFloat(r.LowerLimit),
			UpperLimit:    decimal.NewFromFloat(r.UpperLimit),
			Rate:          decimal.NewFromFloat(r.Rate),
			StripePriceID: price,
		})
	}
	return table, nil
}
