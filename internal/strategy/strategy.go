// Package strategy maps indicator snapshots to trading signals. Rules
// are pure functions so they can be swapped without touching the rest
// of the pipeline.
package strategy

import (
	"github.com/pkg/errors"

	"github.com/dmarques/ciclo/internal/domain"
)

// Rule derives a signal from the latest indicator snapshot. Rules must
// be pure: the same snapshot always yields the same signal.
type Rule func(domain.IndicatorSnapshot) domain.Signal

// Rule names accepted in configuration.
const (
	NameBollingerRSI = "bollinger_rsi"
	NameMACDRSI      = "macd_rsi"
)

// RSI thresholds shared by both rules.
const (
	rsiOversold   = 30
	rsiOverbought = 70
)

// ForName returns the rule registered under the given name.
func ForName(name string) (Rule, error) {
	switch name {
	case NameBollingerRSI:
		return BollingerRSI, nil
	case NameMACDRSI:
		return MACDRSI, nil
	default:
		return nil, errors.Errorf("unknown strategy %q", name)
	}
}
