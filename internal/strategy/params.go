package strategy

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"momentum-go/internal/indicator"
)

// ErrInvalidConfig marks an out-of-range parameter set. Fatal at
// initialization; values are never silently clamped.
var ErrInvalidConfig = errors.New("invalid strategy configuration")

// Params groups every tunable knob of the decision engine. Defaults reflect
// hourly BTC/ETH tuning; all values are overridable from YAML.
type Params struct {
	Indicator indicator.Config `yaml:"indicators"`

	RSIOversold   float64 `yaml:"rsi_oversold" validate:"gt=0,lt=100"`
	RSIOverbought float64 `yaml:"rsi_overbought" validate:"gt=0,lt=100"`

	// BBLowerTolerance widens the "near lower band" entry zone as a fraction
	// of the lower half band width.
	BBLowerTolerance float64 `yaml:"bb_lower_tolerance" validate:"gte=0,lte=1"`

	// MomentumDipTolerance is the largest negative 10-bar move still counted
	// as a shallow dip worth half credit.
	MomentumDipTolerance float64 `yaml:"momentum_dip_tolerance" validate:"gte=0"`

	// LowVolatility / ModerateVolatility bound the ATR/price ratio tiers.
	LowVolatility      float64 `yaml:"low_volatility" validate:"gt=0"`
	ModerateVolatility float64 `yaml:"moderate_volatility" validate:"gt=0"`

	MinScore float64 `yaml:"min_score" validate:"gte=0,lte=1"`

	MinPositionFraction float64 `yaml:"min_position_fraction" validate:"gt=0,lte=1"`
	MaxPositionFraction float64 `yaml:"max_position_fraction" validate:"gt=0,lte=1"`
	MinViableFraction   float64 `yaml:"min_viable_fraction" validate:"gte=0,lte=1"`
	MaxExposureFraction float64 `yaml:"max_exposure_fraction" validate:"gt=0,lte=1"`

	StopLossATRMultiplier float64   `yaml:"stop_loss_atr_multiplier" validate:"gt=0"`
	TrailingStopPct       float64   `yaml:"trailing_stop_pct" validate:"gt=0,lt=1"`
	TakeProfitLevels      []float64 `yaml:"take_profit_levels" validate:"len=3,dive,gt=0"`

	OverboughtExitMinGain float64 `yaml:"overbought_exit_min_gain" validate:"gte=0"`
	ReversalExitMaxLoss   float64 `yaml:"reversal_exit_max_loss" validate:"gte=0"`

	MaxDrawdown float64 `yaml:"max_drawdown" validate:"gt=0,lt=1"`

	// CooldownHours enforces a minimum spacing between entries. Zero disables
	// the cooldown.
	CooldownHours int `yaml:"cooldown_hours" validate:"gte=0"`
}

// DefaultParams returns the reference parameter set.
func DefaultParams() Params {
	return Params{
		Indicator:             indicator.DefaultConfig(),
		RSIOversold:           35,
		RSIOverbought:         70,
		BBLowerTolerance:      0.10,
		MomentumDipTolerance:  0.02,
		LowVolatility:         0.02,
		ModerateVolatility:    0.04,
		MinScore:              0.50,
		MinPositionFraction:   0.30,
		MaxPositionFraction:   0.55,
		MinViableFraction:     0.05,
		MaxExposureFraction:   0.70,
		StopLossATRMultiplier: 2.0,
		TrailingStopPct:       0.04,
		TakeProfitLevels:      []float64{0.05, 0.08, 0.12},
		OverboughtExitMinGain: 0.02,
		ReversalExitMaxLoss:   0.05,
		MaxDrawdown:           0.35,
		CooldownHours:         0,
	}
}

var validate = validator.New()

// Validate checks range constraints and cross-field consistency. Any failure
// is wrapped in ErrInvalidConfig.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if p.MaxPositionFraction < p.MinPositionFraction {
		return fmt.Errorf("%w: max position fraction %.2f below min %.2f",
			ErrInvalidConfig, p.MaxPositionFraction, p.MinPositionFraction)
	}
	if p.MinViableFraction > p.MinPositionFraction {
		return fmt.Errorf("%w: min viable fraction %.2f above min position fraction %.2f",
			ErrInvalidConfig, p.MinViableFraction, p.MinPositionFraction)
	}
	if p.ModerateVolatility <= p.LowVolatility {
		return fmt.Errorf("%w: moderate volatility must exceed low volatility", ErrInvalidConfig)
	}
	if p.RSIOverbought <= p.RSIOversold {
		return fmt.Errorf("%w: rsi overbought must exceed oversold", ErrInvalidConfig)
	}
	for i := 1; i < len(p.TakeProfitLevels); i++ {
		if p.TakeProfitLevels[i] <= p.TakeProfitLevels[i-1] {
			return fmt.Errorf("%w: take profit levels must be strictly increasing", ErrInvalidConfig)
		}
	}
	if p.Indicator.EMAFast >= p.Indicator.EMAMedium || p.Indicator.EMAMedium >= p.Indicator.EMASlow {
		return fmt.Errorf("%w: EMA periods must satisfy fast < medium < slow", ErrInvalidConfig)
	}
	if p.Indicator.MACDFast >= p.Indicator.MACDSlow {
		return fmt.Errorf("%w: MACD fast period must be below slow period", ErrInvalidConfig)
	}
	return nil
}
