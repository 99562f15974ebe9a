package strategy

import (
	"errors"
	"fmt"

	"lending-interest-lab/internal/domain"
)

// Factory errors
var (
	ErrUnknownEntryRule = errors.New("unknown deal entry rule")
	ErrUnknownExitRule  = errors.New("unknown deal exit rule")
	ErrInvalidFallPct   = errors.New("CLOSE_ON_PERCENT_FALL requires FallPct in (0, 1)")
)

// FromConfig creates a Strategy from domain.DealConfig.
// Validates required parameters per exit rule.
func FromConfig(cfg domain.DealConfig) (Strategy, error) {
	if cfg.Entry != domain.EntryAtStart {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntryRule, cfg.Entry)
	}

	switch cfg.Exit {
	case domain.ExitOnBelowAverage:
		return NewBelowAverageStrategy(), nil
	case domain.ExitOnPercentFall:
		if !(cfg.FallPct > 0 && cfg.FallPct < 1) {
			return nil, fmt.Errorf("%w: got %v", ErrInvalidFallPct, cfg.FallPct)
		}
		return NewPercentFallStrategy(cfg.FallPct), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExitRule, cfg.Exit)
	}
}
