package strategy

import (
	"errors"
	"testing"

	"lending-interest-lab/internal/domain"
)

func TestFromConfig_BelowAverage(t *testing.T) {
	s, err := FromConfig(domain.DealConfig{Entry: domain.EntryAtStart, Exit: domain.ExitOnBelowAverage})
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
	if _, ok := s.(*BelowAverageStrategy); !ok {
		t.Fatalf("expected *BelowAverageStrategy, got %T", s)
	}
}

func TestFromConfig_PercentFall(t *testing.T) {
	s, err := FromConfig(domain.DealConfig{Entry: domain.EntryAtStart, Exit: domain.ExitOnPercentFall, FallPct: 0.05})
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
	pf, ok := s.(*PercentFallStrategy)
	if !ok {
		t.Fatalf("expected *PercentFallStrategy, got %T", s)
	}
	if pf.FallPct != 0.05 {
		t.Errorf("expected 0.05, got %f", pf.FallPct)
	}
}

func TestFromConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  domain.DealConfig
		want error
	}{
		{"unknown entry", domain.DealConfig{Entry: "ENTER_LATE", Exit: domain.ExitOnBelowAverage}, ErrUnknownEntryRule},
		{"unknown exit", domain.DealConfig{Entry: domain.EntryAtStart, Exit: "NEVER"}, ErrUnknownExitRule},
		{"missing fall pct", domain.DealConfig{Entry: domain.EntryAtStart, Exit: domain.ExitOnPercentFall}, ErrInvalidFallPct},
		{"fall pct too large", domain.DealConfig{Entry: domain.EntryAtStart, Exit: domain.ExitOnPercentFall, FallPct: 1.5}, ErrInvalidFallPct},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromConfig(tt.cfg)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
