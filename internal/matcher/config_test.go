package matcher

import (
	"testing"
	"time"
)

func TestDefaultMatchingConfig(t *testing.T) {
	config := DefaultMatchingConfig()

	if err := config.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
	if config.TolerancePercent != 2.0 {
		t.Errorf("expected tolerance 2.0, got %f", config.TolerancePercent)
	}
	if config.DateToleranceDays != 30 {
		t.Errorf("expected date tolerance 30, got %d", config.DateToleranceDays)
	}
	if config.ChunkSize != 100 {
		t.Errorf("expected chunk size 100, got %d", config.ChunkSize)
	}
	if config.SkipLineItems {
		t.Error("expected line items enabled by default")
	}
}

func TestPresetConfigsAreValid(t *testing.T) {
	presets := map[string]*MatchingConfig{
		"default": DefaultMatchingConfig(),
		"strict":  StrictMatchingConfig(),
		"relaxed": RelaxedMatchingConfig(),
	}

	for name, config := range presets {
		if err := config.Validate(); err != nil {
			t.Errorf("%s config should be valid: %v", name, err)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*MatchingConfig)
		expectErr bool
	}{
		{"valid default", func(c *MatchingConfig) {}, false},
		{"negative tolerance", func(c *MatchingConfig) { c.TolerancePercent = -1 }, true},
		{"tolerance above fifty", func(c *MatchingConfig) { c.TolerancePercent = 50.1 }, true},
		{"tolerance at fifty", func(c *MatchingConfig) { c.TolerancePercent = 50.0 }, false},
		{"zero tolerance", func(c *MatchingConfig) { c.TolerancePercent = 0 }, false},
		{"negative date tolerance", func(c *MatchingConfig) { c.DateToleranceDays = -1 }, true},
		{"date tolerance above year", func(c *MatchingConfig) { c.DateToleranceDays = 366 }, true},
		{"zero date tolerance", func(c *MatchingConfig) { c.DateToleranceDays = 0 }, false},
		{"chunk size too small", func(c *MatchingConfig) { c.ChunkSize = 4 }, true},
		{"chunk size minimum", func(c *MatchingConfig) { c.ChunkSize = 5 }, false},
		{"chunk size too large", func(c *MatchingConfig) { c.ChunkSize = 501 }, true},
		{"chunk size maximum", func(c *MatchingConfig) { c.ChunkSize = 500 }, false},
		{"similarity floor above one", func(c *MatchingConfig) { c.DescriptionSimilarityFloor = 1.1 }, true},
		{"match threshold negative", func(c *MatchingConfig) { c.DescriptionMatchThreshold = -0.1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultMatchingConfig()
			tt.modify(config)

			err := config.Validate()
			if tt.expectErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestConfigClone(t *testing.T) {
	original := DefaultMatchingConfig()
	clone := original.Clone()

	clone.TolerancePercent = 10.0
	clone.SkipLineItems = true

	if original.TolerancePercent != 2.0 {
		t.Error("modifying clone changed the original tolerance")
	}
	if original.SkipLineItems {
		t.Error("modifying clone changed the original skip flag")
	}

	var nilConfig *MatchingConfig
	if nilConfig.Clone() != nil {
		t.Error("expected nil clone of nil config")
	}
}

func TestIsWithinDateTolerance(t *testing.T) {
	config := DefaultMatchingConfig()
	config.DateToleranceDays = 5

	base := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		invoice time.Time
		receipt time.Time
		expect  bool
	}{
		{"same day", base, base, true},
		{"invoice after within tolerance", base.AddDate(0, 0, 3), base, true},
		{"invoice before within tolerance", base.AddDate(0, 0, -3), base, true},
		{"at boundary", base.AddDate(0, 0, 5), base, true},
		{"past boundary", base.AddDate(0, 0, 6), base, false},
		{"time of day ignored", base.Add(23 * time.Hour), base, true},
		{"missing invoice date passes", time.Time{}, base, true},
		{"missing receipt date passes", base, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := config.IsWithinDateTolerance(tt.invoice, tt.receipt); got != tt.expect {
				t.Errorf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestZeroDateToleranceRequiresSameDay(t *testing.T) {
	config := DefaultMatchingConfig()
	config.DateToleranceDays = 0

	day := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	if !config.IsWithinDateTolerance(day, day.Add(8*time.Hour)) {
		t.Error("expected same calendar day to pass with zero tolerance")
	}
	if config.IsWithinDateTolerance(day, day.AddDate(0, 0, 1)) {
		t.Error("expected next day to fail with zero tolerance")
	}
}
