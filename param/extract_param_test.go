package param

import (
	"testing"
	"time"

	"github.com/LouYuanbo1/serpagent/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultParams(t *testing.T) *Extract {
	t.Helper()
	cfg, err := config.ParseConfig([]byte(`{}`))
	require.NoError(t, err)
	return FromConfig(cfg)
}

func TestFromConfig_Defaults(t *testing.T) {
	p := defaultParams(t)
	assert.Equal(t, 6*time.Second, p.Delay)
	assert.Equal(t, 2*time.Second, p.DelayJitter)
	assert.Equal(t, 3*time.Second, p.SettleMin)
	assert.Equal(t, 6*time.Second, p.SettleMax)
	assert.Equal(t, 10, p.MaxPAA)
	assert.Equal(t, 8, p.MaxPASF)
	assert.Equal(t, 4, p.OpenTabsLimit)
	assert.Equal(t, 800*time.Millisecond, p.TabInterval)
	assert.Equal(t, []string{".related-question-pair span"}, p.PAASelectors)
	assert.Equal(t, []string{"a.ggLgoc"}, p.PASFSelectors)
	assert.Equal(t, 1, p.Filter.MinChars)
	assert.NoError(t, p.Validate())
}

func TestSetDelaySeconds(t *testing.T) {
	p := defaultParams(t)
	p.SetDelaySeconds(7.5)
	assert.Equal(t, 7500*time.Millisecond, p.Delay)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Extract)
	}{
		{"delay too short", func(p *Extract) { p.Delay = 2 * time.Second }},
		{"delay too long", func(p *Extract) { p.Delay = 13 * time.Second }},
		{"negative jitter", func(p *Extract) { p.DelayJitter = -time.Second }},
		{"inverted settle", func(p *Extract) { p.SettleMin, p.SettleMax = 5*time.Second, time.Second }},
		{"paa too small", func(p *Extract) { p.MaxPAA = 2 }},
		{"paa too large", func(p *Extract) { p.MaxPAA = 21 }},
		{"pasf too small", func(p *Extract) { p.MaxPASF = 2 }},
		{"pasf too large", func(p *Extract) { p.MaxPASF = 16 }},
		{"no selectors", func(p *Extract) { p.PAASelectors = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := defaultParams(t)
			tt.mutate(p)
			assert.ErrorIs(t, p.Validate(), ErrInvalidParams)
		})
	}

	p := defaultParams(t)
	p.Delay, p.MaxPAA, p.MaxPASF = 12*time.Second, 20, 15
	assert.NoError(t, p.Validate())
	p.Delay, p.MaxPAA, p.MaxPASF = 3*time.Second, 3, 3
	assert.NoError(t, p.Validate())
}
