package pricing

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuepass/pkg/money"
)

const samplePolicy = `
default:
  - name: shoulder
    priority: 1
    start_hour: 17
    end_hour: 22
    multiplier: 1.2
  - name: new-years-eve
    priority: 10
    start_date: 2025-12-31T00:00:00Z
    end_date: 2025-12-31T23:59:59Z
    multiplier: 1.5
    floor_price: 250
    ceiling_price: 400
venues:
  7a4c1e0e-0d43-4bd4-9f0b-5b0c35d3b8a1:
    - name: sellout
      priority: 5
      min_utilization: 0.9
      multiplier: 1.4
      days_of_week: [5, 6]
`

func TestParsePolicy(t *testing.T) {
	policy, err := ParsePolicy([]byte(samplePolicy))
	require.NoError(t, err)

	assert.Equal(t, 2, policy.Default.Len())
	defaults := policy.Default.Rules()
	assert.Equal(t, money.MustParseRatio("1.5"), defaults[1].Multiplier)
	require.NotNil(t, defaults[1].FloorPrice)
	assert.Equal(t, money.FromUnits(250), *defaults[1].FloorPrice)

	ctx := mustContext(t, time.Date(2025, 12, 31, 20, 0, 0, 0, time.UTC), 400, 320, "200")
	assert.Equal(t, money.FromUnits(300), Price(ctx, policy.RulesFor("unknown-venue")))

	venue := policy.RulesFor("7a4c1e0e-0d43-4bd4-9f0b-5b0c35d3b8a1").Rules()
	require.Len(t, venue, 1)
	assert.Equal(t, []time.Weekday{time.Friday, time.Saturday}, venue[0].DaysOfWeek)
	require.NotNil(t, venue[0].MinUtilization)
	assert.InDelta(t, 0.9, *venue[0].MinUtilization, 1e-9)
}

func TestParsePolicy_RejectsInvalidRule(t *testing.T) {
	doc := `
default:
  - name: broken
    multiplier: 1.1
    floor_price: 500
    ceiling_price: 100
`
	_, err := ParsePolicy([]byte(doc))
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = ParsePolicy([]byte("default:\n  - name: x\n    multiplier: 1.23456\n"))
	assert.ErrorIs(t, err, money.ErrTooPrecise)
}

func TestLoadPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(samplePolicy), 0o600))

	policy, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, 2, policy.RulesFor("").Len())

	_, err = LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRulesFor_NilPolicy(t *testing.T) {
	var policy *Policy
	assert.True(t, policy.RulesFor("any").IsEmpty())
}
