package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultPolicy verifies the baseline default values.
func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, ModeLinear, p.Mode)
	assert.Equal(t, 500*time.Millisecond, p.Initial)
	assert.Equal(t, 5*time.Second, p.Max)
	assert.Equal(t, 2, p.MaxRetries)
}

// TestNewPolicyOverrides checks override precedence and clamping when initial > max.
func TestNewPolicyOverrides(t *testing.T) {
	p := NewPolicy(ModeFixed, 5*time.Second, 2*time.Second, 5)
	assert.Equal(t, 2*time.Second, p.Initial, "initial is clamped to max")
	assert.Equal(t, 2*time.Second, p.Max)
	assert.Equal(t, ModeFixed, p.Mode)
	assert.Equal(t, 5, p.MaxRetries)

	assert.Equal(t, 0, NewPolicy("", 0, 0, 0).MaxRetries)
	assert.Equal(t, ModeExponential, NewPolicy(" Exponential ", 0, 0, 1).Mode)
}

func TestDelayModes(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		want   []time.Duration
	}{
		{
			name:   "fixed",
			policy: NewPolicy(ModeFixed, 100*time.Millisecond, 500*time.Millisecond, 3),
			want:   []time.Duration{100 * time.Millisecond, 100 * time.Millisecond, 100 * time.Millisecond},
		},
		{
			name:   "linear caps at max",
			policy: NewPolicy(ModeLinear, 100*time.Millisecond, 250*time.Millisecond, 5),
			want:   []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 250 * time.Millisecond, 250 * time.Millisecond},
		},
		{
			name:   "exponential caps at max",
			policy: NewPolicy(ModeExponential, 50*time.Millisecond, 160*time.Millisecond, 5),
			want:   []time.Duration{50 * time.Millisecond, 100 * time.Millisecond, 160 * time.Millisecond, 160 * time.Millisecond},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, want := range tt.want {
				assert.Equal(t, want, tt.policy.Delay(i+1), "attempt %d", i+1)
			}
		})
	}
}

// TestDelayEdgeCases ensures non-positive attempts yield zero and large ones don't overflow.
func TestDelayEdgeCases(t *testing.T) {
	p := NewPolicy(ModeLinear, 10*time.Millisecond, 20*time.Millisecond, 1)
	assert.Zero(t, p.Delay(0))
	assert.Zero(t, p.Delay(-1))

	exp := NewPolicy(ModeExponential, time.Second, time.Minute, 1)
	assert.Equal(t, time.Minute, exp.Delay(80))
}

func TestValidate(t *testing.T) {
	assert.Error(t, Policy{Mode: ModeLinear, Initial: 0, Max: time.Second, MaxRetries: 1}.Validate())
	assert.Error(t, Policy{Mode: ModeLinear, Initial: time.Second, Max: 0, MaxRetries: 1}.Validate())
	assert.Error(t, Policy{Mode: ModeLinear, Initial: time.Second, Max: 2 * time.Second, MaxRetries: -1}.Validate())
	assert.NoError(t, Policy{Mode: ModeLinear, Initial: time.Second, Max: 2 * time.Second}.Validate())
}

// TestUnknownModeFallsBack leaves mode default when unknown string supplied.
func TestUnknownModeFallsBack(t *testing.T) {
	p := NewPolicy("weird", 250*time.Millisecond, 500*time.Millisecond, 1)
	assert.Equal(t, ModeLinear, p.Mode)

	_, err := ParseMode("weird")
	assert.Error(t, err)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	p := NewPolicy(ModeFixed, time.Millisecond, time.Millisecond, 3)
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoReturnsLastError(t *testing.T) {
	p := NewPolicy(ModeFixed, time.Millisecond, time.Millisecond, 2)
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("down")
	})
	require.EqualError(t, err, "down")
	assert.Equal(t, 3, calls, "first attempt plus two retries")
}

func TestDoStopsWhenContextEnds(t *testing.T) {
	p := NewPolicy(ModeFixed, time.Hour, time.Hour, 5)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := p.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("down")
	})
	require.EqualError(t, err, "down")
	assert.Equal(t, 1, calls)
}
