package navigation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pokedex/models"
	"github.com/use-agent/pokedex/session/sessiontest"
)

const target = "https://pokedex.test/pokedex/all"

func newPage(t *testing.T, b sessiontest.Behavior) Page {
	t.Helper()
	s, err := sessiontest.NewManager(b).Acquire(context.Background())
	require.NoError(t, err)
	return s
}

func TestGoTo_Ready(t *testing.T) {
	tests := []struct {
		name  string
		b     sessiontest.Behavior
		ready models.ReadinessCondition
	}{
		{"both", sessiontest.Behavior{SettleDelay: 10 * time.Millisecond}, models.Both("table#pokedex")},
		{"selector only ignores settling", sessiontest.Behavior{NeverSettle: true}, models.SelectorPresent("table#pokedex")},
		{"settled only ignores selector", sessiontest.Behavior{SelectorMissing: true}, models.NavigationSettled()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(time.Second)
			err := c.GoTo(context.Background(), newPage(t, tt.b), target, tt.ready)
			assert.NoError(t, err)
		})
	}
}

func TestGoTo_ReadinessNeverTrue(t *testing.T) {
	tests := []struct {
		name  string
		b     sessiontest.Behavior
		ready models.ReadinessCondition
	}{
		{"selector missing", sessiontest.Behavior{SelectorMissing: true}, models.SelectorPresent("table#pokedex")},
		{"never settles", sessiontest.Behavior{NeverSettle: true}, models.NavigationSettled()},
		{"both needs both", sessiontest.Behavior{NeverSettle: true}, models.Both("table#pokedex")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(50 * time.Millisecond)

			start := time.Now()
			err := c.GoTo(context.Background(), newPage(t, tt.b), target, tt.ready)

			require.Error(t, err)
			assert.True(t, models.HasCode(err, models.ErrCodeNavigationTimeout), err.Error())
			assert.Less(t, time.Since(start), 2*time.Second)
		})
	}
}

func TestGoTo_NavigationErrorCancelsWaits(t *testing.T) {
	dnsErr := errors.New("net::ERR_NAME_NOT_RESOLVED")
	c := NewController(10 * time.Second)

	start := time.Now()
	err := c.GoTo(context.Background(),
		newPage(t, sessiontest.Behavior{NavigateErr: dnsErr, NeverSettle: true, SelectorMissing: true}),
		target, models.Both("table#pokedex"))

	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.ErrCodeNavigation))
	assert.ErrorIs(t, err, dnsErr)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestGoTo_CallerCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewController(time.Second).GoTo(ctx,
		newPage(t, sessiontest.Behavior{NeverSettle: true}), target, models.NavigationSettled())

	require.Error(t, err)
	pe := models.AsPipelineError(err)
	assert.Equal(t, models.ErrCodeNavigationTimeout, pe.Code)
	assert.Equal(t, "request canceled", pe.Message)
}

func TestNewController_DefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, NewController(0).Timeout())
}
