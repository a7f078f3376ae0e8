package motion

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/skiptrack/internal/logic"
)

func TestChainSelectsFirstAvailable(t *testing.T) {
	headset := NewFakeSource("headset", []logic.Sample{{X: 1}})
	headset.AvailableError = errors.New("no motion sensor")
	phone := NewFakeSource("phone", []logic.Sample{{X: 2}})

	c := NewChain(headset, phone)
	require.NoError(t, c.Open())

	s, err := c.Read()
	require.NoError(t, err)
	assert.Equal(t, 2.0, s.X)

	st := c.State()
	assert.Equal(t, "phone", st.Active)
	assert.False(t, st.Degraded)
	assert.Equal(t, 0, st.Fallbacks)
	assert.Equal(t, "no motion sensor", st.LastError)
}

func TestChainFallsBackMidStream(t *testing.T) {
	headset := NewFakeSource("headset", []logic.Sample{{X: 1}})
	headset.FailAfter = 2
	phone := NewFakeSource("phone", []logic.Sample{{X: 2}})

	c := NewChain(headset, phone)
	require.NoError(t, c.Open())

	for i := 0; i < 2; i++ {
		s, err := c.Read()
		require.NoError(t, err)
		assert.Equal(t, 1.0, s.X)
	}

	// The failing read reports the error and switches sources.
	_, err := c.Read()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSource)
	assert.Equal(t, 1, headset.Closed)

	s, err := c.Read()
	require.NoError(t, err)
	assert.Equal(t, 2.0, s.X)

	st := c.State()
	assert.Equal(t, "phone", st.Active)
	assert.Equal(t, 1, st.Fallbacks)
}

func TestChainDegradesWhenExhausted(t *testing.T) {
	headset := NewFakeSource("headset", nil)
	headset.ReadError = errors.New("disconnected")
	phone := NewFakeSource("phone", nil)
	phone.AvailableError = errors.New("no accelerometer")

	c := NewChain(headset, phone)
	require.NoError(t, c.Open())

	_, err := c.Read()
	assert.ErrorIs(t, err, ErrNoSource)

	st := c.State()
	assert.True(t, st.Degraded)
	assert.Empty(t, st.Active)

	// Stays degraded without retrying.
	opened := headset.Opened + phone.Opened
	_, err = c.Read()
	assert.ErrorIs(t, err, ErrNoSource)
	assert.Equal(t, opened, headset.Opened+phone.Opened)
}

func TestChainNoSources(t *testing.T) {
	c := NewChain()
	assert.ErrorIs(t, c.Open(), ErrNoSource)
	assert.True(t, c.State().Degraded)
	assert.NoError(t, c.Close())
}

func TestChainResetRetriesFromTop(t *testing.T) {
	headset := NewFakeSource("headset", []logic.Sample{{X: 1}})
	headset.AvailableError = errors.New("asleep")

	c := NewChain(headset)
	assert.ErrorIs(t, c.Open(), ErrNoSource)

	headset.AvailableError = nil
	require.NoError(t, c.Reset())

	s, err := c.Read()
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.X)

	st := c.State()
	assert.False(t, st.Degraded)
	assert.Equal(t, "headset", st.Active)
	assert.Empty(t, st.LastError)
}

func TestChainReadOpensLazily(t *testing.T) {
	phone := NewFakeSource("phone", []logic.Sample{{Z: 1}})
	c := NewChain(phone)

	s, err := c.Read()
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.Z)
	assert.Equal(t, 1, phone.Opened)

	require.NoError(t, c.Close())
	assert.Equal(t, 1, phone.Closed)
	assert.Empty(t, c.State().Active)
}
