package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyMapAssignsFirstSeenOrder(t *testing.T) {
	m := NewKeyMap()

	require.Equal(t, 1, m.Add("R300"))
	require.Equal(t, 2, m.Add("R301"))
	require.Equal(t, 3, m.Add("R302"))

	// Re-adding a known natural id returns the existing key.
	require.Equal(t, 2, m.Add("R301"))
	require.Equal(t, 3, m.Len())
}

func TestKeyMapLookup(t *testing.T) {
	m := NewKeyMap()
	m.Add("D200")

	key, ok := m.Lookup("D200")
	require.True(t, ok)
	require.Equal(t, 1, key)

	_, ok = m.Lookup("D999")
	require.False(t, ok)
}

func TestKeyMapNatural(t *testing.T) {
	m := NewKeyMap()
	m.Add("M400")
	m.Add("M401")

	natural, ok := m.Natural(2)
	require.True(t, ok)
	require.Equal(t, "M401", natural)

	_, ok = m.Natural(0)
	require.False(t, ok)
	_, ok = m.Natural(3)
	require.False(t, ok)
}
