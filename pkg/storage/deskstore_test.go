package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokendesk/tokendesk/pkg/desk"
)

func TestSaveLoadOrders(t *testing.T) {
	s, err := NewDeskStore(t.TempDir() + "/desk")
	require.NoError(t, err)
	defer s.Close()

	orders := []desk.Order{
		{Price: 100, Amount: 2000},
		{Price: 200, Amount: 0},
		{Price: 300, Amount: 6000},
	}
	require.NoError(t, s.SaveOrders(orders))

	got, err := s.LoadOrders()
	require.NoError(t, err)
	assert.Equal(t, orders, got)

	// Later snapshots fully replace earlier ones.
	require.NoError(t, s.SaveOrders(orders[:1]))
	got, err = s.LoadOrders()
	require.NoError(t, err)
	assert.Equal(t, orders[:1], got)
}

func TestLoadOrdersEmpty(t *testing.T) {
	s, err := NewDeskStore(t.TempDir() + "/desk")
	require.NoError(t, err)
	defer s.Close()

	got, err := s.LoadOrders()
	require.NoError(t, err)
	assert.Nil(t, got)
}
