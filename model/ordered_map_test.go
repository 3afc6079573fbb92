package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderedMap_PreservesInsertionOrder(t *testing.T) {
	m := NewOrderedMap[int]()
	m.Set("z", 1)
	m.Set("a", 2)
	m.Set("m", 3)

	assert.Equal(t, []string{"z", "a", "m"}, m.Keys())
	assert.Equal(t, []int{1, 2, 3}, m.Values())
}

func TestOrderedMap_OverwriteDoesNotMovePosition(t *testing.T) {
	m := NewOrderedMap[int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("a", 99)

	assert.Equal(t, []string{"a", "b"}, m.Keys())
	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 99, v)
}

func TestOrderedMap_DeleteIsIdempotent(t *testing.T) {
	m := NewOrderedMap[int]()
	m.Set("a", 1)

	assert.True(t, m.Delete("a"))
	assert.False(t, m.Delete("a"))
	assert.Equal(t, 0, m.Len())
}

func TestOrderedMap_MarshalPreservesOrder(t *testing.T) {
	m := NewOrderedMap[int]()
	m.Set("z", 1)
	m.Set("a", 2)

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":2}`, string(b))
}

func TestOrderedMap_RoundTripsThroughJSON(t *testing.T) {
	m := NewOrderedMap[int]()
	m.Set("z", 1)
	m.Set("a", 2)
	m.Set("m", 3)

	b, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded OrderedMap[int]
	require.NoError(t, json.Unmarshal(b, &decoded))

	assert.Equal(t, m.Keys(), decoded.Keys())
	assert.Equal(t, m.Values(), decoded.Values())
}
