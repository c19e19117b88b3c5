package strata_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/strata"
)

func TestInstanceSetGet(t *testing.T) {
	m := userModel(t)
	inst := m.New()
	assert.Equal(t, strata.Transient, inst.State())
	assert.Same(t, m, inst.Model())

	require.NoError(t, inst.Set("name", "Alice"))
	require.NoError(t, inst.Set("age", 30))

	v, ok := inst.Get("name")
	require.True(t, ok)
	assert.Equal(t, "Alice", v)

	// Integer widths are normalized on the way in.
	v, ok = inst.Get("age")
	require.True(t, ok)
	assert.Equal(t, int64(30), v)

	_, ok = inst.Get("email")
	assert.False(t, ok)

	err := inst.Set("nope", 1)
	require.Error(t, err)
	assert.True(t, strata.IsSchemaError(err))
}

func TestInstanceUintOverflow(t *testing.T) {
	m := userModel(t)
	inst := m.New()

	// uint64 values above MaxInt64 cannot be widened without flipping sign.
	err := inst.Set("age", uint64(math.MaxInt64)+1)
	require.Error(t, err)
	assert.True(t, strata.IsSchemaError(err))
	assert.ErrorContains(t, err, "overflows int64")

	require.NoError(t, inst.Set("age", uint64(30)))
	assert.Equal(t, int64(30), inst.Int("age"))
}

func TestInstanceTypedGetters(t *testing.T) {
	m := userModel(t)
	inst := m.New()
	require.NoError(t, inst.Set("name", "Alice"))
	require.NoError(t, inst.Set("age", int32(30)))

	assert.Equal(t, "Alice", inst.String("name"))
	assert.Equal(t, int64(30), inst.Int("age"))
	assert.Zero(t, inst.Float("age"))
	assert.False(t, inst.Bool("name"))
	assert.True(t, inst.Time("name").IsZero())

	assert.False(t, inst.IsNull("name"))
	assert.True(t, inst.IsNull("email"))
	require.NoError(t, inst.Set("email", nil))
	assert.True(t, inst.IsNull("email"))
}

func TestInstancePrimaryKey(t *testing.T) {
	m := userModel(t)
	inst := m.New()
	_, ok := inst.PrimaryKey()
	assert.False(t, ok)

	require.NoError(t, inst.Set("id", 7))
	pk, ok := inst.PrimaryKey()
	require.True(t, ok)
	assert.Equal(t, int64(7), pk)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "transient", strata.Transient.String())
	assert.Equal(t, "persistent", strata.Persistent.String())
	assert.Equal(t, "deleted", strata.Deleted.String())
	assert.Equal(t, "State(9)", strata.State(9).String())
}
