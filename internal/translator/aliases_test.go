package translator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliasRegistry(t *testing.T) {
	r := NewAliasRegistry()
	r.Add("users.name AS uname", "uname")
	r.Add("COUNT(orders.id)", "id")
	r.Add("users.name AS uname", "who")

	assert.Equal(t, 2, r.Len())
	name, ok := r.Lookup("users.name AS uname")
	assert.True(t, ok)
	assert.Equal(t, "who", name)

	_, ok = r.Lookup("users.email")
	assert.False(t, ok)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"users.name AS uname":"who","COUNT(orders.id)":"id"}`, string(data))
}

func TestAliasRegistry_Nil(t *testing.T) {
	var r *AliasRegistry
	assert.Zero(t, r.Len())
	assert.Nil(t, r.Entries())
	_, ok := r.Lookup("x")
	assert.False(t, ok)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestAliasRegistry_EntriesIsCopy(t *testing.T) {
	r := NewAliasRegistry()
	r.Add("k", "v")
	entries := r.Entries()
	entries[0].Name = "changed"

	name, _ := r.Lookup("k")
	assert.Equal(t, "v", name)
}
