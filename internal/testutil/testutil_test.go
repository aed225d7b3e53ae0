package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedRunID_ReturnsSameID(t *testing.T) {
	gen := NewFixedRunID("run-123")
	assert.Equal(t, "run-123", gen.Generate())
	assert.Equal(t, "run-123", gen.Generate())
}

func TestFixedRunID_EmptyDefault(t *testing.T) {
	assert.Equal(t, "test-run-default", NewFixedRunID("").Generate())
}

func TestFixedRunID_ThreadSafe(t *testing.T) {
	gen := NewFixedRunID("shared")
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "shared", gen.Generate())
			}
		}()
	}
	wg.Wait()
}

func TestRegistryMatchesSchemaSQL(t *testing.T) {
	reg := Registry(t)
	assert.Equal(t, []string{"users", "orders"}, reg.Tables())

	users, err := reg.Table("users")
	require.NoError(t, err)
	assert.Len(t, users.Columns, 5)

	col, err := reg.Column("orders", "total")
	require.NoError(t, err)
	assert.Equal(t, "real", col.Type)
}
