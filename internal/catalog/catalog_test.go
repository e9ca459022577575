package catalog

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registries(t *testing.T) map[string]Registry {
	t.Helper()
	sqlite, err := NewSQLiteRegistry(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Registry{
		"memory": NewMemoryRegistry(),
		"sqlite": sqlite,
	}
}

func TestRegistryBuiltins(t *testing.T) {
	ctx := context.Background()
	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			got, err := reg.Lookup(ctx, CodeUnfreeze)
			require.NoError(t, err)
			assert.True(t, got.Known)
			assert.Equal(t, "Unfreeze", got.Label)

			list, err := reg.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, Builtins(), list)
		})
	}
}

func TestRegistryRegister(t *testing.T) {
	ctx := context.Background()
	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			created, err := reg.Register(ctx, RequirementType{
				Code:        "asset_seizure",
				Label:       "Asset seizure",
				Description: "Seizure of safe deposit contents",
				Known:       true,
			})
			require.NoError(t, err)
			assert.False(t, created.Known, "runtime types are never compiled-in")

			got, err := reg.Lookup(ctx, "asset_seizure")
			require.NoError(t, err)
			assert.Equal(t, created, got)
			assert.False(t, got.IsUnknown())

			list, err := reg.List(ctx)
			require.NoError(t, err)
			assert.Len(t, list, len(Builtins())+1)
			assert.Equal(t, "asset_seizure", list[0].Code)
		})
	}
}

func TestRegistryErrors(t *testing.T) {
	ctx := context.Background()
	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Lookup(ctx, "missing_type")
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = reg.Register(ctx, RequirementType{Code: "Bad Code"})
			assert.ErrorIs(t, err, ErrInvalid)

			_, err = reg.Register(ctx, RequirementType{Code: CodeFreeze, Label: "Freeze again"})
			assert.ErrorIs(t, err, ErrDuplicate)

			_, err = reg.Register(ctx, RequirementType{Code: "asset_seizure"})
			require.NoError(t, err)
			_, err = reg.Register(ctx, RequirementType{Code: "asset_seizure"})
			assert.ErrorIs(t, err, ErrDuplicate)
		})
	}
}

func TestSQLiteRegistryPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	reg, err := NewSQLiteRegistry(path)
	require.NoError(t, err)
	_, err = reg.Register(ctx, RequirementType{Code: "asset_seizure", Label: "Asset seizure"})
	require.NoError(t, err)
	require.NoError(t, reg.Close())

	reopened, err := NewSQLiteRegistry(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Lookup(ctx, "asset_seizure")
	require.NoError(t, err)
	assert.Equal(t, "Asset seizure", got.Label)
}

func TestMemoryRegistryConcurrent(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = reg.Register(ctx, RequirementType{Code: "asset_seizure"})
			_, _ = reg.Lookup(ctx, "asset_seizure")
			_, _ = reg.List(ctx)
		}()
	}
	wg.Wait()

	list, err := reg.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, len(Builtins())+1)
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	got, err := Resolve(ctx, NewMemoryRegistry(), CodeTransfer)
	require.NoError(t, err)
	assert.True(t, got.Known)

	got, err = Resolve(ctx, NewMemoryRegistry(), "asset_seizure")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, Unknown("asset_seizure", ""), got)
	assert.Equal(t, "asset_seizure", got.Label)

	got, err = Resolve(ctx, nil, CodeUnknown)
	require.NoError(t, err)
	assert.True(t, got.IsUnknown())
}
