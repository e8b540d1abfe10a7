// Package tests holds reusable contract suites for ports implementations.
package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/livehost/pkg/domain"
	"github.com/aretw0/livehost/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StatusStoreContractTest verifies that a StatusStore implementation adheres to the
// ports.StatusStore contract.
func StatusStoreContractTest(t *testing.T, store ports.StatusStore) {
	t.Helper()
	ctx := context.Background()
	hostID := "contract-host-" + time.Now().Format("20060102150405.000000")

	t.Run("Save and Load", func(t *testing.T) {
		status := domain.Status{
			HostID:      hostID,
			State:       domain.StatePlaying,
			Module:      "main.lua",
			Digest:      "abc123",
			SessionID:   "01J0000000000000000000000",
			Generation:  3,
			Diagnostics: 2,
			UpdatedAt:   time.Now().UTC().Truncate(time.Millisecond),
		}
		require.NoError(t, store.Save(ctx, status), "Save should not return error")

		loaded, err := store.Load(ctx, hostID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, status.State, loaded.State)
		assert.Equal(t, status.Module, loaded.Module)
		assert.Equal(t, status.Generation, loaded.Generation)
		assert.Equal(t, status.Diagnostics, loaded.Diagnostics)
		assert.True(t, status.UpdatedAt.Equal(loaded.UpdatedAt))
	})

	t.Run("Save overwrites", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, domain.Status{HostID: hostID, State: domain.StateIdle}))
		loaded, err := store.Load(ctx, hostID)
		require.NoError(t, err)
		assert.Equal(t, domain.StateIdle, loaded.State)
		assert.Empty(t, loaded.Module)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+hostID)
		assert.ErrorIs(t, err, domain.ErrStatusNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, domain.Status{HostID: hostID, State: domain.StateLoaded}))
		require.NoError(t, store.Delete(ctx, hostID), "Delete should not return error")

		_, err := store.Load(ctx, hostID)
		assert.ErrorIs(t, err, domain.ErrStatusNotFound, "Load after Delete should return ErrStatusNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := hostID + "-1"
		id2 := hostID + "-2"
		require.NoError(t, store.Save(ctx, domain.Status{HostID: id1, State: domain.StateIdle}))
		require.NoError(t, store.Save(ctx, domain.Status{HostID: id2, State: domain.StateIdle}))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}

// LockerContractTest verifies mutual exclusion and release for a DistributedLocker.
func LockerContractTest(t *testing.T, locker ports.DistributedLocker) {
	t.Helper()
	ctx := context.Background()
	key := "contract-lock-" + time.Now().Format("150405.000000")

	t.Run("Lock and Unlock", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, key, 5*time.Second)
		require.NoError(t, err)
		require.NotNil(t, unlock)
		assert.NoError(t, unlock(ctx))
	})

	t.Run("Contention", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, key, 5*time.Second)
		require.NoError(t, err)

		waitCtx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(waitCtx, key, 5*time.Second)
		assert.ErrorIs(t, err, context.DeadlineExceeded, "second Lock should block while held")

		require.NoError(t, unlock(ctx))

		unlock2, err := locker.Lock(ctx, key, 5*time.Second)
		require.NoError(t, err, "Lock should succeed after release")
		assert.NoError(t, unlock2(ctx))
	})
}
