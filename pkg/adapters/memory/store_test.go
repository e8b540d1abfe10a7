package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/livehost/pkg/adapters/memory"
	"github.com/aretw0/livehost/pkg/domain"
	"github.com/aretw0/livehost/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	tests.StatusStoreContractTest(t, memory.NewStore())
}

func TestMemoryLocker_Contract(t *testing.T) {
	tests.LockerContractTest(t, memory.NewLocker())
}

func TestMemoryStore_ListIsSorted(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, store.Save(ctx, domain.Status{HostID: id}))
	}
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestMemoryLocker_TTLReleases(t *testing.T) {
	locker := memory.NewLocker()
	ctx := context.Background()

	_, err := locker.Lock(ctx, "host", 30*time.Millisecond)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	unlock, err := locker.Lock(waitCtx, "host", 0)
	require.NoError(t, err, "expired lock should be reacquirable")
	assert.NoError(t, unlock(ctx))
	assert.NoError(t, unlock(ctx), "unlock is idempotent")
}
