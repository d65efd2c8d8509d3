package docstore_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shotlist/internal/docstore"
)

func TestKeyPath(t *testing.T) {
	assert.Equal(t, "users/u1/lists/tasks", docstore.KeyPath{"users", "u1", "lists", "tasks"}.String())

	tests := []struct {
		name    string
		kp      docstore.KeyPath
		wantErr bool
	}{
		{name: "valid", kp: docstore.KeyPath{"templates", "tasks"}, wantErr: false},
		{name: "empty path", kp: docstore.KeyPath{}, wantErr: true},
		{name: "empty segment", kp: docstore.KeyPath{"users", ""}, wantErr: true},
		{name: "separator in segment", kp: docstore.KeyPath{"users/u1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.kp.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMemoryReadWriteDelete(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	kp := docstore.KeyPath{"users", "u1", "lists", "tasks"}

	_, err := store.Read(ctx, kp)
	assert.ErrorIs(t, err, docstore.ErrNotExist)

	require.NoError(t, store.Write(ctx, kp, json.RawMessage(`{"a":1}`), false))

	doc, err := store.Read(ctx, kp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(doc))

	require.NoError(t, store.Delete(ctx, kp))
	_, err = store.Read(ctx, kp)
	assert.ErrorIs(t, err, docstore.ErrNotExist)

	// Deleting an absent document is a no-op.
	assert.NoError(t, store.Delete(ctx, kp))
}

func TestMemoryMergeWrite(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	kp := docstore.KeyPath{"templates", "kit"}

	require.NoError(t, store.Write(ctx, kp,
		json.RawMessage(`{"config":{"id":"l1","version":1},"items":[{"id":"i1"}]}`), false))
	require.NoError(t, store.Write(ctx, kp,
		json.RawMessage(`{"config":{"version":2},"items":[{"id":"i2"}]}`), true))

	doc, err := store.Read(ctx, kp)
	require.NoError(t, err)

	// Nested objects merge key-by-key; arrays are replaced wholesale.
	assert.JSONEq(t, `{"config":{"id":"l1","version":2},"items":[{"id":"i2"}]}`, string(doc))
}

func TestMemoryMergeWriteOnAbsentDocument(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	kp := docstore.KeyPath{"templates", "tasks"}

	require.NoError(t, store.Write(ctx, kp, json.RawMessage(`{"a":1}`), true))

	doc, err := store.Read(ctx, kp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(doc))
}

func TestMemorySubscribe(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	kp := docstore.KeyPath{"projects", "p1", "lists", "vendors"}

	var snapshots []json.RawMessage
	unsubscribe, err := store.Subscribe(ctx, kp,
		func(doc json.RawMessage) { snapshots = append(snapshots, doc) },
		func(err error) { t.Errorf("unexpected subscription error: %v", err) })
	require.NoError(t, err)
	defer unsubscribe()

	// Initial snapshot is delivered synchronously; absence is nil.
	require.Len(t, snapshots, 1)
	assert.Nil(t, snapshots[0])

	require.NoError(t, store.Write(ctx, kp, json.RawMessage(`{"v":1}`), false))
	require.Len(t, snapshots, 2)
	assert.JSONEq(t, `{"v":1}`, string(snapshots[1]))

	require.NoError(t, store.Delete(ctx, kp))
	require.Len(t, snapshots, 3)
	assert.Nil(t, snapshots[2])
}

func TestMemorySubscribeInitialSnapshotOfExistingDoc(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	kp := docstore.KeyPath{"templates", "tasks"}
	require.NoError(t, store.Write(ctx, kp, json.RawMessage(`{"v":1}`), false))

	var got json.RawMessage
	unsubscribe, err := store.Subscribe(ctx, kp,
		func(doc json.RawMessage) { got = doc },
		func(err error) {})
	require.NoError(t, err)
	defer unsubscribe()

	assert.JSONEq(t, `{"v":1}`, string(got))
}

func TestMemoryUnsubscribeStopsDelivery(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	kp := docstore.KeyPath{"templates", "tasks"}

	count := 0
	unsubscribe, err := store.Subscribe(ctx, kp,
		func(doc json.RawMessage) { count++ },
		func(err error) {})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	unsubscribe()
	require.NoError(t, store.Write(ctx, kp, json.RawMessage(`{"v":1}`), false))
	assert.Equal(t, 1, count)
}

func TestMemorySubscribersAreScopedToPath(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()

	count := 0
	unsubscribe, err := store.Subscribe(ctx, docstore.KeyPath{"users", "u1", "lists", "tasks"},
		func(doc json.RawMessage) { count++ },
		func(err error) {})
	require.NoError(t, err)
	defer unsubscribe()
	require.Equal(t, 1, count)

	require.NoError(t, store.Write(ctx, docstore.KeyPath{"users", "u2", "lists", "tasks"},
		json.RawMessage(`{"v":1}`), false))
	assert.Equal(t, 1, count, "writes to other paths must not be delivered")
}

func TestMemoryReadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	kp := docstore.KeyPath{"templates", "tasks"}
	require.NoError(t, store.Write(ctx, kp, json.RawMessage(`{"v":1}`), false))

	doc, err := store.Read(ctx, kp)
	require.NoError(t, err)
	doc[0] = 'X'

	again, err := store.Read(ctx, kp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(again), "caller mutations must not corrupt the store")
}

func TestMemoryRejectsInvalidKeyPath(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()

	_, err := store.Read(ctx, docstore.KeyPath{})
	assert.Error(t, err)
	assert.Error(t, store.Write(ctx, docstore.KeyPath{""}, json.RawMessage(`{}`), false))
	assert.Error(t, store.Delete(ctx, docstore.KeyPath{"a/b"}))
}

func TestMemoryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := docstore.NewMemory()
	kp := docstore.KeyPath{"templates", "tasks"}

	_, err := store.Read(ctx, kp)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Write(ctx, kp, json.RawMessage(`{}`), false), context.Canceled)
}
