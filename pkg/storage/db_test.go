package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getDBImplementations(t *testing.T) []ServiceStorage {
	return []ServiceStorage{
		setupMemoryDB(t),
		setupBoltDB(t),
		setupRedisDB(t),
	}
}

func setupMemoryDB(t *testing.T) ServiceStorage {
	db, err := NewStorage(Memory)
	require.NoError(t, err)
	return db
}

func setupBoltDB(t *testing.T) ServiceStorage {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := NewStorage(Bolt, Option{ID: BoltFilePathOption, Option: path})
	require.NoError(t, err)
	require.NotEmpty(t, db)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func setupRedisDB(t *testing.T) ServiceStorage {
	server := miniredis.RunT(t)
	db, err := NewStorage(Redis,
		Option{ID: RedisAddressOption, Option: server.Addr()},
		Option{ID: RedisPasswordOption, Option: ""},
	)
	require.NoError(t, err)
	require.NotEmpty(t, db)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func TestStorageAvailability(t *testing.T) {
	assert.True(t, IsStorageAvailable(Memory))
	assert.True(t, IsStorageAvailable(Bolt))
	assert.True(t, IsStorageAvailable(Redis))
	assert.False(t, IsStorageAvailable("mongo"))

	db, err := NewStorage("mongo")
	assert.Error(t, err)
	assert.Nil(t, db)
}

func TestReadWrite(t *testing.T) {
	ctx := context.Background()
	for _, db := range getDBImplementations(t) {
		t.Run(string(db.Type()), func(t *testing.T) {
			namespace := "credentials"

			// absent key reads as nil without error
			value, err := db.Read(ctx, namespace, "missing")
			assert.NoError(t, err)
			assert.Nil(t, value)

			err = db.Write(ctx, namespace, "id-1", []byte("one"))
			assert.NoError(t, err)

			value, err = db.Read(ctx, namespace, "id-1")
			assert.NoError(t, err)
			assert.Equal(t, []byte("one"), value)

			// overwrite
			err = db.Write(ctx, namespace, "id-1", []byte("uno"))
			assert.NoError(t, err)
			value, err = db.Read(ctx, namespace, "id-1")
			assert.NoError(t, err)
			assert.Equal(t, []byte("uno"), value)

			// validation
			assert.Error(t, db.Write(ctx, "", "id", []byte("x")))
			assert.Error(t, db.Write(ctx, namespace, "", []byte("x")))
		})
	}
}

func TestWriteIfAbsent(t *testing.T) {
	ctx := context.Background()
	for _, db := range getDBImplementations(t) {
		t.Run(string(db.Type()), func(t *testing.T) {
			namespace := "conditional"

			written, err := db.WriteIfAbsent(ctx, namespace, "key", []byte("first"))
			assert.NoError(t, err)
			assert.True(t, written)

			written, err = db.WriteIfAbsent(ctx, namespace, "key", []byte("second"))
			assert.NoError(t, err)
			assert.False(t, written)

			// the first write is untouched
			value, err := db.Read(ctx, namespace, "key")
			assert.NoError(t, err)
			assert.Equal(t, []byte("first"), value)
		})
	}
}

func TestWriteIfAbsentConcurrent(t *testing.T) {
	ctx := context.Background()
	for _, db := range getDBImplementations(t) {
		t.Run(string(db.Type()), func(t *testing.T) {
			const writers = 16
			var wins int
			var mu sync.Mutex
			var wg sync.WaitGroup
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					written, err := db.WriteIfAbsent(ctx, "race", "key", []byte("v"))
					assert.NoError(t, err)
					if written {
						mu.Lock()
						wins++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, 1, wins)
		})
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	for _, db := range getDBImplementations(t) {
		t.Run(string(db.Type()), func(t *testing.T) {
			namespace := "deletion"
			require.NoError(t, db.Write(ctx, namespace, "key", []byte("v")))

			assert.NoError(t, db.Delete(ctx, namespace, "key"))
			value, err := db.Read(ctx, namespace, "key")
			assert.NoError(t, err)
			assert.Nil(t, value)

			// deleting an absent key is not an error
			assert.NoError(t, db.Delete(ctx, namespace, "key"))
		})
	}
}

func TestReadAll(t *testing.T) {
	ctx := context.Background()
	for _, db := range getDBImplementations(t) {
		t.Run(string(db.Type()), func(t *testing.T) {
			namespace := "bulk"
			require.NoError(t, db.Write(ctx, namespace, "a", []byte("1")))
			require.NoError(t, db.Write(ctx, namespace, "b", []byte("2")))
			require.NoError(t, db.AddToSet(ctx, namespace, "members", "a"))

			all, err := db.ReadAll(ctx, namespace)
			assert.NoError(t, err)
			assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, all)
		})
	}
}

func TestSetOperations(t *testing.T) {
	ctx := context.Background()
	for _, db := range getDBImplementations(t) {
		t.Run(string(db.Type()), func(t *testing.T) {
			namespace := "sets"
			setKey := "linked"

			members, err := db.SetMembers(ctx, namespace, setKey)
			assert.NoError(t, err)
			assert.Empty(t, members)

			require.NoError(t, db.AddToSet(ctx, namespace, setKey, "c"))
			require.NoError(t, db.AddToSet(ctx, namespace, setKey, "a"))
			require.NoError(t, db.AddToSet(ctx, namespace, setKey, "b"))
			// duplicate adds are no-ops
			require.NoError(t, db.AddToSet(ctx, namespace, setKey, "a"))

			members, err = db.SetMembers(ctx, namespace, setKey)
			assert.NoError(t, err)
			assert.Equal(t, []string{"c", "a", "b"}, members)

			require.NoError(t, db.RemoveFromSet(ctx, namespace, setKey, "a"))
			members, err = db.SetMembers(ctx, namespace, setKey)
			assert.NoError(t, err)
			assert.Equal(t, []string{"c", "b"}, members)

			// removed members can be re-added, at the end
			require.NoError(t, db.AddToSet(ctx, namespace, setKey, "a"))
			members, err = db.SetMembers(ctx, namespace, setKey)
			assert.NoError(t, err)
			assert.Equal(t, []string{"c", "b", "a"}, members)

			require.NoError(t, db.ClearSet(ctx, namespace, setKey))
			members, err = db.SetMembers(ctx, namespace, setKey)
			assert.NoError(t, err)
			assert.Empty(t, members)
		})
	}
}

func TestReplaceAll(t *testing.T) {
	ctx := context.Background()
	for _, db := range getDBImplementations(t) {
		t.Run(string(db.Type()), func(t *testing.T) {
			namespace := "sync"
			setKey := "linked"
			require.NoError(t, db.Write(ctx, namespace, "old", []byte("stale")))
			require.NoError(t, db.AddToSet(ctx, namespace, setKey, "old"))

			entries := []SetEntry{
				{Member: "x", Value: []byte("1")},
				{Member: "y", Value: []byte("2")},
			}
			require.NoError(t, db.ReplaceAll(ctx, namespace, setKey, entries))

			value, err := db.Read(ctx, namespace, "old")
			assert.NoError(t, err)
			assert.Nil(t, value)

			members, err := db.SetMembers(ctx, namespace, setKey)
			assert.NoError(t, err)
			assert.Equal(t, []string{"x", "y"}, members)

			value, err = db.Read(ctx, namespace, "x")
			assert.NoError(t, err)
			assert.Equal(t, []byte("1"), value)
		})
	}
}

func TestDeleteNamespace(t *testing.T) {
	ctx := context.Background()
	for _, db := range getDBImplementations(t) {
		t.Run(string(db.Type()), func(t *testing.T) {
			namespace := "wipe"
			require.NoError(t, db.Write(ctx, namespace, "key", []byte("v")))
			require.NoError(t, db.DeleteNamespace(ctx, namespace))

			value, err := db.Read(ctx, namespace, "key")
			assert.NoError(t, err)
			assert.Nil(t, value)
		})
	}
}
