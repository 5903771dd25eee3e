package history

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetThenGet(t *testing.T) {
	store, err := Open(nil, t.TempDir())
	require.NoError(t, err)

	require.Zero(t, store.Get("Movies/a.mp4"))
	require.NoError(t, store.Set("Movies/a.mp4", 42000))
	require.Equal(t, int64(42000), store.Get("Movies/a.mp4"))
	require.NoError(t, store.Set("Movies/a.mp4", 0))
	require.Zero(t, store.Get("Movies/a.mp4"))
}

func TestPersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(nil, dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("Movies/a.mp4", 1000))
	require.NoError(t, store.Set("Shows/b.mkv", 2000))
	require.NoError(t, store.Set("root.mp4", 3000))

	reopened, err := Open(nil, dir)
	require.NoError(t, err)
	require.Equal(t, int64(1000), reopened.Get("Movies/a.mp4"))
	require.Equal(t, int64(2000), reopened.Get("Shows/b.mkv"))
	require.Equal(t, int64(3000), reopened.Get("root.mp4"))
	require.Len(t, reopened.All(), 3)

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	require.Len(t, files, 3)
}

func TestDistinctShardsDoNotCollide(t *testing.T) {
	store, err := Open(nil, t.TempDir())
	require.NoError(t, err)
	require.NotEqual(t, ShardName(GroupKey("A/x.mp4")), ShardName(GroupKey("B/x.mp4")))

	require.NoError(t, store.Set("A/x.mp4", 10))
	require.NoError(t, store.Set("B/x.mp4", 20))
	require.Equal(t, int64(10), store.Get("A/x.mp4"))
	require.Equal(t, int64(20), store.Get("B/x.mp4"))
}

func TestCorruptShardIsScoped(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(nil, dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("A/x.mp4", 10))
	require.NoError(t, store.Set("A/y.mp4", 11))
	require.NoError(t, store.Set("B/z.mp4", 20))

	corrupt := filepath.Join(dir, ShardName("A")+".json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o600))

	reopened, err := Open(nil, dir)
	require.NoError(t, err)
	require.Zero(t, reopened.Get("A/x.mp4"))
	require.Zero(t, reopened.Get("A/y.mp4"))
	require.Equal(t, int64(20), reopened.Get("B/z.mp4"))

	require.NoError(t, reopened.Set("A/x.mp4", 5))
	require.Equal(t, int64(5), reopened.Get("A/x.mp4"))
}

func TestEmptyShardDocumentsStartEmpty(t *testing.T) {
	for _, doc := range []string{"null", "[]"} {
		dir := t.TempDir()
		shardFile := filepath.Join(dir, ShardName(GroupKey("Movies/a.mkv"))+".json")
		require.NoError(t, os.WriteFile(shardFile, []byte(doc), 0o600), doc)

		store, err := Open(nil, dir)
		require.NoError(t, err, doc)
		require.Zero(t, store.Get("Movies/a.mkv"), doc)
		require.NoError(t, store.Set("Movies/a.mkv", 10), doc)
		require.Equal(t, int64(10), store.Get("Movies/a.mkv"), doc)
	}
}

func TestFailedWriteKeepsPreviousOffset(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(nil, dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("Movies/a.mkv", 1000))

	// A directory in place of the shard file makes the rename fail.
	shardFile := filepath.Join(dir, ShardName(GroupKey("Movies/a.mkv"))+".json")
	require.NoError(t, os.Remove(shardFile))
	require.NoError(t, os.Mkdir(shardFile, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(shardFile, "keep"), nil, 0o600))

	require.Error(t, store.Set("Movies/a.mkv", 2000))
	require.Equal(t, int64(1000), store.Get("Movies/a.mkv"))
	require.Error(t, store.Set("Movies/b.mkv", 3000))
	require.Zero(t, store.Get("Movies/b.mkv"))
	require.Len(t, store.All(), 1)
}

func TestConcurrentSetsOnOneShard(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(nil, dir)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Set(filepath.ToSlash(filepath.Join("F", string(rune('a'+i))+".mp4")), int64(i))
		}(i)
	}
	wg.Wait()

	reopened, err := Open(nil, dir)
	require.NoError(t, err)
	require.Len(t, reopened.All(), 20)
}

func TestGroupKey(t *testing.T) {
	require.Equal(t, ".", GroupKey("a.mp4"))
	require.Equal(t, "x/y", GroupKey("x/y/a.mp4"))
}
