package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestKeyFor(t *testing.T) {
	k1 := KeyFor("void main() {}", "emit=asm")
	k2 := KeyFor("void main() {}", "emit=asm")
	assert.Equal(t, k1, k2)

	// source and options both participate in the key
	assert.NotEqual(t, k1, KeyFor("void main() { }", "emit=asm"))
	assert.NotEqual(t, k1, KeyFor("void main() {}", "emit=tac"))
}

func TestCache_PutGetRoundTrip(t *testing.T) {
	c, err := OpenAt(t.TempDir())
	require.NoError(t, err)

	key := KeyFor("src", "emit=asm")
	require.NoError(t, c.Put(key, &Entry{Tac: "tac text", Asm: "asm text"}))

	entry, ok, err := c.Get(key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tac text", entry.Tac)
	assert.Equal(t, "asm text", entry.Asm)
}

func TestCache_Miss(t *testing.T) {
	c, err := OpenAt(t.TempDir())
	require.NoError(t, err)

	_, ok, err := c.Get(KeyFor("never stored", ""))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_OverwriteReplaces(t *testing.T) {
	c, err := OpenAt(t.TempDir())
	require.NoError(t, err)

	key := KeyFor("src", "")
	require.NoError(t, c.Put(key, &Entry{Tac: "old"}))
	require.NoError(t, c.Put(key, &Entry{Tac: "new"}))

	entry, ok, err := c.Get(key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "new", entry.Tac)
}

func TestCache_CorruptEntryReportsError(t *testing.T) {
	dir := t.TempDir()
	c, err := OpenAt(dir)
	require.NoError(t, err)

	key := KeyFor("src", "")
	require.NoError(t, c.Put(key, &Entry{Tac: "fine"}))

	// clobber the entry on disk
	files, err := filepath.Glob(filepath.Join(dir, "*.mp"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.NoError(t, os.WriteFile(files[0], []byte("\xc1 not msgpack"), 0o644))

	_, ok, err := c.Get(key)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestCache_StaleSchemaIsMiss(t *testing.T) {
	dir := t.TempDir()
	c, err := OpenAt(dir)
	require.NoError(t, err)

	key := KeyFor("src", "")
	entry := &Entry{Tac: "body"}
	require.NoError(t, c.Put(key, entry))

	// rewrite the same entry claiming a different schema
	entry.Schema = schemaVersion + 1
	raw, err := msgpack.Marshal(entry)
	require.NoError(t, err)
	files, err := filepath.Glob(filepath.Join(dir, "*.mp"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.NoError(t, os.WriteFile(files[0], raw, 0o644))

	_, ok, err := c.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_NilCacheIsNoop(t *testing.T) {
	var c *Cache
	assert.NoError(t, c.Put(KeyFor("x", ""), &Entry{}))
	_, ok, err := c.Get(KeyFor("x", ""))
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_KeysMapToDistinctFiles(t *testing.T) {
	dir := t.TempDir()
	c, err := OpenAt(dir)
	require.NoError(t, err)

	require.NoError(t, c.Put(KeyFor("one", ""), &Entry{Tac: "1"}))
	require.NoError(t, c.Put(KeyFor("two", ""), &Entry{Tac: "2"}))

	files, err := filepath.Glob(filepath.Join(dir, "*.mp"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
