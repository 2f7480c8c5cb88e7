package locales

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func flatten(prefix string, node gjson.Result, out map[string]bool) {
	node.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		if prefix != "" {
			key = prefix + "." + key
		}
		if v.IsObject() {
			flatten(key, v, out)
		} else {
			out[key] = true
		}
		return true
	})
}

func TestEmbeddedBundlesShareKeys(t *testing.T) {
	loaders := Embedded()
	require.Len(t, loaders, len(Supported))

	keys := map[string]map[string]bool{}
	for locale, load := range loaders {
		data, err := load(context.Background())
		require.NoError(t, err, locale)
		require.True(t, gjson.ValidBytes(data), locale)
		keys[locale] = map[string]bool{}
		flatten("", gjson.ParseBytes(data), keys[locale])
	}
	for _, locale := range Supported {
		assert.Equal(t, keys["en"], keys[locale], "%s must define the same keys as en", locale)
	}
}

func TestEmbeddedHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Embedded()["en"](ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pt.json"), []byte(`{"hello": "Olá"}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	loaders, err := FromDir(dir)
	require.NoError(t, err)
	require.Len(t, loaders, 1)

	data, err := loaders["pt"](context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"hello": "Olá"}`, string(data))

	merged := Merge(Embedded(), loaders)
	assert.Len(t, merged, 3)
	data, err = merged["pt"](context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"hello": "Olá"}`, string(data))
}
