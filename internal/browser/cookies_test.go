package browser

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJar(t *testing.T) *CookieJar {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config", "cookies.json")
	return NewCookieJar(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCookieJarRoundTrip(t *testing.T) {
	jar := testJar(t)

	saved := []playwright.Cookie{
		{
			Name:     "session-id",
			Value:    "123-4567890-1234567",
			Domain:   ".amazon.co.uk",
			Path:     "/",
			Expires:  1893456000,
			HttpOnly: true,
			Secure:   true,
			SameSite: playwright.SameSiteAttributeLax,
		},
		{
			Name:   "ubid-acbuk",
			Value:  "258-9876543-7654321",
			Domain: ".amazon.co.uk",
			Path:   "/",
		},
		{
			Name:   "other",
			Value:  "x",
			Domain: ".example.com",
			Path:   "/",
		},
	}

	require.NoError(t, jar.Save(saved))

	loaded, err := jar.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 3)

	byName := make(map[string]playwright.OptionalCookie)
	for _, c := range loaded {
		byName[c.Name] = c
	}

	sess := byName["session-id"]
	assert.Equal(t, "123-4567890-1234567", sess.Value)
	require.NotNil(t, sess.Domain)
	assert.Equal(t, ".amazon.co.uk", *sess.Domain)
	require.NotNil(t, sess.HttpOnly)
	assert.True(t, *sess.HttpOnly)

	assert.Contains(t, byName, "ubid-acbuk")
	assert.Contains(t, byName, "other")
}

func TestCookieJarMissingFile(t *testing.T) {
	jar := testJar(t)

	cookies, err := jar.Load()
	require.NoError(t, err)
	assert.Empty(t, cookies)
}

func TestCookieJarCorruptFileDeleted(t *testing.T) {
	jar := testJar(t)

	require.NoError(t, os.MkdirAll(filepath.Dir(jar.path), 0o755))
	require.NoError(t, os.WriteFile(jar.path, []byte("{broken"), 0o644))

	cookies, err := jar.Load()
	require.NoError(t, err)
	assert.Empty(t, cookies)

	_, statErr := os.Stat(jar.path)
	assert.True(t, os.IsNotExist(statErr), "corrupted jar should have been deleted")
}

func TestCookieJarSaveOverwrites(t *testing.T) {
	jar := testJar(t)

	require.NoError(t, jar.Save([]playwright.Cookie{
		{Name: "a", Value: "1", Domain: ".amazon.co.uk", Path: "/"},
		{Name: "b", Value: "2", Domain: ".amazon.co.uk", Path: "/"},
	}))
	require.NoError(t, jar.Save([]playwright.Cookie{
		{Name: "c", Value: "3", Domain: ".amazon.co.uk", Path: "/"},
	}))

	loaded, err := jar.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "c", loaded[0].Name)
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.True(t, opts.Headless)
	assert.Equal(t, "en-GB", opts.Locale)
	assert.Equal(t, "Europe/London", opts.TimezoneID)
	assert.Equal(t, 1920, opts.ViewportWidth)
	assert.Equal(t, 1080, opts.ViewportHeight)
}
