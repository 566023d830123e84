package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohnyZhand/CoraBooks"
	"github.com/JohnyZhand/CoraBooks/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	cfg.Database.Type = "memory"
	cfg.Storage.Backend = "filesystem"
	cfg.Storage.Filesystem.Path = t.TempDir()
	return cfg
}

func TestNewApp_Filesystem(t *testing.T) {
	cfg := testConfig(t)

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.blobs)

	// a random secret is generated so the store can authorize
	session, err := a.blobs.Authorize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", session.Authorization().APIURL)

	records, err := a.service.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNewApp_IntentRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Filesystem.SigningSecret = "secret"

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	result, err := a.service.CreateIntent(context.Background(), corabooks.IntentRequest{
		OriginalFilename: "dune.pdf",
		ContentType:      "application/pdf",
		Size:             10,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)

	// nothing was uploaded, so the commit reports the object as missing
	_, err = a.service.Commit(context.Background(), result.ID)
	assert.ErrorIs(t, err, corabooks.ErrObjectMissing)
}

func TestNewApp_UnsupportedBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Backend = "ftp"

	_, err := newApp(context.Background(), cfg)

	assert.Error(t, err)
}

func TestRandomSecret(t *testing.T) {
	a, err := randomSecret()
	require.NoError(t, err)
	b, err := randomSecret()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
