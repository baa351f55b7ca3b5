package vault

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loved-api/internal/testutil"
)

func TestClientSecrets(t *testing.T) {
	addr := testutil.SetupVault(t)
	ctx := context.Background()

	client, err := NewClient(&Config{Address: addr, Token: testutil.VaultToken})
	require.NoError(t, err)

	require.NoError(t, client.Health(ctx))

	err = client.StoreSecret(ctx, "loved/osu", map[string]any{"client_secret": "s3cret"})
	require.NoError(t, err)

	secret, err := client.GetString(ctx, "loved/osu", "client_secret")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", secret)

	_, err = client.GetString(ctx, "loved/osu", "missing")
	assert.Error(t, err)

	_, err = client.GetSecret(ctx, "loved/absent")
	assert.Error(t, err)
}
