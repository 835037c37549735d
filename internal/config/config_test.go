package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSanityEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SANITY_API_VERSION", "2025-02-01")
	t.Setenv("SANITY_DATASET", "production")
	t.Setenv("SANITY_PROJECT_ID", "proj1")
	t.Setenv("SANITY_API_TOKEN", "tok")
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
}

func TestLoad_Defaults(t *testing.T) {
	setSanityEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, BackendSanity, cfg.StoreBackend)
	assert.Equal(t, "2025-02-01", cfg.Sanity.APIVersion)
	assert.Equal(t, "production", cfg.Sanity.Dataset)
	assert.Equal(t, "proj1", cfg.Sanity.ProjectID)
	assert.Equal(t, 30*time.Second, cfg.Sanity.Timeout)
	assert.Equal(t, "orders", cfg.Dynamo.OrdersTable)
	assert.Equal(t, "products", cfg.Dynamo.ProductsTable)
	assert.Equal(t, 12*time.Hour, cfg.Redis.SessionTTL)
	assert.True(t, cfg.SerializeMutations)
	assert.False(t, cfg.RunLocal)
}

func TestLoad_MissingSanityValues(t *testing.T) {
	for _, name := range []string{"SANITY_API_VERSION", "SANITY_DATASET", "SANITY_PROJECT_ID", "SANITY_API_TOKEN"} {
		t.Run(name, func(t *testing.T) {
			setSanityEnv(t)
			t.Setenv(name, "")

			_, err := Load()
			require.ErrorIs(t, err, ErrMissingEnv)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestLoad_DynamoBackendSkipsSanityValues(t *testing.T) {
	t.Setenv("STORE_BACKEND", BackendDynamoDB)
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("ORDERS_TABLE", "shop-orders")
	t.Setenv("SERIALIZE_MUTATIONS", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "shop-orders", cfg.Dynamo.OrdersTable)
	assert.False(t, cfg.SerializeMutations)
}

func TestValidate(t *testing.T) {
	cfg := &Config{StoreBackend: "mongo", Auth: AuthConfig{JWTSecret: "x"}}
	assert.Error(t, cfg.Validate())

	cfg = &Config{StoreBackend: BackendDynamoDB}
	require.ErrorIs(t, cfg.Validate(), ErrMissingEnv)
}

func TestLoadWorker_SkipsDashboardChecks(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("SANITY_API_TOKEN", "")
	t.Setenv("IDEMPOTENCY_TABLE", "events-idem")

	cfg, err := LoadWorker()
	require.NoError(t, err)
	assert.Equal(t, "events-idem", cfg.Dynamo.IdempotencyTable)
	assert.Equal(t, "order-audit", cfg.Dynamo.AuditTable)
}
