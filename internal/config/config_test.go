package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/config"
)

func baseEnv() map[string]string {
	return map[string]string{
		"BACKEND_URL":          "https://project.example/",
		"BACKEND_API_KEY":      "anon-key",
		"STORE_ID":             "store-1",
		"CART_STORE":           "",
		"REDIS_URL":            "",
		"DATABASE_URL":         "",
		"BACKEND_MAX_ATTEMPTS": "",
		"CHECKOUT_LOCK_TTL":    "",
		"JWT_ROLE":             "",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(baseEnv())
	require.NoError(t, err)
	require.Equal(t, "https://project.example", cfg.BackendURL)
	require.Equal(t, config.CartStoreFile, cfg.CartStore)
	require.Equal(t, "storefront.cart", cfg.CartStorageKey)
	require.Equal(t, 1, cfg.BackendMaxAttempts)
	require.Equal(t, 30*time.Second, cfg.CheckoutLockTTL)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, "authenticated", cfg.JWTRole)
}

func TestLoadRequiresBackend(t *testing.T) {
	env := baseEnv()
	env["BACKEND_URL"] = ""
	_, err := config.LoadForTests(env)
	require.ErrorContains(t, err, "BACKEND_URL")
}

func TestLoadDefaultStoreIsOptional(t *testing.T) {
	env := baseEnv()
	env["STORE_ID"] = ""
	cfg, err := config.LoadForTests(env)
	require.NoError(t, err)
	require.Empty(t, cfg.StoreID)
}

func TestLoadValidatesCartStore(t *testing.T) {
	env := baseEnv()
	env["CART_STORE"] = "redis"
	_, err := config.LoadForTests(env)
	require.ErrorContains(t, err, "REDIS_URL")

	env["REDIS_URL"] = "redis://localhost:6379/0"
	env["CHECKOUT_LOCK_TTL"] = "not-a-duration"
	cfg, err := config.LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, config.CartStoreRedis, cfg.CartStore)
	require.Equal(t, 30*time.Second, cfg.CheckoutLockTTL)

	env["CART_STORE"] = "sqlite"
	_, err = config.LoadForTests(env)
	require.ErrorContains(t, err, "CART_STORE")
}
