package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOrDefaultFallsBackWhenUnset(t *testing.T) {
	t.Setenv("HARNESS_TEST_STR", "")
	assert.Equal(t, "fallback", envOrDefault("HARNESS_TEST_STR", "fallback"))
}

func TestEnvOrDefaultUsesSetValue(t *testing.T) {
	t.Setenv("HARNESS_TEST_STR", "custom")
	assert.Equal(t, "custom", envOrDefault("HARNESS_TEST_STR", "fallback"))
}

func TestEnvIntOrDefault(t *testing.T) {
	t.Setenv("HARNESS_TEST_INT", "42")
	assert.Equal(t, 42, envIntOrDefault("HARNESS_TEST_INT", 7))

	t.Setenv("HARNESS_TEST_INT", "not-a-number")
	assert.Equal(t, 7, envIntOrDefault("HARNESS_TEST_INT", 7))

	t.Setenv("HARNESS_TEST_INT", "")
	assert.Equal(t, 7, envIntOrDefault("HARNESS_TEST_INT", 7))
}

func TestEnvFloatOrDefault(t *testing.T) {
	t.Setenv("HARNESS_TEST_FLOAT", "3.5")
	assert.Equal(t, 3.5, envFloatOrDefault("HARNESS_TEST_FLOAT", 1.0))

	t.Setenv("HARNESS_TEST_FLOAT", "")
	assert.Equal(t, 1.0, envFloatOrDefault("HARNESS_TEST_FLOAT", 1.0))
}

func TestOwnerIDsResolvesRoot(t *testing.T) {
	uid, gid, err := ownerIDs("root")
	if err != nil {
		t.Skipf("no root user on this system: %v", err)
	}
	assert.Equal(t, 0, uid)
	assert.Equal(t, 0, gid)
}

func TestLoadControllerDefaults(t *testing.T) {
	t.Setenv("CONTROLLER_LISTEN_ADDR", "")
	t.Setenv("LITELLM_BASEURL", "")
	t.Setenv("LITELLM_KEY", "")
	t.Setenv("GLOBAL_BUDGET", "")
	t.Setenv("INSTANCE_BUDGET", "")
	t.Setenv("LITELLM_TRAJ_DIR", "")

	c := LoadController()
	assert.Equal(t, "0.0.0.0:4001", c.ListenAddr)
	assert.Equal(t, "http://litellm_app:4000", c.UpstreamURL)
	assert.Equal(t, float64(1000), c.GlobalBudget)
	assert.Equal(t, float64(10), c.InstanceBudget)
}
