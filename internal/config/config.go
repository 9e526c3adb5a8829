// Package config resolves harness-wide settings from environment
// variables, falling back to hardcoded defaults when a variable is
// unset (or, for numeric settings, unparsable). It reads no flags.
package config

import (
	"os"
	"os/user"
	"strconv"
)

// Harness holds the process-wide settings read once at startup.
type Harness struct {
	Verbose             int
	FileOwnerUID         int
	FileOwnerGID         int
	ResultPath           string
	WorkPath             string
	SSHBoxScriptPath     string
	TrajPath             string
	LiteLLMBaseURLDocker string
	ControllerBaseURL    string
	RootfsDevice         string
	CatalogPath          string
	DockerImageBase      string
}

// Load resolves the Harness configuration from the environment, applying
// the same defaults as the reference implementation.
func Load() (Harness, error) {
	uid, gid, err := ownerIDs(envOrDefault("FILE_OWNER", "root"))
	if err != nil {
		return Harness{}, err
	}

	return Harness{
		Verbose:              envIntOrDefault("VERBOSE", 2),
		FileOwnerUID:          uid,
		FileOwnerGID:          gid,
		ResultPath:            envOrDefault("RESULT_PATH", "results"),
		WorkPath:              envOrDefault("WORK_PATH", "workdir"),
		SSHBoxScriptPath:      envOrDefault("SSHBOX_SCRIPT_PATH", "../sshbox_scripts"),
		TrajPath:              envOrDefault("LITELLM_TRAJ_DIR", "../play/trajs"),
		LiteLLMBaseURLDocker:  envOrDefault("LITELLM_BASEURL_IN_DOCKER", "http://litellm_app:4000"),
		ControllerBaseURL:     envOrDefault("LITELLM_CONTROLLER_BASEURL", "http://127.0.0.1:4001"),
		RootfsDevice:          envOrDefault("ROOTFS_DEVICE", "/dev/sda"),
		CatalogPath:           envOrDefault("BENCHMARK_CATALOG_PATH", "external_hf_v2.csv"),
		DockerImageBase:       envOrDefault("DOCKER_IMAGE_BASE", "jefzda/sweap-images"),
	}, nil
}

// Controller holds the Proxy Controller Service's own configuration.
type Controller struct {
	ListenAddr     string
	UpstreamURL    string
	UpstreamKey    string
	GlobalBudget   float64
	InstanceBudget float64
	TrajPath       string
}

// LoadController resolves Proxy Controller Service settings.
func LoadController() Controller {
	return Controller{
		ListenAddr:     envOrDefault("CONTROLLER_LISTEN_ADDR", "0.0.0.0:4001"),
		UpstreamURL:    envOrDefault("LITELLM_BASEURL", "http://litellm_app:4000"),
		UpstreamKey:    os.Getenv("LITELLM_KEY"),
		GlobalBudget:   envFloatOrDefault("GLOBAL_BUDGET", 1000),
		InstanceBudget: envFloatOrDefault("INSTANCE_BUDGET", 10),
		TrajPath:       envOrDefault("LITELLM_TRAJ_DIR", "/mnt/trajs"),
	}
}

func ownerIDs(username string) (int, int, error) {
	u, err := user.Lookup(username)
	if err != nil {
		return 0, 0, err
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return 0, 0, err
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return 0, 0, err
	}
	return uid, gid, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloatOrDefault(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return n
}
