package worker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/memcomp/harness/internal/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadJobRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	job := Job{
		InstanceIDs: []string{"instance_a", "instance_b"},
		ProjectIdx:  3,
		Candidate: runner.Candidate{
			RunName:          "run-1",
			AgentDockerImage: "agent:latest",
			LLMQuotaInstance: 5.0,
			TimeoutS:         900,
		},
	}

	data, err := json.Marshal(job)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := LoadJob(path)
	require.NoError(t, err)
	assert.Equal(t, job, loaded)
}

func TestLoadJobMissingFile(t *testing.T) {
	_, err := LoadJob(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestInternalRunProjectSubcommandName(t *testing.T) {
	assert.Equal(t, "internal-run-project", InternalRunProjectSubcommand)
}
