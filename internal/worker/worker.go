// Package worker implements the Project Worker: one project's instance
// list run to completion in its own OS process, re-exec'd from the
// harness binary itself so that deferred cleanup is guaranteed to run
// even under signal-driven termination of a sibling process.
package worker

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/memcomp/harness/internal/runner"
)

// InternalRunProjectSubcommand is the hidden cobra subcommand name the
// re-exec'd child process is launched with.
const InternalRunProjectSubcommand = "internal-run-project"

// Job is the state handed to a re-exec'd project-worker process via a
// JSON state file, since process arguments are a poor fit for a full
// instance list and candidate record.
type Job struct {
	InstanceIDs []string        `json:"instance_ids"`
	ProjectIdx  int             `json:"project_idx"`
	Candidate   runner.Candidate `json:"candidate"`
}

// Spawn re-execs the current binary with the hidden subcommand and a
// path to a freshly written state file describing job. It returns
// immediately with the running *exec.Cmd; the caller joins it with Wait.
func Spawn(job Job) (*exec.Cmd, error) {
	stateFile, err := os.CreateTemp("", "memcomp-project-*.json")
	if err != nil {
		return nil, fmt.Errorf("create worker state file: %w", err)
	}
	defer stateFile.Close()

	if err := json.NewEncoder(stateFile).Encode(job); err != nil {
		return nil, fmt.Errorf("encode worker state: %w", err)
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable path: %w", err)
	}

	cmd := exec.Command(exe, InternalRunProjectSubcommand, stateFile.Name())
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start project worker: %w", err)
	}
	return cmd, nil
}

// LoadJob reads back a Job written by Spawn, called from within the
// re-exec'd child process. The state file is owned by the child from
// here on; the caller is expected to remove it once the job has been
// decoded.
func LoadJob(stateFilePath string) (Job, error) {
	data, err := os.Open(stateFilePath)
	if err != nil {
		return Job{}, fmt.Errorf("open worker state file: %w", err)
	}
	defer data.Close()

	var job Job
	if err := json.NewDecoder(data).Decode(&job); err != nil {
		return Job{}, fmt.Errorf("decode worker state: %w", err)
	}
	return job, nil
}
