// Package runner implements the Instance Runner: the per-instance
// orchestration sequence that composes the Workdir, Proxy Control
// Client, Sandbox Cell, and Agent Cell into one execution cell.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/memcomp/harness/internal/agentcell"
	"github.com/memcomp/harness/internal/config"
	"github.com/memcomp/harness/internal/dockerctl"
	"github.com/memcomp/harness/internal/logging"
	"github.com/memcomp/harness/internal/proxyclient"
	"github.com/memcomp/harness/internal/sandboxcell"
	"github.com/memcomp/harness/internal/sysstats"
	"github.com/memcomp/harness/internal/workdir"
	"github.com/rs/zerolog"
)

// Runner composes Workdir, Proxy Control Client, Sandbox Cell, and
// Agent Cell for a sequence of instances belonging to one project.
type Runner struct {
	cfg    config.Harness
	docker *dockerctl.Manager
	proxy  *proxyclient.Client
	log    zerolog.Logger
}

// New builds a Runner.
func New(cfg config.Harness, docker *dockerctl.Manager, proxy *proxyclient.Client) *Runner {
	return &Runner{cfg: cfg, docker: docker, proxy: proxy, log: logging.WithComponent("runner")}
}

// RunProject runs every instance of one project sequentially under
// candidate cand, sharing (or not) a memory workdir across them
// according to cand.EnableMemory. A per-instance error is logged as
// FATAL ERROR and ends the project: the remaining instances are not
// run, and the memory workdir is still cleaned up.
func (r *Runner) RunProject(ctx context.Context, instances []Instance, cand Candidate) {
	if len(instances) == 0 {
		return
	}

	log := logging.WithRun(cand.RunName)

	memDir, err := workdir.New(r.cfg.WorkPath, fmt.Sprintf("%s-mem-global-%s", cand.RunName, instances[0].Ident), nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to create global memory workdir")
		return
	}
	defer func() {
		if err := memDir.Cleanup(); err != nil {
			log.Warn().Err(err).Msg("memory workdir cleanup failed")
		}
	}()

	for _, inst := range instances {
		cell := logging.WithCell(cand.RunName, inst.Ident)
		cell.Info().Msg("INIT")

		if !cand.EnableMemory {
			if err := memDir.Cleanup(); err != nil {
				cell.Warn().Err(err).Msg("memory workdir cleanup failed")
			}
			memDir, err = workdir.New(r.cfg.WorkPath, fmt.Sprintf("%s-%s-mem", cand.RunName, inst.Ident), nil)
			if err != nil {
				cell.Error().Err(err).Msg("failed to create instance memory workdir")
				return
			}
		}

		if err := r.runInstance(ctx, inst, cand, memDir); err != nil {
			cell.Error().Err(err).Msg("FATAL ERROR")
			return
		}
	}

	log.Info().Msg("DONE")
}

func (r *Runner) runInstance(ctx context.Context, inst Instance, cand Candidate, memDir *workdir.Workdir) error {
	cell := logging.WithCell(cand.RunName, inst.Ident)

	instPath := filepath.Join(r.cfg.ResultPath, cand.RunName, inst.Ident)
	if err := os.RemoveAll(instPath); err != nil {
		return fmt.Errorf("clear instance result dir: %w", err)
	}
	if err := os.MkdirAll(instPath, 0o755); err != nil {
		return fmt.Errorf("create instance result dir: %w", err)
	}

	keyHash := "???"

	logDir, err := workdir.New(r.cfg.WorkPath, fmt.Sprintf("%s-%s-log", cand.RunName, inst.Ident), func(w *workdir.Workdir) error {
		return r.finishInstance(w, instPath, memDir)
	})
	if err != nil {
		return fmt.Errorf("create log workdir: %w", err)
	}
	defer func() {
		if err := logDir.Cleanup(); err != nil {
			cell.Warn().Err(err).Msg("log workdir cleanup failed")
		}
	}()

	if err := os.MkdirAll(filepath.Join(logDir.Path, "pcap"), 0o755); err != nil {
		return fmt.Errorf("create pcap dir: %w", err)
	}

	systemLogPath := filepath.Join(logDir.Path, "system.log")
	systemLog, err := os.Create(systemLogPath)
	if err != nil {
		return fmt.Errorf("create system.log: %w", err)
	}
	defer systemLog.Close()

	runErr := func() error {
		created, err := r.proxy.CreateKey(cand.RunName, inst.Ident, cand.LLMQuotaInstance)
		if err != nil {
			return fmt.Errorf("create llm key: %w", err)
		}
		keyHash = created.Hash
		defer func() {
			cell.Info().Str("key", created.Key).Str("hash", created.Hash).Msg("cleanup llm key")
			if err := r.proxy.DeleteKey(created.Key); err != nil {
				cell.Warn().Err(err).Msg("delete key failed, retrying")
				if err := r.proxy.DeleteKey(created.Key); err != nil {
					cell.Warn().Err(err).Msg("delete key failed again, ignoring")
				}
			}
		}()

		sbox, err := sandboxcell.Start(ctx, r.docker, sandboxcell.Config{
			Image:         inst.Image,
			ContainerName: fmt.Sprintf("memcomp-%s-%s-sshbox", cand.RunName, inst.Ident),
			ScriptsPath:   r.cfg.SSHBoxScriptPath,
			PcapPath:      filepath.Join(logDir.Path, "pcap"),
		})
		if err != nil {
			return fmt.Errorf("start sandbox: %w", err)
		}
		defer sbox.Stop(ctx)

		fmt.Fprintf(systemLog, "candidate: %+v\n", cand)
		fmt.Fprintf(systemLog, "instance: %s, instance_id = %s\n", inst.Ident, inst.InstanceID)
		fmt.Fprintf(systemLog, "llm key: %s, hash = %s\n", created.Key, created.Hash)
		fmt.Fprintf(systemLog, "sshbox: %s\n", sbox.ConnStr)
		cell.Info().Str("key", created.Key).Str("hash", created.Hash).Str("ssh", sbox.ConnStr).Msg("key and sshbox ready")

		if err := writeInstanceInput(instPath, inst); err != nil {
			return fmt.Errorf("write instance.json: %w", err)
		}

		time.Sleep(time.Second)
		fmt.Fprint(systemLog, sysstats.Snapshot("."))

		cell.Info().Msg("START")
		fmt.Fprintf(systemLog, "start running agent @ %s\n", time.Now().Format(time.RFC3339))

		agent, err := agentcell.Start(ctx, r.docker, agentcell.Config{
			Image:         cand.AgentDockerImage,
			ContainerName: fmt.Sprintf("memcomp-%s-%s-agent", cand.RunName, inst.Ident),
			InstancePath:  instPath,
			MemoryPath:    memDir.Path,
			LLMBaseURL:    r.cfg.LiteLLMBaseURLDocker,
			LLMAPIKey:     created.Key,
			SSHConnStr:    sbox.ConnStr,
			LogPath:       filepath.Join(logDir.Path, "agent.log"),
			RunName:       cand.RunName,
			Ident:         inst.Ident,
			Verbose:       r.cfg.Verbose,
		})
		if err != nil {
			return fmt.Errorf("start agent: %w", err)
		}

		waitCtx, cancel := context.WithTimeout(ctx, time.Duration(cand.TimeoutS*float64(time.Second)))
		status, waitErr := agent.Wait(waitCtx)
		cancel()
		if waitErr != nil {
			cell.Warn().Err(waitErr).Msg("agent timeout")
			fmt.Fprintf(systemLog, "agent timeout:\n%v\n", waitErr)
		} else {
			cell.Info().Int64("status", status).Msg("agent finished")
			fmt.Fprintf(systemLog, "agent finished: retcode = %d\n", status)
		}
		fmt.Fprintf(systemLog, "stop running agent @ %s\n", time.Now().Format(time.RFC3339))

		agent.Stop(ctx)
		cell.Info().Msg("FIN")
		fmt.Fprintf(systemLog, "agent removed @ %s\n", time.Now().Format(time.RFC3339))

		balance, err := r.proxy.QueryBalance(cand.RunName, created.Key)
		if err != nil {
			cell.Warn().Err(err).Msg("query balance failed")
		}
		cell.Info().Interface("balance", balance).Msg("llm usage")
		fmt.Fprintf(systemLog, "llm usage: %+v\n", balance)

		return nil
	}()

	// key deleted, sandbox removed, system.log flushed by the deferred
	// calls above once this function returns; the trajectory dir can
	// only be collected after that point.
	time.Sleep(time.Second)
	if err := collectTrajectory(r.cfg.TrajPath, keyHash, logDir.Path); err != nil {
		cell.Warn().Err(err).Msg("trajectory collection failed")
	}

	return runErr
}

func writeInstanceInput(instPath string, inst Instance) error {
	f, err := os.Create(filepath.Join(instPath, "instance.json"))
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "    ")
	return enc.Encode(inst.Row.Input())
}

// collectTrajectory moves <trajRoot>/<keyHash> to <logDirPath>/traj if
// present. A missing source directory is not an error — it just means
// no trajectory records were written for this key.
func collectTrajectory(trajRoot, keyHash, logDirPath string) error {
	src := filepath.Join(trajRoot, keyHash)
	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		return nil
	}
	dest := filepath.Join(logDirPath, "traj")
	if err := os.Rename(src, dest); err != nil {
		return copyThenRemove(src, dest)
	}
	return nil
}

// finishInstance is the Workdir cleanup hook: it snapshots the memory
// directory into the log workdir, relocates the log workdir into the
// result tree, then re-owns every entry in the result tree.
func (r *Runner) finishInstance(logDir *workdir.Workdir, instPath string, memDir *workdir.Workdir) error {
	if err := copyTree(memDir.Path, filepath.Join(logDir.Path, "memory")); err != nil {
		return fmt.Errorf("snapshot memory dir: %w", err)
	}

	dest := filepath.Join(instPath, "_harness")
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("clear previous _harness dir: %w", err)
	}
	if err := os.Rename(logDir.Path, dest); err != nil {
		if err := copyThenRemove(logDir.Path, dest); err != nil {
			return fmt.Errorf("move log dir into result tree: %w", err)
		}
	}

	return chownTree(instPath, r.cfg.FileOwnerUID, r.cfg.FileOwnerGID)
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

func copyThenRemove(src, dst string) error {
	if err := copyTree(src, dst); err != nil {
		return err
	}
	return os.RemoveAll(src)
}

func chownTree(root string, uid, gid int) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := os.Chown(path, uid, gid); err != nil {
			return err
		}
		if info.IsDir() {
			return os.Chmod(path, 0o755)
		}
		return os.Chmod(path, 0o644)
	})
}
