// Package docker runs submission scripts inside a throwaway container.
package docker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"
)

const (
	workspace  = "/workspace"
	stdinFile  = ".autograde-stdin"
	stdoutFile = ".autograde-stdout"
	stderrFile = ".autograde-stderr"
)

type RunOpts struct {
	Image string
	// Command runs with WorkDir mounted at /workspace as its working
	// directory, e.g. {"python3", "/workspace/main.py"}.
	Command     []string
	WorkDir     string
	Stdin       string
	Env         map[string]string
	Timeout     time.Duration
	CPULimit    float64
	MemoryLimit int64
	// Network keeps the default bridge network; otherwise the container
	// has no network at all.
	Network bool
}

type RunResult struct {
	ExitCode int
	TimedOut bool
	Duration time.Duration
	Stdout   string
	Stderr   string
}

// RunContainer runs opts.Command with opts.Stdin on standard input and
// collects its output. Streams go through files in the workspace mount so
// stdout and stderr stay separate.
func RunContainer(ctx context.Context, opts *RunOpts) (*RunResult, error) {
	if err := os.WriteFile(filepath.Join(opts.WorkDir, stdinFile), []byte(opts.Stdin), 0o644); err != nil {
		return nil, fmt.Errorf("writing stdin: %w", err)
	}
	defer func() {
		for _, name := range []string{stdinFile, stdoutFile, stderrFile} {
			os.Remove(filepath.Join(opts.WorkDir, name))
		}
	}()

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	defer cli.Close()

	envSlice := make([]string, 0, len(opts.Env))
	for k, v := range opts.Env {
		envSlice = append(envSlice, k+"="+v)
	}

	initTrue := true
	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{{
			Type:   mount.TypeBind,
			Source: opts.WorkDir,
			Target: workspace,
		}},
		Init:        &initTrue,
		SecurityOpt: []string{"no-new-privileges"},
	}
	if !opts.Network {
		hostCfg.NetworkMode = "none"
	}
	if opts.CPULimit > 0 {
		hostCfg.NanoCPUs = int64(opts.CPULimit * 1e9)
	}
	if opts.MemoryLimit > 0 {
		hostCfg.Memory = opts.MemoryLimit
	}

	shell := fmt.Sprintf(`"$@" < %[1]s/%[2]s > %[1]s/%[3]s 2> %[1]s/%[4]s`, workspace, stdinFile, stdoutFile, stderrFile)
	containerCfg := &container.Config{
		Image:      opts.Image,
		Cmd:        append([]string{"sh", "-c", shell, "sh"}, opts.Command...),
		Env:        envSlice,
		WorkingDir: workspace,
		Labels:     map[string]string{"autograde": "true"},
	}

	createResp, err := cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config:     containerCfg,
		HostConfig: hostCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("creating container: %w", err)
	}
	containerID := createResp.ID
	defer func() {
		cli.ContainerRemove(context.Background(), containerID, client.ContainerRemoveOptions{Force: true})
	}()

	start := time.Now()
	if _, err := cli.ContainerStart(ctx, containerID, client.ContainerStartOptions{}); err != nil {
		return nil, fmt.Errorf("starting container: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	waitResult := cli.ContainerWait(timeoutCtx, containerID, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})
	for {
		select {
		case err := <-waitResult.Error:
			if err != nil {
				cli.ContainerKill(context.Background(), containerID, client.ContainerKillOptions{Signal: "SIGKILL"})
				logContainer(cli, containerID)
				res := collect(opts.WorkDir)
				res.ExitCode = 124
				res.TimedOut = true
				res.Duration = time.Since(start)
				return res, nil
			}
			// nil error means no error on this channel; wait for result
		case status := <-waitResult.Result:
			res := collect(opts.WorkDir)
			res.ExitCode = int(status.StatusCode)
			res.Duration = time.Since(start)
			return res, nil
		}
	}
}

func collect(workDir string) *RunResult {
	stdout, _ := os.ReadFile(filepath.Join(workDir, stdoutFile))
	stderr, _ := os.ReadFile(filepath.Join(workDir, stderrFile))
	return &RunResult{Stdout: string(stdout), Stderr: string(stderr)}
}

// logContainer keeps the tail of a killed container's log for debugging.
func logContainer(cli *client.Client, id string) {
	logReader, _ := cli.ContainerLogs(context.Background(), id, client.ContainerLogsOptions{ShowStdout: true, ShowStderr: true, Tail: "100"})
	if logReader == nil {
		return
	}
	defer logReader.Close()
	logData, _ := io.ReadAll(logReader)
	if len(logData) > 0 {
		slog.Debug("container logs", slog.String("container", id), slog.String("logs", string(logData)))
	}
}
