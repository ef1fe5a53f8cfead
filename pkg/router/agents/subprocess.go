// Package agents implements one Executor per agent kind named in §4.2.
package agents

import (
	"bytes"
	"context"
	"os/exec"
	"syscall"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/router"
)

// SubprocessExecutor spawns a command per §4.2's subprocess contract.
type SubprocessExecutor struct{}

// Execute implements router.Executor.
func (SubprocessExecutor) Execute(ctx context.Context, call router.ToolCall, at *router.AgentType) (*router.AgentResult, error) {
	cfg := at.Subprocess
	timeout := router.EffectiveTimeout(cfg.TimeoutMS)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := router.RenderStringSlice(cfg.Args, call.Arguments)
	cmd := exec.CommandContext(runCtx, cfg.Command, args...)
	cmd.Env = renderEnv(cfg.Env, call.Arguments)
	// Put the child in its own process group so a timeout kill reaches
	// the whole tree, not just the direct child.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	startErr := cmd.Start()
	if startErr != nil {
		return nil, merrors.Wrap(merrors.ErrAgent, "failed to start subprocess", startErr)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-runCtx.Done():
		killProcessGroup(cmd)
		<-done // reap
		return router.Failure("timed out").
			WithMetadata("timeout_ms", cfg.TimeoutMS).
			WithMetadata("stdout", stdout.String()).
			WithMetadata("stderr", stderr.String()), nil
	case err := <-done:
		exitCode := 0
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else if err != nil {
			return nil, merrors.Wrap(merrors.ErrAgent, "subprocess failed", err)
		}
		result := &router.AgentResult{
			Success: exitCode == 0,
			Data:    stdout.String(),
		}
		result.WithMetadata("exit_code", exitCode).WithMetadata("stderr", stderr.String())
		if exitCode != 0 {
			result.Error = "subprocess exited with non-zero status"
		}
		return result, nil
	}
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		_ = cmd.Process.Kill()
		return
	}
	_ = syscall.Kill(-pgid, syscall.SIGKILL)
}

func renderEnv(env map[string]string, arguments map[string]any) []string {
	if len(env) == 0 {
		return nil
	}
	rendered := router.RenderStringMap(env, arguments)
	out := make([]string, 0, len(rendered))
	for k, v := range rendered {
		out = append(out, k+"="+v)
	}
	return out
}
