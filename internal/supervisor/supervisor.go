// Package supervisor launches one child command with memory, time, and
// output caps and reduces whatever happens to it to a model.RunResult.
// It is the only place in the engine that touches concurrency: a sampling
// loop runs alongside three pipe-pumping goroutines (stdin writer, stdout
// reader, stderr reader), grounded on the Process/limit_resources/run/poll
// algorithm of the Python original this engine replaces.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"judgeengine/internal/model"
)

// hardMemoryLimitMB is the fixed platform ceiling applied as RLIMIT_RSS's
// hard limit regardless of the request's own (soft) memory limit.
const hardMemoryLimitMB = 1500

// Request describes one command to run under supervision.
type Request struct {
	Argv    []string // argv of the command to exec; Argv[0] is resolved via PATH
	Dir     string   // working directory for the child
	Env     []string // full environment for the child; nil inherits the parent's
	Input   string   // written to stdin, followed by a newline, then closed

	TimeoutSeconds float64
	MemoryLimitMB  int
	OutputLimitMB  float64
}

// Run executes req and blocks until the child terminates, the timeout
// elapses, or the sampled memory crosses the limit. It never returns an
// error: failures become a RunResult with StatusRuntimeError and a message,
// per the supervisor's "never throws across the boundary" contract.
func Run(ctx context.Context, req Request) model.RunResult {
	if len(req.Argv) == 0 {
		return runtimeErrorResult(fmt.Errorf("supervisor: empty command"))
	}

	softKB := req.MemoryLimitMB * 1024
	hardKB := hardMemoryLimitMB * 1024
	// RLIMIT_RSS can only be set for the child itself; os/exec has no
	// preexec hook (forking without exec on a multi-threaded runtime isn't
	// safe), so the limit is applied by a shell wrapper that runs `ulimit`
	// before exec-replacing itself with the real command. Hard limit must
	// be set before soft, since a shell can't later raise a hard limit it
	// just lowered.
	script := fmt.Sprintf(`ulimit -Hm %d 2>/dev/null; ulimit -Sm %d 2>/dev/null; exec "$@"`, hardKB, softKB)
	shellArgs := append([]string{"-c", script, "judge-supervisor"}, req.Argv...)

	cmd := exec.Command("sh", shellArgs...)
	cmd.Dir = req.Dir
	if req.Env != nil {
		cmd.Env = req.Env
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	outputLimitBytes := int(req.OutputLimitMB * 1024 * 1024)
	stdoutBuf := newCappedBuffer(outputLimitBytes + 1)
	stderrBuf := newCappedBuffer(outputLimitBytes + 1)

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return runtimeErrorResult(fmt.Errorf("supervisor: stdin pipe: %w", err))
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return runtimeErrorResult(fmt.Errorf("supervisor: stdout pipe: %w", err))
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return runtimeErrorResult(fmt.Errorf("supervisor: stderr pipe: %w", err))
	}

	startTime := time.Now()
	if err := cmd.Start(); err != nil {
		return runtimeErrorResult(fmt.Errorf("supervisor: start: %w", err))
	}

	readersDone := make(chan struct{}, 2)
	go func() {
		defer stdinPipe.Close()
		if req.Input != "" {
			_, _ = stdinPipe.Write([]byte(req.Input + "\n"))
		}
	}()
	go func() {
		_, _ = stdoutBuf.readFrom(stdoutPipe)
		readersDone <- struct{}{}
	}()
	go func() {
		_, _ = stderrBuf.readFrom(stderrPipe)
		readersDone <- struct{}{}
	}()

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	timeoutDur := time.Duration(req.TimeoutSeconds * float64(time.Second))
	sampleInterval := timeoutDur / 500
	if sampleInterval < time.Millisecond {
		sampleInterval = time.Millisecond
	}
	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()

	memoryLimitBytes := uint64(req.MemoryLimitMB) * 1024 * 1024
	var maxRSS uint64
	var waitErr error
	var timedOut, mleSampled bool

sampleLoop:
	for {
		select {
		case waitErr = <-waitCh:
			break sampleLoop
		case <-ctx.Done():
			timedOut = true
			break sampleLoop
		case <-ticker.C:
			if cmd.Process == nil {
				continue
			}
			rss, _ := treeMemory(cmd.Process.Pid)
			if rss > maxRSS {
				maxRSS = rss
			}
			if rss > memoryLimitBytes {
				mleSampled = true
				break sampleLoop
			}
			if time.Since(startTime) >= timeoutDur {
				timedOut = true
				break sampleLoop
			}
		}
	}

	elapsed := time.Since(startTime)

	if timedOut || mleSampled {
		killProcessGroup(cmd.Process)
		select {
		case waitErr = <-waitCh:
		case <-time.After(2 * time.Second):
		}
	}

	for i := 0; i < 2; i++ {
		select {
		case <-readersDone:
		case <-time.After(2 * time.Second):
		}
	}

	status := model.StatusOK
	switch {
	case timedOut:
		status = model.StatusTLE
	case mleSampled:
		status = model.StatusMLE
	default:
		status = classifyExit(cmd.ProcessState, waitErr)
	}

	outBytes := stdoutBuf.Bytes()
	errBytes := stderrBuf.Bytes()
	if len(outBytes) > outputLimitBytes {
		status = model.StatusOLE
		outBytes = outBytes[:outputLimitBytes/2]
	}
	if len(errBytes) > outputLimitBytes {
		status = model.StatusOLE
		errBytes = errBytes[:outputLimitBytes/2]
	}

	outStr := string(outBytes)
	errStr := string(errBytes)
	return model.RunResult{
		Status:     status,
		Memory:     float64(maxRSS) / 1024 / 1024,
		Time:       elapsed.Seconds(),
		ReturnCode: exitCode(cmd.ProcessState),
		Outputs:    &outStr,
		Errors:     &errStr,
	}
}

// killProcessGroup signals the whole process group (not just the direct
// child) so forked descendants don't survive the parent's death.
func killProcessGroup(p *os.Process) {
	if p == nil {
		return
	}
	_ = unix.Kill(-p.Pid, unix.SIGKILL)
	_ = p.Kill()
}

// classifyExit maps a terminated child's wait status to a Status, following
// the order: killed-by-SIGKILL/ENOMEM-like exit codes are MLE; SIGSEGV or
// SIGTERM are RuntimeError; any other nonzero exit is RuntimeError.
func classifyExit(state *os.ProcessState, waitErr error) model.Status {
	if state == nil {
		if waitErr != nil {
			return model.StatusRuntimeError
		}
		return model.StatusOK
	}
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok {
		if state.Success() {
			return model.StatusOK
		}
		return model.StatusRuntimeError
	}
	if ws.Signaled() {
		switch ws.Signal() {
		case syscall.SIGKILL:
			return model.StatusMLE
		case syscall.SIGSEGV, syscall.SIGTERM:
			return model.StatusRuntimeError
		default:
			return model.StatusRuntimeError
		}
	}
	code := ws.ExitStatus()
	switch {
	case code == 137 || code == int(syscall.ENOMEM):
		return model.StatusMLE
	case code == 139 || code == 143:
		return model.StatusRuntimeError
	case code != 0:
		return model.StatusRuntimeError
	default:
		return model.StatusOK
	}
}

func exitCode(state *os.ProcessState) int {
	if state == nil {
		return 0
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok {
		if ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return ws.ExitStatus()
	}
	return state.ExitCode()
}

func runtimeErrorResult(err error) model.RunResult {
	msg := err.Error()
	empty := ""
	return model.RunResult{
		Status:  model.StatusRuntimeError,
		Message: &msg,
		Outputs: &empty,
		Errors:  &msg,
	}
}
