// Package executor stages one test case's input files/assets on disk,
// invokes the Process Supervisor, collects output files/assets back, and
// cleans the sandbox directory up. Grounded on
// original_source/coderunners/executors.py's Executor/ProcessExecutor.
package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"judgeengine/internal/model"
	"judgeengine/internal/supervisor"
)

// Limits bundles the per-test resource caps the pipeline resolves once per
// submission and passes down to every test run.
type Limits struct {
	TimeLimitSeconds float64
	MemoryLimitMB    int
	OutputLimitMB    float64
}

// Executor runs one TestCase against a compiled program and reports back
// what happened. Implementations never return an error: any internal
// failure is folded into the returned RunResult's Status, matching the
// Supervisor's own "never throws across the boundary" contract.
type Executor interface {
	Run(ctx context.Context, test model.TestCase, limits Limits) model.RunResult
	// Cleanup removes whatever Run materialized on disk for test, leaving
	// the sandbox directory ready for the next test.
	Cleanup(test model.TestCase)
}

// safeJoin resolves name under root, rejecting absolute paths and ".."
// escapes. Grounded on internal/judge/service/judge_service.go's safeJoin.
func safeJoin(root, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("executor: empty relative path")
	}
	clean := filepath.Clean(name)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("executor: invalid relative path %q", name)
	}
	full := filepath.Join(root, clean)
	if !strings.HasPrefix(full, filepath.Clean(root)+string(filepath.Separator)) {
		return "", fmt.Errorf("executor: path traversal detected in %q", name)
	}
	return full, nil
}

func writeTextFiles(root string, files map[string]string) error {
	for name, content := range files {
		full, err := safeJoin(root, name)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return fmt.Errorf("executor: mkdir for %q: %w", name, err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			return fmt.Errorf("executor: write %q: %w", name, err)
		}
	}
	return nil
}

func writeAssetFiles(root string, assets map[string]model.AssetBytes) error {
	for name, content := range assets {
		full, err := safeJoin(root, name)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return fmt.Errorf("executor: mkdir for %q: %w", name, err)
		}
		if err := os.WriteFile(full, content, 0o644); err != nil {
			return fmt.Errorf("executor: write %q: %w", name, err)
		}
	}
	return nil
}

// readTextFiles reads each named file under root, back into a map, using
// "" for files that don't exist (the program simply never produced them).
func readTextFiles(root string, names map[string]string) map[string]string {
	if len(names) == 0 {
		return nil
	}
	out := make(map[string]string, len(names))
	for name := range names {
		full, err := safeJoin(root, name)
		if err != nil {
			out[name] = ""
			continue
		}
		data, err := os.ReadFile(full)
		if err != nil {
			out[name] = ""
			continue
		}
		out[name] = string(data)
	}
	return out
}

func readAssetFiles(root string, names map[string]model.AssetBytes) map[string]model.AssetBytes {
	if len(names) == 0 {
		return nil
	}
	out := make(map[string]model.AssetBytes, len(names))
	for name := range names {
		full, err := safeJoin(root, name)
		if err != nil {
			out[name] = model.AssetBytes{}
			continue
		}
		data, err := os.ReadFile(full)
		if err != nil {
			out[name] = model.AssetBytes{}
			continue
		}
		out[name] = model.AssetBytes(data)
	}
	return out
}

// cleanupFiles removes whatever test's file/asset maps named, regardless of
// whether the program actually produced them.
func cleanupFiles(root string, test model.TestCase) {
	names := map[string]struct{}{}
	for name := range test.InputFiles {
		names[name] = struct{}{}
	}
	for name := range test.TargetFiles {
		names[name] = struct{}{}
	}
	for name := range test.InputAssets {
		names[name] = struct{}{}
	}
	for name := range test.TargetAssets {
		names[name] = struct{}{}
	}
	for name := range names {
		full, err := safeJoin(root, name)
		if err != nil {
			continue
		}
		_ = os.Remove(full)
	}
}

// ProcessExecutor runs an already-compiled command line under the
// Supervisor for every test case. Grounded on executors.py's
// ProcessExecutor.
type ProcessExecutor struct {
	Argv []string
	Env  []string
	Root string
}

func NewProcessExecutor(argv []string, env []string, root string) *ProcessExecutor {
	return &ProcessExecutor{Argv: argv, Env: env, Root: root}
}

func (e *ProcessExecutor) Run(ctx context.Context, test model.TestCase, limits Limits) model.RunResult {
	if err := writeTextFiles(e.Root, test.InputFiles); err != nil {
		return runtimeErrorResult(err)
	}
	if err := writeAssetFiles(e.Root, test.InputAssets); err != nil {
		return runtimeErrorResult(err)
	}

	result := supervisor.Run(ctx, supervisor.Request{
		Argv:           e.Argv,
		Env:            e.Env,
		Dir:            e.Root,
		Input:          test.Input,
		TimeoutSeconds: limits.TimeLimitSeconds,
		MemoryLimitMB:  limits.MemoryLimitMB,
		OutputLimitMB:  limits.OutputLimitMB,
	})

	result.OutputFiles = readTextFiles(e.Root, test.TargetFiles)
	result.OutputAssets = readAssetFiles(e.Root, test.TargetAssets)
	return result
}

func (e *ProcessExecutor) Cleanup(test model.TestCase) {
	cleanupFiles(e.Root, test)
}

func runtimeErrorResult(err error) model.RunResult {
	msg := err.Error()
	return model.RunResult{Status: model.StatusRuntimeError, Message: &msg, Errors: &msg}
}
