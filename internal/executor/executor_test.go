package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"judgeengine/internal/model"
)

func TestSafeJoinRejectsTraversal(t *testing.T) {
	if _, err := safeJoin("/tmp/sandbox", "../escape.txt"); err == nil {
		t.Error("expected error for traversal path")
	}
}

func TestSafeJoinAllowsNested(t *testing.T) {
	full, err := safeJoin("/tmp/sandbox", "dir/file.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if full != filepath.Join("/tmp/sandbox", "dir", "file.txt") {
		t.Errorf("full = %q", full)
	}
}

func TestProcessExecutorRun(t *testing.T) {
	root := t.TempDir()
	exe := NewProcessExecutor([]string{"/bin/cat", "in.txt"}, nil, root)
	test := model.TestCase{
		Input:       "",
		InputFiles:  map[string]string{"in.txt": "hello from file\n"},
		TargetFiles: map[string]string{"in.txt": ""},
	}
	limits := Limits{TimeLimitSeconds: 2, MemoryLimitMB: 256, OutputLimitMB: 1}

	res := exe.Run(context.Background(), test, limits)
	if res.Status != model.StatusOK {
		t.Fatalf("status = %v", res.Status)
	}
	if res.OutputFiles["in.txt"] != "hello from file\n" {
		t.Errorf("output file content = %q", res.OutputFiles["in.txt"])
	}

	exe.Cleanup(test)
	if _, err := os.Stat(filepath.Join(root, "in.txt")); !os.IsNotExist(err) {
		t.Errorf("expected in.txt to be removed after cleanup")
	}
}

func TestProcessExecutorMissingOutputFileIsEmpty(t *testing.T) {
	root := t.TempDir()
	exe := NewProcessExecutor([]string{"/bin/true"}, nil, root)
	test := model.TestCase{TargetFiles: map[string]string{"never-written.txt": ""}}
	res := exe.Run(context.Background(), test, Limits{TimeLimitSeconds: 1, MemoryLimitMB: 128, OutputLimitMB: 1})
	if res.OutputFiles["never-written.txt"] != "" {
		t.Errorf("expected empty string for missing file, got %q", res.OutputFiles["never-written.txt"])
	}
}
