package executor

import (
	"context"
	"strings"
	"testing"

	"judgeengine/internal/model"
)

func TestSQLiteExecutorCreateAndSelect(t *testing.T) {
	root := t.TempDir()
	exe, err := NewSQLiteExecutor(root, "main.db", "SELECT * FROM people")
	if err != nil {
		t.Fatalf("NewSQLiteExecutor: %v", err)
	}
	defer exe.Close()

	test := model.TestCase{
		InputFiles:  map[string]string{"people": "name,age\nalice,30\nbob,25\n"},
		TargetFiles: map[string]string{"people": ""},
	}
	res := exe.Run(context.Background(), test, Limits{TimeLimitSeconds: 2})
	if res.Status != model.StatusOK {
		t.Fatalf("status = %v, errors=%v", res.Status, res.Errors)
	}
	if res.Outputs == nil || !strings.Contains(*res.Outputs, "alice") {
		t.Errorf("outputs = %v, want to contain alice", res.Outputs)
	}
}

func TestSQLiteExecutorInvalidScriptIsRuntimeError(t *testing.T) {
	root := t.TempDir()
	exe, err := NewSQLiteExecutor(root, "main.db", "NOT VALID SQL AT ALL")
	if err != nil {
		t.Fatalf("NewSQLiteExecutor: %v", err)
	}
	defer exe.Close()

	res := exe.Run(context.Background(), model.TestCase{}, Limits{TimeLimitSeconds: 2})
	if res.Status != model.StatusRuntimeError {
		t.Errorf("status = %v, want RuntimeError", res.Status)
	}
}

func TestSQLiteExecutorCleanupDropsTables(t *testing.T) {
	root := t.TempDir()
	exe, err := NewSQLiteExecutor(root, "main.db", "")
	if err != nil {
		t.Fatalf("NewSQLiteExecutor: %v", err)
	}
	defer exe.Close()

	test := model.TestCase{Input: "CREATE TABLE scratch (x TEXT);"}
	if res := exe.Run(context.Background(), test, Limits{TimeLimitSeconds: 2}); res.Status != model.StatusOK {
		t.Fatalf("setup failed: %v", res.Errors)
	}
	exe.Cleanup(test)

	res := exe.Run(context.Background(), model.TestCase{Input: "SELECT * FROM scratch"}, Limits{TimeLimitSeconds: 2})
	if res.Status != model.StatusRuntimeError {
		t.Errorf("expected dropped table to error, got status=%v", res.Status)
	}
}
