package checker

import (
	"context"
	"os"
	"strings"
	"testing"

	"judgeengine/internal/compiler"
	"judgeengine/internal/model"
)

// shellChecker returns a Program that runs an inline shell script as the
// "compiled" checker program, so these tests never depend on an external
// compiler toolchain.
func shellChecker(script string) compiler.Program {
	return compiler.Program{Argv: []string{"sh", "-c", script, "checker"}}
}

func TestCustomCheckerTaggedProtocol(t *testing.T) {
	dir := t.TempDir()
	// $1 $2 $3 $4 are input/output/target/code-dir; reads the tag from
	// stdin and echoes it back in front of each status line.
	script := `tag=$(cat); printf '%sSolved\n%s100\n%shello\n' "$tag" "$tag" "$tag"`
	c := NewCustom(shellChecker(script), dir, model.CodeTree{})

	status, score, msg := c.Check(context.Background(), model.TestCase{}, model.RunResult{})
	if status != model.StatusOK {
		t.Errorf("status = %v, want OK", status)
	}
	if score != 100 {
		t.Errorf("score = %v, want 100", score)
	}
	if msg == nil || *msg != "hello" {
		t.Errorf("message = %v, want %q", msg, "hello")
	}
}

// TestCustomCheckerScenario5DebugPrintsThenTaggedSolved mirrors spec.md §8
// scenario 5 literally: a checker that first prints untagged debug output,
// then the tagged verdict "TAG Solved\nTAG 90\nTAG good" (tag + a space
// before each value), and expects status=OK, score=90, message contains
// "good".
func TestCustomCheckerScenario5DebugPrintsThenTaggedSolved(t *testing.T) {
	dir := t.TempDir()
	script := `tag=$(cat); printf 'debug: comparing outputs\ndebug: looks fine\n%s Solved\n%s 90\n%s good\n' "$tag" "$tag" "$tag"`
	c := NewCustom(shellChecker(script), dir, model.CodeTree{})

	status, score, msg := c.Check(context.Background(), model.TestCase{}, model.RunResult{})
	if status != model.StatusOK {
		t.Errorf("status = %v, want OK", status)
	}
	if score != 90 {
		t.Errorf("score = %v, want 90", score)
	}
	if msg == nil || !strings.Contains(*msg, "good") {
		t.Errorf("message = %v, want it to contain %q", msg, "good")
	}
}

func TestCustomCheckerUntaggedFallback(t *testing.T) {
	dir := t.TempDir()
	script := `printf 'Wrong answer\n0\n'`
	c := NewCustom(shellChecker(script), dir, model.CodeTree{})

	status, score, _ := c.Check(context.Background(), model.TestCase{}, model.RunResult{})
	if status != model.StatusWA {
		t.Errorf("status = %v, want Wrong answer", status)
	}
	if score != 0 {
		t.Errorf("score = %v, want 0", score)
	}
}

func TestCustomCheckerMissingScoreLineIsRuntimeError(t *testing.T) {
	dir := t.TempDir()
	script := `printf 'OK\n'`
	c := NewCustom(shellChecker(script), dir, model.CodeTree{})

	status, _, msg := c.Check(context.Background(), model.TestCase{}, model.RunResult{})
	if status != model.StatusRuntimeError {
		t.Errorf("status = %v, want RuntimeError", status)
	}
	if msg == nil {
		t.Error("expected a diagnostic message")
	}
}

func TestCustomCheckerBadScoreIsRuntimeError(t *testing.T) {
	dir := t.TempDir()
	script := `tag=$(cat); printf '%sSolved\n%snot-a-number\n' "$tag" "$tag"`
	c := NewCustom(shellChecker(script), dir, model.CodeTree{})

	status, _, _ := c.Check(context.Background(), model.TestCase{}, model.RunResult{})
	if status != model.StatusRuntimeError {
		t.Errorf("status = %v, want RuntimeError", status)
	}
}

func TestCustomCheckerReceivesFourArguments(t *testing.T) {
	dir := t.TempDir()
	script := `tag=$(cat); printf '%sSolved\n%s100\n%s %s %s %s\n' "$tag" "$tag" "$tag" "$1" "$2" "$3" "$4"`
	c := NewCustom(shellChecker(script), dir, model.CodeTree{"checker.sh": "#!/bin/sh\n"})

	_, _, msg := c.Check(context.Background(), model.TestCase{Input: "in", Target: "out"}, model.RunResult{})
	if msg == nil {
		t.Fatal("expected a message carrying the four arguments")
	}
	for _, want := range []string{"input.txt", "output.txt", "target.txt", "code"} {
		if !strings.Contains(*msg, want) {
			t.Errorf("message %q missing %q", *msg, want)
		}
	}
}

func TestCustomCheckerWritesCodeTree(t *testing.T) {
	dir := t.TempDir()
	script := `tag=$(cat); code_dir="$4"; [ -f "$code_dir/main.sh" ] && printf '%sSolved\n%s100\n' "$tag" "$tag" || printf '%sWrong answer\n%s0\n' "$tag" "$tag"`
	code := model.CodeTree{"main.sh": "echo hi"}
	c := NewCustom(shellChecker(script), dir, code)

	status, _, _ := c.Check(context.Background(), model.TestCase{}, model.RunResult{})
	if status != model.StatusOK {
		t.Errorf("status = %v, want OK (checker should see main.sh in its code dir)", status)
	}
}

func TestRandomTagLength(t *testing.T) {
	tag, err := randomTag(10)
	if err != nil {
		t.Fatalf("randomTag: %v", err)
	}
	if len(tag) != 10 {
		t.Errorf("len(tag) = %d, want 10", len(tag))
	}
}

func TestCustomCheckerScratchDirCleanedUp(t *testing.T) {
	dir := t.TempDir()
	script := `printf 'checked\n'`
	c := NewCustom(shellChecker(script), dir, model.CodeTree{})
	c.Check(context.Background(), model.TestCase{}, model.RunResult{})

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected scratch dir cleaned up, found %v", entries)
	}
}
