package checker

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"judgeengine/internal/compiler"
	"judgeengine/internal/model"
	"judgeengine/internal/supervisor"
)

const (
	customCheckerTimeoutSeconds = 5
	customCheckerMemoryLimitMB  = 512
	customCheckerOutputLimitMB  = 1
	tagLength                   = 10
)

// custom invokes a compiled checker program with four positional
// arguments (input file, output file, target file, code directory) and
// parses its verdict off stdout. Tagged lines (prefixed with a random,
// per-invocation tag) carry status and score; everything else is folded
// into the message. If no line carries the tag, every line is treated as
// a status line, matching an older, untagged checker protocol. Grounded
// on checkers.py's CustomChecker.check.
type custom struct {
	program compiler.Program
	dir     string
	code    model.CodeTree
}

// NewCustom builds the custom-mode Checker around a compiled checker
// program. dir is a scratch directory (inside the submission's sandbox
// root) the checker may use for its temp input/output/target files and a
// copy of its own source tree.
func NewCustom(program compiler.Program, dir string, code model.CodeTree) Checker {
	return custom{program: program, dir: dir, code: code}
}

func (c custom) Check(ctx context.Context, test model.TestCase, result model.RunResult) (model.Status, float64, *string) {
	runDir, err := os.MkdirTemp(c.dir, "checker-")
	if err != nil {
		return runtimeError(fmt.Errorf("checker: create scratch dir: %w", err))
	}
	defer os.RemoveAll(runDir)

	output := ""
	if result.Outputs != nil {
		output = *result.Outputs
	}
	inputPath := filepath.Join(runDir, "input.txt")
	outputPath := filepath.Join(runDir, "output.txt")
	targetPath := filepath.Join(runDir, "target.txt")
	codeDir := filepath.Join(runDir, "code")

	if err := os.WriteFile(inputPath, []byte(test.Input), 0o644); err != nil {
		return runtimeError(fmt.Errorf("checker: write input: %w", err))
	}
	if err := os.WriteFile(outputPath, []byte(output), 0o644); err != nil {
		return runtimeError(fmt.Errorf("checker: write output: %w", err))
	}
	if err := os.WriteFile(targetPath, []byte(test.Target), 0o644); err != nil {
		return runtimeError(fmt.Errorf("checker: write target: %w", err))
	}
	if err := os.MkdirAll(codeDir, 0o755); err != nil {
		return runtimeError(fmt.Errorf("checker: create code dir: %w", err))
	}
	if _, err := compiler.WriteCodeTree(codeDir, c.code); err != nil {
		return runtimeError(fmt.Errorf("checker: write code: %w", err))
	}

	tag, err := randomTag(tagLength)
	if err != nil {
		return runtimeError(fmt.Errorf("checker: generate tag: %w", err))
	}

	argv := append(append([]string{}, c.program.Argv...), inputPath, outputPath, targetPath, codeDir)
	res := supervisor.Run(ctx, supervisor.Request{
		Argv:           argv,
		Env:            c.program.Env,
		Dir:            runDir,
		Input:          tag,
		TimeoutSeconds: customCheckerTimeoutSeconds,
		MemoryLimitMB:  customCheckerMemoryLimitMB,
		OutputLimitMB:  customCheckerOutputLimitMB,
	})
	if res.Status != model.StatusOK {
		msg := fmt.Sprintf("checker program failed: %s", deref(res.Message))
		return res.Status, 0, &msg
	}

	rawOutput := ""
	if res.Outputs != nil {
		rawOutput = *res.Outputs
	}
	return parseVerdict(rawOutput, tag)
}

// parseVerdict splits the checker's stdout into tag-prefixed status lines
// and everything else. With zero tagged lines, every line is treated as a
// status line for compatibility with an untagged checker protocol.
func parseVerdict(raw, tag string) (model.Status, float64, *string) {
	lines := strings.Split(raw, "\n")
	var statusLines, otherLines []string
	for _, line := range lines {
		if strings.HasPrefix(line, tag) {
			statusLines = append(statusLines, line)
		} else {
			otherLines = append(otherLines, line)
		}
	}
	if len(statusLines) == 0 {
		statusLines, otherLines = otherLines, nil
	}
	if len(statusLines) < 2 {
		msg := "checker program did not produce a status line and a score line"
		return model.StatusRuntimeError, 0, &msg
	}

	statusStr := strings.TrimSpace(strings.ReplaceAll(statusLines[0], tag, ""))
	scoreStr := strings.TrimSpace(strings.ReplaceAll(statusLines[1], tag, ""))
	messageLines := append(append([]string{}, statusLines[2:]...), otherLines...)
	message := strings.TrimSpace(strings.ReplaceAll(strings.Join(messageLines, "\n"), tag, ""))

	score, err := strconv.ParseFloat(scoreStr, 64)
	if err != nil {
		msg := fmt.Sprintf("checker program produced a non-numeric score: %q", scoreStr)
		return model.StatusRuntimeError, 0, &msg
	}
	status, err := model.ParseStatus(statusStr)
	if err != nil {
		msg := fmt.Sprintf("checker program produced an unrecognized status: %q", statusStr)
		return model.StatusRuntimeError, 0, &msg
	}
	if message == "" {
		return status, score, nil
	}
	return status, score, &message
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func runtimeError(err error) (model.Status, float64, *string) {
	msg := err.Error()
	return model.StatusRuntimeError, 0, &msg
}

const tagAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomTag(n int) (string, error) {
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(tagAlphabet))))
		if err != nil {
			return "", err
		}
		b[i] = tagAlphabet[idx.Int64()]
	}
	return string(b), nil
}
