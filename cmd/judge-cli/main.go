// Command judge-cli is a local debug REPL for internal/pipeline: it runs
// submissions straight against a Pipeline with no Kafka, Redis, or MinIO in
// the loop, for poking at grading behavior from a terminal. Grounded on
// cmd/judge-worker's pipeline wiring, with the queue/cache/storage layers
// stripped out.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"judgeengine/internal/model"
	"judgeengine/internal/pipeline"

	"github.com/chzyer/readline"
)

const prompt = "judge-cli> "

func main() {
	workRoot, err := os.MkdirTemp("", "judge-cli-")
	if err != nil {
		fmt.Fprintf(os.Stderr, "create work root: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(workRoot)

	rl, err := readline.New(prompt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init readline: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	repl := &repl{pipeline: pipeline.New(workRoot), out: rl.Stdout()}
	fmt.Fprintln(repl.out, "judge-cli: submit a SubmissionRequest JSON file and see it graded. Type 'help' for commands.")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				break
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "readline: %v\n", err)
			break
		}

		repl.handle(strings.TrimSpace(line))
	}
}

type repl struct {
	pipeline *pipeline.Pipeline
	out      io.Writer
}

func (r *repl) handle(line string) {
	if line == "" {
		return
	}
	cmd, arg, _ := strings.Cut(line, " ")

	switch cmd {
	case "help":
		fmt.Fprintln(r.out, "commands:")
		fmt.Fprintln(r.out, "  run <path>   grade the SubmissionRequest JSON at path")
		fmt.Fprintln(r.out, "  exit, quit   leave the REPL")
	case "run":
		r.runFile(strings.TrimSpace(arg))
	case "exit", "quit":
		os.Exit(0)
	default:
		fmt.Fprintf(r.out, "unknown command %q, try 'help'\n", cmd)
	}
}

func (r *repl) runFile(path string) {
	if path == "" {
		fmt.Fprintln(r.out, "usage: run <path-to-submission.json>")
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(r.out, "read %s: %v\n", path, err)
		return
	}

	var req model.SubmissionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		fmt.Fprintf(r.out, "parse %s: %v\n", path, err)
		return
	}

	result, err := r.pipeline.Run(context.Background(), req, nil)
	if err != nil {
		fmt.Fprintf(r.out, "run failed: %v\n", err)
		return
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(r.out, "encode result: %v\n", err)
		return
	}
	fmt.Fprintln(r.out, string(encoded))
}
