// Package compiler maps (language, code tree) to a runnable program plus a
// compile-time RunResult, grounded on
// original_source/coderunners/compilers.py's Compiler hierarchy.
package compiler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/shlex"

	"judgeengine/internal/model"
	"judgeengine/internal/supervisor"
)

const (
	compileTimeoutSeconds = 10
	dotnetTimeoutSeconds  = 30
	compileMemoryLimitMB  = 512
)

// Program is a compiled, runnable command: argv plus any extra environment
// variables the execution command needs (e.g. ASAN_OPTIONS), split out from
// the shell-string form the Python original built since exec.Cmd takes argv
// and env separately rather than a single shell line.
type Program struct {
	Argv []string
	Env  []string
	// SQLite is true for sql/sqlite submissions: there is no compiled
	// program at all, and the pipeline must build an executor.SQLiteExecutor
	// directly instead of an executor.ProcessExecutor from Argv/Env.
	SQLite bool
}

// Compiler turns a set of already-materialized source file paths into a
// Program plus the compile-step's own RunResult (status OK unless the
// build tool failed). dir is the sandbox root the paths live under, and
// the directory any build tool should run in.
type Compiler interface {
	Compile(ctx context.Context, dir string, paths []string) (Program, model.RunResult)
}

// FromLanguage dispatches on a case-folded language tag. Unknown tags
// return an error the pipeline turns into a well-formed CompilationError.
func FromLanguage(language string) (Compiler, error) {
	lang := strings.ToLower(language)
	switch {
	case lang == "txt" || lang == "text":
		return txtCompiler{}, nil
	case lang == "c" || lang == "c11" || lang == "c17" || lang == "c23" || lang == "c2x":
		std := lang
		if std == "c" {
			std = "c23"
		}
		return cCompiler{standard: std}, nil
	case strings.HasPrefix(lang, "c++"):
		std := lang
		switch std {
		case "c++":
			std = "c++20"
		case "c++23":
			std = "c++2b"
		}
		if !cppStandards[std] {
			return nil, fmt.Errorf("compiler: unsupported c++ standard %q", language)
		}
		return cppCompiler{standard: std}, nil
	case lang == "python" || lang == "python3":
		return pythonCompiler{interpreter: lang}, nil
	case lang == "pythonml":
		return pythonMLCompiler{}, nil
	case lang == "c#":
		return csharpCompiler{}, nil
	case lang == "js":
		return jsCompiler{}, nil
	case lang == "java":
		return javaCompiler{}, nil
	case lang == "sql" || lang == "sqlite":
		return sqliteCompiler{}, nil
	default:
		return nil, fmt.Errorf("compiler: %q does not have a compiler yet", language)
	}
}

var cppStandards = map[string]bool{
	"c++11": true, "c++14": true, "c++17": true, "c++20": true, "c++2b": true,
}

// findMainFile returns the path among paths whose base name matches
// mainName, or paths[0] if none does (mirrors Compiler.find_main_file_path).
func findMainFile(paths []string, mainName string) string {
	for _, p := range paths {
		if filepath.Base(p) == mainName {
			return p
		}
	}
	if len(paths) > 0 {
		return paths[0]
	}
	return ""
}

func withSuffix(path, suffix string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + suffix
}

// runBuildStep tokenizes a shell-style command line with shlex and runs it
// through the Supervisor, translating its own timeout/MLE classification
// into the compile-specific "Compilation time/memory limit exceeded"
// messages spec.md calls for.
func runBuildStep(ctx context.Context, dir, commandLine string, timeoutSeconds float64) model.RunResult {
	argv, err := shlex.Split(commandLine)
	if err != nil {
		return compilationError(fmt.Errorf("compiler: tokenize build command: %w", err))
	}
	res := supervisor.Run(ctx, supervisor.Request{
		Argv:           argv,
		Dir:            dir,
		TimeoutSeconds: timeoutSeconds,
		MemoryLimitMB:  compileMemoryLimitMB,
		OutputLimitMB:  8,
	})
	return toCompileResult(res)
}

// toCompileResult reclassifies a raw Supervisor RunResult as the compiler's
// own status vocabulary: anything other than a clean OK becomes
// CompilationError, with a human-readable message for the TLE/MLE cases.
func toCompileResult(res model.RunResult) model.RunResult {
	switch res.Status {
	case model.StatusOK:
		if res.ReturnCode != 0 || (res.Errors != nil && *res.Errors != "") {
			res.Status = model.StatusCompilationError
		}
		return res
	case model.StatusTLE:
		msg := "Compilation time limit exceeded"
		res.Status = model.StatusCompilationError
		res.Message = &msg
		return res
	case model.StatusMLE:
		msg := "Compilation memory limit exceeded"
		res.Status = model.StatusCompilationError
		res.Message = &msg
		return res
	default:
		res.Status = model.StatusCompilationError
		return res
	}
}

func compilationError(err error) model.RunResult {
	msg := err.Error()
	return model.RunResult{Status: model.StatusCompilationError, Message: &msg, Errors: &msg}
}
