// Package pipeline drives one submission through the full grading state
// machine: Cleanup -> Compile -> LoadTests -> Lint? -> CompileChecker? ->
// Warmup -> per-test Run/Check/Truncate -> Score -> Aggregate. Grounded on
// internal/judge/service/judge_service.go's Service/HandleMessage
// structure, retargeted from the teacher's manifest/JudgeMessage
// indirection directly onto SubmissionRequest/SubmissionResult.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"judgeengine/internal/checker"
	"judgeengine/internal/compilecache"
	"judgeengine/internal/compiler"
	"judgeengine/internal/executor"
	"judgeengine/internal/model"
	"judgeengine/internal/scorer"
)

const (
	// maxFieldChars is the per-field truncation spec.md's §4.6 step 6 calls
	// for once return_outputs is requested.
	maxFieldChars = 32000
	// maxReturnedOutputsBytes is the cumulative budget across all tests'
	// returned outputs before later results are omitted entirely.
	maxReturnedOutputsBytes = 1 << 20

	omittedMessage = "Omitted outputs as the size of results exceeds 1MB"
)

// TestSource resolves SubmissionRequest.Problem into the problem's own test
// cases. Decryption/decompression are the collaborator's job per spec.md
// §6 ("the core does not implement decryption; it only calls that
// collaborator") — internal/testsource is the concrete implementation.
type TestSource interface {
	FetchTests(ctx context.Context, problem, encryptionKey string) ([]model.TestCase, error)
}

// Pipeline runs submissions against a shared scratch root. Each call to Run
// gets its own freshly-created, fully-removed-afterward subdirectory, which
// stands in for spec.md's "wipe the sandbox root" Cleanup step: the
// original judge process ran one submission at a time so a single shared
// `/tmp` could simply be wiped between runs, but this engine's worker pool
// (spec §5's horizontal goroutine fan-out) runs submissions concurrently,
// so each needs its own isolated root instead of a shared one to wipe.
type Pipeline struct {
	WorkRoot string

	// CompileCache, when set, memoizes a compiled Program for identical
	// (language, code) submissions so a resubmission of the same code
	// skips recompilation entirely. Left nil, every submission compiles.
	CompileCache CompileCache
}

// CompileCache is the subset of internal/compilecache.Cache's surface the
// pipeline needs; declared locally so pipeline depends on a narrow
// interface rather than the concrete MySQL-backed type.
type CompileCache interface {
	Get(ctx context.Context, language string, code model.CodeTree) (compilecache.Entry, bool, error)
	Put(ctx context.Context, language string, code model.CodeTree, entry compilecache.Entry) error
}

// New returns a Pipeline rooted at workRoot, which must already exist.
func New(workRoot string) *Pipeline {
	return &Pipeline{WorkRoot: workRoot}
}

// WithCompileCache attaches a compile cache to an existing Pipeline and
// returns it for chaining.
func (p *Pipeline) WithCompileCache(c CompileCache) *Pipeline {
	p.CompileCache = c
	return p
}

// Run executes the full state machine for req and returns its result.
// The returned error is non-nil only when req itself is malformed
// (SubmissionRequest.Validate failed) or the sandbox could not be prepared
// at all — callers should treat that as a request-level failure rather
// than a gradeable SubmissionResult, per spec §7's system-vs-domain split.
func (p *Pipeline) Run(ctx context.Context, req model.SubmissionRequest, source TestSource) (model.SubmissionResult, error) {
	return p.RunWithProgress(ctx, req, source, nil)
}

// ProgressFunc is invoked once per completed test, in order, as RunWithProgress
// grades a submission. Callers that don't need live per-test feedback should
// call Run instead, which passes a nil ProgressFunc.
type ProgressFunc func(index int, result model.RunResult)

// RunWithProgress behaves exactly like Run, except onProgress (when non-nil)
// is called synchronously after each test finishes, so a caller streaming
// results to a client (cmd/judge-worker's status/stream endpoint) can relay
// frames as they're produced instead of waiting for the whole submission.
func (p *Pipeline) RunWithProgress(ctx context.Context, req model.SubmissionRequest, source TestSource, onProgress ProgressFunc) (model.SubmissionResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return model.SubmissionResult{}, err
	}

	sandboxRoot, err := os.MkdirTemp(p.WorkRoot, "submission-")
	if err != nil {
		return model.SubmissionResult{}, fmt.Errorf("pipeline: create sandbox: %w", err)
	}
	defer os.RemoveAll(sandboxRoot)

	paths, err := compiler.WriteCodeTree(sandboxRoot, req.Code)
	if err != nil {
		return failureResult(compilationError(fmt.Errorf("pipeline: materialize submission: %w", err))), nil
	}

	comp, err := compiler.FromLanguage(req.Language)
	if err != nil {
		return failureResult(compilationError(err)), nil
	}

	program, compileResult := p.compile(ctx, comp, req, sandboxRoot, paths)
	if compileResult.Status != model.StatusOK {
		return model.SubmissionResult{Overall: compileResult, CompileResult: compileResult}, nil
	}

	testCases, err := p.loadTests(ctx, &req, source)
	if err != nil {
		res := model.RunResult{Status: model.StatusRuntimeError, Message: strPtr(fmt.Sprintf("pipeline: load tests: %v", err))}
		return model.SubmissionResult{Overall: res, CompileResult: compileResult}, nil
	}

	var lintResult *model.RunResult
	if req.Lint {
		res := compiler.LinterFromLanguage(req.Language).Lint(ctx, sandboxRoot, paths)
		lintResult = &res
		if res.Status != model.StatusOK {
			return model.SubmissionResult{Overall: res, CompileResult: compileResult, LintingResult: lintResult}, nil
		}
	}

	if isTxtLanguage(req.Language) && len(testCases) > 1 {
		// Text "programs" always produce the same output regardless of
		// input, so there's nothing more to learn from later tests.
		testCases = testCases[:1]
	}

	check, checkerResult := p.buildChecker(ctx, req, sandboxRoot)
	if checkerResult != nil {
		return model.SubmissionResult{Overall: *checkerResult, CompileResult: compileResult, LintingResult: lintResult}, nil
	}

	exec, cleanup, err := p.buildExecutor(program, paths, sandboxRoot)
	if err != nil {
		res := model.RunResult{Status: model.StatusRuntimeError, Message: strPtr(err.Error())}
		return model.SubmissionResult{Overall: res, CompileResult: compileResult, LintingResult: lintResult}, nil
	}
	defer cleanup()

	limits := executor.Limits{
		TimeLimitSeconds: req.TimeLimit,
		MemoryLimitMB:    req.MemoryLimit,
		OutputLimitMB:    req.OutputLimit,
	}

	if len(testCases) > 0 {
		// Warmup: run once and discard, to take JIT/class-load/dotnet-run
		// startup cost out of every test's timed measurement.
		exec.Run(ctx, testCases[0], limits)
		exec.Cleanup(testCases[0])
	}

	testResults := p.runTests(ctx, exec, check, testCases, limits, req, onProgress)

	total := scorer.FromRequest(req.TestGroups).Score(testResults)
	overall := aggregate(testResults, total)

	return model.SubmissionResult{
		Overall:       overall,
		CompileResult: compileResult,
		LintingResult: lintResult,
		TestResults:   testResults,
	}, nil
}

// compile consults CompileCache (if attached) before falling back to a
// real compile, and populates the cache on a successful miss.
func (p *Pipeline) compile(ctx context.Context, comp compiler.Compiler, req model.SubmissionRequest, sandboxRoot string, paths []string) (compiler.Program, model.RunResult) {
	if p.CompileCache != nil {
		if entry, ok, err := p.CompileCache.Get(ctx, req.Language, req.Code); err == nil && ok {
			return entry.Program, model.RunResult{Status: model.StatusOK}
		}
	}

	program, compileResult := comp.Compile(ctx, sandboxRoot, paths)
	if compileResult.Status == model.StatusOK && p.CompileCache != nil {
		_ = p.CompileCache.Put(ctx, req.Language, req.Code, compilecache.Entry{Program: program})
	}
	return program, compileResult
}

// loadTests merges request test cases with any problem-store tests, and
// falls back to a single synthetic always-pass test when both are empty,
// per spec.md §4.6 step 2.
func (p *Pipeline) loadTests(ctx context.Context, req *model.SubmissionRequest, source TestSource) ([]model.TestCase, error) {
	testCases := append([]model.TestCase{}, req.TestCases...)
	if req.Problem != "" && source != nil {
		extra, err := source.FetchTests(ctx, req.Problem, req.EncryptionKey)
		if err != nil {
			return nil, err
		}
		testCases = append(testCases, extra...)
	}
	if len(testCases) == 0 {
		testCases = []model.TestCase{{Input: "", Target: ""}}
		req.ComparisonMode = model.ComparisonOK
	}
	return testCases, nil
}

// buildChecker resolves the Checker for the request's comparison mode,
// compiling the checker program first when comparisonMode=custom. A
// non-nil RunResult return means checker compilation failed and the
// pipeline should stop with that as its overall result.
func (p *Pipeline) buildChecker(ctx context.Context, req model.SubmissionRequest, sandboxRoot string) (checker.Checker, *model.RunResult) {
	if req.ComparisonMode != model.ComparisonCustom {
		c, err := checker.FromMode(req.ComparisonMode, req.FloatPrecision, req.Delimiter)
		if err != nil {
			res := compilationError(err)
			return nil, &res
		}
		return c, nil
	}

	checkerDir := filepath.Join(sandboxRoot, "checker")
	checkerPaths, err := compiler.WriteCodeTree(checkerDir, req.CheckerCode)
	if err != nil {
		res := checkerCompilationError(err)
		return nil, &res
	}
	checkerCompiler, err := compiler.FromLanguage(req.CheckerLanguage)
	if err != nil {
		res := checkerCompilationError(err)
		return nil, &res
	}
	checkerProgram, res := checkerCompiler.Compile(ctx, checkerDir, checkerPaths)
	if res.Status != model.StatusOK {
		res.Status = model.StatusCompilationError
		res.Message = strPtr("Checker compilation failed")
		return nil, &res
	}
	return checker.NewCustom(checkerProgram, sandboxRoot, req.CheckerCode), nil
}

// buildExecutor builds the ProcessExecutor or SQLiteExecutor that program
// names, reading the SQL script straight off disk for the SQLite case
// since sqliteCompiler never produces a compiled artifact to run.
func (p *Pipeline) buildExecutor(program compiler.Program, paths []string, sandboxRoot string) (executor.Executor, func(), error) {
	if !program.SQLite {
		return executor.NewProcessExecutor(program.Argv, program.Env, sandboxRoot), func() {}, nil
	}
	script := ""
	if len(paths) > 0 {
		data, err := os.ReadFile(paths[0])
		if err != nil {
			return nil, nil, fmt.Errorf("read sql script: %w", err)
		}
		script = string(data)
	}
	sqliteExec, err := executor.NewSQLiteExecutor(sandboxRoot, "submission.db", script)
	if err != nil {
		return nil, nil, err
	}
	return sqliteExec, func() { sqliteExec.Close() }, nil
}

// runTests runs every test case in order, checking OK runs, skipping the
// rest once stop_on_first_fail triggers, and applying the size budget on
// returned outputs. Grounded on spec.md §4.6 steps 5-7.
func (p *Pipeline) runTests(ctx context.Context, exec executor.Executor, check checker.Checker, testCases []model.TestCase, limits executor.Limits, req model.SubmissionRequest, onProgress ProgressFunc) []model.RunResult {
	results := make([]model.RunResult, len(testCases))
	stopped := false
	sizeExceeded := false
	usedBytes := 0

	for i, tc := range testCases {
		if stopped {
			results[i] = model.RunResult{Status: model.StatusSkipped}
			if onProgress != nil {
				onProgress(i, results[i])
			}
			continue
		}

		result := exec.Run(ctx, tc, limits)
		if result.Status == model.StatusOK {
			status, score, msg := check.Check(ctx, tc, result)
			result.Status = status
			result.Score = score
			result.Message = msg
		} else {
			result.Score = 0
		}
		exec.Cleanup(tc)

		if req.ReturnOutputs {
			result, sizeExceeded, usedBytes = truncateOutputs(result, sizeExceeded, usedBytes)
		} else {
			result.Outputs, result.Errors, result.OutputFiles, result.OutputAssets = nil, nil, nil, nil
		}
		results[i] = result
		if onProgress != nil {
			onProgress(i, result)
		}

		if result.Status != model.StatusOK && req.StopOnFirstFail {
			stopped = true
		}
	}
	return results
}

func truncateOutputs(result model.RunResult, alreadyExceeded bool, usedBytes int) (model.RunResult, bool, int) {
	if alreadyExceeded {
		return omitOutputs(result), true, usedBytes
	}
	if result.Outputs != nil {
		s := truncateString(*result.Outputs)
		result.Outputs = &s
	}
	if result.Errors != nil {
		s := truncateString(*result.Errors)
		result.Errors = &s
	}
	for name, content := range result.OutputFiles {
		result.OutputFiles[name] = truncateString(content)
	}
	usedBytes += resultSize(result)
	if usedBytes > maxReturnedOutputsBytes {
		return omitOutputs(result), true, usedBytes
	}
	return result, false, usedBytes
}

func truncateString(s string) string {
	r := []rune(s)
	if len(r) <= maxFieldChars {
		return s
	}
	return string(r[:maxFieldChars])
}

func resultSize(result model.RunResult) int {
	size := 0
	if result.Outputs != nil {
		size += len(*result.Outputs)
	}
	if result.Errors != nil {
		size += len(*result.Errors)
	}
	for _, v := range result.OutputFiles {
		size += len(v)
	}
	for _, v := range result.OutputAssets {
		size += len(v)
	}
	return size
}

func omitOutputs(result model.RunResult) model.RunResult {
	result.Outputs, result.Errors, result.OutputFiles, result.OutputAssets = nil, nil, nil, nil
	msg := omittedMessage
	result.Message = &msg
	return result
}

// aggregate builds the overall RunResult: status of the first non-OK test
// (or OK), the maxima of memory/time across tests, the failing test's
// return code, and the scorer's total.
func aggregate(results []model.RunResult, total float64) model.RunResult {
	overall := model.RunResult{Status: model.StatusOK, Score: total}
	for _, r := range results {
		if r.Memory > overall.Memory {
			overall.Memory = r.Memory
		}
		if r.Time > overall.Time {
			overall.Time = r.Time
		}
		if overall.Status == model.StatusOK && r.Status != model.StatusOK {
			overall.Status = r.Status
			overall.ReturnCode = r.ReturnCode
		}
	}
	return overall
}

func isTxtLanguage(language string) bool {
	lang := strings.ToLower(language)
	return lang == "txt" || lang == "text"
}

func compilationError(err error) model.RunResult {
	msg := err.Error()
	return model.RunResult{Status: model.StatusCompilationError, Message: &msg, Errors: &msg}
}

func checkerCompilationError(err error) model.RunResult {
	msg := fmt.Sprintf("Checker compilation failed: %s", err.Error())
	return model.RunResult{Status: model.StatusCompilationError, Message: &msg, Errors: &msg}
}

func failureResult(res model.RunResult) model.SubmissionResult {
	return model.SubmissionResult{Overall: res, CompileResult: res}
}

func strPtr(s string) *string { return &s }
