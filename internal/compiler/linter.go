package compiler

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/shlex"

	"judgeengine/internal/model"
	"judgeengine/internal/supervisor"
)

const lintTimeoutSeconds = 100

// Linter runs a static-analysis pass over already-materialized source
// files and returns the diagnostic as a RunResult. Grounded on
// original_source/coderunners/linters.py; request.lint and
// SubmissionResult.lintingResult are dropped from spec.md's distillation
// but present throughout the original.
type Linter interface {
	Lint(ctx context.Context, dir string, paths []string) model.RunResult
}

// LinterFromLanguage returns the linter for language, or a no-op OK linter
// for anything the original never wired a linter for (only C++ is, per
// linters.py's CppLinter).
func LinterFromLanguage(language string) Linter {
	lang := strings.ToLower(language)
	if cppLintStandards[lang] {
		std := lang
		if std == "c++" {
			std = "c++20"
		}
		return cppLinter{standard: std}
	}
	return noopLinter{}
}

var cppLintStandards = map[string]bool{
	"c++": true, "c++11": true, "c++14": true, "c++17": true, "c++20": true,
}

type noopLinter struct{}

func (noopLinter) Lint(_ context.Context, _ string, _ []string) model.RunResult {
	return okResult()
}

// clangTidyChecks is the fixed allowlist linters.py enables; checks are
// disabled by default (-checks=-*) and only these are turned back on.
var clangTidyChecks = []string{
	"bugprone-argument-comment", "bugprone-assert-side-effect", "bugprone-bad-signal-to-kill-thread",
	"bugprone-branch-clone", "bugprone-copy-constructor-init", "bugprone-dangling-handle",
	"bugprone-dynamic-static-initializers", "bugprone-fold-init-type", "bugprone-forward-declaration-namespace",
	"bugprone-forwarding-reference-overload", "bugprone-inaccurate-erase", "bugprone-incorrect-roundings",
	"bugprone-integer-division", "bugprone-lambda-function-name", "bugprone-macro-parentheses",
	"bugprone-macro-repeated-side-effects", "bugprone-misplaced-operator-in-strlen-in-alloc",
	"bugprone-misplaced-pointer-arithmetic-in-alloc", "bugprone-misplaced-widening-cast",
	"bugprone-move-forwarding-reference", "bugprone-multiple-statement-macro", "bugprone-no-escape",
	"bugprone-not-null-terminated-result", "bugprone-parent-virtual-call", "bugprone-posix-return",
	"bugprone-reserved-identifier", "bugprone-sizeof-container", "bugprone-sizeof-expression",
	"bugprone-spuriously-wake-up-functions", "bugprone-string-constructor", "bugprone-string-integer-assignment",
	"bugprone-string-literal-with-embedded-nul", "bugprone-suspicious-enum-usage", "bugprone-suspicious-include",
	"bugprone-suspicious-memset-usage", "bugprone-suspicious-missing-comma", "bugprone-suspicious-semicolon",
	"bugprone-suspicious-string-compare", "bugprone-swapped-arguments", "bugprone-terminating-continue",
	"bugprone-throw-keyword-missing", "bugprone-too-small-loop-variable", "bugprone-undefined-memory-manipulation",
	"bugprone-undelegated-constructor", "bugprone-unhandled-self-assignment", "bugprone-unused-raii",
	"bugprone-unused-return-value", "bugprone-use-after-move", "bugprone-virtual-near-miss",
	"cert-dcl21-cpp", "cert-dcl58-cpp", "cert-err34-c", "cert-err52-cpp", "cert-err58-cpp", "cert-err60-cpp",
	"cert-flp30-c", "cert-msc50-cpp", "cert-msc51-cpp", "cert-str34-c",
	"cppcoreguidelines-interfaces-global-init", "cppcoreguidelines-pro-type-static-cast-downcast",
	"cppcoreguidelines-slicing",
	"google-default-arguments", "google-explicit-constructor", "google-runtime-operator",
	"hicpp-exception-baseclass", "hicpp-multiway-paths-covered",
	"misc-misplaced-const", "misc-new-delete-overloads", "misc-no-recursion", "misc-non-copyable-objects",
	"misc-throw-by-value-catch-by-reference", "misc-unconventional-assign-operator", "misc-uniqueptr-reset-release",
	"modernize-avoid-bind", "modernize-concat-nested-namespaces", "modernize-deprecated-headers",
	"modernize-deprecated-ios-base-aliases", "modernize-make-shared", "modernize-make-unique",
	"modernize-pass-by-value", "modernize-raw-string-literal", "modernize-redundant-void-arg",
	"modernize-replace-auto-ptr", "modernize-replace-disallow-copy-and-assign-macro",
	"modernize-replace-random-shuffle", "modernize-return-braced-init-list", "modernize-shrink-to-fit",
	"modernize-unary-static-assert", "modernize-use-auto", "modernize-use-bool-literals",
	"modernize-use-emplace", "modernize-use-equals-default", "modernize-use-equals-delete",
	"modernize-use-nodiscard", "modernize-use-noexcept", "modernize-use-nullptr", "modernize-use-override",
	"modernize-use-transparent-functors", "modernize-use-uncaught-exceptions",
	"mpi-buffer-deref", "mpi-type-mismatch", "openmp-use-default-none",
	"performance-faster-string-find", "performance-for-range-copy", "performance-implicit-conversion-in-loop",
	"performance-inefficient-algorithm", "performance-inefficient-string-concatenation",
	"performance-inefficient-vector-operation", "performance-move-const-arg", "performance-move-constructor-init",
	"performance-no-automatic-move", "performance-noexcept-move-constructor", "performance-trivially-destructible",
	"performance-type-promotion-in-math-fn", "performance-unnecessary-copy-initialization",
	"performance-unnecessary-value-param",
	"portability-simd-intrinsics",
	"readability-avoid-const-params-in-decls", "readability-const-return-type",
	"readability-container-size-empty", "readability-convert-member-functions-to-static",
	"readability-delete-null-pointer", "readability-deleted-default",
	"readability-inconsistent-declaration-parameter-name", "readability-make-member-function-const",
	"readability-misleading-indentation", "readability-misplaced-array-index", "readability-non-const-parameter",
	"readability-redundant-control-flow", "readability-redundant-declaration",
	"readability-redundant-function-ptr-dereference", "readability-redundant-smartptr-get",
	"readability-redundant-string-cstr", "readability-redundant-string-init",
	"readability-simplify-subscript-expr", "readability-static-accessed-through-instance",
	"readability-static-definition-in-anonymous-namespace", "readability-string-compare",
	"readability-uniqueptr-delete-release", "readability-use-anyofallof",
}

const clangTidySystemHeaderNotice = "Use -system-headers to display errors from system headers as well.\n"

type cppLinter struct{ standard string }

func (l cppLinter) Lint(ctx context.Context, dir string, paths []string) model.RunResult {
	checks := "-checks=-*," + strings.Join(clangTidyChecks, ",")
	cmd := fmt.Sprintf("clang-tidy -warnings-as-errors=* %s %s -- -std=%s",
		checks, strings.Join(paths, " "), l.standard)
	tidyArgv, err := shlex.Split(cmd)
	if err != nil {
		msg := err.Error()
		return model.RunResult{Status: model.StatusLintingError, Message: &msg}
	}
	tidyRes := supervisor.Run(ctx, supervisor.Request{
		Argv:           tidyArgv,
		Dir:            dir,
		TimeoutSeconds: lintTimeoutSeconds,
		MemoryLimitMB:  compileMemoryLimitMB,
		OutputLimitMB:  8,
	})
	tidyRes = stripSystemHeaderNotice(tidyRes)
	if tidyRes.Errors != nil && *tidyRes.Errors != "" {
		tidyRes.Status = model.StatusLintingError
	}
	if tidyRes.Status != model.StatusOK {
		return tidyRes
	}

	formatRes := supervisor.Run(ctx, supervisor.Request{
		Argv: append([]string{"clang-format",
			`--style={BasedOnStyle: llvm, IndentWidth: 4, SortIncludes: false}`,
			"--dry-run", "--Werror"}, paths...),
		Dir:            dir,
		TimeoutSeconds: lintTimeoutSeconds,
		MemoryLimitMB:  compileMemoryLimitMB,
		OutputLimitMB:  8,
	})
	if formatRes.Errors != nil && *formatRes.Errors != "" {
		formatRes.Status = model.StatusLintingError
	}
	return formatRes
}

// stripSystemHeaderNotice removes clang-tidy's boilerplate about
// system-header warnings being hidden, which otherwise makes every run
// look like it has diagnostics even when none are user-code issues.
func stripSystemHeaderNotice(res model.RunResult) model.RunResult {
	if res.Errors == nil {
		return res
	}
	if idx := strings.Index(*res.Errors, clangTidySystemHeaderNotice); idx >= 0 {
		trimmed := strings.TrimSpace((*res.Errors)[idx+len(clangTidySystemHeaderNotice):])
		res.Errors = &trimmed
	}
	return res
}
