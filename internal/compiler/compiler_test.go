package compiler

import (
	"testing"

	"judgeengine/internal/model"
)

func TestWriteCodeTree(t *testing.T) {
	root := t.TempDir()
	tree := model.CodeTree{
		"main.cpp": "int main(){}",
		"dir": map[string]interface{}{
			"helper.cpp": "void helper(){}",
		},
	}
	paths, err := WriteCodeTree(root, tree)
	if err != nil {
		t.Fatalf("WriteCodeTree: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("got %d paths, want 2: %v", len(paths), paths)
	}
}

func TestToCompileResultReturnCodeZeroWithStderrIsCompilationError(t *testing.T) {
	stderr := "warning treated as error: unused variable 'x'"
	res := toCompileResult(model.RunResult{Status: model.StatusOK, ReturnCode: 0, Errors: &stderr})
	if res.Status != model.StatusCompilationError {
		t.Errorf("status = %v, want CompilationError (nonzero stderr with exit code 0)", res.Status)
	}
}

func TestToCompileResultReturnCodeZeroNoStderrIsOK(t *testing.T) {
	res := toCompileResult(model.RunResult{Status: model.StatusOK, ReturnCode: 0})
	if res.Status != model.StatusOK {
		t.Errorf("status = %v, want OK", res.Status)
	}
}

func TestToCompileResultEmptyStderrStringIsOK(t *testing.T) {
	empty := ""
	res := toCompileResult(model.RunResult{Status: model.StatusOK, ReturnCode: 0, Errors: &empty})
	if res.Status != model.StatusOK {
		t.Errorf("status = %v, want OK (empty, non-nil stderr is not a failure)", res.Status)
	}
}

func TestFromLanguageUnknown(t *testing.T) {
	if _, err := FromLanguage("brainfuck"); err == nil {
		t.Error("expected error for unknown language")
	}
}

func TestFromLanguageDispatchesKnownTags(t *testing.T) {
	tests := []string{"txt", "text", "c", "c11", "c++", "c++17", "python", "python3", "pythonml", "c#", "js", "java", "sql", "sqlite"}
	for _, lang := range tests {
		if _, err := FromLanguage(lang); err != nil {
			t.Errorf("FromLanguage(%q) = %v", lang, err)
		}
	}
}

func TestFromLanguageRejectsUnknownCppStandard(t *testing.T) {
	if _, err := FromLanguage("c++99"); err == nil {
		t.Error("expected error for unsupported c++ standard")
	}
}

func TestFindMainFile(t *testing.T) {
	paths := []string{"/tmp/x/helper.cpp", "/tmp/x/main.cpp"}
	if got := findMainFile(paths, "main.cpp"); got != "/tmp/x/main.cpp" {
		t.Errorf("findMainFile = %q", got)
	}
	if got := findMainFile(paths, "missing.cpp"); got != paths[0] {
		t.Errorf("findMainFile fallback = %q, want %q", got, paths[0])
	}
}

func TestWithSuffix(t *testing.T) {
	if got := withSuffix("/tmp/main.cpp", ".o"); got != "/tmp/main.o" {
		t.Errorf("withSuffix = %q", got)
	}
}

func TestSQLiteCompilerReturnsMarker(t *testing.T) {
	c, err := FromLanguage("sqlite")
	if err != nil {
		t.Fatalf("FromLanguage: %v", err)
	}
	program, res := c.Compile(nil, "", nil)
	if !program.SQLite {
		t.Error("expected SQLite program marker")
	}
	if res.Status != model.StatusOK {
		t.Errorf("status = %v, want OK", res.Status)
	}
}

func TestLinterFromLanguageNoopForNonCpp(t *testing.T) {
	l := LinterFromLanguage("python")
	res := l.Lint(nil, "", nil)
	if res.Status != model.StatusOK {
		t.Errorf("status = %v, want OK for noop linter", res.Status)
	}
}
