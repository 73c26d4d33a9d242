package compiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"judgeengine/internal/model"
)

func okResult() model.RunResult {
	return model.RunResult{Status: model.StatusOK}
}

// --- txt / text ---------------------------------------------------------

type txtCompiler struct{}

const txtMainFile = "main.txt"

func (txtCompiler) Compile(_ context.Context, _ string, paths []string) (Program, model.RunResult) {
	if len(paths) != 1 {
		return Program{}, compilationError(fmt.Errorf("compiler: only one file is allowed for txt submissions"))
	}
	return Program{Argv: []string{"cat", paths[0]}}, okResult()
}

// --- c -------------------------------------------------------------------

const cMainFile = "main.c"

type cCompiler struct{ standard string }

func (c cCompiler) Compile(ctx context.Context, dir string, paths []string) (Program, model.RunResult) {
	mainFile := findMainFile(paths, cMainFile)
	exe := withSuffix(mainFile, ".o")
	cmd := fmt.Sprintf("gcc -O3 -std=%s %s -o %s", c.standard, strings.Join(paths, " "), exe)
	res := runBuildStep(ctx, dir, cmd, compileTimeoutSeconds)
	return Program{Argv: []string{exe}}, res
}

// --- c++ -------------------------------------------------------------------

const cppMainFile = "main.cpp"

type cppCompiler struct{ standard string }

func (c cppCompiler) Compile(ctx context.Context, dir string, paths []string) (Program, model.RunResult) {
	mainFile := findMainFile(paths, cppMainFile)
	exe := withSuffix(mainFile, ".o")
	cmd := fmt.Sprintf("g++ -O3 -Wno-write-strings -fsanitize=address -std=%s %s -o %s",
		c.standard, strings.Join(paths, " "), exe)
	res := runBuildStep(ctx, dir, cmd, compileTimeoutSeconds)
	return Program{
		Argv: []string{exe},
		Env:  []string{"ASAN_OPTIONS=detect_leaks=1", "LSAN_OPTIONS=detect_leaks=0"},
	}, res
}

// --- python / python3 -------------------------------------------------------

const pythonMainFile = "main.py"

type pythonCompiler struct{ interpreter string }

func (p pythonCompiler) Compile(ctx context.Context, dir string, paths []string) (Program, model.RunResult) {
	mainFile := findMainFile(paths, pythonMainFile)
	cmd := fmt.Sprintf("%s -m py_compile %s", p.interpreter, strings.Join(paths, " "))
	res := runBuildStep(ctx, dir, cmd, compileTimeoutSeconds)
	removeCompiledArtifacts(paths)
	return Program{Argv: []string{p.interpreter, mainFile}}, res
}

type pythonMLCompiler struct{}

func (pythonMLCompiler) Compile(ctx context.Context, dir string, paths []string) (Program, model.RunResult) {
	mainFile := findMainFile(paths, pythonMainFile)
	cmd := fmt.Sprintf("python -m py_compile %s", strings.Join(paths, " "))
	res := runBuildStep(ctx, dir, cmd, compileTimeoutSeconds)
	removeCompiledArtifacts(paths)
	return Program{
		Argv: []string{"python", mainFile},
		Env:  []string{"MPLCONFIGDIR=/tmp/matplotlib"},
	}, res
}

func removeCompiledArtifacts(paths []string) {
	for _, p := range paths {
		_ = os.Remove(withSuffix(p, ".pyc"))
	}
}

// --- c# --------------------------------------------------------------------

type csharpCompiler struct{}

func (csharpCompiler) Compile(ctx context.Context, dir string, paths []string) (Program, model.RunResult) {
	projectDir := filepath.Join(dir, "csproject")
	dllDir := filepath.Join(dir, "out")

	createRes := runBuildStep(ctx, dir, fmt.Sprintf("dotnet new console -o %s", projectDir), dotnetTimeoutSeconds)
	if createRes.Status != model.StatusOK {
		return Program{}, createRes
	}
	// Remove the template's default Program.cs so the submission's own
	// main file is the one dotnet builds.
	_ = os.Remove(filepath.Join(projectDir, "Program.cs"))

	for _, src := range paths {
		rel, err := filepath.Rel(dir, src)
		if err != nil {
			rel = filepath.Base(src)
		}
		destination := filepath.Join(projectDir, rel)
		if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
			return Program{}, compilationError(err)
		}
		data, err := os.ReadFile(src)
		if err != nil {
			return Program{}, compilationError(err)
		}
		if err := os.WriteFile(destination, data, 0o644); err != nil {
			return Program{}, compilationError(err)
		}
	}

	projectFile := findProjectFile(projectDir)
	buildRes := runBuildStep(ctx, dir, fmt.Sprintf("dotnet build %s -c Release -o %s", projectFile, dllDir), dotnetTimeoutSeconds)
	dllPath := filepath.Join(dllDir, "program.dll")
	return Program{Argv: []string{"dotnet", "run", dllPath, "--project", projectDir}}, buildRes
}

func findProjectFile(projectDir string) string {
	entries, err := os.ReadDir(projectDir)
	if err != nil {
		return filepath.Join(projectDir, "csproject.csproj")
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".csproj") {
			return filepath.Join(projectDir, e.Name())
		}
	}
	return filepath.Join(projectDir, "csproject.csproj")
}

// --- js ----------------------------------------------------------------

const jsMainFile = "index.js"

type jsCompiler struct{}

func (jsCompiler) Compile(ctx context.Context, dir string, paths []string) (Program, model.RunResult) {
	mainFile := findMainFile(paths, jsMainFile)
	project := mainFile
	if len(paths) != 1 {
		project = filepath.Dir(mainFile)
	}
	res := runBuildStep(ctx, dir, fmt.Sprintf("node --check %s", project), compileTimeoutSeconds)
	return Program{Argv: []string{"node", project}}, res
}

// --- java ----------------------------------------------------------------

type javaCompiler struct{}

func (javaCompiler) Compile(ctx context.Context, dir string, paths []string) (Program, model.RunResult) {
	buildDir := filepath.Join(dir, "build")
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return Program{}, compilationError(err)
	}

	var sources []string
	for _, p := range paths {
		if filepath.Ext(p) == ".java" {
			sources = append(sources, p)
		}
	}
	buildRes := runBuildStep(ctx, dir, fmt.Sprintf("javac -d %s %s", buildDir, strings.Join(sources, " ")), compileTimeoutSeconds)
	jarPath := filepath.Join(buildDir, "Main.jar")
	program := Program{Argv: []string{"java", "-cp", jarPath, "Main"}}
	if buildRes.Status != model.StatusOK {
		return program, buildRes
	}

	jarRes := runBuildStep(ctx, buildDir, "jar cvf Main.jar .", compileTimeoutSeconds)
	return program, jarRes
}

// --- sql / sqlite ----------------------------------------------------------

type sqliteCompiler struct{}

func (sqliteCompiler) Compile(_ context.Context, _ string, _ []string) (Program, model.RunResult) {
	return Program{SQLite: true}, okResult()
}
