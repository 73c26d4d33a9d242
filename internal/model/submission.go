package model

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// CodeTree is a possibly-nested tree of source files: leaves are file
// contents, non-leaf entries recurse into subdirectories.
type CodeTree map[string]interface{}

// TestCase is one unit of grading input/expected-output.
type TestCase struct {
	Input        string                `json:"input"`
	Target       string                `json:"target"`
	InputFiles   map[string]string     `json:"inputFiles,omitempty"`
	TargetFiles  map[string]string     `json:"targetFiles,omitempty"`
	InputAssets  map[string]AssetBytes `json:"inputAssets,omitempty"`
	TargetAssets map[string]AssetBytes `json:"targetAssets,omitempty"`
}

// ValidatePaths rejects any file/asset key that is absolute or escapes the
// sandbox root via "..".
func (t TestCase) ValidatePaths() error {
	for _, keys := range []map[string]string{t.InputFiles, t.TargetFiles} {
		for name := range keys {
			if err := validateRelPath(name); err != nil {
				return err
			}
		}
	}
	for _, keys := range []map[string]AssetBytes{t.InputAssets, t.TargetAssets} {
		for name := range keys {
			if err := validateRelPath(name); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateRelPath(name string) error {
	clean := filepath.Clean(name)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("model: invalid relative path %q", name)
	}
	return nil
}

// TestGroup (subtask) scores a contiguous run of tests together.
type TestGroup struct {
	Points        float64 `json:"points"`
	PointsPerTest float64 `json:"pointsPerTest"`
	Count         int     `json:"count"`
}

// Validate enforces the exactly-one-of points/pointsPerTest invariant.
func (g TestGroup) Validate() error {
	pointsSet := g.Points != 0
	perTestSet := g.PointsPerTest != 0
	if pointsSet == perTestSet {
		return fmt.Errorf("model: test group must set exactly one of points/pointsPerTest (points=%v pointsPerTest=%v)", g.Points, g.PointsPerTest)
	}
	if g.Count <= 0 {
		return fmt.Errorf("model: test group count must be positive, got %d", g.Count)
	}
	return nil
}

// ComparisonMode selects the Checker variant.
type ComparisonMode string

const (
	ComparisonOK     ComparisonMode = "ok"
	ComparisonWhole  ComparisonMode = "whole"
	ComparisonToken  ComparisonMode = "token"
	ComparisonCustom ComparisonMode = "custom"
)

// SubmissionRequest is the full input to the grading pipeline.
type SubmissionRequest struct {
	Code     CodeTree `json:"code"`
	Language string   `json:"language"`

	MemoryLimit int     `json:"memoryLimit"`
	TimeLimit   float64 `json:"timeLimit"`
	OutputLimit float64 `json:"outputLimit"`

	Problem string `json:"problem,omitempty"`

	TestCases  []TestCase  `json:"testCases,omitempty"`
	TestGroups []TestGroup `json:"testGroups,omitempty"`

	ReturnOutputs   bool `json:"returnOutputs"`
	StopOnFirstFail bool `json:"stopOnFirstFail"`
	Lint            bool `json:"lint"`

	ComparisonMode ComparisonMode `json:"comparisonMode"`
	FloatPrecision float64        `json:"floatPrecision"`
	Delimiter      *string        `json:"delimiter,omitempty"`

	CheckerCode     CodeTree `json:"checkerCode,omitempty"`
	CheckerLanguage string   `json:"checkerLanguage,omitempty"`

	EncryptionKey string `json:"encryptionKey,omitempty"`
	CallbackURL   string `json:"callbackUrl,omitempty"`
}

// UnmarshalJSON defaults stopOnFirstFail to true when the field is absent,
// since Go's zero value for bool would otherwise silently mean false.
func (r *SubmissionRequest) UnmarshalJSON(data []byte) error {
	type alias SubmissionRequest
	aux := struct {
		StopOnFirstFail *bool `json:"stopOnFirstFail"`
		*alias
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.StopOnFirstFail == nil {
		r.StopOnFirstFail = true
	} else {
		r.StopOnFirstFail = *aux.StopOnFirstFail
	}
	return nil
}

// Normalize applies the defaulting and case-folding rules spec.md describes
// for a freshly-decoded request (language lowercasing, default limits, mode).
func (r *SubmissionRequest) Normalize() {
	r.Language = strings.ToLower(r.Language)
	r.CheckerLanguage = strings.ToLower(r.CheckerLanguage)
	if r.MemoryLimit == 0 {
		r.MemoryLimit = 512
	}
	if r.TimeLimit == 0 {
		r.TimeLimit = 5
	}
	if r.OutputLimit == 0 {
		r.OutputLimit = 1
	}
	if r.ComparisonMode == "" {
		r.ComparisonMode = ComparisonWhole
	}
	if r.FloatPrecision == 0 {
		r.FloatPrecision = 1e-5
	}
}

// Validate enforces the request-level invariants from spec.md §3.
func (r SubmissionRequest) Validate() error {
	if r.Language == "" {
		return fmt.Errorf("model: language is required")
	}
	if r.ComparisonMode == ComparisonCustom {
		if len(r.CheckerCode) == 0 || r.CheckerLanguage == "" {
			return fmt.Errorf("model: comparisonMode=custom requires checkerCode and checkerLanguage")
		}
	}
	for i, g := range r.TestGroups {
		if err := g.Validate(); err != nil {
			return fmt.Errorf("model: test group %d: %w", i, err)
		}
	}
	for i, tc := range r.TestCases {
		if err := tc.ValidatePaths(); err != nil {
			return fmt.Errorf("model: test case %d: %w", i, err)
		}
	}
	return nil
}

// RunResult is the outcome of running one program once (one test, or the
// compile/lint/overall roll-ups).
type RunResult struct {
	Status     Status  `json:"status"`
	Memory     float64 `json:"memory"`
	Time       float64 `json:"time"`
	ReturnCode int     `json:"returnCode"`
	Score      float64 `json:"score"`

	Message *string `json:"message,omitempty"`
	Outputs *string `json:"outputs,omitempty"`
	Errors  *string `json:"errors,omitempty"`

	OutputFiles  map[string]string     `json:"outputFiles,omitempty"`
	OutputAssets map[string]AssetBytes `json:"outputAssets,omitempty"`
}

// SubmissionResult is the full pipeline output.
type SubmissionResult struct {
	Overall       RunResult   `json:"overall"`
	CompileResult RunResult   `json:"compileResult"`
	LintingResult *RunResult  `json:"lintingResult,omitempty"`
	TestResults   []RunResult `json:"testResults,omitempty"`
}
