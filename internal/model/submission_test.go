package model

import (
	"encoding/json"
	"testing"
)

func TestTestGroupValidate(t *testing.T) {
	tests := []struct {
		name    string
		group   TestGroup
		wantErr bool
	}{
		{"points only", TestGroup{Points: 20, Count: 2}, false},
		{"points per test only", TestGroup{PointsPerTest: 10, Count: 3}, false},
		{"neither set", TestGroup{Count: 2}, true},
		{"both set", TestGroup{Points: 10, PointsPerTest: 5, Count: 2}, true},
		{"zero count", TestGroup{Points: 10, Count: 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.group.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTestCaseValidatePathsRejectsTraversal(t *testing.T) {
	tc := TestCase{InputFiles: map[string]string{"../escape.txt": "x"}}
	if err := tc.ValidatePaths(); err == nil {
		t.Error("expected error for path traversal")
	}
}

func TestTestCaseValidatePathsAllowsNested(t *testing.T) {
	tc := TestCase{InputFiles: map[string]string{"dir/nested.txt": "x"}}
	if err := tc.ValidatePaths(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSubmissionRequestUnmarshalDefaultsStopOnFirstFail(t *testing.T) {
	var req SubmissionRequest
	if err := json.Unmarshal([]byte(`{"language":"python"}`), &req); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !req.StopOnFirstFail {
		t.Error("expected stopOnFirstFail to default to true")
	}
}

func TestSubmissionRequestUnmarshalHonorsExplicitFalse(t *testing.T) {
	var req SubmissionRequest
	if err := json.Unmarshal([]byte(`{"language":"python","stopOnFirstFail":false}`), &req); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if req.StopOnFirstFail {
		t.Error("expected stopOnFirstFail to stay false when explicitly set")
	}
}

func TestSubmissionRequestNormalizeDefaults(t *testing.T) {
	req := SubmissionRequest{Language: "C++17"}
	req.Normalize()
	if req.Language != "c++17" {
		t.Errorf("Language = %q, want lowercased", req.Language)
	}
	if req.MemoryLimit != 512 || req.TimeLimit != 5 || req.OutputLimit != 1 {
		t.Errorf("unexpected defaults: %+v", req)
	}
	if req.ComparisonMode != ComparisonWhole {
		t.Errorf("ComparisonMode = %v, want whole", req.ComparisonMode)
	}
	if req.FloatPrecision != 1e-5 {
		t.Errorf("FloatPrecision = %v, want 1e-5", req.FloatPrecision)
	}
}

func TestSubmissionRequestValidateCustomRequiresChecker(t *testing.T) {
	req := SubmissionRequest{Language: "cpp", ComparisonMode: ComparisonCustom}
	if err := req.Validate(); err == nil {
		t.Error("expected error when custom mode lacks checker code/language")
	}
}
