package model

import "testing"

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusOK, "Solved"},
		{StatusWA, "Wrong answer"},
		{StatusTLE, "Time limit exceeded"},
		{StatusMLE, "Memory limit exceeded"},
		{StatusOLE, "Output limit exceeded"},
		{StatusRuntimeError, "Runtime error"},
		{StatusCompilationError, "Compilation error"},
		{StatusLintingError, "Linting error"},
		{StatusSkipped, "Skipped"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.status.String(); got != tt.want {
				t.Errorf("String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusJSONRoundTrip(t *testing.T) {
	for status := StatusOK; status <= StatusSkipped; status++ {
		data, err := status.MarshalJSON()
		if err != nil {
			t.Fatalf("MarshalJSON(%v): %v", status, err)
		}
		var got Status
		if err := got.UnmarshalJSON(data); err != nil {
			t.Fatalf("UnmarshalJSON(%s): %v", data, err)
		}
		if got != status {
			t.Errorf("round trip: got %v, want %v", got, status)
		}
	}
}

func TestParseStatusUnknown(t *testing.T) {
	if _, err := ParseStatus("not a status"); err == nil {
		t.Error("expected error for unrecognized status string")
	}
}
