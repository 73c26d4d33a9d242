package model

import "fmt"

// Status is the closed verdict taxonomy for a single run.
type Status int

const (
	StatusOK Status = iota
	StatusWA
	StatusTLE
	StatusMLE
	StatusOLE
	StatusRuntimeError
	StatusCompilationError
	StatusLintingError
	StatusSkipped
)

var statusNames = map[Status]string{
	StatusOK:               "Solved",
	StatusWA:               "Wrong answer",
	StatusTLE:              "Time limit exceeded",
	StatusMLE:              "Memory limit exceeded",
	StatusOLE:              "Output limit exceeded",
	StatusRuntimeError:     "Runtime error",
	StatusCompilationError: "Compilation error",
	StatusLintingError:     "Linting error",
	StatusSkipped:          "Skipped",
}

var namesToStatus = func() map[string]Status {
	m := make(map[string]Status, len(statusNames))
	for s, name := range statusNames {
		m[name] = s
	}
	return m
}()

// String renders the wire-visible, human-readable form.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Unknown"
}

// ParseStatus parses a wire status string back into a Status.
func ParseStatus(s string) (Status, error) {
	if v, ok := namesToStatus[s]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("model: unrecognized status %q", s)
}

// MarshalJSON renders the status as its human-readable string.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON parses the status from its human-readable string.
func (s *Status) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("model: status must be a JSON string, got %s", data)
	}
	parsed, err := ParseStatus(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
