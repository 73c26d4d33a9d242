package supervisor

import (
	"context"
	"os"
	"testing"

	"judgeengine/internal/model"
)

func baseRequest() Request {
	return Request{
		TimeoutSeconds: 2,
		MemoryLimitMB:  256,
		OutputLimitMB:  1,
		Dir:            os.TempDir(),
	}
}

func TestRunEchoOK(t *testing.T) {
	req := baseRequest()
	req.Argv = []string{"/bin/echo", "hello"}
	res := Run(context.Background(), req)
	if res.Status != model.StatusOK {
		t.Fatalf("status = %v, want OK (errors=%v)", res.Status, deref(res.Errors))
	}
	if deref(res.Outputs) != "hello\n" {
		t.Errorf("outputs = %q, want %q", deref(res.Outputs), "hello\n")
	}
	if res.ReturnCode != 0 {
		t.Errorf("returnCode = %d, want 0", res.ReturnCode)
	}
}

func TestRunEchoesStdin(t *testing.T) {
	req := baseRequest()
	req.Argv = []string{"/bin/cat"}
	req.Input = "ping"
	res := Run(context.Background(), req)
	if res.Status != model.StatusOK {
		t.Fatalf("status = %v, want OK", res.Status)
	}
	if deref(res.Outputs) != "ping\n" {
		t.Errorf("outputs = %q, want %q", deref(res.Outputs), "ping\n")
	}
}

func TestRunNonzeroExitIsRuntimeError(t *testing.T) {
	req := baseRequest()
	req.Argv = []string{"/bin/sh", "-c", "exit 3"}
	res := Run(context.Background(), req)
	if res.Status != model.StatusRuntimeError {
		t.Errorf("status = %v, want RuntimeError", res.Status)
	}
	if res.ReturnCode != 3 {
		t.Errorf("returnCode = %d, want 3", res.ReturnCode)
	}
}

func TestRunTimeLimitExceeded(t *testing.T) {
	req := baseRequest()
	req.TimeoutSeconds = 0.3
	req.Argv = []string{"/bin/sh", "-c", "sleep 5"}
	res := Run(context.Background(), req)
	if res.Status != model.StatusTLE {
		t.Errorf("status = %v, want TLE", res.Status)
	}
	if res.Time < req.TimeoutSeconds {
		t.Errorf("time = %v, want >= %v", res.Time, req.TimeoutSeconds)
	}
}

func TestRunOutputLimitExceeded(t *testing.T) {
	req := baseRequest()
	req.OutputLimitMB = 0.0001 // ~104 bytes
	req.Argv = []string{"/bin/sh", "-c", "head -c 100000 /dev/zero | tr '\\0' 'a'"}
	res := Run(context.Background(), req)
	if res.Status != model.StatusOLE {
		t.Errorf("status = %v, want OLE", res.Status)
	}
}

func TestRunMissingCommand(t *testing.T) {
	req := baseRequest()
	req.Argv = []string{"/no/such/binary-xyz"}
	res := Run(context.Background(), req)
	if res.Status != model.StatusRuntimeError {
		t.Errorf("status = %v, want RuntimeError", res.Status)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
