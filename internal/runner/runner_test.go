package runner

import (
	"context"
	"os/exec"
	"strings"
	"testing"
)

func TestRunSuccess(t *testing.T) {
	// The "true" command should always succeed.
	cmd := exec.Command("true")
	if err := run(cmd); err != nil {
		t.Errorf("run() with a succeeding command returned an error: %v", err)
	}
}

func TestRunFailure(t *testing.T) {
	cmd := exec.Command("false")
	err := run(cmd)
	if err == nil {
		t.Fatal("run() with a failing command did not return an error")
	}
	if !strings.Contains(err.Error(), "command failed") {
		t.Errorf("run() error message for failing command was not in the expected format: %v", err)
	}
}

func TestRunFailureWithStderr(t *testing.T) {
	cmd := exec.Command("sh", "-c", "echo 'on stdout'; echo 'test error' >&2; exit 1")
	err := run(cmd)
	if err == nil {
		t.Fatal("run() with a failing command did not return an error")
	}
	if !strings.Contains(err.Error(), "test error") {
		t.Errorf("run() error did not contain stderr. Got: %q", err.Error())
	}
	if strings.Contains(err.Error(), "on stdout") {
		t.Errorf("run() error should prefer stderr over stdout. Got: %q", err.Error())
	}
}

func TestRunFailureFallsBackToStdout(t *testing.T) {
	cmd := exec.Command("sh", "-c", "echo 'only stdout'; exit 3")
	err := run(cmd)
	if err == nil {
		t.Fatal("run() with a failing command did not return an error")
	}
	if !strings.Contains(err.Error(), "only stdout") {
		t.Errorf("run() error did not contain stdout. Got: %q", err.Error())
	}
}

func TestExecInvoke(t *testing.T) {
	tests := []struct {
		name        string
		command     string
		args        []string
		wantSuccess bool
		wantDiag    string
	}{
		{name: "success", command: "true", wantSuccess: true},
		{name: "failure", command: "sh", args: []string{"-c", "echo 'tar: Error opening archive' >&2; exit 1"}, wantDiag: "tar: Error opening archive"},
		{name: "missing binary", command: "definitely-not-a-real-tool-bcfetch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Exec{}.Invoke(context.Background(), tt.command, tt.args...)
			if res.Success != tt.wantSuccess {
				t.Errorf("Invoke() success = %v, want %v (diagnostics: %q)", res.Success, tt.wantSuccess, res.Diagnostics)
			}
			if !tt.wantSuccess && res.Diagnostics == "" {
				t.Error("Invoke() failure should carry diagnostics")
			}
			if tt.wantDiag != "" && !strings.Contains(res.Diagnostics, tt.wantDiag) {
				t.Errorf("Invoke() diagnostics = %q, want to contain %q", res.Diagnostics, tt.wantDiag)
			}
		})
	}
}
