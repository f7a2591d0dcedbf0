package process

import (
	"os"
	"os/exec"
	"testing"
	"time"
)

func TestAlive(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		pid  int
		want bool
	}{
		"self":     {pid: os.Getpid(), want: true},
		"zero":     {pid: 0, want: false},
		"negative": {pid: -1, want: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := Alive(tc.pid); got != tc.want {
				t.Errorf("Alive(%d) = %v, want %v", tc.pid, got, tc.want)
			}
		})
	}
}

func TestAlive_ReapedChild(t *testing.T) {
	t.Parallel()

	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Fatalf("run true: %v", err)
	}
	if Alive(cmd.Process.Pid) {
		t.Errorf("Alive(%d) = true for a reaped child", cmd.Process.Pid)
	}
}

func TestTerminate(t *testing.T) {
	t.Parallel()

	cmd := exec.Command("sleep", "60")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start sleep: %v", err)
	}
	// Reap in the background like the owning process would.
	go func() { _ = cmd.Wait() }()

	pid := cmd.Process.Pid
	if err := Terminate(pid, 5*time.Second); err != nil {
		t.Fatalf("Terminate() error = %v", err)
	}
	if Alive(pid) {
		t.Fatalf("pid %d alive after Terminate", pid)
	}
	if err := Terminate(pid, time.Second); err != nil {
		t.Errorf("Terminate() on a gone pid = %v, want nil", err)
	}
}

func TestTerminate_InvalidPid(t *testing.T) {
	t.Parallel()

	if err := Terminate(0, time.Second); err == nil {
		t.Error("Terminate(0) should fail")
	}
}
