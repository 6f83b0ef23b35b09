package tool

import "testing"

func TestCheckShellCommandBlocksStateRemoval(t *testing.T) {
	g := NewGuard("sandbox-1")
	cases := []string{
		"rm -rf .automaton",
		"rm state.db",
		"cat wallet.json",
		"DROP TABLE turns;",
		"DELETE FROM agent_state WHERE 1=1",
	}
	for _, cmd := range cases {
		if blocked, reason := g.CheckShellCommand(cmd); !blocked || reason == "" {
			t.Errorf("expected %q to be blocked with a reason, got blocked=%v reason=%q", cmd, blocked, reason)
		}
	}
}

func TestCheckShellCommandAllowsBenign(t *testing.T) {
	g := NewGuard("sandbox-1")
	if blocked, reason := g.CheckShellCommand("ls -la /tmp"); blocked {
		t.Fatalf("expected benign command to be allowed, got blocked reason=%q", reason)
	}
}

func TestCheckShellCommandKillSelfWordBoundary(t *testing.T) {
	g := NewGuard("sandbox-1")
	if blocked, _ := g.CheckShellCommand("kill -9 1"); !blocked {
		t.Fatalf("expected kill -9 1 to be blocked")
	}
	if blocked, _ := g.CheckShellCommand("kill -9 12345"); blocked {
		t.Fatalf("expected kill -9 12345 (a different pid) to be allowed")
	}
}

func TestCheckSandboxDeleteSelf(t *testing.T) {
	g := NewGuard("sandbox-1")
	if blocked, reason := g.CheckSandboxDelete("sandbox-1"); !blocked || reason == "" {
		t.Fatalf("expected self-delete to be blocked, got blocked=%v reason=%q", blocked, reason)
	}
	if blocked, _ := g.CheckSandboxDelete("sandbox-2"); blocked {
		t.Fatalf("expected deleting a different sandbox to be allowed")
	}
}

func TestCheckWritePath(t *testing.T) {
	g := NewGuard("sandbox-1")
	if blocked, _ := g.CheckWritePath("/home/agent/wallet.json"); !blocked {
		t.Fatalf("expected wallet.json write to be blocked")
	}
	if blocked, _ := g.CheckWritePath("/home/agent/state.db"); !blocked {
		t.Fatalf("expected state.db write to be blocked")
	}
	if blocked, _ := g.CheckWritePath("/home/agent/notes.md"); blocked {
		t.Fatalf("expected an ordinary file write to be allowed")
	}
}

func TestCheckTransferCredits(t *testing.T) {
	g := NewGuard("sandbox-1")
	if blocked, reason := g.CheckTransferCredits(60, 100); !blocked || reason == "" {
		t.Fatalf("expected transfer exceeding half balance to be blocked, got blocked=%v reason=%q", blocked, reason)
	}
	if blocked, _ := g.CheckTransferCredits(50, 100); blocked {
		t.Fatalf("expected transfer of exactly half balance to be allowed")
	}
}

func TestCheckFileEdit(t *testing.T) {
	g := NewGuard("sandbox-1")

	if blocked, _ := g.CheckFileEdit("/home/agent/wallet.json", 10, 0); !blocked {
		t.Fatalf("expected protected file name to be blocked")
	}
	if blocked, _ := g.CheckFileEdit("/home/agent/node_modules/x.js", 10, 0); !blocked {
		t.Fatalf("expected blocked directory pattern to be rejected")
	}
	if blocked, _ := g.CheckFileEdit("/home/agent/src/main.go", maxFileEditBytes+1, 0); !blocked {
		t.Fatalf("expected oversized content to be rejected")
	}
	if blocked, _ := g.CheckFileEdit("/home/agent/src/main.go", 10, maxFileEditsPerRollingHour); !blocked {
		t.Fatalf("expected rate limit to trigger at the cap")
	}
	if blocked, reason := g.CheckFileEdit("/home/agent/src/main.go", 10, 3); blocked {
		t.Fatalf("expected a normal edit to be allowed, got reason=%q", reason)
	}
}
