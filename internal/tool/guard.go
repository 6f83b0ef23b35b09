package tool

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Guard enforces the self-preservation rules evaluated before any tool
// dispatch (spec.md §4.2). It is a best-effort blocklist in the same spirit
// as the teacher's shell-command dangerousPatterns check: not a security
// boundary against a determined adversary holding the wallet key, but a
// backstop against an LLM talking itself into destroying its own runtime.
type Guard struct {
	ownSandboxID string

	// recentFileEdits is queried by the caller (it lives in the state
	// store) — Guard only evaluates the count it's given, it never reads
	// the store itself, keeping this package free of a state dependency.
}

// NewGuard creates a Guard that treats ownSandboxID as this automaton's own
// sandbox for the sandbox_delete self-check.
func NewGuard(ownSandboxID string) *Guard {
	return &Guard{ownSandboxID: ownSandboxID}
}

// protectedShellPatterns are checked case-insensitively against a shell
// command string, grounded on the teacher's dangerousPatterns blocklist in
// tool/builtin/shell.go but retargeted at self-preservation rather than
// generic destructive-command prevention.
var protectedShellPatterns = []string{
	// Removal of the agent's own persisted state.
	"rm -rf .automaton",
	"rm -rf state.db",
	"rm state.db",
	"rm -rf wallet.json",
	"rm wallet.json",
	"rm -rf constitution.md",
	"rm constitution.md",
	// SQL destruction of the state database.
	"drop table",
	"truncate table",
	"truncate ",
	// Reads of credential material.
	"cat ~/.ssh",
	"cat ~/.gnupg",
	"cat .env",
	"cat wallet.json",
	"cat ~/.aws/credentials",
}

var deleteFromProtectedRe = regexp.MustCompile(`(?i)delete\s+from\s+(turns|modifications|heartbeat|financial_state|agent_state|registry)`)

// killSelfPattern mirrors the teacher's word-boundary-aware "kill -9 1"
// check: "kill -9 1" must not match as a substring of "kill -9 12345".
const killSelfPattern = "kill -9 1"

// CheckShellCommand rejects shell commands that would destroy this
// automaton's own persisted state or read its credentials. Returns a
// human-readable reason when blocked; empty string means allowed.
func (g *Guard) CheckShellCommand(command string) (blocked bool, reason string) {
	lower := strings.ToLower(command)

	for _, pattern := range protectedShellPatterns {
		if strings.Contains(lower, pattern) {
			return true, fmt.Sprintf("blocked: command matches protected self-preservation pattern %q", pattern)
		}
	}
	if deleteFromProtectedRe.MatchString(lower) {
		return true, "blocked: DELETE FROM targets a protected table"
	}
	for search := lower; ; {
		idx := strings.Index(search, killSelfPattern)
		if idx < 0 {
			break
		}
		end := idx + len(killSelfPattern)
		if end >= len(search) || !isDigitOrAlpha(search[end]) {
			return true, "blocked: command targets this process for termination"
		}
		search = search[idx+1:]
	}
	return false, ""
}

func isDigitOrAlpha(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// CheckSandboxDelete rejects sandbox_delete targeting this automaton's own
// sandbox.
func (g *Guard) CheckSandboxDelete(targetID string) (blocked bool, reason string) {
	if targetID != "" && targetID == g.ownSandboxID {
		return true, "blocked: refusing to delete own sandbox"
	}
	return false, ""
}

// CheckWritePath rejects writes whose path ends in wallet.json or state.db.
func (g *Guard) CheckWritePath(path string) (blocked bool, reason string) {
	base := filepath.Base(path)
	if base == "wallet.json" || base == "state.db" {
		return true, fmt.Sprintf("blocked: writes to %s are never permitted via this tool", base)
	}
	return false, ""
}

// CheckTransferCredits rejects a transfer exceeding half the current
// balance.
func (g *Guard) CheckTransferCredits(amountCents, currentBalanceCents float64) (blocked bool, reason string) {
	if amountCents > currentBalanceCents/2 {
		return true, fmt.Sprintf("blocked: transfer of %.2f cents exceeds half the current balance of %.2f cents", amountCents, currentBalanceCents)
	}
	return false, ""
}

// protectedFileNames are file base names that editing-own-files must never
// touch, regardless of directory.
var protectedFileNames = map[string]bool{
	"wallet.json":       true,
	"config.json":       true,
	"go.sum":            true,
	"package-lock.json": true,
	".env":              true,
}

// blockedDirPatterns are path segments that editing-own-files must never
// write under.
var blockedDirPatterns = []string{"node_modules", ".git", "target", "/etc", "/usr", "/var", "/sys", "/proc"}

const (
	maxFileEditBytes           = 100_000
	maxFileEditsPerRollingHour = 20
)

// CheckFileEdit implements the file-edit sub-guard: protected file names,
// blocked directories, a size cap, and a rolling-hour rate limit.
// recentEditCount is the number of modifications recorded in the last
// rolling hour, supplied by the caller from the state store.
func (g *Guard) CheckFileEdit(path string, contentSize, recentEditCount int) (blocked bool, reason string) {
	base := filepath.Base(path)
	if protectedFileNames[base] {
		return true, fmt.Sprintf("blocked: %s is a protected file name", base)
	}
	normalized := filepath.ToSlash(path)
	for _, pattern := range blockedDirPatterns {
		if strings.Contains(normalized, pattern) {
			return true, fmt.Sprintf("blocked: path falls under blocked directory pattern %q", pattern)
		}
	}
	if contentSize > maxFileEditBytes {
		return true, fmt.Sprintf("blocked: content size %d exceeds the %d byte cap", contentSize, maxFileEditBytes)
	}
	if recentEditCount >= maxFileEditsPerRollingHour {
		return true, fmt.Sprintf("blocked: %d modifications already recorded in the last rolling hour (limit %d)", recentEditCount, maxFileEditsPerRollingHour)
	}
	return false, ""
}

// RecentEditWindow is the rolling-hour duration used when counting prior
// file edits for CheckFileEdit's rate limit.
const RecentEditWindow = time.Hour
