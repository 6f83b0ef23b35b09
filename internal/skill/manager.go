package skill

import (
	"fmt"
	"log"
	"strings"
	"sync"
)

// Manager owns the set of workspace skills and decides which ones are
// active for a given turn's system prompt. It scans <workspaceDir>/skills/
// on Load and supports re-scanning via Reload so skill-install/skill-remove
// self-modification tools take effect without a process restart.
type Manager struct {
	workspaceDir string
	mu           sync.Mutex
	skills       map[string]*Def // name → Def
}

// NewManager creates a Manager for the given workspace directory.
// No scanning is performed until Load or Reload is called.
func NewManager(workspaceDir string) *Manager {
	return &Manager{
		workspaceDir: workspaceDir,
		skills:       make(map[string]*Def),
	}
}

// Load scans the workspace skills directory once at startup.
// Returns the count of loaded skills and any per-skill parse errors.
func (m *Manager) Load() (int, []error) {
	defs, errs := ScanDir(m.workspaceDir)

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, def := range defs {
		m.skills[def.Name] = def
		log.Printf("[Skill] Loaded: %s (auto_activate=%v)", def.Name, def.AutoActivate)
	}
	return len(defs), errs
}

// Reload re-scans the workspace skills directory and applies a diff against
// the currently loaded set, returning a human-readable summary.
func (m *Manager) Reload() string {
	defs, errs := ScanDir(m.workspaceDir)
	newDefs := make(map[string]*Def, len(defs))
	for _, def := range defs {
		newDefs[def.Name] = def
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	removed, added, updated := 0, 0, 0
	for name := range m.skills {
		if _, ok := newDefs[name]; !ok {
			delete(m.skills, name)
			removed++
		}
	}
	for name, def := range newDefs {
		_, existed := m.skills[name]
		m.skills[name] = def
		if existed {
			updated++
		} else {
			added++
		}
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("skill reload: +%d added, -%d removed, %d updated", added, removed, updated))
	for _, e := range errs {
		parts = append(parts, fmt.Sprintf("warning: %v", e))
	}
	return strings.Join(parts, "\n")
}

// Remove drops a single skill by name (backs the skill-remove self-mod tool).
// Returns false if the skill was not loaded.
func (m *Manager) Remove(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.skills[name]; !ok {
		return false
	}
	delete(m.skills, name)
	return true
}

// Active returns the skills that should be injected into the system prompt
// for this turn: every auto_activate skill, plus any skill named in
// mentioned (a turn's free-text input, matched by simple substring so an
// input referencing a skill by name pulls it in even without auto_activate).
func (m *Manager) Active(mentioned string) []*Def {
	m.mu.Lock()
	defer m.mu.Unlock()

	lower := strings.ToLower(mentioned)
	var out []*Def
	for _, def := range m.skills {
		if def.AutoActivate || (lower != "" && strings.Contains(lower, strings.ToLower(def.Name))) {
			out = append(out, def)
		}
	}
	return out
}

// All returns every loaded skill, regardless of activation state.
func (m *Manager) All() []*Def {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Def, 0, len(m.skills))
	for _, def := range m.skills {
		out = append(out, def)
	}
	return out
}
