package skill

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSkill(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write skill: %v", err)
	}
}

func TestScanDirMissing(t *testing.T) {
	defs, errs := ScanDir(t.TempDir())
	if defs != nil || errs != nil {
		t.Fatalf("expected nil, nil for missing skills dir, got %v, %v", defs, errs)
	}
}

func TestScanDirFrontmatter(t *testing.T) {
	ws := t.TempDir()
	skillsDir := filepath.Join(ws, "skills")
	if err := os.MkdirAll(skillsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeSkill(t, skillsDir, "funding.md", "---\nname: funding\ndescription: how to fund yourself\nauto_activate: true\n---\nWhen credits run low, try purchase-credits-with-USDC first.\n")
	writeSkill(t, skillsDir, "plain.md", "Just prose, no frontmatter.\n")

	defs, errs := ScanDir(ws)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(defs) != 2 {
		t.Fatalf("expected 2 skills, got %d", len(defs))
	}

	var funding, plain *Def
	for _, d := range defs {
		switch d.Name {
		case "funding":
			funding = d
		case "plain":
			plain = d
		}
	}
	if funding == nil || !funding.AutoActivate {
		t.Fatalf("expected funding skill with auto_activate, got %+v", funding)
	}
	if plain == nil || plain.Name != "plain" {
		t.Fatalf("expected name derived from filename for frontmatter-less skill, got %+v", plain)
	}
}

func TestManagerActive(t *testing.T) {
	ws := t.TempDir()
	skillsDir := filepath.Join(ws, "skills")
	if err := os.MkdirAll(skillsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeSkill(t, skillsDir, "always.md", "---\nname: always\nauto_activate: true\n---\nbody\n")
	writeSkill(t, skillsDir, "ondemand.md", "---\nname: ondemand\nauto_activate: false\n---\nbody\n")

	mgr := NewManager(ws)
	n, errs := mgr.Load()
	if len(errs) != 0 || n != 2 {
		t.Fatalf("Load() = %d, %v", n, errs)
	}

	active := mgr.Active("please use ondemand for this")
	names := map[string]bool{}
	for _, d := range active {
		names[d.Name] = true
	}
	if !names["always"] || !names["ondemand"] {
		t.Fatalf("expected always (auto) and ondemand (mentioned), got %v", names)
	}

	idleActive := mgr.Active("")
	if len(idleActive) != 1 || idleActive[0].Name != "always" {
		t.Fatalf("expected only auto_activate skill with no mention, got %v", idleActive)
	}
}
