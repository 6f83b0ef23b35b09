package skill

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	skillsSubdir    = "skills"
	frontmatterFence = "---"
)

// ScanDir scans <workspaceDir>/skills/ and returns every valid skill.
// A skill is either a markdown file directly under skills/ (e.g. skills/foo.md)
// or a subdirectory containing a SKILL.md. Entries that fail to parse are
// reported as errors but do not stop the scan of the remaining entries.
// If skills/ does not exist, an empty slice is returned — not an error.
func ScanDir(workspaceDir string) ([]*Def, []error) {
	skillsDir := filepath.Join(workspaceDir, skillsSubdir)

	entries, err := os.ReadDir(skillsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, []error{fmt.Errorf("skill: scan %q: %w", skillsDir, err)}
	}

	var defs []*Def
	var errs []error

	for _, e := range entries {
		var path string
		switch {
		case e.IsDir():
			path = filepath.Join(skillsDir, e.Name(), "SKILL.md")
		case strings.HasSuffix(strings.ToLower(e.Name()), ".md"):
			path = filepath.Join(skillsDir, e.Name())
		default:
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // directory without SKILL.md — silently skip
			}
			errs = append(errs, fmt.Errorf("skill: read %q: %w", path, err))
			continue
		}

		def, err := parseDoc(data)
		if err != nil {
			errs = append(errs, fmt.Errorf("skill: parse %q: %w", path, err))
			continue
		}
		if def.Name == "" {
			def.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		def.Path = path
		defs = append(defs, def)
	}

	return defs, errs
}

// parseDoc splits a skill document into its YAML frontmatter and markdown
// body. A document with no leading "---" fence has no frontmatter; the
// whole file is treated as the body and Name/Description are left empty
// (the loader derives Name from the filename in that case).
func parseDoc(data []byte) (*Def, error) {
	text := string(data)
	lines := strings.SplitN(text, "\n", -1)

	if len(lines) == 0 || strings.TrimSpace(lines[0]) != frontmatterFence {
		return &Def{Body: text}, nil
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontmatterFence {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, fmt.Errorf("unterminated frontmatter fence")
	}

	var def Def
	header := strings.Join(lines[1:end], "\n")
	if err := yaml.Unmarshal([]byte(header), &def); err != nil {
		return nil, fmt.Errorf("frontmatter: %w", err)
	}
	def.Body = strings.TrimLeft(strings.Join(lines[end+1:], "\n"), "\n")

	return &def, nil
}
