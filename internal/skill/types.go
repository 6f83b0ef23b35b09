// Package skill loads workspace skill documents — markdown instructions with
// a YAML frontmatter header — that are conditionally injected into the
// system prompt's skills layer (see internal/prompt).
package skill

// Def is the parsed content of one skill: YAML frontmatter plus a markdown
// instruction body. A skill is pure prompt material — it has no executable
// code and is never registered as a tool.
type Def struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	AutoActivate bool     `yaml:"auto_activate"`
	Requires     []string `yaml:"requires"`

	// Body is the markdown instruction text following the frontmatter.
	Body string `yaml:"-"`
	// Path is the markdown file the skill was loaded from: the .md file
	// itself, or the SKILL.md inside a skill directory.
	Path string `yaml:"-"`
}
