// Package catalog holds the static list of monitored resources (game titles and
// groups) and loads it from a YAML file or the built-in defaults.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Kind distinguishes the two resource families.
type Kind string

const (
	KindTitle Kind = "title"
	KindGroup Kind = "group"
)

// GroupMode selects how a group's membership is observed.
type GroupMode string

const (
	// ModeMembers lists member ids so individual joins can be reported.
	ModeMembers GroupMode = "members"
	// ModeCount only reads the total member count.
	ModeCount GroupMode = "count"
)

// Default message templates. Placeholders: {name} {member} {delta} {count} {updated}.
const (
	DefaultUpdateMessage   = "**{name}** has been updated"
	DefaultJoinMessage     = "A new member joined **{name}**"
	DefaultIncreaseMessage = "{delta} new member(s) joined **{name}** ({count} total)"
)

// Resource describes one monitored entity. It is immutable after load.
type Resource struct {
	ID              int64     `yaml:"id"`
	Kind            Kind      `yaml:"-"`
	Name            string    `yaml:"name"`
	Mode            GroupMode `yaml:"mode,omitempty"`
	UpdateMessage   string    `yaml:"update_message,omitempty"`
	JoinMessage     string    `yaml:"join_message,omitempty"`
	IncreaseMessage string    `yaml:"increase_message,omitempty"`
}

// DisplayName returns the configured name or a fallback built from the id.
func (r Resource) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("%s %d", r.Kind, r.ID)
}

// Key is a stable identifier unique across kinds, used for metric labels and status output.
func (r Resource) Key() string { return fmt.Sprintf("%s:%d", r.Kind, r.ID) }

// Catalog is the ordered set of monitored resources. Titles come before groups.
type Catalog struct {
	Titles []Resource `yaml:"titles"`
	Groups []Resource `yaml:"groups"`
}

// All returns every resource in stable polling order.
func (c *Catalog) All() []Resource {
	out := make([]Resource, 0, len(c.Titles)+len(c.Groups))
	out = append(out, c.Titles...)
	return append(out, c.Groups...)
}

// Default returns the catalog of the original deployment.
func Default() *Catalog {
	c := &Catalog{
		Titles: []Resource{
			{ID: 3719762683, Name: "Bee Swarm Simulator"},
			{ID: 137594107439804, Name: "Buzz"},
			{ID: 4079902982, Name: "Bee Swarm Test Realm"},
			{ID: 17573622029, Name: "Buzz 2024"},
		},
		Groups: []Resource{
			{ID: 5211428, Name: "Testing Group", Mode: ModeMembers, JoinMessage: "Onett has accepted a new member to **{name}**"},
			{ID: 9760527, Name: "Studio Developer Group", Mode: ModeMembers, JoinMessage: "Onett has added a new developer to **{name}**"},
		},
	}
	for i := range c.Titles {
		c.Titles[i].UpdateMessage = "Onett has updated **{name}**"
	}
	c.normalize()
	return c
}

// Load reads a YAML catalog from path. An empty path yields Default().
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(b)
}

// Parse decodes and validates a YAML catalog document.
func Parse(b []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// normalize fills kinds, default modes and message templates.
func (c *Catalog) normalize() {
	for i := range c.Titles {
		r := &c.Titles[i]
		r.Kind = KindTitle
		r.Mode = ""
		if r.UpdateMessage == "" {
			r.UpdateMessage = DefaultUpdateMessage
		}
	}
	for i := range c.Groups {
		r := &c.Groups[i]
		r.Kind = KindGroup
		if r.Mode == "" {
			r.Mode = ModeMembers
		}
		if r.JoinMessage == "" {
			r.JoinMessage = DefaultJoinMessage
		}
		if r.IncreaseMessage == "" {
			r.IncreaseMessage = DefaultIncreaseMessage
		}
	}
}

// Validate checks ids and group modes.
func (c *Catalog) Validate() error {
	if len(c.Titles)+len(c.Groups) == 0 {
		return errors.New("catalog is empty")
	}
	seen := map[string]bool{}
	for _, r := range c.All() {
		if r.ID <= 0 {
			return fmt.Errorf("catalog: %s has invalid id %d", r.Kind, r.ID)
		}
		if seen[r.Key()] {
			return fmt.Errorf("catalog: duplicate %s", r.Key())
		}
		seen[r.Key()] = true
		if r.Kind == KindGroup && r.Mode != ModeMembers && r.Mode != ModeCount {
			return fmt.Errorf("catalog: group %d has unknown mode %q", r.ID, r.Mode)
		}
	}
	return nil
}
