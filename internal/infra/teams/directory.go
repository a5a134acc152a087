package teams

import (
	"os"
	"slices"
	"sort"
	"sync"

	"calendar-assistant/internal/domain/calendar"
	"calendar-assistant/internal/pkg/errs"

	"gopkg.in/yaml.v3"
)

// roster is the on-disk format:
//
//	teams:
//	  sales: ["12", "15"]
//	  support: ["7"]
type roster struct {
	Teams map[string][]string `yaml:"teams"`
}

// Directory resolves team names from a YAML roster. It implements
// shared.TeamDirectory.
type Directory struct {
	mu    sync.RWMutex
	teams map[string][]string
}

func NewDirectory(teams map[string][]string) *Directory {
	d := &Directory{}
	d.set(teams)
	return d
}

// Load reads a roster file. An empty path yields an empty directory.
func Load(path string) (*Directory, error) {
	if path == "" {
		return NewDirectory(nil), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrapf(err, "read team roster %s", path)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Directory, error) {
	var r roster
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return nil, errs.Wrap(err, "parse team roster")
	}
	return NewDirectory(r.Teams), nil
}

func (d *Directory) Members(team string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	members, ok := d.teams[team]
	if !ok {
		return nil, errs.Wrapf(errs.ErrUnknownTeam, "team %q", team)
	}
	return slices.Clone(members), nil
}

func (d *Directory) Teams() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.teams))
	for name := range d.teams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Replace swaps the roster, e.g. after the file changed.
func (d *Directory) Replace(other *Directory) {
	other.mu.RLock()
	teams := other.teams
	other.mu.RUnlock()
	d.set(teams)
}

func (d *Directory) set(teams map[string][]string) {
	normalized := make(map[string][]string, len(teams))
	for name, members := range teams {
		normalized[name] = calendar.NormalizeAttendees(members)
	}
	d.mu.Lock()
	d.teams = normalized
	d.mu.Unlock()
}
