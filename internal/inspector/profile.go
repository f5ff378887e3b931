package inspector

import (
	"fmt"
	"sort"
	"strings"
)

// Profile selects which components an inspector server exposes.
type Profile struct {
	Name string
	// Resources exposes the tutorial:// configuration resources.
	Resources bool
	// Tools exposes the workflow tools.
	Tools bool
	// Registry exposes the session object registry tools.
	Registry bool
}

var profiles = map[string]Profile{
	"full":      {Name: "full", Resources: true, Tools: true, Registry: true},
	"docs":      {Name: "docs", Resources: true},
	"execution": {Name: "execution", Tools: true, Registry: true},
}

// DefaultProfile is used when no profile is named.
const DefaultProfile = "full"

// ProfileNames returns the known profile names, sorted.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetProfile returns the named profile. An empty name selects DefaultProfile.
func GetProfile(name string) (Profile, error) {
	if name == "" {
		name = DefaultProfile
	}
	p, ok := profiles[strings.ToLower(name)]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q; valid profiles are: %s", name, strings.Join(ProfileNames(), ", "))
	}
	return p, nil
}
