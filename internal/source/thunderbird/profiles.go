package thunderbird

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// GlodaFile is the name of Thunderbird's global message index.
const GlodaFile = "global-messages-db.sqlite"

// ErrNoProfile is returned when no Thunderbird profile can be found.
var ErrNoProfile = errors.New("no thunderbird profile found")

// Profile is one entry of profiles.ini.
type Profile struct {
	Name    string
	Path    string
	Default bool
}

// DefaultRoot returns the platform's Thunderbird data directory.
func DefaultRoot() string {
	if root := os.Getenv("THUNDERBIRD_HOME"); root != "" {
		return root
	}
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Thunderbird")
	case "darwin":
		return filepath.Join(home, "Library", "Thunderbird")
	default:
		return filepath.Join(home, ".thunderbird")
	}
}

// LoadProfiles reads root/profiles.ini.
func LoadProfiles(root string) ([]Profile, error) {
	f, err := os.Open(filepath.Join(root, "profiles.ini"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var profiles []Profile
	var current map[string]string
	// installDefault is the Default= path of an [Install...] section,
	// which newer releases use instead of Default=1.
	var installDefault string

	flush := func() {
		if current != nil {
			profiles = append(profiles, toProfile(root, current))
		}
	}

	var section string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			flush()
			section = strings.ToLower(strings.Trim(line, "[]"))
			current = nil
			if strings.HasPrefix(section, "profile") {
				current = map[string]string{}
			}
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch {
		case current != nil:
			current[key] = value
		case strings.HasPrefix(section, "install") && key == "Default" && installDefault == "":
			installDefault = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading profiles.ini: %w", err)
	}
	flush()

	if installDefault != "" {
		want := resolvePath(root, installDefault, true)
		for i := range profiles {
			profiles[i].Default = profiles[i].Path == want
		}
	}
	return profiles, nil
}

func toProfile(root string, kv map[string]string) Profile {
	p := Profile{
		Name:    kv["Name"],
		Path:    resolvePath(root, kv["Path"], kv["IsRelative"] == "1"),
		Default: kv["Default"] == "1",
	}
	if p.Name == "" {
		p.Name = filepath.Base(p.Path)
	}
	return p
}

func resolvePath(root, path string, relative bool) string {
	if relative {
		return filepath.Join(root, filepath.FromSlash(path))
	}
	return filepath.Clean(path)
}

// ResolveProfile returns the directory of the named profile. An empty
// name selects the default profile, or the first one listed. A name that
// is itself a directory is returned as is.
func ResolveProfile(root, name string) (string, error) {
	if name != "" {
		if fi, err := os.Stat(name); err == nil && fi.IsDir() {
			return name, nil
		}
	}

	profiles, err := LoadProfiles(root)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoProfile, err)
	}

	if name == "" {
		for _, p := range profiles {
			if p.Default {
				return p.Path, nil
			}
		}
		if len(profiles) > 0 {
			return profiles[0].Path, nil
		}
		return "", ErrNoProfile
	}

	for _, p := range profiles {
		if strings.EqualFold(p.Name, name) || strings.EqualFold(filepath.Base(p.Path), name) {
			return p.Path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoProfile, name)
}
