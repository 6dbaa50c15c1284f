package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Manifest is the parsed decaf.toml that describes a multi-file build.
type Manifest struct {
	Dir     string
	Package PackageSection
	Build   BuildSection
}

type PackageSection struct {
	Name string `toml:"name"`
}

type BuildSection struct {
	Sources []string `toml:"sources"`
	Out     string   `toml:"out"`
	Emit    string   `toml:"emit"`
}

type manifestFile struct {
	Package PackageSection `toml:"package"`
	Build   BuildSection   `toml:"build"`
}

const ManifestName = "decaf.toml"

var (
	// ErrPackageSectionMissing indicates that [package] is missing.
	ErrPackageSectionMissing = errors.New("missing [package]")
	// ErrNoSources indicates that [build].sources is empty or missing.
	ErrNoSources = errors.New("missing [build].sources")
)

// Load parses the manifest at path and validates its source list.
func Load(path string) (*Manifest, error) {
	var cfg manifestFile
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("package") {
		return nil, fmt.Errorf("%s: %w", path, ErrPackageSectionMissing)
	}
	if len(cfg.Build.Sources) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoSources)
	}
	dir := filepath.Dir(path)
	for i, src := range cfg.Build.Sources {
		src = strings.TrimSpace(src)
		if src == "" {
			return nil, fmt.Errorf("%s: empty entry in [build].sources", path)
		}
		if filepath.IsAbs(src) {
			return nil, fmt.Errorf("%s: source %q must be relative", path, src)
		}
		cfg.Build.Sources[i] = src
	}
	switch cfg.Build.Emit {
	case "", "asm", "tac":
	default:
		return nil, fmt.Errorf("%s: invalid [build].emit %q: want asm or tac", path, cfg.Build.Emit)
	}
	return &Manifest{Dir: dir, Package: cfg.Package, Build: cfg.Build}, nil
}

// Find walks upward from startDir looking for a decaf.toml.
func Find(startDir string) (string, bool, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, err
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", false, err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// SourcePaths resolves the manifest's sources against its directory.
func (m *Manifest) SourcePaths() []string {
	paths := make([]string, 0, len(m.Build.Sources))
	for _, src := range m.Build.Sources {
		paths = append(paths, filepath.Join(m.Dir, filepath.FromSlash(src)))
	}
	return paths
}
