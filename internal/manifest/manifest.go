// Package manifest models the project's bpkg.toml: its package identity,
// declared dependencies, and scripts.
//
// Dependency and script declarations keep their on-disk order; the manifest
// is rewritten in the same order it was declared.
package manifest

import "github.com/th3f0rk/bppkg/internal/security"

// ManifestFile is the project manifest name.
const ManifestFile = "bpkg.toml"

// Dependency is one declared requirement: a package name plus a version
// constraint. Optional dependencies degrade to a warning when they cannot be
// resolved.
type Dependency struct {
	Name     string
	Spec     string
	Optional bool
}

// DepList is an insertion-ordered list of dependency declarations with
// unique names.
type DepList struct {
	pairs []Dependency
}

// Get returns the declaration for name.
func (l *DepList) Get(name string) (Dependency, bool) {
	for _, d := range l.pairs {
		if d.Name == name {
			return d, true
		}
	}
	return Dependency{}, false
}

// Has reports whether name is declared.
func (l *DepList) Has(name string) bool {
	_, ok := l.Get(name)
	return ok
}

// Set replaces the declaration for dep.Name in place, or appends it.
func (l *DepList) Set(dep Dependency) {
	for i, d := range l.pairs {
		if d.Name == dep.Name {
			l.pairs[i] = dep
			return
		}
	}
	l.pairs = append(l.pairs, dep)
}

// Remove deletes the declaration for name, reporting whether it was present.
func (l *DepList) Remove(name string) bool {
	for i, d := range l.pairs {
		if d.Name == name {
			l.pairs = append(l.pairs[:i], l.pairs[i+1:]...)
			return true
		}
	}
	return false
}

// Pairs returns the declarations in order. The slice is a copy.
func (l *DepList) Pairs() []Dependency {
	out := make([]Dependency, len(l.pairs))
	copy(out, l.pairs)
	return out
}

// Len returns the number of declarations.
func (l *DepList) Len() int { return len(l.pairs) }

func (l *DepList) validNames() bool {
	for _, d := range l.pairs {
		if !security.ValidatePackageName(d.Name) {
			return false
		}
	}
	return true
}

// Script is a named command from the [scripts] section.
type Script struct {
	Name    string
	Command string
}

// ScriptList is an insertion-ordered list of scripts with unique names.
type ScriptList struct {
	pairs []Script
}

// Get returns the command for name.
func (l *ScriptList) Get(name string) (string, bool) {
	for _, s := range l.pairs {
		if s.Name == name {
			return s.Command, true
		}
	}
	return "", false
}

// Set replaces the script for name in place, or appends it.
func (l *ScriptList) Set(name, command string) {
	for i, s := range l.pairs {
		if s.Name == name {
			l.pairs[i].Command = command
			return
		}
	}
	l.pairs = append(l.pairs, Script{Name: name, Command: command})
}

// Pairs returns the scripts in order. The slice is a copy.
func (l *ScriptList) Pairs() []Script {
	out := make([]Script, len(l.pairs))
	copy(out, l.pairs)
	return out
}

// Len returns the number of scripts.
func (l *ScriptList) Len() int { return len(l.pairs) }

// Manifest is the typed representation of bpkg.toml.
type Manifest struct {
	Name         string
	Version      string
	Description  string
	Author       string
	License      string
	Repository   string
	Homepage     string
	Keywords     []string
	Main         string
	MinBPVersion string
	Files        []string

	Dependencies    DepList
	DevDependencies DepList
	Scripts         ScriptList
}

// New returns a manifest with the defaults the init command uses.
func New(name string) *Manifest {
	return &Manifest{
		Name:        name,
		Version:     "0.1.0",
		Description: "A BetterPython package",
		License:     "MIT",
		Main:        "main.bp",
	}
}
