// Package trigger compiles the user-configured named regular expressions
// that detectors use to flag lines of interest.
package trigger

import (
	"fmt"
	"regexp"
	"sort"
)

// Well-known trigger names consumed by the detectors.
const (
	ErrorResolved = "errorResolved"
	Workaround    = "workaround"
)

// Spec is one configured trigger. Enabled defaults to true when unset.
type Spec struct {
	Enabled *bool  `koanf:"enabled" json:"enabled,omitempty"`
	Pattern string `koanf:"pattern" json:"pattern"`
}

// IsEnabled reports the effective enabled flag.
func (s Spec) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Trigger is a compiled trigger. The zero value is an absent trigger that
// matches nothing.
type Trigger struct {
	Name string
	re   *regexp.Regexp
}

// Defined reports whether the trigger was configured and compiled.
func (t Trigger) Defined() bool { return t.re != nil }

// MatchString reports whether text matches. An absent trigger never matches.
func (t Trigger) MatchString(text string) bool {
	return t.re != nil && t.re.MatchString(text)
}

// String returns the compiled pattern, or "" for an absent trigger.
func (t Trigger) String() string {
	if t.re == nil {
		return ""
	}
	return t.re.String()
}

// Set maps trigger names to compiled triggers.
type Set struct {
	triggers map[string]Trigger
}

// Get returns the named trigger, or an absent Trigger.
func (s Set) Get(name string) Trigger {
	return s.triggers[name]
}

// Names returns the compiled trigger names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s.triggers))
	for name := range s.triggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of compiled triggers.
func (s Set) Len() int { return len(s.triggers) }

// Problem describes a trigger entry that was dropped during compilation.
type Problem struct {
	Name string
	Err  error
}

func (p Problem) Error() string {
	return fmt.Sprintf("trigger %s: %v", p.Name, p.Err)
}

// Compile builds a Set from specs. Disabled entries, empty patterns and
// patterns that fail to compile are left out; only the latter are reported
// as problems. Compilation is case-insensitive.
func Compile(specs map[string]Spec) (Set, []Problem) {
	set := Set{triggers: make(map[string]Trigger, len(specs))}
	var problems []Problem

	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := specs[name]
		if !spec.IsEnabled() || spec.Pattern == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + spec.Pattern)
		if err != nil {
			problems = append(problems, Problem{Name: name, Err: err})
			continue
		}
		set.triggers[name] = Trigger{Name: name, re: re}
	}
	return set, problems
}
