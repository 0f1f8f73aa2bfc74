package pipeline

import "sort"

// Default shell used for stage commands.
const defaultShell = "/bin/sh"

// Tracks the environment applied to stage commands.
//
// The flag environment is fixed once at the start of the build and inherited
// by every stage, mirroring how the produced image inherits it at runtime.
// Stages may overlay additional variables for their own commands; overlays
// never leak into other stages.
type envState struct {
	flags map[string]string
	order []string // Flag keys in declaration order.
}

// Creates a new [envState] from "key=value" flag entries.
//
// Malformed entries without an equals sign are skipped.
func newEnvState(flagEnviron []string) *envState {
	s := &envState{flags: make(map[string]string, len(flagEnviron))}
	for _, entry := range flagEnviron {
		if k, v, ok := cutEnv(entry); ok {
			if _, seen := s.flags[k]; !seen {
				s.order = append(s.order, k)
			}
			s.flags[k] = v
		}
	}
	return s
}

// Returns the effective environment for one stage: the flag environment with
// the stage overlay applied on top. The receiver is not modified.
//
// Flag entries keep their declaration order; overlay-only keys follow in
// sorted order so the result is deterministic.
func (s *envState) resolve(overlay map[string]string) []string {
	env := make([]string, 0, len(s.flags)+len(overlay))

	for _, k := range s.order {
		v := s.flags[k]
		if ov, ok := overlay[k]; ok {
			v = ov
		}
		env = append(env, k+"="+v)
	}

	var extra []string
	for k, v := range overlay {
		if _, ok := s.flags[k]; !ok {
			extra = append(extra, k+"="+v)
		}
	}
	sort.Strings(extra)

	return append(env, extra...)
}

// Splits a "key=value" entry.
func cutEnv(entry string) (k, v string, ok bool) {
	for i := 0; i < len(entry); i++ {
		if entry[i] == '=' {
			return entry[:i], entry[i+1:], i > 0
		}
	}
	return "", "", false
}
