package repl

import (
	"sort"
	"strings"
)

// Completer matches command prefixes.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer over commands.
func NewCompleter(commands []string) *Completer {
	cmds := append([]string(nil), commands...)
	sort.Strings(cmds)
	return &Completer{commands: cmds}
}

// Complete returns the commands starting with prefix, sorted.
func (c *Completer) Complete(prefix string) []string {
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}

// Resolve expands word to a command name. An exact match wins; otherwise
// word must be the prefix of exactly one command. The candidates are
// returned when the prefix is ambiguous.
func (c *Completer) Resolve(word string) (string, []string) {
	matches := c.Complete(word)
	for _, m := range matches {
		if m == word {
			return m, nil
		}
	}
	if len(matches) == 1 {
		return matches[0], nil
	}
	return "", matches
}
