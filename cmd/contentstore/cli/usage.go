// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// maxSuggestionDistance is the largest edit distance at which a typo
// still earns a suggestion.
const maxSuggestionDistance = 3

// UsageError reports input the command tree could not dispatch: an
// unknown command or flag, or bad flag syntax. The message always ends
// by pointing at the help of Command.
type UsageError struct {
	// Command is the full name of the command whose help applies.
	Command string
	// Problem describes what was wrong with the input.
	Problem string
	// Suggestion is the closest valid input, formatted for display,
	// or "".
	Suggestion string
}

func (e *UsageError) Error() string {
	var message strings.Builder
	message.WriteString(e.Problem)
	if e.Suggestion != "" {
		fmt.Fprintf(&message, " (did you mean %s?)", e.Suggestion)
	}
	fmt.Fprintf(&message, "\n\nRun '%s --help' for usage.", e.Command)
	return message.String()
}

func (c *Command) unknownCommand(name string) error {
	names := make([]string, len(c.Subcommands))
	for i, sub := range c.Subcommands {
		names[i] = sub.Name
	}
	usage := &UsageError{Command: c.fullName(), Problem: fmt.Sprintf("unknown command %q", name)}
	if match := closest(name, names); match != "" {
		usage.Suggestion = fmt.Sprintf("%q", match)
	}
	return usage
}

func (c *Command) badFlags(parseErr error, args []string) error {
	usage := &UsageError{Command: c.fullName(), Problem: parseErr.Error()}
	// The failed parse may have left state behind; ask a fresh set.
	flagSet := c.Flags()
	unknown := firstUnknownFlag(args, flagSet)
	if unknown == "" {
		return usage
	}
	var names []string
	flagSet.VisitAll(func(f *pflag.Flag) {
		names = append(names, f.Name)
	})
	switch match := closest(unknown, names); {
	case match == "":
	case len(match) == 1:
		usage.Suggestion = "-" + match
	default:
		usage.Suggestion = "--" + match
	}
	return usage
}

// firstUnknownFlag returns the bare name of the first flag in args that
// flagSet does not define, or "".
func firstUnknownFlag(args []string, flagSet *pflag.FlagSet) string {
	for _, arg := range args {
		if arg == "--" {
			return ""
		}
		if !strings.HasPrefix(arg, "-") {
			continue
		}
		name, _, _ := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if flagSet.Lookup(name) != nil {
			continue
		}
		// ShorthandLookup panics on names longer than one byte.
		if len(name) == 1 && flagSet.ShorthandLookup(name) != nil {
			continue
		}
		return name
	}
	return ""
}

// closest returns the candidate nearest to target by edit distance,
// or "" if none is within maxSuggestionDistance. Ties go to the
// earlier candidate.
func closest(target string, candidates []string) string {
	best, bestDistance := "", maxSuggestionDistance+1
	for _, candidate := range candidates {
		if distance := levenshtein(target, candidate); distance < bestDistance {
			best, bestDistance = candidate, distance
		}
	}
	return best
}

// levenshtein is the edit distance between a and b, counted in runes.
func levenshtein(a, b string) int {
	source, target := []rune(a), []rune(b)
	if len(source) < len(target) {
		source, target = target, source
	}
	// row[j] is the distance from the prefix of source seen so far to
	// target[:j].
	row := make([]int, len(target)+1)
	for j := range row {
		row[j] = j
	}
	for i, sourceRune := range source {
		diagonal := row[0]
		row[0] = i + 1
		for j, targetRune := range target {
			substitution := diagonal
			if sourceRune != targetRune {
				substitution++
			}
			diagonal = row[j+1]
			row[j+1] = min(row[j+1]+1, row[j]+1, substitution)
		}
	}
	return row[len(target)]
}
