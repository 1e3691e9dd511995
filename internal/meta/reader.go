// Package meta extracts the medusa:* metadata keys from a parsed suite.
package meta

import (
	"regexp"
	"strings"

	"github.com/vk/medusa/internal/errdefs"
)

// Recognized metadata keys.
const (
	KeyStage   = "medusa:stage"
	KeyDeps    = "medusa:deps"
	KeyFor     = "medusa:for"
	KeyTimeout = "medusa:timeout"
)

const keyPrefix = "medusa:"

// NameRe constrains resolved stage names and dependency tokens.
var NameRe = regexp.MustCompile(`^[a-zA-Z0-9:][a-zA-Z0-9:._-]*$`)

// Item is one raw metadata row as read from the suite file, before any
// variable resolution.
type Item struct {
	Key   string
	Value string
}

// Entry is the token list of one metadata value, split on runs of two or
// more spaces. Tokens may still contain variable references.
type Entry []string

// Set holds the recognized metadata of one suite. Deps may span several
// entries; the other keys carry at most one.
type Set struct {
	Stage   Entry
	Deps    []Entry
	For     Entry
	Timeout Entry
}

// HasFor reports whether the suite declared a medusa:for expansion.
func (s *Set) HasFor() bool { return s.For != nil }

// HasTimeout reports whether the suite declared its own timeout.
func (s *Set) HasTimeout() bool { return s.Timeout != nil }

// Read validates and collects the medusa:* items of one suite. Unknown
// medusa:* keys are an error, as are missing medusa:stage or medusa:deps.
// Metadata that does not use the medusa: prefix belongs to the runner and is
// ignored here.
func Read(items []Item) (*Set, error) {
	set := &Set{}
	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item.Key))
		if !strings.HasPrefix(key, keyPrefix) {
			continue
		}
		entry := SplitArgs(item.Value)

		switch key {
		case KeyStage:
			if set.Stage != nil {
				return nil, errdefs.NewMetadataError(KeyStage, "metadata may only be declared once")
			}
			set.Stage = entry
		case KeyDeps:
			set.Deps = append(set.Deps, entry)
		case KeyFor:
			if set.For != nil {
				return nil, errdefs.NewMetadataError(KeyFor, "metadata may only be declared once")
			}
			set.For = entry
		case KeyTimeout:
			if set.Timeout != nil {
				return nil, errdefs.NewMetadataError(KeyTimeout, "metadata may only be declared once")
			}
			set.Timeout = entry
		default:
			return nil, errdefs.NewMetadataError(key, "unknown medusa metadata key")
		}
	}

	if set.Stage == nil {
		return nil, errdefs.NewMetadataError(KeyStage, "missing required metadata")
	}
	if set.Deps == nil {
		return nil, errdefs.NewMetadataError(KeyDeps, "missing required metadata")
	}
	return set, nil
}

var argSplitRe = regexp.MustCompile(` {2,}`)

// SplitArgs splits a metadata value into its tokens. Tokens are separated by
// two or more spaces, so single spaces stay inside a token.
func SplitArgs(s string) Entry {
	s = strings.TrimSpace(s)
	if s == "" {
		return Entry{}
	}
	return Entry(argSplitRe.Split(s, -1))
}
