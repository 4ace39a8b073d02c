// Package analysis extracts structural metadata from IFS Cloud source files.
package analysis

import (
	"bufio"
	"path"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// FileInfo describes one analysed source file.
type FileInfo struct {
	Path       string   `json:"path"`
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Component  string   `json:"component"`
	Entity     string   `json:"entity,omitempty"`
	APIs       []string `json:"apis,omitempty"`
	References []string `json:"references,omitempty"`
	Lines      int      `json:"lines"`
	Size       int64    `json:"size"`
}

var (
	routinePattern   = regexp.MustCompile(`(?i)^\s*(?:PROCEDURE|FUNCTION)\s+([A-Za-z][A-Za-z0-9_]*)`)
	entityPattern    = regexp.MustCompile(`(?i)^\s*(?:entityname|enumerationname)\s+([A-Za-z][A-Za-z0-9_]*)`)
	modelPattern     = regexp.MustCompile(`(?i)^\s*(?:projection|fragment|client)\s+([A-Za-z][A-Za-z0-9_]*)\s*;`)
	entitySetPattern = regexp.MustCompile(`(?i)^\s*entityset\s+([A-Za-z][A-Za-z0-9_]*)`)
	includePattern   = regexp.MustCompile(`(?i)^\s*include\s+fragment\s+([A-Za-z][A-Za-z0-9_]*)`)
	apiRefPattern    = regexp.MustCompile(`(?i)\b([A-Z][A-Z0-9]*(?:_[A-Z][A-Z0-9]*)*_API)\b`)
)

// AnalyzeFile analyses a file given its path relative to the source root.
func AnalyzeFile(relPath string, content []byte) FileInfo {
	relPath = path.Clean(strings.ReplaceAll(relPath, "\\", "/"))
	base := path.Base(relPath)
	ext := path.Ext(base)

	info := FileInfo{
		Path:      relPath,
		Name:      strings.TrimSuffix(base, ext),
		Type:      TypeOf(relPath),
		Component: ComponentOf(relPath),
		Size:      int64(len(content)),
	}

	apis := newStringSet()
	refs := newStringSet()

	if info.Type == "plsql" || info.Type == "plsvc" {
		apis.add(PackageName(info.Name))
	}

	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		info.Lines++

		switch info.Type {
		case "plsql", "plsvc":
			if m := routinePattern.FindStringSubmatch(line); m != nil {
				apis.add(m[1])
			}
		case "entity", "enumeration":
			if m := entityPattern.FindStringSubmatch(line); m != nil && info.Entity == "" {
				info.Entity = m[1]
			}
		case "projection", "fragment", "client":
			if m := modelPattern.FindStringSubmatch(line); m != nil && info.Entity == "" {
				info.Entity = m[1]
				// Fragments are referenced by name from "include fragment".
				if info.Type == "fragment" {
					apis.add(m[1])
				}
			}
			if m := entitySetPattern.FindStringSubmatch(line); m != nil {
				apis.add(m[1])
			}
			if m := includePattern.FindStringSubmatch(line); m != nil {
				refs.add(m[1])
			}
		}

		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		for _, m := range apiRefPattern.FindAllStringSubmatch(line, -1) {
			refs.add(m[1])
		}
	}

	for _, name := range apis.items {
		refs.remove(name)
	}

	info.APIs = apis.sorted()
	info.References = refs.sorted()
	return info
}

// PackageName derives the PL/SQL package name from a file base name,
// e.g. CustomerOrder -> Customer_Order_API.
func PackageName(name string) string {
	var b strings.Builder
	var prev rune
	for i, r := range name {
		if i > 0 && unicode.IsLower(prev) && unicode.IsUpper(r) {
			b.WriteByte('_')
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String() + "_API"
}

// TypeOf returns the lowercased extension of a path without the dot.
func TypeOf(relPath string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(relPath), "."))
}

// ComponentOf returns the first segment of a source-relative path, lowercased.
func ComponentOf(relPath string) string {
	first, _, found := strings.Cut(relPath, "/")
	if !found {
		return ""
	}
	return strings.ToLower(first)
}

// stringSet is a case-insensitive set that keeps the first spelling seen.
// PL/SQL identifiers are not case sensitive.
type stringSet struct {
	items map[string]string
}

func newStringSet() *stringSet {
	return &stringSet{items: make(map[string]string)}
}

func (s *stringSet) add(v string) {
	key := strings.ToUpper(v)
	if _, ok := s.items[key]; !ok {
		s.items[key] = v
	}
}

func (s *stringSet) remove(v string) { delete(s.items, strings.ToUpper(v)) }

func (s *stringSet) sorted() []string {
	if len(s.items) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.items))
	for _, v := range s.items {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
