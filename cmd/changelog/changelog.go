package main

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// ChangeSection is one "### Added" style grouping under a version entry.
type ChangeSection struct {
	Type string
	Line int
}

// ChangelogEntry represents a single version entry in the changelog
type ChangelogEntry struct {
	Version  string
	Date     string
	Content  string
	Line     int
	Sections []ChangeSection
}

// Unreleased reports whether this is the [Unreleased] entry.
func (e *ChangelogEntry) Unreleased() bool {
	return strings.EqualFold(e.Version, "Unreleased")
}

// Changelog represents a parsed Keep a Changelog file
type Changelog struct {
	Title     string
	TitleLine int
	Entries   []ChangelogEntry
	Links     map[string]string
}

// FindVersion finds a version entry. The "v" tag prefix is ignored, so
// the git tag that triggered a release resolves to its changelog entry.
func (c *Changelog) FindVersion(version string) *ChangelogEntry {
	version = strings.TrimPrefix(version, "v")

	for i := range c.Entries {
		entryVersion := strings.TrimPrefix(c.Entries[i].Version, "v")
		if entryVersion == version {
			return &c.Entries[i]
		}
	}
	return nil
}

// Parse parses a Keep a Changelog formatted markdown file
func Parse(source []byte) (*Changelog, error) {
	md := goldmark.New()
	reader := text.NewReader(source)
	ctx := parser.NewContext()
	doc := md.Parser().Parse(reader, parser.WithContext(ctx))

	changelog := &Changelog{
		Links: make(map[string]string),
	}

	// Link definitions land in the parser context, not the AST
	for _, ref := range ctx.References() {
		changelog.Links[string(ref.Label())] = string(ref.Destination())
	}

	// Content of an entry runs from the end of its heading to the start
	// of the next h2 (or EOF).
	type bounds struct{ start, end int }
	var offsets []bounds

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}

		lines := heading.Lines()
		start, stop := 0, 0
		if lines.Len() > 0 {
			start = lines.At(0).Start
			stop = lines.At(lines.Len() - 1).Stop
		}

		switch heading.Level {
		case 1:
			if changelog.Title == "" {
				changelog.Title = headingText(heading, source)
				changelog.TitleLine = lineAt(source, start)
			}
		case 2:
			if len(offsets) > 0 {
				offsets[len(offsets)-1].end = start
			}
			version, date := splitVersionHeading(headingText(heading, source))
			changelog.Entries = append(changelog.Entries, ChangelogEntry{
				Version: version,
				Date:    date,
				Line:    lineAt(source, start),
			})
			offsets = append(offsets, bounds{start: stop, end: len(source)})
		case 3:
			// Change type headings belong to the entry above them;
			// one before any entry is stray and dropped.
			if len(changelog.Entries) == 0 {
				break
			}
			entry := &changelog.Entries[len(changelog.Entries)-1]
			entry.Sections = append(entry.Sections, ChangeSection{
				Type: headingText(heading, source),
				Line: lineAt(source, start),
			})
		}

		return ast.WalkContinue, nil
	})

	for i := range changelog.Entries {
		b := offsets[i]
		if b.start < b.end {
			changelog.Entries[i].Content = strings.TrimSpace(string(source[b.start:b.end]))
		}
	}

	return changelog, nil
}

func headingText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		if textNode, ok := child.(*ast.Text); ok {
			buf.Write(textNode.Segment.Value(source))
		} else if link, ok := child.(*ast.Link); ok {
			for linkChild := link.FirstChild(); linkChild != nil; linkChild = linkChild.NextSibling() {
				if textNode, ok := linkChild.(*ast.Text); ok {
					buf.Write(textNode.Segment.Value(source))
				}
			}
		}
	}
	return buf.String()
}

// splitVersionHeading splits "[1.2.0] - 2026-07-30" (or the unbracketed
// "1.2.0 - 2026-07-30" form) into version and date.
func splitVersionHeading(heading string) (version, date string) {
	heading = strings.TrimSpace(heading)

	heading = strings.TrimPrefix(heading, "[")
	if idx := strings.Index(heading, "]"); idx != -1 {
		version = heading[:idx]
		rest := strings.TrimSpace(heading[idx+1:])
		if strings.HasPrefix(rest, "- ") {
			date = strings.TrimSpace(rest[2:])
		}
	} else if idx := strings.Index(heading, " - "); idx != -1 {
		version = strings.TrimSpace(heading[:idx])
		date = strings.TrimSpace(heading[idx+3:])
	} else {
		version = heading
	}

	return version, date
}

// lineAt converts a byte offset in source to a 1-based line number.
func lineAt(source []byte, offset int) int {
	if offset > len(source) {
		offset = len(source)
	}
	return 1 + bytes.Count(source[:offset], []byte("\n"))
}
