package main

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
)

// repoURL anchors the compare/tag links every version entry must carry.
const repoURL = "https://github.com/sqlbee/sqlbee"

// ValidationError represents a single validation issue
type ValidationError struct {
	Line    int
	Message string
}

// ValidationResult holds all validation errors
type ValidationResult struct {
	Errors []ValidationError
}

func (r *ValidationResult) AddError(line int, message string) {
	r.Errors = append(r.Errors, ValidationError{Line: line, Message: message})
}

func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a changelog follows Keep a Changelog spec",
	Long: `Validate that a changelog file follows the Keep a Changelog specification.

Checks include:
- File has a title (# Changelog)
- Has an [Unreleased] section
- Version entries use correct format: ## [X.Y.Z] - YYYY-MM-DD
- Dates are in ISO 8601 format (YYYY-MM-DD)
- Change types are valid (Added, Changed, Deprecated, Removed, Fixed, Security)
- Every entry links to this repository, released versions via their v-prefixed tag

The release job runs this before publishing a tag.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")

		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}

		result := Validate(content)

		if result.IsValid() {
			fmt.Println("✓ Changelog is valid")
			return nil
		}

		fmt.Printf("Found %d issue(s):\n\n", len(result.Errors))
		for _, e := range result.Errors {
			if e.Line > 0 {
				fmt.Printf("  Line %d: %s\n", e.Line, e.Message)
			} else {
				fmt.Printf("  %s\n", e.Message)
			}
		}

		os.Exit(1)
		return nil
	},
}

var (
	dateRegex    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	versionRegex = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
	validTypes   = map[string]bool{
		"Added":      true,
		"Changed":    true,
		"Deprecated": true,
		"Removed":    true,
		"Fixed":      true,
		"Security":   true,
	}
)

// Validate checks a changelog against the Keep a Changelog spec plus the
// linking conventions the release job depends on. Checks run over the
// parsed document, so errors carry the line of the offending heading.
func Validate(source []byte) *ValidationResult {
	result := &ValidationResult{}

	changelog, err := Parse(source)
	if err != nil {
		result.AddError(0, fmt.Sprintf("Unparseable changelog: %v", err))
		return result
	}

	if changelog.Title == "" {
		result.AddError(0, "Missing changelog title (# Changelog)")
	} else if !strings.Contains(strings.ToLower(changelog.Title), "changelog") {
		result.AddError(changelog.TitleLine, "Title should contain 'Changelog'")
	}

	hasUnreleased := false
	for i := range changelog.Entries {
		entry := &changelog.Entries[i]

		if entry.Unreleased() {
			hasUnreleased = true
		} else {
			validateRelease(result, entry)
		}

		for _, section := range entry.Sections {
			if !validTypes[section.Type] {
				result.AddError(section.Line, fmt.Sprintf("Invalid change type '%s'. Valid types: Added, Changed, Deprecated, Removed, Fixed, Security", section.Type))
			}
		}

		validateLink(result, changelog, entry)
	}

	if !hasUnreleased {
		result.AddError(0, "Missing [Unreleased] section")
	}

	return result
}

func validateRelease(result *ValidationResult, entry *ChangelogEntry) {
	if !versionRegex.MatchString(entry.Version) {
		result.AddError(entry.Line, fmt.Sprintf("Version '%s' should follow semantic versioning (X.Y.Z)", entry.Version))
	}

	if entry.Date == "" {
		result.AddError(entry.Line, fmt.Sprintf("Version '%s' is missing a release date", entry.Version))
	} else if !dateRegex.MatchString(entry.Date) {
		result.AddError(entry.Line, fmt.Sprintf("Date '%s' should be in ISO 8601 format (YYYY-MM-DD)", entry.Date))
	}
}

// validateLink requires a link definition per entry, pointing at this
// repository. A released version must reference the tag the release job
// builds from, which carries the v prefix.
func validateLink(result *ValidationResult, changelog *Changelog, entry *ChangelogEntry) {
	link, ok := changelog.Links[entry.Version]
	if !ok {
		if entry.Unreleased() {
			result.AddError(0, "Missing link definition for [Unreleased]")
		} else {
			result.AddError(0, fmt.Sprintf("Missing link definition for version [%s]", entry.Version))
		}
		return
	}

	if !strings.HasPrefix(link, repoURL+"/") {
		result.AddError(0, fmt.Sprintf("Link for [%s] should point at %s", entry.Version, repoURL))
		return
	}

	if !entry.Unreleased() && !strings.Contains(link, "v"+entry.Version) {
		result.AddError(0, fmt.Sprintf("Link for [%s] should reference tag v%s", entry.Version, entry.Version))
	}
}

func init() {
	validateCmd.Flags().StringP("file", "f", "CHANGELOG.md", "Path to the changelog file")
	rootCmd.AddCommand(validateCmd)
}
