package model

import (
	"regexp"
	"strings"
	"time"
)

// Project is a saved generation result: the prompt, the blueprint it produced,
// and a display title.
type Project struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Prompt    string    `json:"prompt"`
	Blueprint string    `json:"blueprint"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	// UntitledApp is the name used when a blueprint has no first line.
	UntitledApp = "Untitled App"

	fallbackTitleLen = 40
)

var (
	headingPrefix = regexp.MustCompile(`^#+\s*`)
	edgeQuotes    = regexp.MustCompile(`^["']|["']$`)
)

// ExtractAppName returns the app name from the first line of a blueprint,
// with markdown heading markers and surrounding quotes removed.
func ExtractAppName(blueprint string) string {
	first, _, _ := strings.Cut(blueprint, "\n")
	first = strings.TrimSpace(first)
	if first == "" {
		return UntitledApp
	}

	name := headingPrefix.ReplaceAllString(first, "")
	name = edgeQuotes.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// FallbackTitle derives a title from the prompt, truncated to 40 characters.
func FallbackTitle(prompt string) string {
	runes := []rune(prompt)
	if len(runes) <= fallbackTitleLen {
		return prompt
	}
	return string(runes[:fallbackTitleLen]) + "..."
}

// TitleFor picks the title for a freshly generated blueprint.
func TitleFor(prompt, blueprint string) string {
	if name := ExtractAppName(blueprint); name != "" {
		return name
	}
	return FallbackTitle(prompt)
}
