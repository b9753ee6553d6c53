// Package validate checks and cleans user input before it reaches the
// generation controller or the project store.
package validate

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	MinPromptLength = 10
	MaxPromptLength = 2000
	MinTitleLength  = 3
	MaxTitleLength  = 100
)

// ValidationError reports input that failed a shape constraint. Message is
// safe to show to the user as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	harmfulPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<script`),
		regexp.MustCompile(`(?i)javascript:`),
		regexp.MustCompile(`(?i)on\w+\s*=`),
		regexp.MustCompile(`(?i)<iframe`),
		regexp.MustCompile(`(?i)<object`),
		regexp.MustCompile(`(?i)<embed`),
	}

	invalidTitleChars = regexp.MustCompile(`[<>:"/\\|?*]`)

	angleBrackets = regexp.MustCompile(`[<>]`)
	jsProtocol    = regexp.MustCompile(`(?i)javascript:`)
	eventHandlers = regexp.MustCompile(`(?i)on\w+\s*=`)
)

// Prompt validates an application idea before generation.
func Prompt(prompt string) error {
	err := validation.Validate(prompt,
		validation.By(notBlank("Please enter an application idea.")),
		validation.RuneLength(MinPromptLength, 0).
			Error("Please provide a more detailed description (at least 10 characters)."),
		validation.RuneLength(0, MaxPromptLength).
			Error("Description is too long. Please keep it under 2000 characters."),
		validation.By(noHarmfulContent),
	)
	return wrap("prompt", err)
}

// ProjectTitle validates a user supplied project name.
func ProjectTitle(title string) error {
	err := validation.Validate(title,
		validation.By(notBlank("Project name is required.")),
		validation.RuneLength(MinTitleLength, 0).
			Error("Project name must be at least 3 characters long."),
		validation.RuneLength(0, MaxTitleLength).
			Error("Project name is too long. Please keep it under 100 characters."),
		validation.By(noInvalidTitleChars),
	)
	return wrap("title", err)
}

// SanitizeInput strips markup fragments from free text.
func SanitizeInput(input string) string {
	out := angleBrackets.ReplaceAllString(input, "")
	out = jsProtocol.ReplaceAllString(out, "")
	return eventHandlers.ReplaceAllString(out, "")
}

// SanitizeProjectTitle trims a title, removes disallowed characters and caps
// its length.
func SanitizeProjectTitle(title string) string {
	out := invalidTitleChars.ReplaceAllString(strings.TrimSpace(title), "")
	runes := []rune(out)
	if len(runes) > MaxTitleLength {
		runes = runes[:MaxTitleLength]
	}
	return string(runes)
}

func notBlank(message string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return errors.New(message)
		}
		return nil
	}
}

func noHarmfulContent(value interface{}) error {
	s, _ := value.(string)
	for _, p := range harmfulPatterns {
		if p.MatchString(s) {
			return errors.New("Invalid content detected. Please remove any scripts or HTML tags.")
		}
	}
	return nil
}

func noInvalidTitleChars(value interface{}) error {
	s, _ := value.(string)
	if invalidTitleChars.MatchString(s) {
		return errors.New("Project name contains invalid characters.")
	}
	return nil
}

func wrap(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}
