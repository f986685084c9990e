package tasks

import (
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	maxTitleRunes       = 100
	maxDescriptionRunes = 1000
	dueDateLayout       = "2006-01-02"
)

// FieldError describes a single invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// normalize applies Unicode canonical composition and trims surrounding
// whitespace. Stored and returned values are always in this form.
func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func validateTitle(raw string) (string, *FieldError) {
	title := normalize(raw)
	n := utf8.RuneCountInString(title)
	if n < 1 || n > maxTitleRunes {
		return "", &FieldError{Field: "title", Message: "title must be 1-100 characters"}
	}
	if strings.ContainsAny(title, "\n\r") {
		return "", &FieldError{Field: "title", Message: "title cannot contain newlines"}
	}
	return title, nil
}

func validateDescription(raw string) (string, *FieldError) {
	description := normalize(raw)
	if utf8.RuneCountInString(description) > maxDescriptionRunes {
		return "", &FieldError{Field: "description", Message: "description must be 0-1000 characters"}
	}
	return description, nil
}

func validateDueDate(raw string) (string, *FieldError) {
	dueDate := normalize(raw)
	if dueDate == "" {
		return "", nil
	}
	// time.Parse accepts unpadded months and days, so round-trip through the
	// layout to pin the exact YYYY-MM-DD shape.
	parsed, err := time.Parse(dueDateLayout, dueDate)
	if err != nil || parsed.Format(dueDateLayout) != dueDate {
		return "", &FieldError{Field: "dueDate", Message: "dueDate must be a valid date in YYYY-MM-DD format"}
	}
	return dueDate, nil
}
