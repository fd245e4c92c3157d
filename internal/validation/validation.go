package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"familyquest/internal/credentials"
	"familyquest/internal/models"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9._\-]{2,31}$`)
	categoryRegex = regexp.MustCompile(`^[a-z][a-z_]{1,31}$`)
)

const (
	MinAge            = 3
	MaxAge            = 17
	MinPasswordLength = 6
	MaxTitleLength    = 120
	MaxDescription    = 2000
	MaxTaskPoints     = 1000
	MaxInterests      = 20
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < MinPasswordLength {
		return ValidationError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", MinPasswordLength)}
	}
	if len(password) > 72 {
		return ValidationError{Field: "password", Message: "password must be at most 72 bytes"}
	}
	return nil
}

// ValidateName checks if a display name is valid
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if utf8.RuneCountInString(name) < 2 {
		return ValidationError{Field: "name", Message: "name must be at least 2 characters"}
	}
	if utf8.RuneCountInString(name) > 64 {
		return ValidationError{Field: "name", Message: "name must be at most 64 characters"}
	}
	return nil
}

// ValidateUsername expects an already lower-cased username
func ValidateUsername(username string) error {
	if username == "" {
		return ValidationError{Field: "username", Message: "username is required"}
	}
	if !usernameRegex.MatchString(username) {
		return ValidationError{Field: "username", Message: "username must be 3-32 lowercase letters, digits, dots, dashes or underscores"}
	}
	return nil
}

// ValidateAge checks a child's age is within the supported range
func ValidateAge(age int) error {
	if age < MinAge || age > MaxAge {
		return ValidationError{Field: "age", Message: fmt.Sprintf("age must be between %d and %d", MinAge, MaxAge)}
	}
	return nil
}

// NormalizeInterests lower-cases, trims and de-duplicates interest tags.
// The result is sorted so stored values are stable.
func NormalizeInterests(interests []string) ([]string, error) {
	seen := make(map[string]bool, len(interests))
	out := make([]string, 0, len(interests))
	for _, raw := range interests {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if tag == "" || seen[tag] {
			continue
		}
		if utf8.RuneCountInString(tag) > 32 {
			return nil, ValidationError{Field: "interests", Message: "interest tags must be at most 32 characters"}
		}
		seen[tag] = true
		out = append(out, tag)
	}
	if len(out) > MaxInterests {
		return nil, ValidationError{Field: "interests", Message: fmt.Sprintf("at most %d interests are allowed", MaxInterests)}
	}
	sort.Strings(out)
	return out, nil
}

// ValidateTaskTitle checks a task title is present and reasonably short
func ValidateTaskTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ValidationError{Field: "title", Message: "title is required"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return ValidationError{Field: "title", Message: fmt.Sprintf("title must be at most %d characters", MaxTitleLength)}
	}
	return nil
}

// ValidateTaskDescription checks a task description is present
func ValidateTaskDescription(description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return ValidationError{Field: "description", Message: "description is required"}
	}
	if utf8.RuneCountInString(description) > MaxDescription {
		return ValidationError{Field: "description", Message: fmt.Sprintf("description must be at most %d characters", MaxDescription)}
	}
	return nil
}

// ValidateDifficulty accepts the three known tiers
func ValidateDifficulty(d models.Difficulty) error {
	switch d {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
		return nil
	}
	return ValidationError{Field: "difficulty", Message: "difficulty must be easy, medium or hard"}
}

// ValidateCategory accepts any lower-case token so the category set can grow
func ValidateCategory(category string) error {
	if !categoryRegex.MatchString(category) {
		return ValidationError{Field: "category", Message: "category must be a lowercase word"}
	}
	return nil
}

// ValidateTaskPoints checks an explicit point value
func ValidateTaskPoints(points int) error {
	if points <= 0 || points > MaxTaskPoints {
		return ValidationError{Field: "points", Message: fmt.Sprintf("points must be between 1 and %d", MaxTaskPoints)}
	}
	return nil
}

// ValidateInviteCode checks the FAM-XXXXXXXX format
func ValidateInviteCode(code string) error {
	if !credentials.IsInviteCode(code) {
		return ValidationError{Field: "code", Message: "invalid invitation code"}
	}
	return nil
}
