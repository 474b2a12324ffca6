package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/the-nook/nook-api/internal/models"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const (
	MinPasswordLength  = 6
	MaxTitleLength     = 300
	MaxLabelLength     = 40
	MaxDisplayName     = 80
	MaxUsernameLength  = 40
	MaxDescriptionSize = 5000
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Errors is a non-empty list of validation errors usable as an error
type Errors []ValidationError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, ve := range e {
		parts[i] = ve.Field + ": " + ve.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Err returns nil for an empty list
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Validator provides normalisation and validation for user input
type Validator struct {
	defaultImage string
}

// NewValidator creates a new validator instance. defaultImage replaces an
// empty article image.
func NewValidator(defaultImage string) *Validator {
	return &Validator{defaultImage: defaultImage}
}

// NormalizeLabels trims labels, drops empty ones, removes case-insensitive
// duplicates keeping the first spelling and keeps at most MaxArticleLabels
func NormalizeLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		k := strings.ToLower(l)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, l)
		if len(out) == models.MaxArticleLabels {
			break
		}
	}
	return out
}

// NormalizeArticle trims free text fields, normalises labels and fills in
// the default image
func (v *Validator) NormalizeArticle(in *models.ArticleInput) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.OriginalAuthor = strings.TrimSpace(in.OriginalAuthor)
	in.URL = strings.TrimSpace(in.URL)
	in.Image = strings.TrimSpace(in.Image)
	if in.Image == "" {
		in.Image = v.defaultImage
	}
	in.Tags = NormalizeLabels(in.Tags)
	in.Categories = NormalizeLabels(in.Categories)
}

// ValidateArticle validates a normalised article input
func (v *Validator) ValidateArticle(in *models.ArticleInput) Errors {
	var errors Errors

	// Validate title
	if in.Title == "" {
		errors = append(errors, ValidationError{Field: "title", Message: "title is required"})
	} else if utf8.RuneCountInString(in.Title) > MaxTitleLength {
		errors = append(errors, ValidationError{Field: "title", Message: fmt.Sprintf("title exceeds %d characters", MaxTitleLength)})
	}

	// Validate url
	if in.URL == "" {
		errors = append(errors, ValidationError{Field: "url", Message: "url is required"})
	} else if !isHTTPURL(in.URL) {
		errors = append(errors, ValidationError{Field: "url", Message: "url must be an absolute http(s) URL", Value: in.URL})
	}

	if utf8.RuneCountInString(in.Description) > MaxDescriptionSize {
		errors = append(errors, ValidationError{Field: "description", Message: fmt.Sprintf("description exceeds %d characters", MaxDescriptionSize)})
	}

	for _, l := range in.Tags {
		if utf8.RuneCountInString(l) > MaxLabelLength {
			errors = append(errors, ValidationError{Field: "tags", Message: "tag too long", Value: l})
		}
	}
	for _, l := range in.Categories {
		if utf8.RuneCountInString(l) > MaxLabelLength {
			errors = append(errors, ValidationError{Field: "categories", Message: "category too long", Value: l})
		}
	}

	return errors
}

// ValidateSignUp validates sign-up credentials
func (v *Validator) ValidateSignUp(email, password, displayName string) Errors {
	errors := v.ValidateCredentials(email, password)
	if utf8.RuneCountInString(strings.TrimSpace(displayName)) > MaxDisplayName {
		errors = append(errors, ValidationError{Field: "display_name", Message: fmt.Sprintf("display_name exceeds %d characters", MaxDisplayName)})
	}
	return errors
}

// ValidateCredentials validates an email/password pair
func (v *Validator) ValidateCredentials(email, password string) Errors {
	var errors Errors

	if email == "" {
		errors = append(errors, ValidationError{Field: "email", Message: "email is required"})
	} else if !emailRegex.MatchString(email) {
		errors = append(errors, ValidationError{Field: "email", Message: "invalid email format", Value: email})
	}

	if len(password) < MinPasswordLength {
		errors = append(errors, ValidationError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", MinPasswordLength)})
	}

	return errors
}

// NormalizeProfile trims the editable fields. An empty username is stored as null.
func (v *Validator) NormalizeProfile(in *models.ProfileUpdate) {
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if in.Username != nil {
		u := strings.TrimSpace(*in.Username)
		if u == "" {
			in.Username = nil
		} else {
			in.Username = &u
		}
	}
}

// ValidateProfile checks lengths only; display name and username are not
// required to be unique or follow a format
func (v *Validator) ValidateProfile(in *models.ProfileUpdate) Errors {
	var errors Errors
	if utf8.RuneCountInString(in.DisplayName) > MaxDisplayName {
		errors = append(errors, ValidationError{Field: "display_name", Message: fmt.Sprintf("display_name exceeds %d characters", MaxDisplayName)})
	}
	if in.Username != nil && utf8.RuneCountInString(*in.Username) > MaxUsernameLength {
		errors = append(errors, ValidationError{Field: "username", Message: fmt.Sprintf("username exceeds %d characters", MaxUsernameLength)})
	}
	return errors
}

// ValidateStatus checks a profile status value
func (v *Validator) ValidateStatus(status models.UserStatus) Errors {
	if !models.ValidStatuses[status] {
		return Errors{{Field: "status", Message: "invalid status, must be one of: user, admin", Value: status}}
	}
	return nil
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
