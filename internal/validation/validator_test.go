package validation

import (
	"reflect"
	"strings"
	"testing"

	"github.com/the-nook/nook-api/internal/models"
)

func TestValidateArticle(t *testing.T) {
	validator := NewValidator("/placeholder.jpg")

	tests := []struct {
		name       string
		article    *models.ArticleInput
		wantErrors int
		wantFields []string
	}{
		{
			name: "valid article",
			article: &models.ArticleInput{
				Title: "Why Go",
				URL:   "https://example.com/why-go",
				Tags:  []string{"go"},
			},
			wantErrors: 0,
		},
		{
			name:       "missing title",
			article:    &models.ArticleInput{URL: "https://example.com"},
			wantErrors: 1,
			wantFields: []string{"title"},
		},
		{
			name:       "non http url",
			article:    &models.ArticleInput{Title: "x", URL: "ftp://example.com/file"},
			wantErrors: 1,
			wantFields: []string{"url"},
		},
		{
			name:       "relative url",
			article:    &models.ArticleInput{Title: "x", URL: "/just/a/path"},
			wantErrors: 1,
			wantFields: []string{"url"},
		},
		{
			name: "title too long",
			article: &models.ArticleInput{
				Title: strings.Repeat("a", MaxTitleLength+1),
				URL:   "https://example.com",
			},
			wantErrors: 1,
			wantFields: []string{"title"},
		},
		{
			name: "label too long",
			article: &models.ArticleInput{
				Title: "x",
				URL:   "https://example.com",
				Tags:  []string{strings.Repeat("t", MaxLabelLength+1)},
			},
			wantErrors: 1,
			wantFields: []string{"tags"},
		},
		{
			name:       "multiple validation errors",
			article:    &models.ArticleInput{},
			wantErrors: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator.NormalizeArticle(tt.article)
			errors := validator.ValidateArticle(tt.article)
			if len(errors) != tt.wantErrors {
				t.Errorf("ValidateArticle() got %d errors, want %d. Errors: %v", len(errors), tt.wantErrors, errors)
			}

			for _, wantField := range tt.wantFields {
				found := false
				for _, err := range errors {
					if err.Field == wantField {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("Expected error for field '%s' but not found", wantField)
				}
			}
		})
	}
}

func TestNormalizeArticle(t *testing.T) {
	validator := NewValidator("/placeholder.jpg")

	in := &models.ArticleInput{
		Title:      "  Spaced  ",
		URL:        " https://example.com ",
		Tags:       []string{" Go ", "go", "", "Rust", "zig", "c", "odin", "nim"},
		Categories: nil,
	}
	validator.NormalizeArticle(in)

	if in.Title != "Spaced" {
		t.Errorf("Title = %q", in.Title)
	}
	if in.Image != "/placeholder.jpg" {
		t.Errorf("Image = %q, want default", in.Image)
	}
	want := []string{"Go", "Rust", "zig", "c", "odin"}
	if !reflect.DeepEqual(in.Tags, want) {
		t.Errorf("Tags = %v, want %v", in.Tags, want)
	}
	if in.Categories == nil || len(in.Categories) != 0 {
		t.Errorf("Categories = %v, want empty slice", in.Categories)
	}
}

func TestValidateCredentials(t *testing.T) {
	validator := NewValidator("")

	tests := []struct {
		name       string
		email      string
		password   string
		wantFields []string
	}{
		{"valid", "reader@example.com", "secret1", nil},
		{"bad email", "reader", "secret1", []string{"email"}},
		{"short password", "reader@example.com", "12345", []string{"password"}},
		{"both", "", "", []string{"email", "password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errors := validator.ValidateCredentials(tt.email, tt.password)
			if len(errors) != len(tt.wantFields) {
				t.Fatalf("got %d errors, want %d: %v", len(errors), len(tt.wantFields), errors)
			}
			for i, f := range tt.wantFields {
				if errors[i].Field != f {
					t.Errorf("errors[%d].Field = %s, want %s", i, errors[i].Field, f)
				}
			}
		})
	}
}

func TestNormalizeProfile(t *testing.T) {
	validator := NewValidator("")

	blank := "   "
	in := &models.ProfileUpdate{DisplayName: " Ada ", Username: &blank}
	validator.NormalizeProfile(in)
	if in.DisplayName != "Ada" {
		t.Errorf("DisplayName = %q", in.DisplayName)
	}
	if in.Username != nil {
		t.Errorf("Username = %q, want nil", *in.Username)
	}

	long := strings.Repeat("u", MaxUsernameLength+1)
	in = &models.ProfileUpdate{Username: &long}
	validator.NormalizeProfile(in)
	if errs := validator.ValidateProfile(in); len(errs) != 1 || errs[0].Field != "username" {
		t.Errorf("ValidateProfile() = %v", errs)
	}
}

func TestValidateStatus(t *testing.T) {
	validator := NewValidator("")
	if errs := validator.ValidateStatus(models.UserStatusAdmin); errs != nil {
		t.Errorf("admin rejected: %v", errs)
	}
	if errs := validator.ValidateStatus("owner"); len(errs) != 1 {
		t.Errorf("owner accepted")
	}
}

func TestErrors(t *testing.T) {
	var errs Errors
	if errs.Err() != nil {
		t.Error("empty Errors should be nil error")
	}
	errs = append(errs, ValidationError{Field: "title", Message: "title is required"})
	if errs.Err() == nil || !strings.Contains(errs.Error(), "title: title is required") {
		t.Errorf("Error() = %q", errs.Error())
	}
}
