package content

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

// ValidationError lists the fields of a record that failed validation,
// keyed by column name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	cols := make([]string, 0, len(e.Fields))
	for col := range e.Fields {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = col + " " + e.Fields[col]
	}
	return strings.Join(parts, "; ")
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
	policy       *bluemonday.Policy
)

func setup() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Attachment references are stored as JSON, which cannot carry invalid
	// UTF-8 unchanged.
	_ = validate.RegisterValidation("utf8", func(fl validator.FieldLevel) bool {
		return utf8.ValidString(fl.Field().String())
	})
	policy = richTextPolicy()
}

// richTextPolicy allows the formatting produced by the console's editor.
// Links must be absolute https and open in a new tab; images must be https.
func richTextPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "br", "ul", "ol", "li", "h2", "h3", "h4",
		"blockquote", "pre", "code", "strong", "em", "u", "s",
	)
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowRelativeURLs(false)
	p.AllowURLSchemeWithCustomPolicy("https", func(*url.URL) bool { return true })
	p.AllowURLSchemes("mailto")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)
	return p
}

type sanitizer[T any] interface {
	sanitize(*bluemonday.Policy) T
}

// Normalize sanitizes the rich-text fields of v and validates the result.
// It has the shape of resource.Normalizer so stores can run it before every
// write.
func Normalize[T any](v T) (T, error) {
	validateOnce.Do(setup)
	if s, ok := any(v).(sanitizer[T]); ok {
		v = s.sanitize(policy)
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return v, fmt.Errorf("content: validate: %w", err)
		}
		out := &ValidationError{Fields: make(map[string]string, len(verrs))}
		for _, fe := range verrs {
			out.Fields[fe.Field()] = describe(fe)
		}
		return v, out
	}
	return v, nil
}

// SanitizeHTML applies the rich-text policy to s.
func SanitizeHTML(s string) string {
	validateOnce.Do(setup)
	return policy.Sanitize(s)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "url":
		return "must be an absolute URL"
	case "email":
		return "must be an email address"
	case "utf8":
		return "must be valid UTF-8"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gt", "gte":
		return "is out of range"
	default:
		return "is invalid"
	}
}

func clean(p *bluemonday.Policy, s *string) *string {
	if s == nil {
		return nil
	}
	out := p.Sanitize(*s)
	return &out
}

func (r Project) sanitize(p *bluemonday.Policy) Project {
	r.Description = clean(p, r.Description)
	return r
}

func (r ProjectTask) sanitize(p *bluemonday.Policy) ProjectTask {
	r.Description = clean(p, r.Description)
	return r
}

func (r News) sanitize(p *bluemonday.Policy) News {
	r.Body = clean(p, r.Body)
	return r
}

func (r Event) sanitize(p *bluemonday.Policy) Event {
	r.Description = clean(p, r.Description)
	return r
}

func (r TeamMember) sanitize(p *bluemonday.Policy) TeamMember {
	r.Bio = clean(p, r.Bio)
	return r
}

func (r Partner) sanitize(p *bluemonday.Policy) Partner {
	r.Description = clean(p, r.Description)
	return r
}

func (r Publication) sanitize(p *bluemonday.Policy) Publication {
	r.Summary = clean(p, r.Summary)
	return r
}

func (r FAQ) sanitize(p *bluemonday.Policy) FAQ {
	r.Answer = clean(p, r.Answer)
	return r
}
