package domain

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidEntity is wrapped by every construction-time validation failure.
var ErrInvalidEntity = errors.New("invalid entity")

// ValidationError lists every field constraint an entity violated.
type ValidationError struct {
	Entity   string
	ID       string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Entity, e.ID, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidEntity }

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool { return emailPattern.MatchString(s) }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report json names so messages read like the wire format.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	custom := map[string]func(string) bool{
		"email_shape":      ValidEmail,
		"country":          ValidCountry,
		"language":         ValidLanguage,
		"ip_type":          func(s string) bool { return IPType(s).Valid() },
		"interaction_type": func(s string) bool { return InteractionType(s).Valid() },
		"trimmed":          func(s string) bool { return s == strings.TrimSpace(s) },
	}
	for tag, fn := range custom {
		fn := fn
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return fn(fl.Field().String())
		}); err != nil {
			panic(fmt.Sprintf("register %s: %v", tag, err))
		}
	}
	return v
}

// structProblems runs the tag rules on s and renders each failure.
func structProblems(s any) []string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			out = append(out, fmt.Sprintf("%s=%v fails %s=%s", fe.Field(), fe.Value(), fe.Tag(), fe.Param()))
		} else {
			out = append(out, fmt.Sprintf("%s=%v fails %s", fe.Field(), fe.Value(), fe.Tag()))
		}
	}
	return out
}
