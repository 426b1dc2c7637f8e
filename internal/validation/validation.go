// Package validation checks action inputs and reports failures as a
// field-name to messages map.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Validator is the shared validator instance; field names come from `form` tags.
var Validator = validator.New(validator.WithRequiredStructEnabled())

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)

func init() {
	Validator.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = Validator.RegisterValidation("notblank", validators.NotBlank)
	_ = Validator.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRegex.MatchString(fl.Field().String())
	})
	_ = Validator.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
		return IsHTTPURL(fl.Field().String())
	})
}

// IsHTTPURL reports whether s is an absolute http or https URL with a host.
func IsHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsUsername reports whether s is a valid username.
func IsUsername(s string) bool {
	return usernameRegex.MatchString(s)
}

// Fields validates s and returns the failures keyed by form field name, or
// nil when s is valid.
func Fields(s any) map[string][]string {
	err := Validator.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string][]string{"_": {err.Error()}}
	}

	out := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		name := fieldName(fe)
		out[name] = append(out[name], message(fe))
	}
	return out
}

// fieldName turns "socialLinks[twitter]" into "socialLinks.twitter" and
// collapses slice elements ("tags[3]") onto the slice field.
func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	i := strings.IndexByte(name, '[')
	if i < 0 {
		return name
	}
	base, key := name[:i], strings.TrimSuffix(name[i+1:], "]")
	if fe.Kind() == reflect.String && strings.Trim(key, "0123456789") == "" {
		return base
	}
	return base + "." + key
}

func message(fe validator.FieldError) string {
	label := fe.Field()
	if i := strings.IndexByte(label, '['); i >= 0 {
		label = label[:i]
	}
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required.", label)
	case "min":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map {
			return fmt.Sprintf("%s must have at least %s entries.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map {
			return fmt.Sprintf("%s must have at most %s entries.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
	case "httpurl", "url":
		return fmt.Sprintf("%s must be a valid http(s) URL.", label)
	case "username":
		return "Username may only contain letters, numbers, underscores and periods."
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", label, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s).", label, fe.Tag())
	}
}
