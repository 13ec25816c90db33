package render

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("oauth_redirect", validateOAuthRedirect)
	v.RegisterTagNameFunc(useJSONTagNames)
	return v
}

// Fields are reported by json name, '-' hides the field
func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// Redirect URI provider sent user back with: must carry non empty code query parameter
func validateOAuthRedirect(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return u.Query().Get("code") != ""
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return fmt.Sprintf("Value is too short (minimum %s)", fe.Param())
	case "oauth_redirect":
		return "Redirect URI has no authorization code"
	default:
		return "Invalid value"
	}
}
