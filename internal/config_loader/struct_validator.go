package config_loader

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// -----------------------------------------------------------------------------
// Struct Validator (go-playground/validator integration)
// -----------------------------------------------------------------------------

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
	// fieldNameCache maps Go struct field names to yaml tag names (built via reflection)
	fieldNameCache = make(map[string]string)
)

// regionIDPattern matches region ids such as "us-east-1"
var regionIDPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// extractYamlTagName extracts the yaml tag name from a struct field.
// Returns the Go field name if no yaml tag is defined.
func extractYamlTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

// buildFieldNameCache recursively scans a type and caches Go field name -> yaml tag name mappings
func buildFieldNameCache(t reflect.Type, visited map[reflect.Type]bool) {
	switch t.Kind() { //nolint:exhaustive // only handling types that contain nested fields
	case reflect.Ptr:
		buildFieldNameCache(t.Elem(), visited)
	case reflect.Slice, reflect.Array, reflect.Map:
		buildFieldNameCache(t.Elem(), visited)
	case reflect.Struct:
		if visited[t] {
			return
		}
		visited[t] = true

		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			fieldNameCache[field.Name] = extractYamlTagName(field)
			buildFieldNameCache(field.Type, visited)
		}
	}
}

// getStructValidator returns a singleton validator instance with custom validations registered
func getStructValidator() *validator.Validate {
	structValidatorOnce.Do(func() {
		structValidator = validator.New()

		//nolint:errcheck // the validation is known-good
		_ = structValidator.RegisterValidation("regionid", validateRegionID)

		// Use yaml tag names for field names in errors
		structValidator.RegisterTagNameFunc(extractYamlTagName)

		visited := make(map[reflect.Type]bool)
		buildFieldNameCache(reflect.TypeOf(HubClustersConfig{}), visited)
	})
	return structValidator
}

// validateRegionID is a custom validator for region ids
func validateRegionID(fl validator.FieldLevel) bool {
	return regionIDPattern.MatchString(fl.Field().String())
}

// ValidateStruct validates a struct using go-playground/validator tags.
// Returns a ValidationErrors with all validation failures.
func ValidateStruct(s interface{}) *ValidationErrors {
	v := getStructValidator()
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors := &ValidationErrors{}

	if errs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range errs {
			validationErrors.Add("", formatFullErrorMessage(e))
		}
	} else {
		validationErrors.Add("", err.Error())
	}

	return validationErrors
}

// formatFullErrorMessage creates a complete error message
// e.g., "apiVersion is required" or "spec.regions[0].url is required"
func formatFullErrorMessage(e validator.FieldError) string {
	path := formatFieldPath(e.Namespace())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", path)
	case "oneof":
		return fmt.Sprintf("%s %q is invalid (allowed: %s)", path, e.Value(), strings.ReplaceAll(e.Param(), " ", ", "))
	case "regionid":
		return fmt.Sprintf("%s %q: must contain only lowercase letters, numbers and hyphens", path, e.Value())
	case "url":
		return fmt.Sprintf("%s %q is not a valid URL", path, e.Value())
	case "numeric":
		return fmt.Sprintf("%s %q must be numeric", path, e.Value())
	case "min":
		return fmt.Sprintf("%s: must have at least %s element(s)", path, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or greater", path, e.Param())
	case "lte":
		return fmt.Sprintf("%s must be %s or less", path, e.Param())
	case "unique":
		// e.g., "spec.regions: contains duplicate id values"
		return fmt.Sprintf("%s: contains duplicate %s values", path, yamlFieldName(e.Param()))
	default:
		return fmt.Sprintf("%s: failed validation %s", path, e.Tag())
	}
}

// yamlFieldName returns the yaml tag name for a Go struct field name.
// Falls back to lowercasing the first character if not in the cache.
func yamlFieldName(goFieldName string) string {
	// Ensure cache is populated
	getStructValidator()

	if yamlName, ok := fieldNameCache[goFieldName]; ok {
		return yamlName
	}
	if goFieldName == "" {
		return goFieldName
	}
	return strings.ToLower(goFieldName[:1]) + goFieldName[1:]
}

// formatFieldPath converts validator namespace to our path format
// e.g., "HubClustersConfig.spec.regions[0].url" -> "spec.regions[0].url"
func formatFieldPath(namespace string) string {
	parts := strings.SplitN(namespace, ".", 2)
	if len(parts) < 2 {
		return strings.ToLower(namespace)
	}
	return parts[1]
}
