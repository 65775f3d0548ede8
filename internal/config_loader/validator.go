package config_loader

import (
	"fmt"
	"strings"
	"time"

	"github.com/openshift-hyperfleet/hub-clusters/internal/paging"
)

// -----------------------------------------------------------------------------
// Validation Errors
// -----------------------------------------------------------------------------

// ValidationError represents a validation error with context
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors holds multiple validation errors
type ValidationErrors struct {
	Errors []ValidationError
}

func (ve *ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, e := range ve.Errors {
		msgs = append(msgs, e.Error())
	}
	return fmt.Sprintf("validation failed with %d error(s):\n  - %s", len(ve.Errors), strings.Join(msgs, "\n  - "))
}

func (ve *ValidationErrors) Add(path, message string) {
	ve.Errors = append(ve.Errors, ValidationError{Path: path, Message: message})
}

func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

// -----------------------------------------------------------------------------
// Validator
// -----------------------------------------------------------------------------

// Validator performs semantic validation on HubClustersConfig: a single
// default region, parseable durations and a known default sort field.
type Validator struct {
	config *HubClustersConfig
	errors *ValidationErrors
}

func newValidator(config *HubClustersConfig) *Validator {
	return &Validator{
		config: config,
		errors: &ValidationErrors{},
	}
}

// Validate performs all semantic validations and returns any errors
func (v *Validator) Validate() error {
	if v.config == nil {
		return fmt.Errorf("config is nil")
	}

	v.validateRegions()
	v.validateDurations()
	v.validateDefaultSort()

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

// Validate runs the semantic validation of config
func Validate(config *HubClustersConfig) error {
	return newValidator(config).Validate()
}

func (v *Validator) validateRegions() {
	path := FieldSpec + "." + FieldRegions
	defaults := 0
	for _, r := range v.config.Spec.Regions {
		if r.Default {
			defaults++
		}
	}
	switch {
	case defaults == 0:
		v.errors.Add(path, "exactly one region must be marked default, found none")
	case defaults > 1:
		v.errors.Add(path, fmt.Sprintf("exactly one region must be marked default, found %d", defaults))
	}
}

func (v *Validator) validateDurations() {
	spec := v.config.Spec
	durations := []struct {
		path  string
		value string
	}{
		{FieldSpec + "." + FieldClusterService + "." + FieldTimeout, spec.ClusterService.Timeout},
		{FieldSpec + "." + FieldClusterService + "." + FieldBaseDelay, spec.ClusterService.BaseDelay},
		{FieldSpec + "." + FieldClusterService + "." + FieldMaxDelay, spec.ClusterService.MaxDelay},
		{FieldSpec + "." + FieldInventory + "." + FieldDetailCacheTTL, spec.Inventory.DetailCacheTTL},
		{FieldSpec + "." + FieldInventory + "." + FieldStaleAfter, spec.Inventory.StaleAfter},
		{FieldSpec + "." + FieldTagging + "." + FieldWorkflowIdleTimeout, spec.Tagging.WorkflowIdleTimeout},
		{FieldSpec + "." + FieldNotifications + "." + FieldTimeout, spec.Notifications.Timeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			v.errors.Add(d.path, fmt.Sprintf("invalid duration %q: %v", d.value, err))
			continue
		}
		if parsed < 0 {
			v.errors.Add(d.path, fmt.Sprintf("duration %q must not be negative", d.value))
		}
	}
}

func (v *Validator) validateDefaultSort() {
	s := v.config.Spec.Views.DefaultSort
	if s == nil {
		return
	}
	if _, err := paging.ParseSort(s.Field, s.Ascending); err != nil {
		v.errors.Add(FieldSpec+"."+FieldViews+"."+FieldDefaultSort, err.Error())
	}
}
