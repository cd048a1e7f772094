package automation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength     = 100
	maxSlugLength     = 50
	maxSteps          = 50
	maxDelayMS        = 300000 // 5 minutes
	maxDescriptionLen = 500
	slugPattern       = `^[a-z0-9]+(?:-[a-z0-9]+)*$`
)

var slugRegex = regexp.MustCompile(slugPattern)

// Pre-computed validation set for O(1) trigger kind lookups.
var validTriggerKinds map[TriggerKind]struct{}

func init() {
	validTriggerKinds = make(map[TriggerKind]struct{}, len(AllTriggerKinds()))
	for _, k := range AllTriggerKinds() {
		validTriggerKinds[k] = struct{}{}
	}
}

// ValidateAutomation performs comprehensive validation on an automation.
// Returns an error describing the first validation failure found.
//
// Step kinds are deliberately not validated against the known set:
// unknown kinds are skipped at execution time, which lets definitions
// written for a newer daemon load without error.
func ValidateAutomation(a *Automation) error {
	if a == nil {
		return ErrInvalid
	}

	if err := ValidateName(a.Name); err != nil {
		return err
	}

	if a.Slug != "" {
		if err := ValidateSlug(a.Slug); err != nil {
			return err
		}
	}

	if len(a.Description) > maxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalid, maxDescriptionLen)
	}

	if err := ValidateTrigger(a.Trigger); err != nil {
		return err
	}

	if len(a.Steps) == 0 {
		return ErrNoSteps
	}
	if len(a.Steps) > maxSteps {
		return fmt.Errorf("%w: exceeds maximum of %d steps", ErrInvalidStep, maxSteps)
	}

	for i, step := range a.Steps {
		if err := ValidateStep(step); err != nil {
			return fmt.Errorf("step[%d]: %w", i, err)
		}
		if i > 0 && a.Steps[i].Order <= a.Steps[i-1].Order {
			return fmt.Errorf("%w: step[%d] order %d not ascending", ErrInvalidStep, i, step.Order)
		}
	}

	return nil
}

// ValidateName checks if an automation name is valid.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateSlug checks if a slug format is valid.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("%w: slug cannot be empty", ErrInvalidSlug)
	}
	if len(slug) > maxSlugLength {
		return fmt.Errorf("%w: slug exceeds %d characters", ErrInvalidSlug, maxSlugLength)
	}
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("%w: must be lowercase alphanumeric with hyphens", ErrInvalidSlug)
	}
	return nil
}

// ValidateTrigger checks that a trigger carries the parameters its kind
// requires.
func ValidateTrigger(t Trigger) error {
	if _, ok := validTriggerKinds[t.Kind]; !ok {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidTrigger, t.Kind)
	}

	switch t.Kind {
	case TriggerProcessStarted, TriggerProcessStopped:
		if t.Process == "" {
			return fmt.Errorf("%w: %s requires a process name", ErrInvalidTrigger, t.Kind)
		}
	case TriggerPowerSource:
		if t.Power != "ac" && t.Power != "battery" {
			return fmt.Errorf("%w: power must be \"ac\" or \"battery\"", ErrInvalidTrigger)
		}
	case TriggerFeatureState:
		if t.FeatureID == "" || t.StateName == "" {
			return fmt.Errorf("%w: feature_state requires feature_id and state_name", ErrInvalidTrigger)
		}
	case TriggerManual:
		// No parameters.
	}
	return nil
}

// ValidateStep checks the parameters of a single step. Known kinds get
// parameter checks; unknown kinds pass through.
func ValidateStep(step Step) error {
	switch step.Kind {
	case StepFeatureSet:
		if step.FeatureID == "" || step.StateName == "" {
			return fmt.Errorf("%w: feature_set requires feature_id and state_name", ErrInvalidStep)
		}
	case StepDelay:
		if step.DelayMs <= 0 || step.DelayMs > maxDelayMS {
			return fmt.Errorf("%w: delay_ms must be 1-%d", ErrInvalidStep, maxDelayMS)
		}
	case StepMacroReplay:
		if step.MacroID == "" {
			return fmt.Errorf("%w: macro_replay requires macro_id", ErrInvalidStep)
		}
	case "":
		return fmt.Errorf("%w: kind is required", ErrInvalidStep)
	}
	return nil
}

// GenerateSlug creates a URL-safe slug from a name.
// It lowercases, replaces spaces/underscores with hyphens, removes
// non-alphanumeric characters, and trims to maxSlugLength.
func GenerateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")

	var result strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			result.WriteRune(r)
		}
	}
	slug = result.String()

	// Clean up multiple/leading/trailing hyphens
	slug = strings.Trim(slug, "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}

	// Truncate to max length
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
		slug = strings.TrimRight(slug, "-")
	}

	return slug
}

// GenerateID creates a new UUID for an automation or execution.
func GenerateID() string {
	return uuid.New().String()
}
