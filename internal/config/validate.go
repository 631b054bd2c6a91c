package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError holds details about a configuration validation failure.
type ValidationError struct {
	Field   string
	Message string
	Context string
}

func (e ValidationError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (in %s)", e.Field, e.Message, e.Context)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, "  - "+e.Error())
	}
	return fmt.Sprintf("validation failed with %d error(s):\n%s", len(errs), strings.Join(msgs, "\n"))
}

// HasErrors returns true if there are any validation errors.
func (errs ValidationErrors) HasErrors() bool {
	return len(errs) > 0
}

// Validate checks a pipeline config and returns every problem found
// rather than stopping at the first.
func Validate(p *Pipeline) ValidationErrors {
	var errs ValidationErrors

	if p.Name == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "pipeline name is required",
		})
	}
	if p.Spec == "" {
		errs = append(errs, ValidationError{
			Field:   "spec",
			Message: "spec path is required",
		})
	}
	if len(p.Steps) == 0 {
		errs = append(errs, ValidationError{
			Field:   "steps",
			Message: "at least one step is required",
		})
	}
	if p.MaxFixIterations < 0 {
		errs = append(errs, ValidationError{
			Field:   "max_fix_iterations",
			Message: "must be >= 0",
		})
	}

	seenNames := make(map[string]bool)
	for i, step := range p.Steps {
		stepContext := fmt.Sprintf("step[%d]", i)

		if step.Name == "" {
			errs = append(errs, ValidationError{
				Field:   "name",
				Message: "step name is required",
				Context: stepContext,
			})
		} else {
			if seenNames[step.Name] {
				errs = append(errs, ValidationError{
					Field:   "name",
					Message: fmt.Sprintf("duplicate step name %q", step.Name),
					Context: stepContext,
				})
			}
			seenNames[step.Name] = true
		}

		if step.Command == "" {
			errs = append(errs, ValidationError{
				Field:   "command",
				Message: "step command is required",
				Context: stepContext,
			})
		}
		if step.Timeout != "" {
			if _, err := time.ParseDuration(step.Timeout); err != nil {
				errs = append(errs, ValidationError{
					Field:   "timeout",
					Message: fmt.Sprintf("invalid duration %q", step.Timeout),
					Context: stepContext,
				})
			}
		}
	}

	if p.FixStep != "" && !seenNames[p.FixStep] {
		errs = append(errs, ValidationError{
			Field:   "fix_step",
			Message: fmt.Sprintf("fix_step %q does not name a declared step", p.FixStep),
		})
	}
	if p.MaxFixIterations > 0 && p.FixStep != "" && (p.Proposer == nil || p.Proposer.Command == "") {
		errs = append(errs, ValidationError{
			Field:   "proposer",
			Message: "fix loop is enabled but no proposer command is configured",
		})
	}
	if p.Proposer != nil && p.Proposer.Retries < 0 {
		errs = append(errs, ValidationError{
			Field:   "retries",
			Message: "must be >= 0",
			Context: "proposer",
		})
	}
	if p.Proposer != nil && p.Proposer.Timeout != "" {
		if _, err := time.ParseDuration(p.Proposer.Timeout); err != nil {
			errs = append(errs, ValidationError{
				Field:   "timeout",
				Message: fmt.Sprintf("invalid duration %q", p.Proposer.Timeout),
				Context: "proposer",
			})
		}
	}

	return errs
}
