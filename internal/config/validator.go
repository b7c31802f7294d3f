package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/cel-go/cel"
)

// Validate validates the ACPCTLConfig using struct tags and the
// cross-field rules below. Returns an error with actionable messages.
func (c *ACPCTLConfig) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validateAuthRequiresHash(); err != nil {
		return err
	}
	if err := c.validatePolicyExpressionCompiles(); err != nil {
		return err
	}
	return nil
}

// validateAuthRequiresHash ensures a shared secret hash is configured
// whenever the auth gate is enabled; an enabled gate with no hash would
// reject every client outright, which is almost certainly a
// misconfiguration rather than the operator's intent.
func (c *ACPCTLConfig) validateAuthRequiresHash() error {
	if c.Auth.Enabled && c.Auth.SharedSecretHash == "" {
		return errors.New("auth.enabled is true but auth.shared_secret_hash is empty")
	}
	return nil
}

// validatePolicyExpressionCompiles catches a broken CEL expression at
// config-load time instead of at the first "session/prompt".
func (c *ACPCTLConfig) validatePolicyExpressionCompiles() error {
	if c.Policy.Expression == "" {
		return nil
	}
	env, err := cel.NewEnv(
		cel.Variable("method", cel.StringType),
		cel.Variable("session_id", cel.StringType),
		cel.Variable("params", cel.DynType),
	)
	if err != nil {
		return fmt.Errorf("policy: building CEL environment: %w", err)
	}
	_, issues := env.Compile(c.Policy.Expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("policy.expression: %w", issues.Err())
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to
// user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

// formatSingleValidationError creates a user-friendly message for a
// single validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}
