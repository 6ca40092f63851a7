package security

import (
	"fmt"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// PasswordValidationError is one policy violation. Message is written for
// end users and returned verbatim by the registration API.
type PasswordValidationError struct {
	Code    string
	Message string
}

func (e *PasswordValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PasswordRule checks one aspect of the password policy.
type PasswordRule interface {
	Validate(password string) error
}

// PasswordRuleFunc adapts a plain function to the PasswordRule interface.
type PasswordRuleFunc func(password string) error

func (f PasswordRuleFunc) Validate(password string) error {
	return f(password)
}

// PasswordValidator runs rules in order and stops at the first violation,
// so the rule sequence decides which message a multi-violation password
// gets.
type PasswordValidator struct {
	rules []PasswordRule
}

// NewPasswordValidator copies the rule list into a validator.
func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	copied := make([]PasswordRule, len(rules))
	copy(copied, rules)
	return &PasswordValidator{rules: copied}
}

// Validate returns nil when every rule passes.
func (v *PasswordValidator) Validate(password string) error {
	if v == nil {
		return fmt.Errorf("password validator not configured")
	}
	for _, rule := range v.rules {
		if err := rule.Validate(password); err != nil {
			return err
		}
	}
	return nil
}

// classRule passes when any rune in the password satisfies match.
func classRule(code, message string, match func(rune) bool) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		for _, r := range password {
			if match(r) {
				return nil
			}
		}
		return &PasswordValidationError{Code: code, Message: message}
	})
}

// MinLengthRule requires at least min characters, counted in runes.
func MinLengthRule(min int) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if len([]rune(password)) < min {
			return &PasswordValidationError{
				Code:    "min_length",
				Message: fmt.Sprintf("Password must be at least %d characters long", min),
			}
		}
		return nil
	})
}

// RequireUppercaseRule requires an uppercase letter.
func RequireUppercaseRule() PasswordRule {
	return classRule("uppercase", "Password must contain at least one uppercase letter", unicode.IsUpper)
}

// RequireLowercaseRule requires a lowercase letter.
func RequireLowercaseRule() PasswordRule {
	return classRule("lowercase", "Password must contain at least one lowercase letter", unicode.IsLower)
}

// RequireDigitRule requires a decimal digit.
func RequireDigitRule() PasswordRule {
	return classRule("digit", "Password must contain at least one number", unicode.IsDigit)
}

// RequirePasswordStrengthRule rejects passwords scoring below minScore on
// the zxcvbn estimator. userInputs seed the estimator's dictionary so
// account identifiers rank as weak.
func RequirePasswordStrengthRule(minScore int, userInputs ...string) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if minScore <= 0 {
			return nil
		}
		if minScore > 4 {
			minScore = 4
		}

		if zxcvbn.PasswordStrength(password, userInputs).Score >= minScore {
			return nil
		}
		return &PasswordValidationError{
			Code:    "weak_password",
			Message: "Password is too weak; choose a more complex value",
		}
	})
}
