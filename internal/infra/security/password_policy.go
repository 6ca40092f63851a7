package security

const (
	defaultMinPasswordLength = 8
	defaultMinZxcvbnScore    = 0
)

// DefaultPasswordValidator returns the built-in validator enforcing the
// service password policy: minimum length plus uppercase, lowercase, and
// digit requirements. Rule order fixes which violation is reported first.
func DefaultPasswordValidator() *PasswordValidator {
	return PolicyValidator(defaultMinPasswordLength, defaultMinZxcvbnScore)
}

// PolicyValidator builds the registration password policy from tunables.
// A positive minScore appends a zxcvbn strength check after the baseline
// rules; userInputs feed the strength estimator so account identifiers
// cannot double as passwords.
func PolicyValidator(minLength, minScore int, userInputs ...string) *PasswordValidator {
	if minLength <= 0 {
		minLength = defaultMinPasswordLength
	}

	rules := []PasswordRule{
		MinLengthRule(minLength),
		RequireUppercaseRule(),
		RequireLowercaseRule(),
		RequireDigitRule(),
	}
	if minScore > 0 {
		rules = append(rules, RequirePasswordStrengthRule(minScore, userInputs...))
	}

	return NewPasswordValidator(rules...)
}
