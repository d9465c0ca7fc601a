package validator

// Validator is the entry point handed to services and handlers
type Validator struct {
	business *BusinessValidator
}

// New creates a validator with every custom rule registered
func New() *Validator {
	return &Validator{business: NewBusinessValidator()}
}

// GetBusinessValidator returns the underlying business validator
func (v *Validator) GetBusinessValidator() *BusinessValidator {
	return v.business
}

// Validate runs struct tags only and returns nil when s is valid
func (v *Validator) Validate(s interface{}) error {
	return v.business.Validate(s).OrNil()
}
