package otp

// InvalidSecretError reports a secret that does not decode to a non-empty
// Base32 byte sequence. Retrying with the same secret never succeeds.
type InvalidSecretError struct {
	Reason string
}

func (e *InvalidSecretError) Error() string {
	return "otp: invalid secret: " + e.Reason
}

// InvalidURIError reports an otpauth URI that cannot be imported.
type InvalidURIError struct {
	Reason string
}

func (e *InvalidURIError) Error() string {
	return "otp: invalid uri: " + e.Reason
}
