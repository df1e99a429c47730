// Package exitcodes defines standardized exit codes for the application.
package exitcodes

const (
	// Success indicates every component verification passed
	Success = 0
	// VerificationFailure indicates one or more components failed verification
	VerificationFailure = 1
	// RuntimeErr indicates a runtime error occurred
	RuntimeErr = 2
)
