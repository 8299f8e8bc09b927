package garmin

import "fmt"

// AuthError indicates Garmin rejected the credentials or the session is no
// longer valid. It is fatal for a sync run.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("garmin authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("garmin authentication failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// MFARequiredError is not a failure: sign-in needs a one-time code before the
// session is valid. Ticket is the opaque continuation state to pass back via
// ResumeLogin together with the code.
type MFARequiredError struct {
	Ticket string
}

func (e *MFARequiredError) Error() string {
	return "garmin sign-in requires an MFA code"
}
