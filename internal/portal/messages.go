package portal

import (
	"errors"

	"timetabledocs/internal/client"
)

// Display text for local failures.
const (
	NoFileSelectedMessage     = "Please select a file."
	InvalidCredentialsMessage = "Invalid credentials. Please try again."
)

// Message converts any workflow error into the single line shown to the operator.
// Server and transport failures already carry display text.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var se *client.ServerError
	var te *client.TransportError
	switch {
	case errors.Is(err, ErrNoFileSelected):
		return NoFileSelectedMessage
	case errors.Is(err, ErrInvalidCredentials):
		return InvalidCredentialsMessage
	case errors.Is(err, ErrNoDepartmentClaim):
		return "Your profile has no department. Contact an administrator."
	case errors.Is(err, ErrNoDepartmentSelected):
		return "Please select a department."
	case errors.As(err, &se):
		return se.Message
	case errors.As(err, &te):
		return te.Message
	default:
		return err.Error()
	}
}
