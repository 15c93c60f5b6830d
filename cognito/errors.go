package cognito

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"

	"github.com/alexlup06-authgate/signin-go/signin"
)

// rejections are API error codes caused by what the visitor submitted rather
// than by the service or its configuration.
var rejections = map[string]bool{
	"NotAuthorizedException":         true,
	"CodeMismatchException":          true,
	"ExpiredCodeException":           true,
	"InvalidPasswordException":       true,
	"PasswordResetRequiredException": true,
	"UserNotConfirmedException":      true,
}

// mapError wraps an SDK error in the matching signin sentinel so callers can
// classify it with errors.Is. nil stays nil.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch {
		case code == "UserNotFoundException":
			return fmt.Errorf("%w: %s: %s", signin.ErrUserNotFound, op, code)
		case rejections[code]:
			return fmt.Errorf("%w: %s: %s", signin.ErrInvalidInput, op, code)
		default:
			return fmt.Errorf("%w: %s: %s: %s", signin.ErrIdentityProvider, op, code, apiErr.ErrorMessage())
		}
	}

	return fmt.Errorf("%w: %s: %w", signin.ErrIdentityProvider, op, err)
}
