package signin

// FilterStatus is the outcome of classifying a request's session artifacts.
// Exactly one status applies to each evaluation of gated content; the zero
// value means the content carried no gate marker.
type FilterStatus int

const (
	StatusAuthenticated FilterStatus = iota + 1
	StatusAuthenticationPending
	StatusForgotPassword
	StatusResetPassword
	StatusUnauthenticated
)

func (s FilterStatus) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusAuthenticationPending:
		return "authentication_pending"
	case StatusForgotPassword:
		return "forgot_password"
	case StatusResetPassword:
		return "reset_password"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "ungated"
	}
}

// derivePendingStatus classifies the pending-credential artifacts once the
// auth token has been ruled out. The order matters: a reset in progress
// carries a username too, so it has to be recognised before the plain login.
func derivePendingStatus(hasUsername, hasPassword, hasResetFlag bool) FilterStatus {
	switch {
	case hasUsername && hasPassword && hasResetFlag:
		return StatusResetPassword
	case hasUsername && hasResetFlag:
		return StatusForgotPassword
	case hasUsername && hasPassword:
		return StatusAuthenticationPending
	default:
		return StatusUnauthenticated
	}
}

// Message is a fixed user-visible message. Raw provider errors are never shown.
type Message int

const (
	MessageNone Message = iota
	MessagePleaseLogIn
	MessageInvalidLogin
	MessageInvalidEmail
	MessageResetFailed
	MessageResetRequestFailed
	MessageResetSuccess
	MessageResetCodeSent
	MessageServerAuthFailed
	MessageNoClientID
	MessageNoUserPoolID
)

var messageText = map[Message]string{
	MessagePleaseLogIn:        "Please log in:",
	MessageInvalidLogin:       "Invalid login",
	MessageInvalidEmail:       "Invalid email",
	MessageResetFailed:        "Unable to reset password",
	MessageResetRequestFailed: "Unable to send a password reset code",
	MessageResetSuccess:       "Password reset. Log in with your new password:",
	MessageResetCodeSent:      "Check your email for a reset code",
	MessageServerAuthFailed:   "Server authentication failed",
	MessageNoClientID:         "Plugin not configured with AWS Client ID",
	MessageNoUserPoolID:       "Plugin not configured with Cognito User Pool ID",
}

func (m Message) String() string {
	return messageText[m]
}

// Status codes appended to redirects as the StatusParam query parameter.
const (
	CodeInvalidEmail             = "invalid_email"
	CodePasswordIncorrect        = "password_incorrect"
	CodePasswordResetRequested   = "password_reset_requested"
	CodePasswordResetSuccess     = "password_reset_success"
	CodeServerAuthenticationFail = "server_authentication_failed"
)

var codeMessages = map[string]Message{
	CodeInvalidEmail:             MessageInvalidEmail,
	CodePasswordIncorrect:        MessageInvalidLogin,
	CodePasswordResetRequested:   MessageResetCodeSent,
	CodePasswordResetSuccess:     MessageResetSuccess,
	CodeServerAuthenticationFail: MessageServerAuthFailed,
}

// MessageForCode maps a status code to its message. Unknown codes map to
// MessageNone.
func MessageForCode(code string) Message {
	return codeMessages[code]
}
