package errs

import "net/http"

const (
	ArgsError           = http.StatusBadRequest
	UnauthorizedError   = http.StatusUnauthorized
	ForbiddenError      = http.StatusForbidden
	RecordNotFoundError = http.StatusNotFound
	TooManyRequests     = http.StatusTooManyRequests
	ServerInternalError = http.StatusInternalServerError
)

var (
	ErrArgs           = NewCodeError(ArgsError, "invalid arguments")
	ErrTokenMissing   = NewCodeError(UnauthorizedError, "unauthorized - no token")
	ErrTokenInvalid   = NewCodeError(UnauthorizedError, "unauthorized - invalid token")
	ErrForbidden      = NewCodeError(ForbiddenError, "forbidden")
	ErrRecordNotFound = NewCodeError(RecordNotFoundError, "not found")
	ErrTooManyRequest = NewCodeError(TooManyRequests, "too many requests")
	ErrInternalServer = NewCodeError(ServerInternalError, "server error")
)

// Status maps any error onto the HTTP status it should surface as.
func Status(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if codeErr, ok := AsCode(err); ok && codeErr.Code >= 400 && codeErr.Code < 600 {
		return codeErr.Code
	}
	return ServerInternalError
}
