// Package errors provides structured error handling with error codes for simple-useradmin.
//
// Every failure that leaves the account service carries one of a small set of codes, so
// callers (the HTTP API, the editing workflow) can decide how to surface it without string
// matching.
//
// # Error Codes
//
//   - ErrCodeNotFound          the account does not exist
//   - ErrCodePermissionDenied  the actor's role does not allow the operation
//   - ErrCodeQuotaExceeded     the organization has no free seat for a new account
//   - ErrCodeInvalidInput      malformed email, missing required field
//   - ErrCodeInvalidCredential password too short for the account category
//   - ErrCodeUnauthenticated   no valid session; callers redirect to login
//   - ErrCodeConflict          reserved for optimistic concurrency, unused
//   - ErrCodeInternal          anything else
//
// # Basic Usage
//
//	err := errors.NotFound("account", id.String())
//	err := errors.InvalidInput("email", "must be a valid address")
//	err := errors.Wrap(dbErr, errors.ErrCodeInternal, "failed to load account")
//
//	if errors.IsCode(err, errors.ErrCodeUnauthenticated) {
//		// redirect
//	}
//
// # HTTP Status Code Mapping
//
//   - ErrCodeInvalidInput, ErrCodeInvalidCredential → 400 Bad Request
//   - ErrCodeUnauthenticated → 401 Unauthorized
//   - ErrCodeQuotaExceeded → 402 Payment Required
//   - ErrCodePermissionDenied → 403 Forbidden
//   - ErrCodeNotFound → 404 Not Found
//   - ErrCodeConflict → 409 Conflict
//   - ErrCodeRateLimitExceeded → 429 Too Many Requests
//   - ErrCodeInternal → 500 Internal Server Error
package errors
