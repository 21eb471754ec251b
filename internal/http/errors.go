package http

import (
	"errors"
	"net/http"

	"github.com/tazhibayda/selectshop/internal/oauth"
	"github.com/tazhibayda/selectshop/internal/service"
)

var (
	errUnauthorized = errors.New("authentication required")
	errBadRequest   = errors.New("bad request")
	errKakaoLogin   = errors.New("kakao login failed")
)

type apiError struct {
	ErrorMessage string `json:"errorMessage"`
	StatusCode   int    `json:"statusCode"`
}

// toAPIError maps a handler error to the client response. Messages never carry
// provider or storage details.
func toAPIError(err error) apiError {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, service.ErrValidation):
		return apiError{err.Error(), http.StatusBadRequest}
	case errors.Is(err, oauth.ErrInvalidCode):
		return apiError{"authorization code is required", http.StatusBadRequest}
	case errors.Is(err, errUnauthorized), errors.Is(err, service.ErrInvalidCredentials):
		return apiError{"invalid credentials", http.StatusUnauthorized}
	case errors.Is(err, service.ErrForbidden):
		return apiError{"forbidden", http.StatusForbidden}
	case errors.Is(err, service.ErrProductNotFound):
		return apiError{"product not found", http.StatusNotFound}
	case errors.Is(err, service.ErrDuplicateAccount):
		return apiError{"account already exists", http.StatusConflict}
	case errors.Is(err, errKakaoLogin):
		return apiError{"kakao login failed", http.StatusBadGateway}
	}
	return apiError{"internal server error", http.StatusInternalServerError}
}
