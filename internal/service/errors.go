package service

import "errors"

var (
	ErrPersistence        = errors.New("persistence failure")
	ErrDuplicateAccount   = errors.New("account already exists")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrProductNotFound    = errors.New("product not found")
)
