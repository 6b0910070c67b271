package user

import "errors"

var (
	ErrNotFound        = errors.New("user not found")
	ErrAlreadyExists   = errors.New("user already exists")
	ErrTemplateMissing = errors.New("email template not found")
	ErrInvalidInput    = errors.New("invalid input")
)
