package repositories

import "errors"

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateName = errors.New("user with this name already exists")
)
