package order

import "errors"

var (
	ErrInvalidInput  = errors.New("invalid order input")
	ErrOrderNotFound = errors.New("order not found")
	ErrCannotCancel  = errors.New("cannot cancel a shipped or delivered order")
	ErrInvalidStatus = errors.New("invalid order status")
	ErrUnauthorized  = errors.New("unauthorized")
)
