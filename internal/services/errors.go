// Package services defines the business logic for the two-party chat flow.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes should be performed at the
// handler layer.
package services

import "errors"

// Validation and access errors for the message pipeline.
var (
	// ErrEmptyMessage is returned when a send request carries no body after
	// normalization.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMessageTooLong is returned when a message body exceeds the maximum
	// configured length. It is distinct from ErrEmptyMessage so callers can
	// surface the length-specific error text.
	ErrMessageTooLong = errors.New("message too long")

	// ErrInvalidRecipient is returned when a recipient id is missing or not
	// a positive integer.
	ErrInvalidRecipient = errors.New("recipient id must be a positive integer")

	// ErrInvalidSender is returned when a sender id is missing or not a
	// positive integer (mark-read path).
	ErrInvalidSender = errors.New("sender id must be a positive integer")

	// ErrSelfMessage is returned when a user attempts to message themselves.
	ErrSelfMessage = errors.New("cannot send a message to yourself")

	// ErrSelfMark is returned when a user attempts to mark their own sent
	// messages as read; only the receiving side may do that.
	ErrSelfMark = errors.New("cannot mark own messages as read")

	// ErrUserNotFound indicates that a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrMessageNotFound indicates that the requested message does not exist.
	ErrMessageNotFound = errors.New("message not found")
)
