// Package services defines the business logic for recipes, ratings, users,
// and homepage content. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer. None of them is retried by the
// core; retry policy belongs to the calling layer.
package services

import "errors"

var (
	// ErrForbidden is returned when the capability resolver denies the
	// requested action. No part of the mutation has been applied and no
	// event has been emitted.
	ErrForbidden = errors.New("forbidden")

	// ErrRecipeNotFound indicates that the requested recipe does not exist
	// or is not visible to the current actor.
	ErrRecipeNotFound = errors.New("recipe not found")

	// ErrUserNotFound indicates that the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrConflict is returned when a mutation raced a concurrent delete of
	// the same recipe. The mutation fails and no event is emitted.
	ErrConflict = errors.New("recipe was deleted concurrently")

	// ErrInvalidScore is returned when a rating score is outside [1,5].
	ErrInvalidScore = errors.New("score must be between 1 and 5")

	// ErrInvalidStatus is returned when a moderation request names a status
	// other than approved or declined.
	ErrInvalidStatus = errors.New("status must be approved or declined")

	// ErrInvalidTransition is returned when the moderation state machine
	// rejects a status change from the current state. Every transition
	// between moderation states is currently permitted for authorized
	// actors; the error exists for future restriction.
	ErrInvalidTransition = errors.New("status transition not allowed")

	// ErrValidation is returned for malformed payloads (blank title,
	// unknown role, and similar).
	ErrValidation = errors.New("invalid payload")

	// ErrSelfDelete is returned when an owner_admin attempts to delete
	// their own account.
	ErrSelfDelete = errors.New("cannot delete your own account")

	// ErrUnavailable wraps transient collaborator failures (blob store
	// unreachable). The operation committed no partial state and is safe
	// to retry.
	ErrUnavailable = errors.New("storage temporarily unavailable")
)
