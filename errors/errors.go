/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when an entity is not found
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists is returned when attempting to create an entity that already exists
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConditionFailed is returned when a conditional update fails
	ErrConditionFailed = errors.New("condition check failed")

	// ErrNoIndexMap is returned when no index map is found for a type
	ErrNoIndexMap = errors.New("no index map found for type")

	// ErrUnauthenticated is returned when a request carries no usable identity
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when an authenticated caller lacks a required permission
	ErrForbidden = errors.New("forbidden")

	// ErrRenderFailed is returned when Markdown rendering or link resolution fails
	ErrRenderFailed = errors.New("render failed")

	// ErrPublishConflict is returned when a status transition is not allowed
	ErrPublishConflict = errors.New("publish conflict")

	// ErrEventDelivery is returned when the event bus rejects one or more entries
	ErrEventDelivery = errors.New("event delivery failed")
)

// NotFoundError represents an error when an entity is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError represents an error when an entity already exists
type AlreadyExistsError struct {
	Type string
	Key  string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with key %q already exists", e.Type, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConditionFailedError represents a failed conditional operation
type ConditionFailedError struct {
	Operation string
	Condition string
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("condition check failed for %s operation: %s", e.Operation, e.Condition)
}

func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionFailed
}

// RenderError reports a failure while turning an article's Markdown into HTML.
// Stage is one of "frontmatter", "markdown", "links".
type RenderError struct {
	Slug  string
	Stage string
	Cause error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s failed at %s: %v", e.Slug, e.Stage, e.Cause)
}

func (e *RenderError) Is(target error) bool {
	return target == ErrRenderFailed
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// PublishConflictError reports a status transition the publication state
// machine does not allow.
type PublishConflictError struct {
	Slug string
	From string
	To   string
}

func (e *PublishConflictError) Error() string {
	return fmt.Sprintf("article %q cannot move from %s to %s", e.Slug, e.From, e.To)
}

func (e *PublishConflictError) Is(target error) bool {
	return target == ErrPublishConflict
}

// EventDeliveryError reports entries the event bus refused. IDs holds the
// event IDs of the failed entries so callers can retry or record them.
type EventDeliveryError struct {
	Bus string
	IDs []string
}

func (e *EventDeliveryError) Error() string {
	return fmt.Sprintf("event bus %q rejected %d entries: %s", e.Bus, len(e.IDs), strings.Join(e.IDs, ", "))
}

func (e *EventDeliveryError) Is(target error) bool {
	return target == ErrEventDelivery
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(entityType, key string) error {
	return &NotFoundError{Type: entityType, Key: key}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(entityType, key string) error {
	return &AlreadyExistsError{Type: entityType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConditionFailedError creates a new ConditionFailedError
func NewConditionFailedError(operation, condition string) error {
	return &ConditionFailedError{Operation: operation, Condition: condition}
}

// NewRenderError creates a new RenderError
func NewRenderError(slug, stage string, cause error) error {
	return &RenderError{Slug: slug, Stage: stage, Cause: cause}
}

// NewPublishConflictError creates a new PublishConflictError
func NewPublishConflictError(slug, from, to string) error {
	return &PublishConflictError{Slug: slug, From: from, To: to}
}

// NewEventDeliveryError creates a new EventDeliveryError
func NewEventDeliveryError(bus string, ids []string) error {
	return &EventDeliveryError{Bus: bus, IDs: ids}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConditionFailed checks if an error is a condition failed error
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

// IsRenderFailed checks if an error is a render error
func IsRenderFailed(err error) bool {
	return errors.Is(err, ErrRenderFailed)
}

// IsPublishConflict checks if an error is a publish conflict
func IsPublishConflict(err error) bool {
	return errors.Is(err, ErrPublishConflict)
}

// IsEventDelivery checks if an error is an event delivery error
func IsEventDelivery(err error) bool {
	return errors.Is(err, ErrEventDelivery)
}

// IsUnauthenticated checks if an error means the caller carried no identity
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

// IsForbidden checks if an error means the caller lacks permission
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}
