// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package models

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for errors.Is checks. Each typed error below matches
// exactly one of them.
var (
	ErrValidation       = errors.New("validation failed")
	ErrDuplicateOrder   = errors.New("duplicate order line")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrModelNotFound    = errors.New("model not found")
	ErrStoreIO          = errors.New("store i/o failure")
	ErrStartup          = errors.New("startup failure")
)

// FieldError describes one offending input field.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidationError reports malformed order input.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	messages := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		messages[i] = f.Message
	}
	return strings.Join(messages, "; ")
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// DuplicateOrderError reports a key collision on ingestion.
type DuplicateOrderError struct {
	Key OrderKey
}

func (e *DuplicateOrderError) Error() string {
	return fmt.Sprintf("duplicate order line detected: %s", e.Key)
}

// Is matches ErrDuplicateOrder.
func (e *DuplicateOrderError) Is(target error) bool { return target == ErrDuplicateOrder }

// CustomerNotFoundError reports a customer absent from the profile table.
type CustomerNotFoundError struct {
	CustomerID string
}

func (e *CustomerNotFoundError) Error() string {
	return fmt.Sprintf("customer not found: %s", e.CustomerID)
}

// Is matches ErrCustomerNotFound.
func (e *CustomerNotFoundError) Is(target error) bool { return target == ErrCustomerNotFound }

// ModelNotFoundError reports a cluster id with no registered CF model.
// It indicates a startup or configuration inconsistency.
type ModelNotFoundError struct {
	ClusterID int
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("no recommendation model registered for cluster %d", e.ClusterID)
}

// Is matches ErrModelNotFound.
func (e *ModelNotFoundError) Is(target error) bool { return target == ErrModelNotFound }

// StoreIOError wraps a persistence read or write failure.
type StoreIOError struct {
	Op  string
	Err error
}

func (e *StoreIOError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreIOError) Unwrap() error { return e.Err }

// Is matches ErrStoreIO.
func (e *StoreIOError) Is(target error) bool { return target == ErrStoreIO }

// StartupError is fatal: the process must not begin serving.
type StartupError struct {
	Component string
	Err       error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup: %s: %v", e.Component, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// Is matches ErrStartup.
func (e *StartupError) Is(target error) bool { return target == ErrStartup }

// NewStoreIOError wraps err as a StoreIOError unless it already is one or
// is a duplicate-key outcome.
func NewStoreIOError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreIO) || errors.Is(err, ErrDuplicateOrder) {
		return err
	}
	return &StoreIOError{Op: op, Err: err}
}
