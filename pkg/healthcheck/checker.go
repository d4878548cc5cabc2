/*
Author: Amjad Yaseen
Email: ayaseen@redhat.com
Date: 2023-03-06
Modified: 2026-10-15

This file defines the core interfaces and structures for cluster probes. It includes:

- The Check interface that all probes must implement
- BaseCheck structure providing the descriptive fields of a probe
- Result structure for storing and managing probe results
- Conversion from internal results to the serialisable report form
*/

package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/ayaseen/cluster-probes/pkg/types"
)

// BaseCheck provides a basic implementation of a probe's descriptive methods
type BaseCheck struct {
	id          string
	name        string
	description string
	category    types.Category
}

// ID returns the unique identifier for the probe
func (b *BaseCheck) ID() string {
	return b.id
}

// Name returns the human-readable name for the probe
func (b *BaseCheck) Name() string {
	return b.name
}

// Description returns a description of what the probe does
func (b *BaseCheck) Description() string {
	return b.description
}

// Category returns the category the probe belongs to
func (b *BaseCheck) Category() types.Category {
	return b.category
}

// NewBaseCheck creates a new BaseCheck
func NewBaseCheck(id, name, description string, category types.Category) BaseCheck {
	return BaseCheck{
		id:          id,
		name:        name,
		description: description,
		category:    category,
	}
}

// Result represents the result of a probe with execution time as duration
type Result struct {
	// CheckID is the unique identifier of the probe
	CheckID string

	// Status indicates the result status (OK, Warning, Critical, etc.)
	Status types.Status

	// Message is a brief description of the result
	Message string

	// Detail provides detailed information about the result
	Detail string

	// Recommendations are suggestions to address any issues
	Recommendations []string

	// ExecutionTime is how long the probe took to run
	ExecutionTime time.Duration

	// Metadata is additional contextual information
	Metadata map[string]string
}

// NewResult creates a new Result
func NewResult(checkID string, status types.Status, message string) Result {
	return Result{
		CheckID:         checkID,
		Status:          status,
		Message:         message,
		Recommendations: []string{},
		Metadata:        make(map[string]string),
	}
}

// Passed reports whether the result counts as a pass
func (r Result) Passed() bool {
	return r.Status.Passed()
}

// AddRecommendation adds a recommendation to the result
func (r *Result) AddRecommendation(recommendation string) {
	r.Recommendations = append(r.Recommendations, recommendation)
}

// AddMetadata adds or updates metadata in the result
func (r *Result) AddMetadata(key, value string) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]string)
	}
	r.Metadata[key] = value
}

// WithDetail returns a copy of the result with the detail set
func (r Result) WithDetail(detail string) Result {
	r.Detail = detail
	return r
}

// WithExecutionTime returns a copy of the result with the execution time set
func (r Result) WithExecutionTime(duration time.Duration) Result {
	r.ExecutionTime = duration
	return r
}

// ToTypesResult converts a Result to types.Result for the given check
func (r Result) ToTypesResult(check types.Check) types.Result {
	return types.Result{
		CheckID:         r.CheckID,
		CheckName:       check.Name(),
		Category:        check.Category(),
		Status:          r.Status,
		Message:         r.Message,
		Detail:          r.Detail,
		Recommendations: r.Recommendations,
		ExecutionTime:   r.ExecutionTime.String(),
		Metadata:        r.Metadata,
	}
}

// Check defines the interface for a probe
type Check interface {
	types.Check

	// Run executes the probe and returns the result. A non-nil error is
	// always accompanied by a Critical result.
	Run(ctx context.Context) (Result, error)
}

// Fail builds a Critical result and wraps err with the same message
func Fail(checkID, message string, err error) (Result, error) {
	return NewResult(checkID, types.StatusCritical, message), wrapCheckError(message, err)
}

func wrapCheckError(message string, err error) error {
	if message == "" {
		return err
	}
	r, size := utf8.DecodeRuneInString(message)
	message = string(unicode.ToLower(r)) + message[size:]
	if err == nil {
		return errors.New(message)
	}
	return fmt.Errorf("%s: %w", message, err)
}
