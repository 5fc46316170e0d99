// Package errors provides custom error types for the railrec system.
// These errors enable programmatic error checking across the run pipeline
// (normalization, resolution, route ID generation, expense calculation)
// and carry enough context to surface per-shipment failures in summaries.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is reports whether any error in err's chain matches target.
// It's an alias for the standard library errors.Is for convenience.
var Is = errors.Is

// As finds the first error in err's chain that matches target.
// It's an alias for the standard library errors.As for convenience.
var As = errors.As

// Common sentinel errors for the railrec system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptySnapshot indicates a reference snapshot with no usable entries
	ErrEmptySnapshot = errors.New("empty reference snapshot")

	// ErrConflict indicates ambiguous reference data matched a shipment
	ErrConflict = errors.New("reference conflict")

	// ErrCollision indicates two attribute sets derived the same route ID
	ErrCollision = errors.New("route id collision")

	// ErrImbalance indicates expense components do not sum to the declared total
	ErrImbalance = errors.New("expense imbalance")

	// ErrInactiveCode indicates a route code with no active mapping
	ErrInactiveCode = errors.New("route code not active")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrReadOnly indicates an attempt to modify a read-only resource
	ErrReadOnly = errors.New("read only")
)

// ValidationError represents a malformed staging row. The row is excluded
// from the run; the error itself is collected, never thrown to abort a batch.
type ValidationError struct {
	Row     int // 1-based position in the input, 0 when unknown
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Row > 0 && e.Field != "" {
		return fmt.Sprintf("row %d: validation failed for field %s: %s", e.Row, e.Field, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(row int, field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Row: row, Field: field, Value: value, Message: message}
}

// ConflictError represents ambiguous reference data: more than one entry in
// the same layer matched a shipment. The shipment still resolves through the
// deterministic tie-break; the conflict is flagged for data-quality review.
type ConflictError struct {
	ShipmentID string
	Layer      string
	EntryIDs   []string
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return fmt.Sprintf("reference conflict for shipment %s in layer %s: entries %s",
		e.ShipmentID, e.Layer, strings.Join(e.EntryIDs, ", "))
}

// Is implements errors.Is support
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NewConflictError creates a new ConflictError
func NewConflictError(shipmentID, layer string, entryIDs []string) *ConflictError {
	return &ConflictError{ShipmentID: shipmentID, Layer: layer, EntryIDs: entryIDs}
}

// CollisionError represents a route ID derivation collision: two distinct
// canonical attribute sets mapped to the same ID. Fatal for the shipment,
// recoverable at run level.
type CollisionError struct {
	RouteID   string
	Canonical string
	Existing  string
}

// Error implements the error interface
func (e *CollisionError) Error() string {
	return fmt.Sprintf("route id %s already derived from different attributes", e.RouteID)
}

// Is implements errors.Is support
func (e *CollisionError) Is(target error) bool {
	return target == ErrCollision
}

// NewCollisionError creates a new CollisionError
func NewCollisionError(routeID, canonical, existing string) *CollisionError {
	return &CollisionError{RouteID: routeID, Canonical: canonical, Existing: existing}
}

// ImbalanceError represents an expense calculation whose rounded components
// drifted from the rule's declared total by more than one minimal currency
// unit. Fatal for the shipment, recoverable at run level.
type ImbalanceError struct {
	ShipmentID string
	Declared   string
	Computed   string
	Tolerance  string
}

// Error implements the error interface
func (e *ImbalanceError) Error() string {
	return fmt.Sprintf("expense imbalance for shipment %s: components sum to %s, declared total %s (tolerance %s)",
		e.ShipmentID, e.Computed, e.Declared, e.Tolerance)
}

// Is implements errors.Is support
func (e *ImbalanceError) Is(target error) bool {
	return target == ErrImbalance
}

// NewImbalanceError creates a new ImbalanceError
func NewImbalanceError(shipmentID, declared, computed, tolerance string) *ImbalanceError {
	return &ImbalanceError{ShipmentID: shipmentID, Declared: declared, Computed: computed, Tolerance: tolerance}
}

// SnapshotError represents structurally invalid reference data. This is the
// only condition that fails a run before any shipment is processed.
type SnapshotError struct {
	Reason string
	Err    error
}

// Error implements the error interface
func (e *SnapshotError) Error() string {
	return fmt.Sprintf("invalid reference snapshot: %s", e.Reason)
}

// Unwrap implements errors.Unwrap
func (e *SnapshotError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *SnapshotError) Is(target error) bool {
	return target == ErrEmptySnapshot
}

// NewSnapshotError creates a new SnapshotError
func NewSnapshotError(reason string, err error) *SnapshotError {
	return &SnapshotError{Reason: reason, Err: err}
}

// InactiveCodeError represents a route code that reaches no active export
// code through the mapping matrix. The code is exported flagged, not dropped.
type InactiveCodeError struct {
	Code string
}

// Error implements the error interface
func (e *InactiveCodeError) Error() string {
	return fmt.Sprintf("route code %s is not active and maps to no active code", e.Code)
}

// Is implements errors.Is support
func (e *InactiveCodeError) Is(target error) bool {
	return target == ErrInactiveCode
}

// NewInactiveCodeError creates a new InactiveCodeError
func NewInactiveCodeError(code string) *InactiveCodeError {
	return &InactiveCodeError{Code: code}
}

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "csv", "yaml", "xlsx", etc.
	File    string
	Line    int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s file %s line %d: %s", e.Format, e.File, e.Line, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "delete", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// StoreError represents an error during reference store operations
type StoreError struct {
	Operation string // "load", "save", "open", "migrate"
	Table     string // "base_routes", "exceptions", "overrides", "mappings", "active"
	Message   string
	Err       error
}

// Error implements the error interface
func (e *StoreError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("store error during %s of %s: %s", e.Operation, e.Table, e.Message)
	}
	return fmt.Sprintf("store error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError
func NewStoreError(operation, table string, err error) *StoreError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &StoreError{
		Operation: operation,
		Table:     table,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConflict checks if an error is a reference conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsCollision checks if an error is a route ID collision
func IsCollision(err error) bool {
	return errors.Is(err, ErrCollision)
}

// IsImbalance checks if an error is an expense imbalance
func IsImbalance(err error) bool {
	return errors.Is(err, ErrImbalance)
}

// IsEmptySnapshot checks if an error indicates an unusable reference snapshot
func IsEmptySnapshot(err error) bool {
	return errors.Is(err, ErrEmptySnapshot)
}

// IsInactiveCode checks if an error indicates an unmappable route code
func IsInactiveCode(err error) bool {
	return errors.Is(err, ErrInactiveCode)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(row int, field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Row: row, Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapStore wraps an error as a StoreError
func WrapStore(operation, table string, err error) error {
	if err == nil {
		return nil
	}
	return NewStoreError(operation, table, err)
}

// WrapConfig wraps an error as a ConfigError
func WrapConfig(component string, err error) error {
	if err == nil {
		return nil
	}
	return NewConfigError(component, err.Error(), err)
}
