// Package errors defines the error taxonomy shared by the melody loader and
// the namespace registry.
//
// Every type in this package implements error and is matchable with the
// standard errors.As. All of them abort the load that raised them; the single
// tolerated degradation is a duplicate element id, which is reported through
// the loader's corruption flag instead of an error.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError reports invalid registry or relation setup detected at
// definition or registration time.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// NewConfigurationf formats a message and builds a ConfigurationError.
func NewConfigurationf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// MissingClassError reports a failed class resolution. It carries the
// namespace URI and alias, the requested version (empty when the lookup was
// unversioned) and the class name, so callers can produce actionable
// diagnostics.
type MissingClassError struct {
	NamespaceURI string
	Alias        string
	Version      string
	Class        string
}

func (e *MissingClassError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("no class %q in namespace %s", e.Class, e.NamespaceURI))
	if e.Alias != "" {
		b.WriteString(fmt.Sprintf(" (%s)", e.Alias))
	}
	if e.Version != "" {
		b.WriteString(fmt.Sprintf(" for version %s", e.Version))
	}
	return b.String()
}

// StructureError reports malformed document shape: text where none is
// allowed, a missing identifier attribute, mismatched or unclosed tags, or
// more than one type discriminant on a single element.
type StructureError struct {
	Message string
}

func (e *StructureError) Error() string {
	return e.Message
}

// NewStructuref formats a message and builds a StructureError.
func NewStructuref(format string, args ...any) *StructureError {
	return &StructureError{Message: fmt.Sprintf(format, args...)}
}

// UnsupportedFeatureError reports an XML construct the loader deliberately
// does not cover yet, such as xml:* attributes, namespaced attributes other
// than the type discriminant, or namespaced element tags.
type UnsupportedFeatureError struct {
	Message string
}

func (e *UnsupportedFeatureError) Error() string {
	return e.Message
}

// NewUnsupportedf formats a message and builds an UnsupportedFeatureError.
func NewUnsupportedf(format string, args ...any) *UnsupportedFeatureError {
	return &UnsupportedFeatureError{Message: fmt.Sprintf(format, args...)}
}

// MissingResourceError reports a resource-table lookup for a name that was
// never registered with the loader.
type MissingResourceError struct {
	Name string
}

func (e *MissingResourceError) Error() string {
	return fmt.Sprintf("no resource registered under %q", e.Name)
}

// IntegrityError reports a collaborator violating its contract, such as a
// resource provider returning more bytes than were requested. It is a hard
// fault: the load aborts rather than guessing at the collaborator's state.
type IntegrityError struct {
	Message string
}

func (e *IntegrityError) Error() string {
	return e.Message
}

// NewIntegrityf formats a message and builds an IntegrityError.
func NewIntegrityf(format string, args ...any) *IntegrityError {
	return &IntegrityError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an id-index miss on the loader's query surface.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no element with id %q", e.ID)
}

// UnknownNamespaceError reports a type discriminant whose alias has no
// namespace registered in the table the loader was given.
type UnknownNamespaceError struct {
	Alias string
}

func (e *UnknownNamespaceError) Error() string {
	return fmt.Sprintf("unknown namespace alias %q", e.Alias)
}

// AsMissingClass extracts a MissingClassError from err, unwrapping as needed.
func AsMissingClass(err error) (*MissingClassError, bool) {
	if err == nil {
		return nil, false
	}
	var target *MissingClassError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// AsStructure extracts a StructureError from err, unwrapping as needed.
func AsStructure(err error) (*StructureError, bool) {
	if err == nil {
		return nil, false
	}
	var target *StructureError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
