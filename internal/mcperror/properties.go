// Package mcperror defines error types, codes, and utilities for MCP and JSON-RPC.
// file: internal/mcperror/properties.go
package mcperror

import (
	"github.com/cockroachdb/errors"
)

// propertyError attaches one key/value property to an error without
// changing its message. Unwrap keeps the chain intact so errors.Is against
// the sentinels and cockroachdb wrapping both keep working.
type propertyError struct {
	cause error
	key   string
	value interface{}
}

func (e *propertyError) Error() string { return e.cause.Error() }

func (e *propertyError) Unwrap() error { return e.cause }

// withProperty wraps err with a key/value property. Returns nil for a nil err.
func withProperty(err error, key string, value interface{}) error {
	if err == nil {
		return nil
	}
	return &propertyError{cause: err, key: key, value: value}
}

// tryGetProperty walks the error chain from the outside in and returns the
// first value recorded for key.
func tryGetProperty(err error, key string) (interface{}, bool) {
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		if pe, ok := e.(*propertyError); ok && pe.key == key {
			return pe.value, true
		}
	}
	return nil, false
}

// collectProperties gathers every property in the chain. Outer wrappers take
// precedence over inner ones for the same key.
func collectProperties(err error) map[string]interface{} {
	properties := make(map[string]interface{})
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		if pe, ok := e.(*propertyError); ok {
			if _, exists := properties[pe.key]; !exists {
				properties[pe.key] = pe.value
			}
		}
	}
	return properties
}
