package services

import "fmt"

// Custom errors

// ConfigurationError means a required secret is missing. Every relay call
// fails with it until the process is restarted with the secret set.
type ConfigurationError struct{ Message string }

func (e *ConfigurationError) Error() string { return e.Message }

// TransportError wraps a failed call to the upstream model.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponseError means the upstream call succeeded but carried no text.
type MalformedResponseError struct{ Provider string }

func (e *MalformedResponseError) Error() string {
	return "Invalid response format from " + e.Provider
}
