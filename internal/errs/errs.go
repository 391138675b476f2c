// Package errs defines the typed error taxonomy of §7: every failure
// that crosses a package boundary is one of these, so the reconciler can
// decide isolate-vs-abort without string matching.
package errs

import "fmt"

// ConfigError is an invalid or missing configuration value. Fatal at
// startup; never produced once the reconciler loop is running.
type ConfigError struct {
	Key   string
	Cause error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("config: %s: %v", e.Key, e.Cause)
	}
	return fmt.Sprintf("config: %s", e.Key)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// ParseError isolates one bundle's synthesis failure without aborting
// the rest (§4.3.1).
type ParseError struct {
	AutokumaID string
	Cause      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.AutokumaID, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// TemplateError isolates one label's rendering failure.
type TemplateError struct {
	AutokumaID string
	Label      string
	Cause      error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %s.%s: %v", e.AutokumaID, e.Label, e.Cause)
}

func (e *TemplateError) Unwrap() error { return e.Cause }

// TransportError covers connect/timeout/protocol failures against the
// remote API; retriable on the next tick with backoff.
type TransportError struct {
	Op      string
	Timeout bool
	Cause   error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("transport %s: timeout", e.Op)
	}
	return fmt.Sprintf("transport %s: %v", e.Op, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// AuthError covers invalid credentials or a rejected token.
type AuthError struct {
	Cause error
}

func (e *AuthError) Error() string { return fmt.Sprintf("auth: %v", e.Cause) }
func (e *AuthError) Unwrap() error { return e.Cause }

// RemoteError wraps a server-returned `ok: false` response.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote error %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("remote error: %s", e.Message)
}

// StoreError covers identity-store I/O failures. Treated as fatal: the
// store is the only durable record of server-ID mappings, and
// continuing after a failed write risks orphaning or duplicating
// entities on the next tick.
type StoreError struct {
	Op    string
	Cause error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Cause) }
func (e *StoreError) Unwrap() error { return e.Cause }
