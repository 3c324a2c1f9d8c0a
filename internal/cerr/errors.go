// Package cerr defines the error taxonomy shared across captainhook's
// packages. Tier failures below the supervisor are always recoverable
// (the cascade falls through); human timeout and config errors are
// surfaced to the caller.
package cerr

import "fmt"

// ConfigParse reports a malformed policy.yml or roles.yml. Fatal at startup.
type ConfigParse struct {
	Path   string
	Reason string
}

func (e *ConfigParse) Error() string {
	return fmt.Sprintf("config parse %s: %s", e.Path, e.Reason)
}

// GlobPattern reports a glob that failed to compile. Fatal at session
// construction.
type GlobPattern struct {
	Pattern string
	Reason  string
}

func (e *GlobPattern) Error() string {
	return fmt.Sprintf("glob pattern %q: %s", e.Pattern, e.Reason)
}

// SocketNotFound reports a missing supervisor Unix socket. The supervisor
// tier treats this as a fall-through, never fatal.
type SocketNotFound struct {
	Path string
}

func (e *SocketNotFound) Error() string {
	return fmt.Sprintf("supervisor socket not found: %s", e.Path)
}

// Ipc reports a failure talking to the supervisor over a Unix socket.
type Ipc struct {
	Reason string
}

func (e *Ipc) Error() string {
	return fmt.Sprintf("supervisor ipc: %s", e.Reason)
}

// Api reports a non-2xx response from an HTTP supervisor backend.
type Api struct {
	Status int
	Body   string
}

func (e *Api) Error() string {
	return fmt.Sprintf("supervisor api: status %d: %s", e.Status, e.Body)
}

// Supervisor reports a malformed or unparsable supervisor response.
type Supervisor struct {
	Reason string
}

func (e *Supervisor) Error() string {
	return fmt.Sprintf("supervisor response: %s", e.Reason)
}

// SupervisorTimeout reports the supervisor tier's deadline expiring.
type SupervisorTimeout struct {
	TimeoutSecs int
}

func (e *SupervisorTimeout) Error() string {
	return fmt.Sprintf("supervisor timed out after %ds", e.TimeoutSecs)
}

// HumanTimeout reports a pending decision that was never answered. This is
// the one tier failure the cascade runner does NOT swallow: it bubbles up
// and the hook boundary emits a deny.
type HumanTimeout struct {
	TimeoutSecs int
}

func (e *HumanTimeout) Error() string {
	return fmt.Sprintf("human response timed out after %ds", e.TimeoutSecs)
}

// RegistrationRequired reports a session with no registered role.
type RegistrationRequired struct {
	SessionID string
}

func (e *RegistrationRequired) Error() string {
	return fmt.Sprintf("session %s is not registered", e.SessionID)
}
