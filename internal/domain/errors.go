package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingCredential = errors.New("llm credential not configured")
	ErrRunNotFound       = errors.New("run not found")
	ErrSessionNotFound   = errors.New("session not found")
	ErrEmptyImage        = errors.New("image is empty")
	ErrUnsupportedMedia  = errors.New("unsupported image media type")
	ErrUnknownPersona    = errors.New("unknown persona")
)

// LLMCallError is a failed call to the LLM service. It is terminal for the
// call that produced it.
type LLMCallError struct {
	Stage   Stage
	Persona PersonaName
	Model   string
	Err     error
}

func (e *LLMCallError) Error() string {
	var b strings.Builder
	b.WriteString("llm call failed")
	if e.Stage != "" {
		fmt.Fprintf(&b, " at %s", e.Stage)
	}
	if e.Persona != "" {
		fmt.Fprintf(&b, " for %s", e.Persona)
	}
	if e.Model != "" {
		fmt.Fprintf(&b, " (model %s)", e.Model)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *LLMCallError) Unwrap() error { return e.Err }

// ModelUnavailableError means the provider does not know the requested
// model. Callers holding a fallback list move on to the next model.
type ModelUnavailableError struct {
	Model string
	Err   error
}

func (e *ModelUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("model %s unavailable", e.Model)
	}
	return fmt.Sprintf("model %s unavailable: %v", e.Model, e.Err)
}

func (e *ModelUnavailableError) Unwrap() error { return e.Err }

// JSONParseError is an LLM response that is not the JSON document its stage
// requires.
type JSONParseError struct {
	Stage   Stage
	Persona PersonaName
	Err     error
}

func (e *JSONParseError) Error() string {
	return fmt.Sprintf("invalid %s JSON for %s: %v", e.Stage, e.Persona, e.Err)
}

func (e *JSONParseError) Unwrap() error { return e.Err }

// PersistenceError is a History Store failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("history %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// StageError records which stage of a persona's chain failed.
type StageError struct {
	Persona PersonaName
	Stage   Stage
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed at %s: %v", e.Persona, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ValidationError aggregates schema issues found in one payload.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "schema validation failed"
	}
	return "schema validation failed: " + strings.Join(e.Issues, "; ")
}

func (e *ValidationError) Add(issue string) {
	if strings.TrimSpace(issue) == "" {
		return
	}
	e.Issues = append(e.Issues, issue)
}

func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Issues) == 0 {
		return nil
	}
	return e
}
