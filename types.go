package sentry_sender

import (
	"strings"
)

// LineUnknown is the line number of a frame without line information
const LineUnknown = -1

// CrashReport is a collected crash report. The sender only reads it.
type CrashReport struct {
	Fields map[ReportField]string `json:"fields"`
	// Exception is the structured exception, empty when only the raw
	// STACK_TRACE text is known
	Exception CauseChain `json:"exception,omitempty"`
}

// Get returns the value of a report field
func (r *CrashReport) Get(field ReportField) (string, bool) {
	if r == nil || r.Fields == nil {
		return "", false
	}
	value, ok := r.Fields[field]
	return value, ok
}

// CauseChain is an exception and its causes, outermost first
type CauseChain []Cause

// Cause is one link of a cause chain
type Cause struct {
	// Class is the simple class name, e.g. NullPointerException
	Class string `json:"class"`
	// Module is the declaring package, e.g. java.lang
	Module  string  `json:"module,omitempty"`
	Message *string `json:"message,omitempty"`
	// Frames are ordered innermost call first
	Frames []Frame `json:"frames,omitempty"`
}

// Frame is a single stack frame
type Frame struct {
	Class  string `json:"class"`
	Method string `json:"method"`
	Line   int    `json:"line"`
}

// QualifiedName returns the fully-qualified class name of the cause
func (c *Cause) QualifiedName() string {
	if c.Module == "" {
		return c.Class
	}
	return c.Module + "." + c.Class
}

// NewCause splits a fully-qualified class name into class and module
func NewCause(qualifiedName string, message *string, frames ...Frame) Cause {
	cause := Cause{Class: qualifiedName, Message: message, Frames: frames}
	if i := strings.LastIndex(qualifiedName, "."); i >= 0 {
		cause.Module = qualifiedName[:i]
		cause.Class = qualifiedName[i+1:]
	}
	return cause
}

// Culprit returns "Class.method" of the top frame of the deepest cause that has
// frames. Causes without frames keep the culprit found in a shallower cause.
func (c CauseChain) Culprit() (string, bool) {
	culprit, found := "", false
	for i := range c {
		if len(c[i].Frames) == 0 {
			continue
		}
		top := c[i].Frames[0]
		culprit, found = top.Class+"."+top.Method, true
	}
	return culprit, found
}

// SendResult represents the result of a send operation
type SendResult struct {
	Success bool   `json:"success"`
	EventID string `json:"event_id,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}
