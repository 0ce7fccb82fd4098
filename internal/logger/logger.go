// Package logger provides the structured logging used across the server.
//
// Messages are keyed by component and carry a field map. The zerolog adapter
// writes JSON lines; stdout carries the MCP protocol, so callers pass stderr.
package logger

// Logger provides structured logging with context
type Logger interface {
	Info(component, message string, fields map[string]interface{})
	Error(component string, err error, fields map[string]interface{})
	Warning(component, message string, fields map[string]interface{})
	Debug(component, message string, fields map[string]interface{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) Info(string, string, map[string]interface{})    {}
func (Nop) Error(string, error, map[string]interface{})    {}
func (Nop) Warning(string, string, map[string]interface{}) {}
func (Nop) Debug(string, string, map[string]interface{})   {}
