// Package event defines the universal packet exchanged between the
// network poller, the script engine, and the UI.
package event

// Type identifies the source of the message
type Type int

const (
	UserInput Type = iota
	NetLine        // A complete line from the server (ended with \n)
	NetPrompt      // A partial trailing line, likely a prompt
	NetClosed      // Connection went away
	AsyncResult    // Async work completion dispatched onto the session loop
	SystemControl
)

// Control action constants
const (
	ActionQuit       = "quit"
	ActionConnect    = "connect"
	ActionDisconnect = "disconnect"
	ActionLoadScript = "load_script"
)

// ControlOp contains control operation details
type ControlOp struct {
	Action     string // Use Action* constants
	Address    string
	ScriptPath string
}

// Event is the universal packet sent to the orchestrator loop
type Event struct {
	Type     Type
	Payload  string    // For user/server text
	Callback func()    // For AsyncResult continuations
	Control  ControlOp // For SystemControl events
}
