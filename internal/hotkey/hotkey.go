// Package hotkey defines the contract between the dispatcher and an
// external global-hotkey listener backend. The listener itself (OS-level
// key grabbing) is out of scope per spec; this package only defines the
// command shape and the channel type the dispatcher selects on.
package hotkey

// Kind tags the variant of a Command.
type Kind int

const (
	KindForward Kind = iota
	KindBackward
	KindCharacter
	KindProfile
	KindToggleSkip
)

// Command is one hotkey event, timestamped with the originating input
// event's server time so the dispatcher can forward it to x11.Activate,
// which the window manager requires to honor a focus request.
type Command struct {
	Kind      Kind
	Binding   string // set for KindCharacter/KindProfile (the bound identity/profile name) and KindToggleSkip (the identity to toggle)
	Timestamp uint32 // X server time of the key event
}

// Channel is what a listener backend sends Commands on and the dispatcher
// receives from.
type Channel <-chan Command
