package diag

// Shower wraps the Show method.
type Shower interface {
	// Show takes an indentation string for any lines after the first, and
	// returns a representation of the value suitable for terminal output.
	Show(indent string) string
}
