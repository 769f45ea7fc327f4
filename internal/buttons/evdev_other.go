//go:build !linux

package buttons

// NewKeyboard returns buttons that never fire; evdev is Linux only.
func NewKeyboard(logger Logger) Buttons { return NewNoopButtons() }
