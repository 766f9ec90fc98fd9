package tui

import (
	"github.com/atotto/clipboard"
)

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) SetText(text string) error {
	return clipboard.WriteAll(text)
}
