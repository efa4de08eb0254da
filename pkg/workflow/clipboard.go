package workflow

import (
	"encoding/base64"
	"fmt"
	"io"
	"sync"
)

// Clipboard receives copied credentials.
type Clipboard interface {
	WriteText(text string) error
}

// MemoryClipboard keeps the last copied text. It is safe for concurrent use.
type MemoryClipboard struct {
	mu   sync.Mutex
	text string
	Err  error
}

func (c *MemoryClipboard) WriteText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.text = text
	return nil
}

// Text returns the last copied text.
func (c *MemoryClipboard) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// TerminalClipboard copies through the terminal with an OSC 52 escape sequence, which most
// terminal emulators forward to the system clipboard, including over ssh.
type TerminalClipboard struct {
	Out io.Writer
}

func (c TerminalClipboard) WriteText(text string) error {
	if c.Out == nil {
		return fmt.Errorf("terminal clipboard has no output")
	}
	_, err := fmt.Fprintf(c.Out, "\x1b]52;c;%s\a", base64.StdEncoding.EncodeToString([]byte(text)))
	return err
}

type noClipboard struct{}

func (noClipboard) WriteText(string) error {
	return fmt.Errorf("no clipboard configured")
}
