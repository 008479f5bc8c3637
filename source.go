package clsort

import (
	"io"
	"os"

	"github.com/atotto/clipboard"
)

type Origin int

const (
	OriginStdin Origin = iota
	OriginClipboard
)

// SourceProvider reads text for in-memory sorting: piped stdin when there is one,
// otherwise the system clipboard.
type SourceProvider struct {
	stdin *os.File
}

func NewSourceProvider() *SourceProvider {
	return &SourceProvider{stdin: os.Stdin}
}

func (sp *SourceProvider) GetContent() (string, Origin, error) {
	stat, err := sp.stdin.Stat()
	if err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		c, err := io.ReadAll(sp.stdin)
		if err != nil {
			return "", OriginStdin, err
		}
		return string(c), OriginStdin, nil
	}

	c, err := clipboard.ReadAll()
	if err != nil {
		return "", OriginClipboard, err
	}
	return c, OriginClipboard, nil
}

// PutContent delivers sorted text back to where it came from.
func (sp *SourceProvider) PutContent(w io.Writer, text string, origin Origin) error {
	if origin == OriginClipboard {
		return clipboard.WriteAll(text)
	}
	_, err := io.WriteString(w, text)
	return err
}
