package decode

import "fmt"

var errNotOpen = fmt.Errorf("decoder: source not open")

func newOpenError(path string, cause error) error {
	return fmt.Errorf("decoder: open %s: %w", path, cause)
}
