package kitfile

import (
	"fmt"
	"io"
	"os"

	"github.com/kitops-ml/kitops-go/internal/console"
)

const printHeader = "\n\nKitfile Contents...\n===================\n\n"

// Print writes the Kitfile's YAML to w under a short header. The YAML is
// green when w is a terminal.
func (k *Kitfile) Print(w io.Writer) error {
	data, err := k.YAML()
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, printHeader+console.Green(w, string(data)))
	return err
}

// Save writes the Kitfile's YAML to path. If w is non-nil the Kitfile is
// also printed to it.
func (k *Kitfile) Save(path string, w io.Writer) error {
	data, err := k.YAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save kitfile: %w", err)
	}
	if w != nil {
		return k.Print(w)
	}
	return nil
}
