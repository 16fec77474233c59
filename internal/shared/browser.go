package shared

import (
	"fmt"
	"io"

	"github.com/pkg/browser"
)

// openURL is swapped in tests so no browser is launched.
var openURL = browser.OpenURL

func init() {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// OpenBrowser opens the default system browser to the specified URL.
func OpenBrowser(url string) error {
	if err := openURL(url); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
