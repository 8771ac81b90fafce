// Package guard switches the binaries into test mode. Tests that may reach a
// main function import it for its side effect.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("LUMEN_TEST_MODE") == "" {
			_ = os.Setenv("LUMEN_TEST_MODE", "1")
		}
	})
}
