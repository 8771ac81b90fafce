package main

import (
	"testing"

	_ "github.com/lumen-foundation/lumen/internal/testing/guard"

	"github.com/lumen-foundation/lumen/internal/app"
)

func TestMainReturnsInTestMode(t *testing.T) {
	if !app.InTestMode() {
		t.Fatal("expected test mode to be enabled by the guard package")
	}
	main()
}
