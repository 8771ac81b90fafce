package main

import (
	"testing"

	_ "github.com/lumen-foundation/lumen/internal/testing/guard"
)

func TestWorkerReturnsInTestMode(t *testing.T) {
	main()
}
