//go:build tools
// +build tools

// Package tools pins the code generators used by go:generate (mockgen for the
// files under mocks/) so they resolve from go.mod on a fresh checkout.
package contact_lab

import (
	_ "go.uber.org/mock/mockgen"
)
