package coreir

import "fmt"

// coreirError builds an internal-contract-violation error: the upstream
// (parser/checker) handed the translator something it guarantees never to
// produce. These are always panicked, never returned, since there is no
// recovery path once a contract is broken.
func coreirError(msg string) error {
	return fmt.Errorf("coreir: %s", msg)
}
