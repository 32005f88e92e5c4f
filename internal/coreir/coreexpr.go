package coreir

// CoreExpr bundles a translated expression with the Allocator that owns
// every node reachable from it. Go's garbage collector makes the
// reference-counting or lifetime tricks the original allocator needed
// unnecessary: holding the Allocator here simply keeps every chunk it
// handed out — not just the ones reachable from Root — alive for exactly
// as long as the CoreExpr itself is.
type CoreExpr struct {
	allocator *Allocator
	root      *Expr
}

// NewCoreExpr packages a root expression with the allocator that produced it.
func NewCoreExpr(allocator *Allocator, root *Expr) *CoreExpr {
	return &CoreExpr{allocator: allocator, root: root}
}

// Expr returns the root of the translated tree.
func (c *CoreExpr) Expr() *Expr {
	if c == nil {
		return nil
	}
	return c.root
}

// Allocator returns the arena that owns every node reachable from Expr.
func (c *CoreExpr) Allocator() *Allocator {
	if c == nil {
		return nil
	}
	return c.allocator
}
