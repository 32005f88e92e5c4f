package coreir

// chunkSize bounds a single bump-arena chunk; crossing it starts a new
// chunk rather than reallocating (and thereby invalidating) the last one.
const chunkSize = 64

// slab is a bump/typed-arena allocator for one element type. Every element
// it hands out lives until the slab itself is dropped; addresses returned
// by alloc never move, because a chunk is only ever appended to up to its
// pre-reserved capacity.
type slab[T any] struct {
	chunks [][]T
}

func (s *slab[T]) alloc() *T {
	if len(s.chunks) == 0 || len(s.chunks[len(s.chunks)-1]) == cap(s.chunks[len(s.chunks)-1]) {
		s.chunks = append(s.chunks, make([]T, 0, chunkSize))
	}
	last := &s.chunks[len(s.chunks)-1]
	*last = append(*last, *new(T))
	return &(*last)[len(*last)-1]
}

// allocFixed allocates a contiguous run of n elements and fills them via
// fill. The backing slice is zero-valued by make before fill runs, so a
// panic partway through fill leaves every not-yet-filled slot holding its
// type's zero value — already a well-formed, destructible state. This is
// the Go counterpart of the reference allocator's alloc_fixed: there, a
// drop guard had to paper over uninitialized memory; here the zero value
// does that job for free.
func (s *slab[T]) allocFixed(n int, fill func(i int) T) []T {
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = fill(i)
	}
	return out
}

// Allocator co-owns every node of one produced core-IR tree. Its lifetime
// is the lifetime of all nodes it handed out; see CoreExpr for the
// self-owning wrapper that keeps the two together.
type Allocator struct {
	exprs        slab[Expr]
	alternatives slab[Alternative]
	letBindings  slab[LetBinding]
}

// NewAllocator creates an empty Allocator.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// AllocExpr copies e into the arena and returns a stable pointer to it.
func (a *Allocator) AllocExpr(e Expr) *Expr {
	p := a.exprs.alloc()
	*p = e
	return p
}

// AllocExprs allocates n contiguous expressions filled by fill(i).
func (a *Allocator) AllocExprs(n int, fill func(i int) Expr) []Expr {
	return a.exprs.allocFixed(n, fill)
}

// AllocAlternatives allocates n contiguous alternatives filled by fill(i).
func (a *Allocator) AllocAlternatives(n int, fill func(i int) Alternative) []Alternative {
	return a.alternatives.allocFixed(n, fill)
}

// AllocLetBinding copies lb into the arena and returns a stable pointer to it.
func (a *Allocator) AllocLetBinding(lb LetBinding) *LetBinding {
	p := a.letBindings.alloc()
	*p = lb
	return p
}
