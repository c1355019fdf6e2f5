package cart

// Adjustment reports how an ordered quantity was normalized against the
// product's packaging constraints, so callers can tell the user what changed.
type Adjustment struct {
	Requested int
	Amount    int
	// MinOrderApplied is set when the quantity was raised to the minimum
	// order quantity.
	MinOrderApplied bool
	// StackRounded is set when the quantity was rounded up to the next
	// multiple of the stack size.
	StackRounded bool
}

// Normalize applies the product's packaging constraints to a requested
// quantity: quantities below the minimum order are raised to it, then
// quantities off the stack size are rounded up to the next full stack. Zero
// and negative quantities pass through untouched; -1 is the removal marker.
func Normalize(requested, minOrder, stackSize int) Adjustment {
	adj := Adjustment{Requested: requested, Amount: requested}

	if minOrder > 1 && adj.Amount > 0 && adj.Amount < minOrder {
		adj.Amount = minOrder
		adj.MinOrderApplied = true
	}
	if stackSize > 1 && adj.Amount > 0 && adj.Amount%stackSize != 0 {
		adj.Amount = (adj.Amount/stackSize + 1) * stackSize
		adj.StackRounded = true
	}
	return adj
}
