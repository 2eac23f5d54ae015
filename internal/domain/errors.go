// internal/domain/errors.go
package domain

import "errors"

var (
	// ErrUnitNotFound means a unit ID did not resolve during conversion.
	ErrUnitNotFound = errors.New("unit not found")

	// ErrItemNotFound means an inventory item ID did not resolve.
	ErrItemNotFound = errors.New("inventory item not found")

	// ErrRecipeNotFound means a recipe ID did not resolve.
	ErrRecipeNotFound = errors.New("recipe not found")

	// ErrMenuItemNotFound means a menu item ID did not resolve.
	ErrMenuItemNotFound = errors.New("menu item not found")

	// ErrCountNotFound means a count session ID did not resolve.
	ErrCountNotFound = errors.New("inventory count not found")

	// ErrCountLineNotFound means a count line ID did not resolve.
	ErrCountLineNotFound = errors.New("inventory count line not found")

	// ErrCyclicRecipe means the component graph contains a recipe that
	// transitively includes itself. Fatal: the cost computation must abort
	// rather than return a partial number.
	ErrCyclicRecipe = errors.New("cyclic recipe reference")

	// ErrInsufficientInventory means a transfer or waste exceeds current on-hand.
	ErrInsufficientInventory = errors.New("insufficient inventory")

	// ErrSameLocation means a transfer names the same source and destination.
	ErrSameLocation = errors.New("transfer source and destination are the same location")

	// ErrNoBaseline means no physical count exists to anchor an on-hand
	// estimate. Reporting unknown beats fabricating a zero baseline.
	ErrNoBaseline = errors.New("no count baseline for item at store")
)
