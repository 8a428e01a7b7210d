package lights

import "context"

// Controller applies a color to one or more physical lights.
// Implementations must be safe for concurrent use; a call either updates
// every light or fails as a whole.
type Controller interface {
	SetColor(ctx context.Context, color Color) error
}
