package lights

import (
	"context"

	"github.com/hwalther/lightson/internal/logger"
)

// Nop is a Controller that only logs. Used when no bridge is configured
// so the game and handlers stay exercisable on a dev machine.
type Nop struct{}

var _ Controller = Nop{}

func (Nop) SetColor(_ context.Context, color Color) error {
	logger.WithComponent("lights").Debug().Str("color", color.Hex()).Msg("No bridge configured, dropping color")
	return nil
}
