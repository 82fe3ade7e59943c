package tensorboard

import (
	"github.com/google/wire"
)

var WireSet = wire.NewSet(
	NewConfigFromEnv,
	NewClient,
	wire.Bind(new(Service), new(*Client)),
)
