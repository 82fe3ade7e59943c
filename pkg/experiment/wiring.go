package experiment

import (
	"github.com/google/wire"
)

var WireSet = wire.NewSet(
	NewClient,
	NewTracker,
)
