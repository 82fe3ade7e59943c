package builders

import (
	"github.com/google/wire"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/app"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/clientbase"
	cbhttp "github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/clientbase/http"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/experiment"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/metadata"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/node"
	"github.infra.cloudera.com/CAI/AmpExperimentTracking/pkg/tensorboard"
)

// ClientSet assembles everything a binary needs to talk to the tracking
// service: the shared HTTP stack, the metadata and tensorboard clients, and
// the experiment surface on top of them.
var ClientSet = wire.NewSet(
	app.NewInstance,
	cbhttp.NewConfigFromEnv,
	cbhttp.NewInstance,
	clientbase.WireSet,
	metadata.WireSet,
	node.WireSet,
	tensorboard.WireSet,
	experiment.WireSet,
)
