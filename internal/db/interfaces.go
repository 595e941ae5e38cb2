package db

import (
	"github.com/Champ-Deep/ChampMail-sub000/internal/dispatch"
	"github.com/Champ-Deep/ChampMail-sub000/internal/pipeline"
	"github.com/Champ-Deep/ChampMail-sub000/internal/tracking"
)

var (
	_ pipeline.CampaignStore   = (*DB)(nil)
	_ dispatch.SendStore       = (*DB)(nil)
	_ tracking.EventRecorder   = (*DB)(nil)
	_ tracking.SendTracker     = (*DB)(nil)
	_ tracking.ProspectUpdater = (*DB)(nil)
)
