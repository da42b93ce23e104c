package handler

import "github.com/vcscsvcscs/raredx/apps/backend/pkg/api"

// API joins the handlers into the generated server interface
type API struct {
	*IntakeHandler
	*DiagnosisHandler
	*HealthHandler
}

var _ api.ServerInterface = API{}
