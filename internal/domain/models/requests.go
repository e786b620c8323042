package models

// Requests for dashboard HTTP endpoints.

type SelectInstrumentRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

type SelectHorizonRequest struct {
	Horizon string `json:"horizon" default:"month" validate:"oneof=week month year"`
}
