/*
dto.go - Request and response bodies of the HTTP API

PURPOSE:
  JSON shapes that exist only at the HTTP edge. Entity payloads are the
  inventory types themselves, carried inside dispatch.Response.

TYPES:
  ActionRequest          body of POST /action
  ErrorResponse          body of transport-level failures (bad JSON, panics)
  HealthResponse         body of GET /health
  ScenarioDTO            demo scenario listing
  LoadScenarioRequest    body of POST /api/scenarios/load

SEE ALSO:
  - handlers.go: uses these types
  - dispatch/dispatcher.go: Response envelope
*/
package api

import "encoding/json"

// ActionRequest is the generic {action, params} call.
type ActionRequest struct {
	Action string          `json:"action"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ErrorResponse is returned when a request never reaches the dispatcher.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}

// ScenarioDTO describes a demo data set.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}
