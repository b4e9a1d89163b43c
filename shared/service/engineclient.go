// shared/service/engineclient.go
package service

import (
	"context"

	"github.com/foodwars/territory-engine/shared/api"
	"github.com/foodwars/territory-engine/shared/models"
)

// EngineClient is a typed HTTP client for the territory engine, used by
// companion tools (scoreboard renderers, schedulers, load scripts) that
// drive the engine over its REST surface.
type EngineClient struct {
	apiClient *api.Client
}

// NewEngineClient creates a new territory engine client.
func NewEngineClient(baseURL string) *EngineClient {
	return &EngineClient{
		apiClient: api.NewClient(baseURL, api.NewDefaultHTTPClient()),
	}
}

// ActionRequest is the payload for a credential scan action.
type ActionRequest struct {
	NodeID   string `json:"nodeId"`
	TeamName string `json:"teamName"`
	Secret   string `json:"secret"`
	Action   string `json:"action,omitempty"` // Optional pinned verb: "CAPTURE" or "HARVEST"
}

// ActionResponse mirrors the engine's action endpoint response.
type ActionResponse struct {
	Success bool         `json:"success"`
	Action  string       `json:"action,omitempty"`
	Message string       `json:"message"`
	Amount  *int64       `json:"amount,omitempty"`
	Node    *models.Node `json:"node,omitempty"`
}

// TickDetail is one team's settlement within a tick response.
type TickDetail struct {
	TeamID   string `json:"teamId"`
	NewScore int64  `json:"newScore"`
	Added    int64  `json:"added"`
}

// TickResponse mirrors the engine's tick endpoint response.
type TickResponse struct {
	Success        bool         `json:"success"`
	Message        string       `json:"message,omitempty"`
	ProcessedTeams int          `json:"processedTeams"`
	Details        []TickDetail `json:"details,omitempty"`
}

// ControlRequest is the payload for game lifecycle operations.
type ControlRequest struct {
	Action string `json:"action"` // START, FINISH or RESET
}

// ControlResponse mirrors the engine's control endpoint response.
type ControlResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// PerformAction submits a scan action (capture or harvest) to the engine.
func (c *EngineClient) PerformAction(ctx context.Context, req ActionRequest) (*ActionResponse, error) {
	var resp ActionResponse
	if err := c.apiClient.Post(ctx, "/action", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TriggerTick asks the engine to run one global accrual tick.
func (c *EngineClient) TriggerTick(ctx context.Context) (*TickResponse, error) {
	var resp TickResponse
	if err := c.apiClient.Post(ctx, "/game/tick", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Control performs a lifecycle operation (START, FINISH, RESET).
func (c *EngineClient) Control(ctx context.Context, action string) (*ControlResponse, error) {
	var resp ControlResponse
	if err := c.apiClient.Post(ctx, "/admin/control", ControlRequest{Action: action}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListTeams retrieves the current team standings.
func (c *EngineClient) ListTeams(ctx context.Context) ([]models.Team, error) {
	var teams []models.Team
	if err := c.apiClient.Get(ctx, "/teams", &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// ListNodes retrieves all nodes (secrets are never returned by the engine).
func (c *EngineClient) ListNodes(ctx context.Context) ([]models.Node, error) {
	var nodes []models.Node
	if err := c.apiClient.Get(ctx, "/nodes", &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}
