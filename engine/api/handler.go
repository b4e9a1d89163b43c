// engine/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/foodwars/territory-engine/engine/service"
	"github.com/foodwars/territory-engine/shared/api"
	"github.com/foodwars/territory-engine/shared/models"
	"github.com/gorilla/mux"
)

// EngineAPIHandlers holds a reference to the service that handles business logic.
type EngineAPIHandlers struct {
	GameService *service.GameService
}

// NewEngineAPIHandlers is the constructor for the API handlers.
func NewEngineAPIHandlers(gs *service.GameService) *EngineAPIHandlers {
	return &EngineAPIHandlers{GameService: gs}
}

// --- Request/Response DTOs ---

type ActionRequest struct {
	NodeID   string `json:"nodeId"`
	TeamName string `json:"teamName"`
	Secret   string `json:"secret"`
	Action   string `json:"action,omitempty"` // Optional pinned verb
}

type ActionResponse struct {
	Success bool         `json:"success"`
	Action  string       `json:"action,omitempty"`
	Message string       `json:"message"`
	Amount  *int64       `json:"amount,omitempty"`
	Node    *models.Node `json:"node,omitempty"`
}

type TickResponse struct {
	Success        bool                 `json:"success"`
	Message        string               `json:"message,omitempty"`
	ProcessedTeams int                  `json:"processedTeams"`
	Details        []service.TickDetail `json:"details,omitempty"`
}

type ControlRequest struct {
	Action string `json:"action"`
}

type ControlResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type CreateNodeRequest struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	CaptureRate int64   `json:"captureRate"`
	ID          string  `json:"id,omitempty"`     // Optional pinned ID for pre-printed credentials
	Secret      string  `json:"secret,omitempty"` // Optional pinned secret
}

type CreateNodeResponse struct {
	Success bool         `json:"success"`
	Node    *models.Node `json:"node"`
	Secret  string       `json:"secret"` // Returned once, for credential printing
}

// --- Handler Methods ---

// ActionHandler resolves a credential scan into a capture or harvest.
// POST /action
func (eah *EngineAPIHandlers) ActionHandler(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.NodeID == "" || req.TeamName == "" || req.Secret == "" {
		api.WriteBadRequest(w, "Missing nodeId, teamName or secret")
		return
	}
	pinned, err := service.ParseActionVerb(req.Action)
	if err != nil {
		api.WriteBadRequest(w, "Invalid action, must be CAPTURE or HARVEST")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result, err := eah.GameService.PerformAction(ctx, req.NodeID, req.TeamName, req.Secret, pinned)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNodeNotFound), errors.Is(err, service.ErrTeamNotFound):
			api.WriteNotFound(w, "Node or Team not found")
		case errors.Is(err, service.ErrInvalidSecret):
			api.WriteForbidden(w, "Invalid secret key")
		case errors.Is(err, service.ErrAlreadySecured):
			api.WriteConflict(w, "This node is already secured by your team.")
		case errors.Is(err, service.ErrNotOwned):
			api.WriteConflict(w, "This node is not controlled by your team.")
		case errors.Is(err, service.ErrGameNotActive):
			api.WriteConflict(w, "The game is not active.")
		case errors.Is(err, service.ErrConflict):
			api.WriteConflict(w, "Node changed hands mid-action, please scan again.")
		default:
			log.Printf("ERROR: Action on node %s by team %s failed: %v", req.NodeID, req.TeamName, err)
			api.WriteInternalServerError(w, "Internal Server Error")
		}
		return
	}

	api.WriteJSON(w, http.StatusOK, ActionResponse{
		Success: result.Success,
		Action:  string(result.Action),
		Message: result.Message,
		Amount:  result.Amount,
		Node:    result.Node,
	})
}

// TickHandler runs one global accrual tick on demand.
// POST /game/tick
func (eah *EngineAPIHandlers) TickHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	report, err := eah.GameService.RunTick(ctx, nil)
	if err != nil {
		log.Printf("ERROR: Tick failed: %v", err)
		api.WriteInternalServerError(w, "Internal Server Error")
		return
	}

	api.WriteJSON(w, http.StatusOK, TickResponse{
		Success:        true,
		Message:        report.Message,
		ProcessedTeams: report.ProcessedTeams,
		Details:        report.Details,
	})
}

// ControlHandler performs a lifecycle operation (START, FINISH, RESET).
// POST /admin/control
func (eah *EngineAPIHandlers) ControlHandler(w http.ResponseWriter, r *http.Request) {
	var req ControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Action == "" {
		api.WriteBadRequest(w, "Missing action")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	message, err := eah.GameService.Control(ctx, service.ControlAction(req.Action))
	if err != nil {
		if errors.Is(err, service.ErrInvalidAction) {
			api.WriteBadRequest(w, "Invalid action")
			return
		}
		log.Printf("ERROR: Control action %s failed: %v", req.Action, err)
		api.WriteInternalServerError(w, "Internal Server Error")
		return
	}

	api.WriteJSON(w, http.StatusOK, ControlResponse{Success: true, Message: message})
}

// ListNodesHandler returns all nodes. Secrets are never serialized.
// GET /nodes
func (eah *EngineAPIHandlers) ListNodesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	nodes, err := eah.GameService.ListNodes(ctx)
	if err != nil {
		log.Printf("ERROR: Listing nodes failed: %v", err)
		api.WriteInternalServerError(w, "Failed to list nodes")
		return
	}
	api.WriteJSON(w, http.StatusOK, nodes)
}

// CreateNodeHandler places a new node.
// POST /admin/nodes
func (eah *EngineAPIHandlers) CreateNodeHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Name == "" {
		api.WriteBadRequest(w, "Missing fields")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	node := &models.Node{
		ID:          req.ID,
		Name:        req.Name,
		Type:        models.ResourceType(req.Type),
		X:           req.X,
		Y:           req.Y,
		CaptureRate: req.CaptureRate,
		SecretKey:   req.Secret,
	}
	created, err := eah.GameService.CreateNode(ctx, node)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAction) {
			api.WriteBadRequest(w, err.Error())
			return
		}
		log.Printf("ERROR: Creating node %q failed: %v", req.Name, err)
		api.WriteInternalServerError(w, "Failed to create node")
		return
	}

	api.WriteJSON(w, http.StatusCreated, CreateNodeResponse{
		Success: true,
		Node:    created,
		Secret:  created.SecretKey,
	})
}

// DeleteNodeHandler removes a node.
// DELETE /admin/nodes/{id}
func (eah *EngineAPIHandlers) DeleteNodeHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	nodeID := vars["id"]
	if nodeID == "" {
		api.WriteBadRequest(w, "Node ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := eah.GameService.DeleteNode(ctx, nodeID); err != nil {
		if errors.Is(err, service.ErrNodeNotFound) {
			api.WriteNotFound(w, "Node not found")
			return
		}
		log.Printf("ERROR: Deleting node %s failed: %v", nodeID, err)
		api.WriteInternalServerError(w, "Failed to delete node")
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ListTeamsHandler returns team standings.
// GET /teams
func (eah *EngineAPIHandlers) ListTeamsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	teams, err := eah.GameService.ListTeams(ctx)
	if err != nil {
		log.Printf("ERROR: Listing teams failed: %v", err)
		api.WriteInternalServerError(w, "Failed to list teams")
		return
	}
	api.WriteJSON(w, http.StatusOK, teams)
}

// ListLogsHandler returns recent audit entries, newest first.
// GET /logs?limit=50
func (eah *EngineAPIHandlers) ListLogsHandler(w http.ResponseWriter, r *http.Request) {
	limit := int64(50)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			api.WriteBadRequest(w, "Invalid limit")
			return
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	logs, err := eah.GameService.ListLogs(ctx, limit)
	if err != nil {
		log.Printf("ERROR: Listing logs failed: %v", err)
		api.WriteInternalServerError(w, "Failed to list logs")
		return
	}
	api.WriteJSON(w, http.StatusOK, logs)
}

// SnapshotHandler returns the full game state for client (re)loads.
// GET /state
func (eah *EngineAPIHandlers) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	snapshot, err := eah.GameService.GetSnapshot(ctx)
	if err != nil {
		log.Printf("ERROR: Building snapshot failed: %v", err)
		api.WriteInternalServerError(w, "Failed to build snapshot")
		return
	}
	api.WriteJSON(w, http.StatusOK, snapshot)
}

// RegisterRoutes registers all API endpoints for the territory engine.
// This method is called from main.go to set up the HTTP routes.
func (eah *EngineAPIHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/action", eah.ActionHandler).Methods("POST")
	router.HandleFunc("/game/tick", eah.TickHandler).Methods("POST")
	router.HandleFunc("/admin/control", eah.ControlHandler).Methods("POST")

	router.HandleFunc("/nodes", eah.ListNodesHandler).Methods("GET")
	router.HandleFunc("/admin/nodes", eah.CreateNodeHandler).Methods("POST")
	router.HandleFunc("/admin/nodes/{id}", eah.DeleteNodeHandler).Methods("DELETE")

	router.HandleFunc("/teams", eah.ListTeamsHandler).Methods("GET")
	router.HandleFunc("/logs", eah.ListLogsHandler).Methods("GET")
	router.HandleFunc("/state", eah.SnapshotHandler).Methods("GET")
}
