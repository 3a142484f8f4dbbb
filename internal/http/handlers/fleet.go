package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/robonav/server/internal/fleet"
	"github.com/robonav/server/internal/middleware"
	"github.com/robonav/server/internal/model"
)

// FleetHandler handles the authenticated robot endpoints
type FleetHandler struct {
	fleet  *fleet.Service
	logger *slog.Logger
}

// NewFleetHandler creates a new fleet handler
func NewFleetHandler(fleetService *fleet.Service, logger *slog.Logger) *FleetHandler {
	return &FleetHandler{fleet: fleetService, logger: logger}
}

// createRobotRequest is the request body for POST /api/robot/robots
type createRobotRequest struct {
	Battery *int `json:"battery"`
	Ping    *int `json:"ping"`
}

// instructionRequest is the request body for POST /api/robot/instructions
type instructionRequest struct {
	RobotID int64  `json:"robot_id"`
	Command string `json:"command"`
}

type instructionResponse struct {
	ID       int64     `json:"id"`
	RobotID  int64     `json:"robot_id"`
	Command  string    `json:"command"`
	IssuedBy string    `json:"issued_by"`
	IssuedAt time.Time `json:"issued_at"`
}

type callbackResponse struct {
	ID         int64     `json:"id"`
	RobotID    int64     `json:"robot_id"`
	Payload    string    `json:"payload"`
	ReceivedAt time.Time `json:"received_at"`
}

// HandleListTasks handles GET /api/robot/tasks
func (h *FleetHandler) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.fleet.ListTasks(r.Context())
	if err != nil {
		respondWithServiceError(w, r, h.logger, "list tasks", err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, tasks)
}

// HandleListRobots handles GET /api/robot/robots
func (h *FleetHandler) HandleListRobots(w http.ResponseWriter, r *http.Request) {
	robots, err := h.fleet.ListRobots(r.Context())
	if err != nil {
		respondWithServiceError(w, r, h.logger, "list robots", err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, robots)
}

// HandleCreateRobot handles POST /api/robot/robots
func (h *FleetHandler) HandleCreateRobot(w http.ResponseWriter, r *http.Request) {
	var req createRobotRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Battery == nil {
		respondWithError(w, http.StatusBadRequest, "battery is required")
		return
	}

	robot, err := h.fleet.CreateRobot(r.Context(), *req.Battery, req.Ping)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "create robot", err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, robot)
}

// HandleRobotLocation handles GET /api/robot/robots/{robotID}/location
func (h *FleetHandler) HandleRobotLocation(w http.ResponseWriter, r *http.Request) {
	robotID, ok := parseRobotID(chi.URLParam(r, "robotID"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid robot id")
		return
	}

	loc, err := h.fleet.RobotLocation(r.Context(), robotID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "robot location", err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, loc)
}

// HandleListCallbacks handles GET /api/robot/callbacks[?robot_id=]
func (h *FleetHandler) HandleListCallbacks(w http.ResponseWriter, r *http.Request) {
	var filter *int64
	if raw := r.URL.Query().Get("robot_id"); raw != "" {
		id, ok := parseRobotID(raw)
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid robot id")
			return
		}
		filter = &id
	}

	callbacks, err := h.fleet.ListCallbacks(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "list callbacks", err)
		return
	}

	resp := make([]callbackResponse, len(callbacks))
	for i, c := range callbacks {
		resp[i] = newCallbackResponse(c)
	}
	respondJSON(w, h.logger, http.StatusOK, resp)
}

// HandleSendInstruction handles POST /api/robot/instructions
func (h *FleetHandler) HandleSendInstruction(w http.ResponseWriter, r *http.Request) {
	issuer, ok := middleware.GetAccountID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req instructionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	in, err := h.fleet.SendInstruction(r.Context(), issuer, req.RobotID, req.Command)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "send instruction", err)
		return
	}

	respondJSON(w, h.logger, http.StatusAccepted, instructionResponse{
		ID:       in.ID,
		RobotID:  in.RobotID,
		Command:  in.Command,
		IssuedBy: in.IssuedBy.String(),
		IssuedAt: in.IssuedAt,
	})
}

func newCallbackResponse(c model.Callback) callbackResponse {
	return callbackResponse{
		ID:         c.ID,
		RobotID:    c.RobotID,
		Payload:    c.Payload,
		ReceivedAt: c.ReceivedAt,
	}
}

func parseRobotID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
