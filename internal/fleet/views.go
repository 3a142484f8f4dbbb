package fleet

import (
	"strconv"
	"time"

	"github.com/robonav/server/internal/model"
)

const (
	unknownLocationName = "Unknown"
	unknownCoordinates  = "N/A,N/A"
	unknownPing         = "N/A"
	taskProgress        = 0
	taskCreatedBy       = "n/a"
	robotNamePrefix     = "Robot #"
)

// TaskView is a task as served to clients
type TaskView struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Robot       int64     `json:"robot"`
	Progress    int       `json:"progress"`
	CreatedBy   string    `json:"createdBy"`
	DateCreated time.Time `json:"dateCreated"`
}

// RobotView is the per-robot fleet snapshot
type RobotView struct {
	ID                  int64   `json:"id"`
	Name                string  `json:"name"`
	Ping                string  `json:"ping"`
	Battery             int     `json:"battery"`
	LocationName        string  `json:"location_name"`
	LocationCoordinates string  `json:"location_coordinates"`
	Tasks               []int64 `json:"tasks"`
}

// LocationView is a robot's current location
type LocationView struct {
	RobotID             int64  `json:"robot_id"`
	LocationName        string `json:"location_name"`
	LocationCoordinates string `json:"location_coordinates"`
}

func newTaskView(t model.Task) TaskView {
	return TaskView{
		ID:          t.ID,
		Name:        t.Name,
		Robot:       t.RobotID,
		Progress:    taskProgress,
		CreatedBy:   taskCreatedBy,
		DateCreated: t.Start,
	}
}

func newRobotView(r model.Robot, loc LocationView, tasks []int64) RobotView {
	if tasks == nil {
		tasks = []int64{}
	}
	return RobotView{
		ID:                  r.ID,
		Name:                robotNamePrefix + strconv.FormatInt(r.ID, 10),
		Ping:                formatPing(r.PingMS),
		Battery:             r.Battery,
		LocationName:        loc.LocationName,
		LocationCoordinates: loc.LocationCoordinates,
		Tasks:               tasks,
	}
}

// newLocationView applies the defaults for robots with no history and for
// coordinates that match no named location.
func newLocationView(robotID int64, cur model.CurrentLocation, ok bool) LocationView {
	v := LocationView{
		RobotID:             robotID,
		LocationName:        unknownLocationName,
		LocationCoordinates: unknownCoordinates,
	}
	if !ok {
		return v
	}
	v.LocationCoordinates = formatCoordinates(cur.Record.X, cur.Record.Y)
	if cur.Name != nil {
		v.LocationName = *cur.Name
	}
	return v
}

func formatPing(ms *int) string {
	if ms == nil {
		return unknownPing
	}
	return strconv.Itoa(*ms) + "ms"
}

func formatCoordinates(x, y float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64) + "," + strconv.FormatFloat(y, 'f', -1, 64)
}
