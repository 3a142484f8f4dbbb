package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robonav/server/internal/fleet"
)

// TestFleetE2E runs the complete flow against a real database: register,
// confirm, login, empty fleet, seeded fleet, instructions, rate limit.
// Deterministic: Truncate before each section.
func TestFleetE2E(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set; skipping E2E test")
	}

	ts := newTestServer(t, 1000)
	ctx := context.Background()

	login := func(t *testing.T) string {
		t.Helper()
		resp, body := ts.postJSON(t, "/api/open/users/register", map[string]string{
			"username": "operator", "email": "operator@example.com", "password": "s3cret",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode, "register; body: %s", body)

		uri, err := ts.Mailbox.ConfirmationURI("operator@example.com")
		require.NoError(t, err)
		resp, body = ts.get(t, uri, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, "confirm; body: %s", body)

		resp, body = ts.postJSON(t, "/api/open/users/login", map[string]string{
			"username": "operator", "password": "s3cret",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode, "login; body: %s", body)
		var res loginResponse
		require.NoError(t, json.Unmarshal([]byte(body), &res))
		require.NotEmpty(t, res.Token)
		return res.Token
	}

	t.Run("A_EmptyFleet", func(t *testing.T) {
		ts.Truncate(t)
		token := login(t)

		resp, _ := ts.get(t, "/api/robot/robots", token)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp, _ = ts.get(t, "/api/robot/tasks", token)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp, body := ts.get(t, "/api/robot/callbacks", token)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `[]`, body)
	})

	t.Run("B_SeededFleet", func(t *testing.T) {
		ts.Truncate(t)
		token := login(t)

		ping := 15
		r1, err := SeedRobot(ctx, ts.DB, 90, &ping)
		require.NoError(t, err)
		r2, err := SeedRobot(ctx, ts.DB, 30, nil)
		require.NoError(t, err)

		require.NoError(t, SeedLocation(ctx, ts.DB, r1, 1, 1))
		require.NoError(t, SeedLocation(ctx, ts.DB, r1, 2, 2))
		require.NoError(t, SeedNamedLocation(ctx, ts.DB, "Dock", r1, 1, 1))
		require.NoError(t, SeedNamedLocation(ctx, ts.DB, "Charging Bay", r1, 2, 2))
		t1, err := SeedTask(ctx, ts.DB, "sweep", r1)
		require.NoError(t, err)

		resp, body := ts.get(t, "/api/robot/robots", token)
		require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)
		var robots []fleet.RobotView
		require.NoError(t, json.Unmarshal([]byte(body), &robots))
		require.Len(t, robots, 2)

		assert.Equal(t, fleet.RobotView{
			ID: r1, Name: "Robot #" + strconv.FormatInt(r1, 10), Ping: "15ms", Battery: 90,
			LocationName: "Charging Bay", LocationCoordinates: "2,2", Tasks: []int64{t1},
		}, robots[0])
		assert.Equal(t, fleet.RobotView{
			ID: r2, Name: "Robot #" + strconv.FormatInt(r2, 10), Ping: "N/A", Battery: 30,
			LocationName: "Unknown", LocationCoordinates: "N/A,N/A", Tasks: []int64{},
		}, robots[1])

		resp, body = ts.get(t, "/api/robot/tasks", token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var tasks []fleet.TaskView
		require.NoError(t, json.Unmarshal([]byte(body), &tasks))
		require.Len(t, tasks, 1)
		assert.Equal(t, "n/a", tasks[0].CreatedBy)
		assert.Equal(t, 0, tasks[0].Progress)
	})

	t.Run("C_Instructions", func(t *testing.T) {
		ts.Truncate(t)
		token := login(t)
		r1, err := SeedRobot(ctx, ts.DB, 50, nil)
		require.NoError(t, err)

		req := func(robotID int64) int {
			b, _ := json.Marshal(map[string]any{"robot_id": robotID, "command": "return to dock"})
			r, err := http.NewRequest(http.MethodPost, ts.BaseURL()+"/api/robot/instructions", bytes.NewReader(b))
			require.NoError(t, err)
			r.Header.Set("Authorization", "Bearer "+token)
			resp, err := ts.Server.Client().Do(r)
			require.NoError(t, err)
			resp.Body.Close()
			return resp.StatusCode
		}

		assert.Equal(t, http.StatusAccepted, req(r1))
		assert.Equal(t, http.StatusNotFound, req(r1+1000))

		var n int
		require.NoError(t, ts.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM robot_instruction`).Scan(&n))
		assert.Equal(t, 1, n)
	})

	t.Run("D_RateLimit", func(t *testing.T) {
		limited := newTestServer(t, 3)
		limited.Truncate(t)
		creds := map[string]string{"username": "nobody", "password": "x"}
		var last int
		for i := 0; i < 4; i++ {
			resp, _ := limited.postJSON(t, "/api/open/users/login", creds)
			last = resp.StatusCode
		}
		assert.Equal(t, http.StatusTooManyRequests, last, "4th login must return 429")
	})
}
