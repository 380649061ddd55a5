package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railquery/railquery_core/internal/engine"
	"github.com/railquery/railquery_core/internal/models"
	"github.com/railquery/railquery_core/internal/query"
	"github.com/railquery/railquery_core/internal/session"
	"github.com/railquery/railquery_core/internal/transfer"
)

type stubFetcher struct{}

func (stubFetcher) FetchSegments(_ context.Context, _ models.ServiceType, _, _, _ string) ([]models.Segment, error) {
	return []models.Segment{
		{
			TrainNumber: "G101",
			TrainType:   models.TypeHighSpeed,
			From:        "Beijing",
			To:          "Shanghai",
			Depart:      "09:00",
			Arrive:      "13:30",
			RunTime:     "4 hours 30 minutes",
			Fares:       []models.Fare{{SeatName: models.SeatSecondClass, Price: 553, Inventory: 10, Bookable: true}},
		},
	}, nil
}

func testApp(checks map[string]HealthChecker) *fiber.App {
	fetcher := stubFetcher{}
	e := engine.New(
		query.NewNormalizer(nil),
		fetcher,
		transfer.NewRouter(fetcher, transfer.StaticHubSource{}),
		session.NewStore(10, 10*time.Minute),
		nil,
	)

	app := fiber.New()
	NewHandler(e, checks).Register(app)
	return app
}

func postChat(t *testing.T, app *fiber.App, body any) (int, map[string]string) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/v2/chat", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var parsed map[string]string
	require.NoError(t, json.Unmarshal(raw, &parsed))
	return resp.StatusCode, parsed
}

func TestChatEndpoint(t *testing.T) {
	app := testApp(nil)

	status, body := postChat(t, app, ChatRequest{
		ConversationID: "room-1",
		Message:        "high-speed Beijing Shanghai 2024-06-05",
	})

	assert.Equal(t, 200, status)
	assert.Contains(t, body["reply"], "G101")
	assert.Contains(t, body["reply"], "Page 1/1")
}

func TestChatValidation(t *testing.T) {
	app := testApp(nil)

	status, body := postChat(t, app, ChatRequest{Message: "hello"})
	assert.Equal(t, 400, status)
	assert.Contains(t, body["error"], "conversation_id")

	status, body = postChat(t, app, ChatRequest{ConversationID: "room-1"})
	assert.Equal(t, 400, status)
	assert.Contains(t, body["error"], "message")
}

func TestChatBadBody(t *testing.T) {
	app := testApp(nil)

	req := httptest.NewRequest("POST", "/v2/chat", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 400, resp.StatusCode)
}

func TestChatConversationState(t *testing.T) {
	app := testApp(nil)

	_, body := postChat(t, app, ChatRequest{ConversationID: "room-1", Message: "high-speed Beijing Shanghai 2024-06-05"})
	require.Contains(t, body["reply"], "G101")

	_, body = postChat(t, app, ChatRequest{ConversationID: "room-1", Message: "+next page"})
	assert.Equal(t, "Already on the last page.", body["reply"])

	_, body = postChat(t, app, ChatRequest{ConversationID: "room-2", Message: "+next page"})
	assert.Contains(t, body["reply"], "no results to work with", "conversations are isolated")
}

func TestHealthEndpoint(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		app := testApp(map[string]HealthChecker{
			"cache": func(context.Context) error { return nil },
		})

		resp, err := app.Test(httptest.NewRequest("GET", "/health", nil), -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("unhealthy dependency", func(t *testing.T) {
		app := testApp(map[string]HealthChecker{
			"cache": func(context.Context) error { return errors.New("connection refused") },
		})

		resp, err := app.Test(httptest.NewRequest("GET", "/health", nil), -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, 503, resp.StatusCode)

		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "connection refused")
	})
}
