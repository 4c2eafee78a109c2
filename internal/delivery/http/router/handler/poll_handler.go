package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"pulse/internal/delivery/http/middleware"
	"pulse/internal/infra/hub"

	"github.com/labstack/echo/v4"
)

// maxPollWait bounds how long one long-poll request may hang server-side.
const maxPollWait = 30 * time.Second

// pollResponse is one long-poll batch: events past the cursor and the new
// cursor to resume from.
type pollResponse struct {
	Events []json.RawMessage `json:"events"`
	Cursor uint64            `json:"cursor"`
}

// PollHandler serves the long-poll fallback for clients whose websocket
// handshake cannot get through.
type PollHandler struct {
	logger *slog.Logger
	hub    *hub.Hub
}

// NewPollHandler is the constructor for PollHandler, injected by Fx.
func NewPollHandler(logger *slog.Logger, h *hub.Hub) *PollHandler {
	return &PollHandler{logger: logger, hub: h}
}

// Poll handles GET /realtime/poll?cursor=N&wait=MS. A zero cursor
// subscribes at the latest position without replay, matching the websocket
// transport which never replays either.
func (h *PollHandler) Poll(c echo.Context) error {
	role, err := middleware.ConnectionRole(c)
	if err != nil {
		return err
	}

	cursor, err := strconv.ParseUint(c.QueryParam("cursor"), 10, 64)
	if err != nil && c.QueryParam("cursor") != "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid cursor")
	}

	wait := parseWait(c.QueryParam("wait"))

	if cursor == 0 {
		return c.JSON(http.StatusOK, pollResponse{
			Events: []json.RawMessage{},
			Cursor: h.hub.LatestSeq(),
		})
	}

	ctx := c.Request().Context()
	deadline := time.NewTimer(wait)
	defer deadline.Stop()

	for {
		events, next := h.hub.EventsSince(cursor, role, middleware.SessionUserID(c))
		if len(events) > 0 || wait <= 0 {
			return c.JSON(http.StatusOK, pollResponse{
				Events: rawEvents(events),
				Cursor: next,
			})
		}
		cursor = next

		select {
		case <-h.hub.Wait():
			// New events arrived; loop and collect them.
		case <-deadline.C:
			return c.JSON(http.StatusOK, pollResponse{
				Events: []json.RawMessage{},
				Cursor: cursor,
			})
		case <-ctx.Done():
			// Client gave up; nothing useful left to write.
			return nil
		}
	}
}

func parseWait(raw string) time.Duration {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms < 0 {
		return 0
	}

	return min(time.Duration(ms)*time.Millisecond, maxPollWait)
}

func rawEvents(events [][]byte) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(events))
	for _, e := range events {
		out = append(out, json.RawMessage(e))
	}

	return out
}
