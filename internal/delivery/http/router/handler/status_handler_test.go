package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pulse/internal/delivery/http/validator"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStatusContext(body string) (echo.Context, *httptest.ResponseRecorder, uuid.UUID) {
	e := echo.New()
	e.Validator = validator.New()

	req := httptest.NewRequest(http.MethodPost, "/courier/status", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	courierID := uuid.New()
	c.Set("userID", courierID)

	return c, rec, courierID
}

func TestStatusHandler_ReportStatus(t *testing.T) {
	fanout := &fakeFanout{}
	h := NewStatusHandler(testLogger(), fanout)

	c, rec, courierID := newStatusContext(`{"order_id":"ord-7","status":"picked_up","latitude":25.03,"longitude":121.56}`)

	require.NoError(t, h.ReportStatus(c))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, fanout.reports, 1)
	report := fanout.reports[0]
	assert.Equal(t, "ord-7", report.OrderID)
	assert.Equal(t, "picked_up", report.Status)
	assert.Equal(t, courierID.String(), report.CourierID)
	assert.InDelta(t, 25.03, report.Latitude, 0.0001)
}

func TestStatusHandler_RejectsIncompleteReport(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing order id", body: `{"status":"picked_up"}`},
		{name: "missing status", body: `{"order_id":"ord-7"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fanout := &fakeFanout{}
			h := NewStatusHandler(testLogger(), fanout)
			c, _, _ := newStatusContext(tt.body)

			err := h.ReportStatus(c)

			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, http.StatusBadRequest, httpErr.Code)
			assert.Empty(t, fanout.reports)
		})
	}
}

func TestStatusHandler_PublishFailurePropagates(t *testing.T) {
	fanout := &fakeFanout{err: assert.AnError}
	h := NewStatusHandler(testLogger(), fanout)
	c, _, _ := newStatusContext(`{"order_id":"ord-7","status":"picked_up"}`)

	err := h.ReportStatus(c)

	assert.ErrorIs(t, err, assert.AnError)
}
