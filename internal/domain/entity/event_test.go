package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderEvent_Valid(t *testing.T) {
	payload := []byte(`{"event":"orderStatusUpdated","orderId":"X1","status":"on_the_way"}`)

	event, err := ParseOrderEvent(payload)

	require.NoError(t, err)
	assert.Equal(t, EventOrderStatusUpdated, event.Kind)
	assert.Equal(t, "X1", event.TargetOrderID())
	assert.Equal(t, OrderStatusOnTheWay, event.Status)
	assert.False(t, event.ReceivedAt.IsZero())
}

func TestParseOrderEvent_EmbeddedOrderOnly(t *testing.T) {
	payload := []byte(`{"event":"orderCreated","order":{"id":"X2","customer_name":"Sara","total_price":185}}`)

	event, err := ParseOrderEvent(payload)

	require.NoError(t, err)
	assert.Equal(t, "X2", event.TargetOrderID())
	assert.Equal(t, "Sara", event.Order.CustomerName)
}

func TestParseOrderEvent_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr error
	}{
		{name: "unknown kind", payload: `{"event":"somethingElse","orderId":"X1"}`, wantErr: ErrEventKindUnknown},
		{name: "missing kind", payload: `{"orderId":"X1"}`, wantErr: ErrEventKindUnknown},
		{name: "missing order id", payload: `{"event":"orderCancelled"}`, wantErr: ErrEventOrderIDMissing},
		{name: "renamed kind is rejected", payload: `{"event":"order_created","orderId":"X1"}`, wantErr: ErrEventKindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOrderEvent([]byte(tt.payload))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseOrderEvent_InvalidJSON(t *testing.T) {
	_, err := ParseOrderEvent([]byte(`{not json`))
	require.Error(t, err)
}
