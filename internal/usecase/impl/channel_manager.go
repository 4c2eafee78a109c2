package impl

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"pulse/config"
	"pulse/internal/domain/entity"
	"pulse/internal/domain/service"
	"pulse/internal/usecase"
	"pulse/internal/util"
)

// hiddenDisconnectPolicy is how long a role may keep the channel open while
// the window is hidden. Zero means the role never disconnects on hide
// (admins keep receiving new-order alerts in the background).
var hiddenDisconnectPolicy = map[entity.Role]time.Duration{
	entity.RoleAdmin:    0,
	entity.RoleCourier:  15 * time.Minute,
	entity.RoleCustomer: 5 * time.Minute,
}

// channelManager owns the single realtime channel of a session and is the
// only writer of the in-memory order collection.
type channelManager struct {
	cfg        config.RealtimeConfig
	logger     *slog.Logger
	dialers    []service.TransportDialer
	dispatcher usecase.DispatchUsecase
	store      *OrderStore

	mu          sync.Mutex
	state       entity.ConnectionState
	gen         int
	cancel      context.CancelFunc
	credential  string
	role        entity.Role
	authed      bool
	hiddenTimer *time.Timer
}

// NewChannelManager creates the channel manager. Dialers are tried in
// order; the first is the preferred streaming transport, the rest are
// fallbacks.
func NewChannelManager(
	cfg *config.RealtimeConfig,
	logger *slog.Logger,
	dialers []service.TransportDialer,
	dispatcher usecase.DispatchUsecase,
	store *OrderStore,
) usecase.ChannelUsecase {
	return &channelManager{
		cfg:        cfg.Normalized(),
		logger:     logger,
		dialers:    dialers,
		dispatcher: dispatcher,
		store:      store,
		state:      entity.StateDisconnected,
	}
}

// Connect opens the channel. An existing connection is torn down first; an
// empty credential is a silent no-op.
func (m *channelManager) Connect(ctx context.Context, credential string, role entity.Role) {
	if credential == "" {
		m.logger.Debug("connect skipped: no session credential")

		return
	}

	m.mu.Lock()
	m.teardownLocked()
	m.gen++
	gen := m.gen
	m.state = entity.StateConnecting
	m.credential = credential
	m.role = role
	m.authed = true
	m.store.Reset()

	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel
	m.mu.Unlock()

	go m.run(sessionCtx, gen, credential, role)
}

// Disconnect closes the channel and synchronously stops event processing.
func (m *channelManager) Disconnect() {
	m.mu.Lock()
	wasLive := m.state == entity.StateConnected || m.state == entity.StateReconnecting
	role := m.role
	m.teardownLocked()
	m.state = entity.StateDisconnected
	m.mu.Unlock()

	m.dispatcher.CancelActive()

	// Connectivity changes surface as a passive banner for admins only.
	if wasLive && role == entity.RoleAdmin {
		m.dispatcher.Dispatch(context.Background(), &entity.NotificationRequest{
			Title:    "連線已中斷",
			Message:  "即時訂單通知已停止",
			Severity: entity.SeverityInfo,
			Duration: 3 * time.Second,
		})
	}
}

// teardownLocked cancels the running session, if any. The generation bump
// makes any in-flight callback from the old session a no-op.
func (m *channelManager) teardownLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.hiddenTimer != nil {
		m.hiddenTimer.Stop()
		m.hiddenTimer = nil
	}
	m.gen++
}

// State reports the current connection state.
func (m *channelManager) State() entity.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// Orders returns a snapshot of the in-memory order collection.
func (m *channelManager) Orders() []*entity.Order {
	return m.store.Snapshot()
}

// HandleAuthStateChanged reacts to the in-process auth broadcast.
func (m *channelManager) HandleAuthStateChanged(ctx context.Context, state usecase.AuthState) {
	if state.IsAuthenticated && state.Credential != "" {
		m.Connect(ctx, state.Credential, state.Role)

		return
	}

	m.mu.Lock()
	m.authed = false
	m.credential = ""
	m.mu.Unlock()

	m.Disconnect()
}

// HandleVisibilityChanged applies the role hidden-disconnect policy and
// reconnects when the window becomes visible again.
func (m *channelManager) HandleVisibilityChanged(ctx context.Context, visible bool) {
	m.mu.Lock()
	if m.hiddenTimer != nil {
		m.hiddenTimer.Stop()
		m.hiddenTimer = nil
	}

	if !visible {
		policy := hiddenDisconnectPolicy[m.role]
		if m.authed && policy > 0 {
			m.hiddenTimer = time.AfterFunc(policy, m.Disconnect)
		}
		m.mu.Unlock()

		return
	}

	reconnect := m.authed &&
		(m.state == entity.StateDisconnected || m.state == entity.StateFailed)
	credential, role := m.credential, m.role
	m.mu.Unlock()

	if reconnect {
		m.Connect(ctx, credential, role)
	}
}

// run drives one session: dial, read, reconnect, until the context ends.
func (m *channelManager) run(ctx context.Context, gen int, credential string, role entity.Role) {
	transport, ok := m.dialWithRetry(ctx, gen, credential, role)
	if !ok {
		return
	}

	for {
		m.setState(gen, entity.StateConnected)
		m.logger.Info("realtime channel connected",
			slog.String("transport", transport.Name()),
			slog.String("role", role.String()))

		m.readLoop(ctx, gen, role, transport)

		if ctx.Err() != nil {
			return
		}

		// Transport dropped; retry under the bounded policy.
		m.setState(gen, entity.StateReconnecting)
		m.logger.Warn("realtime channel dropped, reconnecting")

		transport, ok = m.dialWithRetry(ctx, gen, credential, role)
		if !ok {
			return
		}
	}
}

// readLoop consumes one transport until it closes or the session ends.
func (m *channelManager) readLoop(ctx context.Context, gen int, role entity.Role, transport service.Transport) {
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			transport.Close()
		case <-watchDone:
		}
	}()
	defer func() {
		close(watchDone)
		transport.Close()
	}()

	for payload := range transport.Events() {
		m.handleEvent(ctx, gen, role, payload)
	}

	select {
	case err := <-transport.Errors():
		if err != nil && ctx.Err() == nil {
			m.logger.Warn("transport error", slog.Any("error", err))
		}
	default:
	}
}

// dialWithRetry attempts every transport mode per attempt, sleeping between
// attempts, until success or exhaustion. Exhaustion moves the state to
// Failed and raises the admin-only connectivity-lost alert exactly once.
func (m *channelManager) dialWithRetry(ctx context.Context, gen int, credential string, role entity.Role) (service.Transport, bool) {
	for attempt := 1; attempt <= m.cfg.ReconnectAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, false
		}

		for _, dialer := range m.dialers {
			dialCtx, cancel := context.WithTimeout(ctx, m.cfg.DialTimeout)
			transport, err := dialer.Dial(dialCtx, credential, role)
			cancel()
			if err == nil {
				return transport, true
			}

			m.logger.Warn("transport dial failed",
				slog.String("transport", dialer.Name()),
				slog.Int("attempt", attempt),
				slog.Any("error", err))
		}

		if attempt == m.cfg.ReconnectAttempts {
			break
		}

		delay := min(time.Duration(attempt)*m.cfg.ReconnectDelay, m.cfg.MaxReconnectDelay)
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(delay):
		}
	}

	if !m.setState(gen, entity.StateFailed) {
		return nil, false
	}

	m.logger.Error("realtime channel failed: retry attempts exhausted",
		slog.Int("attempts", m.cfg.ReconnectAttempts))

	if role == entity.RoleAdmin {
		m.dispatcher.Dispatch(context.WithoutCancel(ctx), &entity.NotificationRequest{
			Title:    "連線中斷",
			Message:  "無法連上即時通知服務，新訂單將不會即時顯示",
			Severity: entity.SeverityWarning,
			Duration: 5 * time.Second,
		})
	}

	return nil, false
}

// handleEvent applies one inbound payload. Malformed payloads are dropped
// and logged; they never affect the connection state or later events.
func (m *channelManager) handleEvent(ctx context.Context, gen int, role entity.Role, payload []byte) {
	m.mu.Lock()
	live := gen == m.gen && m.state == entity.StateConnected
	m.mu.Unlock()
	if !live {
		return
	}

	event, err := entity.ParseOrderEvent(payload)
	if err != nil {
		m.logger.Warn("dropping malformed event", slog.Any("error", err))

		return
	}

	m.store.Apply(event)

	if req := buildNotificationRequest(role, event); req != nil {
		m.dispatcher.Dispatch(ctx, req)
	}
}

// setState updates the state if the session generation still matches.
func (m *channelManager) setState(gen int, state entity.ConnectionState) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		return false
	}
	m.state = state

	return true
}

// statusLabels render lifecycle statuses for toast messages.
var statusLabels = map[entity.OrderStatus]string{
	entity.OrderStatusPending:   "待確認",
	entity.OrderStatusConfirmed: "已確認",
	entity.OrderStatusPreparing: "準備中",
	entity.OrderStatusOnTheWay:  "配送中",
	entity.OrderStatusDelivered: "已送達",
	entity.OrderStatusCancelled: "已取消",
}

func statusLabel(status entity.OrderStatus) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}

	return status.String()
}

// buildNotificationRequest consults the routing matrix and renders the
// notification content for one event. A nil return means the event is not
// surfaced for this role.
func buildNotificationRequest(role entity.Role, event *entity.OrderEvent) *entity.NotificationRequest {
	channels, duration, severity, ok := entity.RouteAlert(role, event.Kind)
	if !ok {
		return nil
	}

	orderID := event.TargetOrderID()
	req := &entity.NotificationRequest{
		Severity: severity,
		Channels: channels,
		Duration: duration,
		OrderID:  orderID,
	}

	switch event.Kind {
	case entity.EventOrderCreated:
		req.Title = "🔔 新訂單"
		if event.Order != nil && event.Order.CustomerName != "" {
			req.Message = fmt.Sprintf("%s 的新訂單，金額 %s",
				event.Order.CustomerName, formatPrice(event.Order.TotalPrice))
		} else {
			req.Message = fmt.Sprintf("收到新訂單 %s", orderID)
		}
	case entity.EventOrderStatusUpdated:
		req.Title = "訂單狀態更新"
		req.Message = fmt.Sprintf("訂單 %s 狀態更新為%s", orderID, statusLabel(event.Status))
	case entity.EventOrderUpdated:
		req.Title = "訂單已更新"
		req.Message = fmt.Sprintf("訂單 %s 內容已更新", orderID)
	case entity.EventOrderCancelled:
		req.Title = "訂單已取消"
		req.Message = fmt.Sprintf("訂單 %s 已取消", orderID)
	case entity.EventDeliveryAssigned:
		if role == entity.RoleCourier {
			req.Title = "新配送任務"
			req.Message = fmt.Sprintf("訂單 %s 已指派給你%s", orderID, tripHint(event.Order))
		} else {
			req.Title = "配送員已接單"
			req.Message = fmt.Sprintf("訂單 %s 的配送員已出發", orderID)
		}
	case entity.EventDeliveryStatusUpdated:
		req.Title = "配送進度更新"
		req.Message = fmt.Sprintf("訂單 %s 配送狀態：%s", orderID, statusLabel(event.Status))
	}

	return req
}

// tripHint renders the pickup-to-dropoff distance for courier assignment
// alerts when the event carries both coordinates.
func tripHint(order *entity.Order) string {
	if order == nil {
		return ""
	}
	if order.PickupLat == 0 && order.PickupLng == 0 {
		return ""
	}
	if order.DropoffLat == 0 && order.DropoffLng == 0 {
		return ""
	}

	meters := util.DistanceMeters(order.PickupLat, order.PickupLng, order.DropoffLat, order.DropoffLng)
	if meters <= 0 {
		return ""
	}

	return fmt.Sprintf("，路程約 %s", util.FormatDistance(meters))
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}
