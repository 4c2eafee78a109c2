package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"pulse/internal/domain/constants"
	"pulse/internal/domain/entity"
	"pulse/internal/domain/service"
	"pulse/internal/errors"
)

// pollResponse is the gateway's long-poll batch: events past the cursor and
// the new cursor to resume from.
type pollResponse struct {
	Events []json.RawMessage `json:"events"`
	Cursor uint64            `json:"cursor"`
}

// PollDialer opens long-poll transports against the gateway poll endpoint.
// It is the fallback when the websocket handshake cannot get through.
type PollDialer struct {
	baseURL     string
	pollTimeout time.Duration
	client      *http.Client
	logger      *slog.Logger
}

// NewPollDialer creates the long-poll dialer. pollTimeout is how long one
// poll request is allowed to hang waiting for events.
func NewPollDialer(baseURL string, pollTimeout time.Duration, logger *slog.Logger) *PollDialer {
	return &PollDialer{
		baseURL:     baseURL,
		pollTimeout: pollTimeout,
		// The request timeout leaves headroom over the server-side hang.
		client: &http.Client{Timeout: pollTimeout + 10*time.Second},
		logger: logger,
	}
}

var _ service.TransportDialer = (*PollDialer)(nil)

func (d *PollDialer) Name() string {
	return constants.TransportPoll
}

// Dial verifies the endpoint accepts the credential with an immediate
// zero-wait poll, then starts the poll loop from the returned cursor.
func (d *PollDialer) Dial(ctx context.Context, credential string, role entity.Role) (service.Transport, error) {
	endpoint, err := d.pollURL()
	if err != nil {
		return nil, err
	}

	first, err := d.poll(ctx, endpoint, credential, role, 0, 0)
	if err != nil {
		return nil, errors.Wrap(err, "poll handshake")
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t := &pollTransport{
		dialer:     d,
		endpoint:   endpoint,
		credential: credential,
		role:       role,
		cursor:     first.Cursor,
		events:     make(chan []byte, 32),
		errs:       make(chan error, 1),
		cancel:     cancel,
	}
	go t.loop(loopCtx, first.Events)

	return t, nil
}

func (d *PollDialer) pollURL() (string, error) {
	endpoint, err := url.JoinPath(d.baseURL, "realtime", "poll")
	if err != nil {
		return "", errors.Wrap(err, "build poll endpoint")
	}
	// The poll endpoint is plain HTTP even when the base is a ws scheme.
	endpoint = strings.Replace(endpoint, "ws://", "http://", 1)
	endpoint = strings.Replace(endpoint, "wss://", "https://", 1)

	return endpoint, nil
}

// poll issues one long-poll request. wait is the server-side hang budget;
// zero asks for an immediate response.
func (d *PollDialer) poll(ctx context.Context, endpoint, credential string, role entity.Role, cursor uint64, wait time.Duration) (*pollResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build poll request")
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set(roleHeader, role.String())

	q := req.URL.Query()
	q.Set("cursor", strconv.FormatUint(cursor, 10))
	q.Set("wait", strconv.FormatInt(wait.Milliseconds(), 10))
	req.URL.RawQuery = q.Encode()

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "poll request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return nil, errors.Errorf("poll returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "decode poll response")
	}

	return &out, nil
}

type pollTransport struct {
	dialer     *PollDialer
	endpoint   string
	credential string
	role       entity.Role
	cursor     uint64
	events     chan []byte
	errs       chan error
	cancel     context.CancelFunc
	closeOnce  sync.Once
}

func (t *pollTransport) Name() string {
	return constants.TransportPoll
}

func (t *pollTransport) Events() <-chan []byte {
	return t.events
}

func (t *pollTransport) Errors() <-chan error {
	return t.errs
}

func (t *pollTransport) Close() error {
	t.closeOnce.Do(t.cancel)

	return nil
}

// loop keeps one poll in flight at a time. Consecutive failures end the
// transport; the channel manager's retry policy takes over from there.
func (t *pollTransport) loop(ctx context.Context, initial []json.RawMessage) {
	defer close(t.events)

	if !t.deliver(ctx, initial) {
		return
	}

	const maxConsecutiveFailures = 3
	failures := 0

	for {
		if ctx.Err() != nil {
			return
		}

		resp, err := t.dialer.poll(ctx, t.endpoint, t.credential, t.role, t.cursor, t.dialer.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			failures++
			t.dialer.logger.Debug("poll cycle failed",
				slog.Int("consecutive", failures), slog.Any("error", err))
			if failures >= maxConsecutiveFailures {
				t.errs <- errors.Wrap(err, "poll loop")

				return
			}

			continue
		}

		failures = 0
		t.cursor = resp.Cursor
		if !t.deliver(ctx, resp.Events) {
			return
		}
	}
}

func (t *pollTransport) deliver(ctx context.Context, batch []json.RawMessage) bool {
	for _, raw := range batch {
		select {
		case t.events <- []byte(raw):
		case <-ctx.Done():
			return false
		}
	}

	return true
}
