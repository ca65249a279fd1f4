package featurestream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"RegimePull/internal/domain/models"
	drepo "RegimePull/internal/domain/repository"
	"RegimePull/internal/services/features"
	"RegimePull/pkg/util"

	"github.com/gorilla/websocket"
)

// Client implements a FeatureStream backed by a feature-service WebSocket.
type Client struct {
	token          string
	websocketURL   string
	series         []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new WebSocket FeatureStream.
func New(token, websocketURL string, series []string, reconnectDelay, pingInterval time.Duration) drepo.FeatureStream {
	return &Client{
		token:          token,
		websocketURL:   websocketURL,
		series:         series,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := c.websocketURL
	if c.token != "" {
		u = fmt.Sprintf("%s?token=%s", c.websocketURL, c.token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("featurestream connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("featurestream: connected")
	return nil
}

// Subscribe subscribes to configured series.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("featurestream not connected")
	}
	for _, s := range c.series {
		msg := map[string]string{"type": "subscribe", "series": s}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
		log.Printf("featurestream: subscribed %s", s)
	}
	return nil
}

type fsObservation struct {
	Series   string         `json:"series"`
	Week     string         `json:"week"`
	Features map[string]any `json:"features"`
}

type fsMessage struct {
	Type string          `json:"type"`
	Data []fsObservation `json:"data"`
}

// Read streams feature observations and errors. Feature values are coerced
// at the boundary; non-numeric values are dropped from the map here, so a
// garbage feature degrades to a missing one downstream.
func (c *Client) Read(ctx context.Context) (<-chan *models.FeatureObservation, <-chan error) {
	observations := make(chan *models.FeatureObservation, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(observations)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("featurestream conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("featurestream read: %w", err)
					return
				}
				var m fsMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-observation frames
					continue
				}
				if m.Type != "observation" {
					continue
				}
				for _, d := range m.Data {
					week, ok := util.ParseTime(d.Week)
					if !ok {
						continue
					}
					obs := &models.FeatureObservation{
						Series: d.Series,
						Week:   util.TruncateWeek(week),
						Values: features.Coerce(d.Features),
					}
					select {
					case observations <- obs:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return observations, errs
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
