// Package bus connects the assistant to a websocket hub: finished turns are
// published there and the hub may send commands back.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	KindTurn    = "turn"
	KindTrigger = "trigger"
	KindStop    = "stop"
)

type Message struct {
	From    string     `json:"from"`
	To      string     `json:"to,omitempty"`
	Kind    string     `json:"kind"`
	Content string     `json:"content,omitempty"`
	Turn    *TurnEvent `json:"turn,omitempty"`
}

type TurnEvent struct {
	ID         string `json:"id"`
	Language   string `json:"language"`
	UserText   string `json:"user_text"`
	Reply      string `json:"reply"`
	WebQuery   string `json:"web_query,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

type Bus struct {
	name string
	url  string

	mu   sync.Mutex // guards conn and serializes writes
	conn *websocket.Conn
}

func Dial(ctx context.Context, name, url string) (*Bus, error) {
	b := &Bus{name: name, url: url}
	if _, err := b.connect(ctx); err != nil {
		return nil, err
	}
	log.Info("Connected to bus", "url", url)
	return b, nil
}

func (b *Bus) connect(ctx context.Context) (*websocket.Conn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil {
		return b.conn, nil
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial bus: %w", err)
	}
	b.conn = conn
	return conn, nil
}

func (b *Bus) drop(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == conn {
		b.conn.Close()
		b.conn = nil
	}
}

// PublishTurn sends a turn event. A broken connection is redialed once.
func (b *Bus) PublishTurn(ctx context.Context, ev TurnEvent) error {
	msg := Message{From: b.name, Kind: KindTurn, Content: ev.Reply, Turn: &ev}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	for attempt := 0; ; attempt++ {
		conn, err := b.connect(ctx)
		if err != nil {
			return err
		}

		b.mu.Lock()
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		err = conn.WriteMessage(websocket.TextMessage, data)
		b.mu.Unlock()
		if err == nil {
			return nil
		}

		b.drop(conn)
		if attempt > 0 {
			return fmt.Errorf("publish turn: %w", err)
		}
		log.Warn("Bus write failed, reconnecting", "err", err)
	}
}

// Listen delivers messages addressed to this client (or to nobody in
// particular) until ctx is done. Lost connections are redialed after a pause.
func (b *Bus) Listen(ctx context.Context, handle func(Message)) {
	for ctx.Err() == nil {
		conn, err := b.connect(ctx)
		if err != nil {
			log.Warn("Bus unavailable", "err", err)
			sleep(ctx, 3*time.Second)
			continue
		}

		stop := context.AfterFunc(ctx, func() { conn.Close() })
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				switch {
				case ctx.Err() != nil:
				case closed(err):
					log.Info("Bus closed the connection", "err", err)
				default:
					log.Warn("Bus read failed", "err", err)
				}
				break
			}

			var m Message
			if err := json.Unmarshal(data, &m); err != nil {
				log.Warn("Bad bus message", "err", err)
				continue
			}
			if m.To != "" && m.To != b.name {
				continue
			}
			handle(m)
		}
		stop()
		b.drop(conn)
	}
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	return err
}

func closed(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
