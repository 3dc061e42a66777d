package exchange

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WSUserEventStream is a reference user-event subscription session backed
// by a raw websocket connection, grounded on the teacher's
// internal/binance/user_data_stream.go reconnect/dispatch shape, reworked
// onto the spec's generic {channel, data} envelope.
type WSUserEventStream struct {
	mu         sync.Mutex
	conn       *websocket.Conn
	stop       chan struct{}
	logger     zerolog.Logger
	reconnects int
}

// rawEnvelope mirrors the wire shape of spec §6's subscription messages.
type rawEnvelope struct {
	Channel string                 `json:"channel"`
	Data    map[string]interface{} `json:"data"`
}

// DialUserEventStream connects to url and dispatches decoded events to
// callback until Close is called or the connection fails permanently.
func DialUserEventStream(url string, logger zerolog.Logger, callback func(UserEvent)) (*WSUserEventStream, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	s := &WSUserEventStream{conn: conn, stop: make(chan struct{}), logger: logger}
	go s.readLoop(url, callback)
	return s, nil
}

func (s *WSUserEventStream) readLoop(url string, callback func(UserEvent)) {
	for {
		select {
		case <-s.stop:
			return
		default:
		}

		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			s.logger.Warn().Err(err).Msg("user event stream read error, reconnecting")
			if !s.reconnect(url) {
				return
			}
			continue
		}

		var env rawEnvelope
		if err := json.Unmarshal(msg, &env); err != nil {
			s.logger.Warn().Err(err).Msg("malformed user event payload")
			continue
		}
		callback(UserEvent{Channel: env.Channel, Data: env.Data})
	}
}

func (s *WSUserEventStream) reconnect(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for attempt := 0; attempt < 5; attempt++ {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			s.conn = conn
			s.reconnects++
			return true
		}
		time.Sleep(time.Duration(1<<uint(attempt)) * time.Second)
	}
	return false
}

// Close implements Session.
func (s *WSUserEventStream) Close() error {
	close(s.stop)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

var _ Session = (*WSUserEventStream)(nil)
