package eventbus

import (
	"encoding/json"
	"net/url"
	"sync"
	"time"

	stomp "github.com/go-stomp/stomp/v3"
)

// StompSink publishes Events over STOMP, adapted from the teacher's
// stomp.go StompSession: blocking connect-with-retry, and a publish that
// reconnects once and retries on failure rather than looping forever on
// the caller's goroutine.
type StompSink struct {
	mu       sync.Mutex
	username string
	password string
	url      url.URL
	host     string
	topic    string
	conn     *stomp.Conn
}

// NewStompSink dials rawURL and connects immediately (blocking), the same
// eager-connect behaviour as the teacher's NewStompConnection.
func NewStompSink(rawURL, host, topic, username, password string) (*StompSink, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	s := &StompSink{
		username: username,
		password: password,
		url:      *u,
		host:     host,
		topic:    topic,
	}
	if err := s.reconnect(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *StompSink) reconnect() error {
	if s.conn != nil {
		s.conn.Disconnect()
	}

	var lastErr error
	for attempt := 0; attempt < 5; attempt++ {
		conn, err := stomp.Dial("tcp", s.url.Host,
			stomp.ConnOpt.Login(s.username, s.password),
			stomp.ConnOpt.Host(s.host))
		if err == nil {
			s.conn = conn
			return nil
		}
		lastErr = err
		log.Warnln("eventbus: STOMP connect failed, retrying:", err)
		time.Sleep(reconnectDelay)
	}
	return lastErr
}

// Publish sends ev as a JSON body to the configured topic, reconnecting
// once on a send failure before giving up.
func (s *StompSink) Publish(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	err = s.conn.Send(s.topic, "application/json", body, stomp.SendOpt.Receipt)
	if err != nil {
		log.Warnln("eventbus: STOMP publish failed, reconnecting:", err)
		if rerr := s.reconnect(); rerr != nil {
			return rerr
		}
		return s.conn.Send(s.topic, "application/json", body, stomp.SendOpt.Receipt)
	}
	return nil
}

// Close disconnects the STOMP session.
func (s *StompSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.Disconnect()
}
