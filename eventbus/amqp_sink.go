package eventbus

import (
	"encoding/json"
	"errors"
	"net/url"
	"time"

	"github.com/streadway/amqp"
)

// session timings, adapted from the teacher's amqp.go Session.
const (
	reconnectDelay = 5 * time.Second
	reInitDelay    = 2 * time.Second
)

var (
	errNotConnected = errors.New("eventbus: not connected to a server")
	errShutdown     = errors.New("eventbus: sink is shutting down")
)

// AMQPSink publishes Events to a RabbitMQ exchange, adapted from the
// teacher's amqp.go Session: a self-healing connection/channel pair that
// reconnects on close notifications, republished here as a Sink instead of
// a raw byte-queue drainer.
type AMQPSink struct {
	url      url.URL
	exchange string

	connection *amqp.Connection
	channel    *amqp.Channel
	done       chan struct{}

	notifyConnClose chan *amqp.Error
	notifyChanClose chan *amqp.Error

	isReady bool
}

// NewAMQPSink dials rawURL and begins the reconnect-on-failure loop in the
// background, the same pattern as the teacher's Session.New/handleReconnect.
func NewAMQPSink(rawURL, exchange string) (*AMQPSink, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	s := &AMQPSink{
		url:      *u,
		exchange: exchange,
		done:     make(chan struct{}),
	}
	go s.handleReconnect()
	return s, nil
}

func (s *AMQPSink) handleReconnect() {
	for {
		s.isReady = false
		log.Debugln("eventbus: attempting AMQP connection")

		conn, err := s.connect()
		if err != nil {
			log.Warnln("eventbus: AMQP connect failed, retrying:", err)
			select {
			case <-s.done:
				return
			case <-time.After(reconnectDelay):
			}
			continue
		}

		if s.handleReInit(conn) {
			return
		}
	}
}

func (s *AMQPSink) connect() (*amqp.Connection, error) {
	conn, err := amqp.Dial(s.url.String())
	if err != nil {
		return nil, err
	}
	s.connection = conn
	s.notifyConnClose = make(chan *amqp.Error)
	conn.NotifyClose(s.notifyConnClose)
	return conn, nil
}

func (s *AMQPSink) handleReInit(conn *amqp.Connection) bool {
	for {
		s.isReady = false
		if err := s.init(conn); err != nil {
			log.Warnln("eventbus: AMQP channel init failed, retrying:", err)
			select {
			case <-s.done:
				return true
			case <-time.After(reInitDelay):
			}
			continue
		}

		select {
		case <-s.done:
			return true
		case err := <-s.notifyConnClose:
			log.Warnln("eventbus: AMQP connection closed, reconnecting:", err)
			return false
		case err := <-s.notifyChanClose:
			log.Warnln("eventbus: AMQP channel closed, re-initialising:", err)
		}
	}
}

func (s *AMQPSink) init(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	if err := ch.Confirm(false); err != nil {
		return err
	}

	s.channel = ch
	s.notifyChanClose = make(chan *amqp.Error)
	ch.NotifyClose(s.notifyChanClose)
	s.isReady = true
	return nil
}

// Publish encodes ev as JSON and publishes it to the configured exchange.
func (s *AMQPSink) Publish(ev Event) error {
	if !s.isReady {
		return errNotConnected
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.channel.Publish(
		s.exchange,
		"",
		false,
		false,
		amqp.Publishing{ContentType: "application/json", Body: body},
	)
}

// Close shuts the channel and connection down and stops the reconnect loop.
func (s *AMQPSink) Close() error {
	select {
	case <-s.done:
		return errShutdown
	default:
		close(s.done)
	}
	if s.channel != nil {
		s.channel.Close()
	}
	if s.connection != nil {
		return s.connection.Close()
	}
	return nil
}
