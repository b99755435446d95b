package rabbitmq

import (
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	_defaultConnAttempts = 10
	_defaultConnTimeout  = time.Second
	_defaultExchangeKind = "topic"
)

// RabbitMQ holds one connection and a confirm-mode channel bound to a durable exchange.
type RabbitMQ struct {
	connAttempts int
	connTimeout  time.Duration
	exchangeKind string

	Exchange string
	Conn     *amqp.Connection
	Channel  *amqp.Channel
}

func New(url, exchange string, opts ...Option) (*RabbitMQ, error) {
	r := &RabbitMQ{
		connAttempts: _defaultConnAttempts,
		connTimeout:  _defaultConnTimeout,
		exchangeKind: _defaultExchangeKind,
		Exchange:     exchange,
	}

	for _, opt := range opts {
		opt(r)
	}

	var err error
	for r.connAttempts > 0 {
		r.Conn, err = amqp.Dial(url)
		if err == nil {
			break
		}

		log.Printf("RabbitMQ is trying to connect, attempts left: %d", r.connAttempts)

		time.Sleep(r.connTimeout)

		r.connAttempts--
	}

	if err != nil {
		return nil, fmt.Errorf("rabbitmq - New - connAttempts == 0: %w", err)
	}

	r.Channel, err = r.Conn.Channel()
	if err != nil {
		r.Conn.Close()

		return nil, fmt.Errorf("rabbitmq - New - r.Conn.Channel: %w", err)
	}

	err = r.Channel.ExchangeDeclare(r.Exchange, r.exchangeKind, true, false, false, false, nil)
	if err != nil {
		r.Conn.Close()

		return nil, fmt.Errorf("rabbitmq - New - r.Channel.ExchangeDeclare: %w", err)
	}

	err = r.Channel.Confirm(false)
	if err != nil {
		r.Conn.Close()

		return nil, fmt.Errorf("rabbitmq - New - r.Channel.Confirm: %w", err)
	}

	return r, nil
}

func (r *RabbitMQ) Close() error {
	if r.Channel != nil {
		_ = r.Channel.Close()
	}

	if r.Conn != nil {
		return r.Conn.Close()
	}

	return nil
}
