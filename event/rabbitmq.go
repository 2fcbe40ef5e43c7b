package event

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"direct-messenger/config"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Data is one event travelling between a queue and its listener.
type Data struct {
	Action string
	Data   []byte
	Out    OutData
}

// OutData tells a listener whether its replies are sent and journaled.
type OutData struct {
	Send bool
	Log  bool
}

type Subscription struct {
	Queue   string
	Channel chan Data
}

type LogEntry struct {
	Time    int64  `json:"time"`
	Service string `json:"service"`
	Action  string `json:"action"`
	Data    string `json:"data"`
}

const ActionHeader string = "x-action"
const InLogFile string = "log/in.log"
const OutLogFile string = "log/out.log"

const (
	QueueApi        = "api"
	QueueBackoffice = "backoffice"
)

// EVENT_MODE values.
const (
	ModeDisable   = "DISABLE"
	ModeInSendLog = "IN_SEND_LOG"
	ModeInSend    = "IN_SEND"
	ModeIn        = "IN"
	ModeOut       = "OUT"
)

var ErrUnknownQueue = errors.New("event: queue has no listener")

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Bus publishes domain events to RabbitMQ and journals traffic for replay.
type Bus struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	pub  publisher

	mode      string
	target    string
	listeners map[string]chan Data

	mu     sync.Mutex
	in     io.Writer
	out    io.Writer
	closer []io.Closer
}

// Connect dials RabbitMQ, declares queues and opens the journal files.
func Connect(queues []string) (*Bus, error) {
	conn, err := amqp.Dial(fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		config.Config("RABBITMQ_USER"),
		config.Config("RABBITMQ_PASSWORD"),
		config.Config("RABBITMQ_HOST"),
		config.Config("RABBITMQ_PORT"),
	))
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	log.Printf("connection opened to RabbitMQ server")

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open RabbitMQ channel: %w", err)
	}
	log.Printf("opened a RabbitMQ channel")

	for _, name := range queues {
		if _, err := ch.QueueDeclare(
			name,  // name
			false, // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("declare queue %s: %w", name, err)
		}
		log.Printf("success declare a RabbitMQ queue: %s", name)
	}

	if err := os.MkdirAll(filepath.Dir(InLogFile), 0o755); err != nil {
		return nil, fmt.Errorf("create event log dir: %w", err)
	}
	in, err := os.OpenFile(InLogFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("open in log: %w", err)
	}
	out, err := os.OpenFile(OutLogFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		in.Close()
		return nil, fmt.Errorf("open out log: %w", err)
	}

	b := newBus(ch, config.Config("EVENT_MODE"), in, out)
	b.conn = conn
	b.ch = ch
	b.closer = []io.Closer{in, out}
	return b, nil
}

func newBus(pub publisher, mode string, in, out io.Writer) *Bus {
	return &Bus{
		pub:       pub,
		mode:      mode,
		target:    QueueBackoffice,
		listeners: make(map[string]chan Data),
		in:        in,
		out:       out,
	}
}

func (b *Bus) journaling() bool {
	return b.mode != ModeDisable
}

// Subscribe feeds each queue's deliveries into its listener channel.
func (b *Bus) Subscribe(subs []Subscription) error {
	for _, sub := range subs {
		b.listeners[sub.Queue] = sub.Channel
		if b.ch == nil {
			continue
		}

		msgs, err := b.ch.Consume(
			sub.Queue, // queue
			"",        // consumer
			false,     // auto-ack
			false,     // exclusive
			false,     // no-local
			false,     // no-wait
			nil,       // args
		)
		if err != nil {
			return fmt.Errorf("consume %s: %w", sub.Queue, err)
		}
		log.Printf("success subscribe to RabbitMQ [%s] queue", sub.Queue)

		go func(sub Subscription) {
			for msg := range msgs {
				b.deliver(sub, msg.Headers, msg.Body)
				if err := msg.Ack(false); err != nil {
					log.Printf("ack %s message: %v", sub.Queue, err)
				}
			}
		}(sub)
	}
	return nil
}

func (b *Bus) deliver(sub Subscription, headers amqp.Table, body []byte) {
	action, _ := headers[ActionHeader].(string)
	if action == "" {
		log.Printf("drop %s message without %s header", sub.Queue, ActionHeader)
		return
	}

	if b.journaling() {
		b.write(b.in, LogEntry{
			Time:    time.Now().UnixMicro(),
			Service: sub.Queue,
			Action:  action,
			Data:    string(body),
		})
	}

	sub.Channel <- Data{
		Action: action,
		Data:   body,
		Out:    OutData{Send: true, Log: true},
	}
}

// Emit publishes data to a queue with the action header.
func (b *Bus) Emit(service, action string, data []byte, journal bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := b.pub.PublishWithContext(
		ctx,
		"",      // exchange
		service, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Headers: amqp.Table{
				ActionHeader: action,
			},
			Body: data,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s to %s: %w", action, service, err)
	}

	if journal && b.journaling() {
		b.write(b.out, LogEntry{
			Time:    time.Now().UnixMicro(),
			Service: service,
			Action:  action,
			Data:    string(data),
		})
	}
	return nil
}

// Publish mirrors a realtime domain event to the backoffice queue. Failures are logged only.
func (b *Bus) Publish(action string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("encode %s event: %v", action, err)
		return
	}
	if err := b.Emit(b.target, action, data, true); err != nil {
		log.Printf("%v", err)
	}
}

func (b *Bus) write(w io.Writer, entry LogEntry) {
	if w == nil {
		return
	}
	line, _ := json.Marshal(entry)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := w.Write(append(line, '\n')); err != nil {
		log.Printf("write event log: %v", err)
	}
}

// Replay re-runs journaled traffic according to EVENT_MODE. Listeners must already be running.
func (b *Bus) Replay() error {
	switch b.mode {
	case ModeInSendLog:
		return b.replayFile(InLogFile, b.ReplayIn, OutData{Send: true, Log: true})
	case ModeInSend:
		return b.replayFile(InLogFile, b.ReplayIn, OutData{Send: true, Log: false})
	case ModeIn:
		return b.replayFile(InLogFile, b.ReplayIn, OutData{Send: false, Log: false})
	case ModeOut:
		return b.replayFile(OutLogFile, func(r io.Reader, _ OutData) error { return b.ReplayOut(r) }, OutData{})
	}
	return nil
}

func (b *Bus) replayFile(name string, replay func(io.Reader, OutData) error, out OutData) error {
	f, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()
	return replay(f, out)
}

// ReplayIn hands every journaled inbound event to its queue's listener.
func (b *Bus) ReplayIn(r io.Reader, out OutData) error {
	return scan(r, func(entry LogEntry) error {
		ch, ok := b.listeners[entry.Service]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownQueue, entry.Service)
		}
		ch <- Data{Action: entry.Action, Data: []byte(entry.Data), Out: out}
		return nil
	})
}

// ReplayOut republishes every journaled outbound event without journaling it again.
func (b *Bus) ReplayOut(r io.Reader) error {
	return scan(r, func(entry LogEntry) error {
		return b.Emit(entry.Service, entry.Action, []byte(entry.Data), false)
	})
}

func scan(r io.Reader, fn func(LogEntry) error) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		var entry LogEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return fmt.Errorf("decode event log line: %w", err)
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (b *Bus) Close() error {
	var errs []error
	if b.ch != nil {
		errs = append(errs, b.ch.Close())
	}
	if b.conn != nil {
		errs = append(errs, b.conn.Close())
	}
	for _, c := range b.closer {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
