package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/ariefcatur/go-realtime-points/internal/obs"
	"github.com/segmentio/kafka-go"
)

type Producer struct {
	w         *kafka.Writer
	inbox     chan kafka.Message
	stop      chan struct{}
	closeCh   chan struct{}
	closeOnce sync.Once
}

func NewProducer(brokers []string, topic string, buf int) *Producer {
	if buf <= 0 {
		buf = 1
	}
	log := obs.Component("kafka-producer").WithField("topic", topic)
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true, // fire-and-forget; failures surface in Completion
			Completion: func(msgs []kafka.Message, err error) {
				if err != nil {
					log.WithError(err).WithField("count", len(msgs)).Error("kafka write failed")
				}
			},
		},
		inbox:   make(chan kafka.Message, buf),
		stop:    make(chan struct{}),
		closeCh: make(chan struct{}),
	}
}

// Start runs the write loop until ctx is done or Close is called, then flushes what is queued.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for {
			select {
			case <-ctx.Done():
				p.flush()
				return
			case <-p.stop:
				p.flush()
				return
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

// Publish queues a message without blocking. It returns false when the inbox is full or the
// producer is closed; the message is dropped.
func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) bool {
	select {
	case <-p.stop:
		return false
	default:
	}
	select {
	case p.inbox <- kafka.Message{Key: key, Value: value, Time: time.Now(), Headers: headers}:
		return true
	default:
		return false
	}
}

// Close stops accepting messages; safe to call more than once.
func (p *Producer) Close() { p.closeOnce.Do(func() { close(p.stop) }) }

// WaitClosed blocks until the loop has flushed and closed the writer.
func (p *Producer) WaitClosed() { <-p.closeCh }

func (p *Producer) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		obs.Component("kafka-producer").WithError(err).Error("enqueue failed")
	}
}

func (p *Producer) flush() {
	for {
		select {
		case m := <-p.inbox:
			p.write(m)
		default:
			_ = p.w.Close()
			return
		}
	}
}
