package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// Producer публикует события в Kafka.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer создаёт асинхронный producer для топика.
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Compression:  kafka.Snappy,
		BatchTimeout: 10 * time.Millisecond,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.WithError(err).WithField("count", len(messages)).Error("Kafka: сообщения не доставлены")
			}
		},
	}

	log.Infof("Kafka producer initialized for topic: %s", topic)
	return &Producer{writer: writer}
}

// Publish сериализует событие в JSON и отправляет с ключом user_<idnum>.
func (p *Producer) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("user_%d", e.IDNum)),
		Value: body,
		Time:  e.Time,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}

	log.WithFields(log.Fields{"type": e.Type, "idnum": e.IDNum}).Debug("Событие отправлено в Kafka")
	return nil
}

// Close закрывает writer, дожидаясь отправки буфера.
func (p *Producer) Close() error {
	if p.writer != nil {
		log.Info("Closing Kafka producer")
		return p.writer.Close()
	}
	return nil
}
