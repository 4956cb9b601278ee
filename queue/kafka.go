package queue

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
)

// KafkaQueue externalizes the task queue for multi-instance deployments.
// Submit produces to the topic; workers join a consumer group, so each task
// is still handed to exactly one worker.
type KafkaQueue struct {
	producer sarama.SyncProducer
	consumer sarama.ConsumerGroup
	topic    string
}

func NewKafkaQueue(brokers []string, topic, groupID string) (*KafkaQueue, error) {
	producerConfig := sarama.NewConfig()
	producerConfig.Producer.RequiredAcks = sarama.WaitForAll
	producerConfig.Producer.Retry.Max = 5
	producerConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, producerConfig)
	if err != nil {
		return nil, err
	}

	consumerConfig := sarama.NewConfig()
	consumerConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	consumerConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

	consumer, err := sarama.NewConsumerGroup(brokers, groupID, consumerConfig)
	if err != nil {
		producer.Close()
		return nil, err
	}

	return &KafkaQueue{producer: producer, consumer: consumer, topic: topic}, nil
}

func (q *KafkaQueue) Enqueue(ctx context.Context, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	_, _, err = q.producer.SendMessage(&sarama.ProducerMessage{
		Topic: q.topic,
		Key:   sarama.StringEncoder(msg.TaskID),
		Value: sarama.ByteEncoder(data),
	})
	return err
}

func (q *KafkaQueue) Consume(ctx context.Context, handler Handler) error {
	h := &consumerHandler{fn: handler, ctx: ctx}
	for {
		if err := q.consumer.Consume(ctx, []string{q.topic}, h); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (q *KafkaQueue) Close() error {
	if err := q.producer.Close(); err != nil {
		q.consumer.Close()
		return err
	}
	return q.consumer.Close()
}

type consumerHandler struct {
	fn  Handler
	ctx context.Context
}

func (h *consumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *consumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		var taskMsg Message
		if err := json.Unmarshal(msg.Value, &taskMsg); err != nil {
			continue
		}
		h.fn(h.ctx, &taskMsg)
		session.MarkMessage(msg, "")
	}
	return nil
}
