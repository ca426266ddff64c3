package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"main/internal/application/service/settlement"
	"main/internal/config"
	"main/internal/domain/entity/orders"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Consumer subscribes to the settlement update exchange and forwards events
// into the settlement service. Delivery is at-least-once: an event is acked
// only after the service applied every store write and ledger call; handler
// errors nack without requeue so the broker dead-letters the message.
type Consumer struct {
	cfg     config.RabbitMQConfig
	service *settlement.Service
	logger  *logrus.Logger

	conn    *amqp.Connection
	channel *amqp.Channel
	wg      sync.WaitGroup
}

func NewConsumer(cfg config.RabbitMQConfig, service *settlement.Service, logger *logrus.Logger) (*Consumer, error) {
	if cfg.URL == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	return &Consumer{
		cfg:     cfg,
		service: service,
		logger:  logger,
	}, nil
}

// Start establishes the AMQP connection, declares the update topology and
// begins consuming settlement events.
func (c *Consumer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("connect to rabbitmq: %w", err)
	}
	c.conn = conn

	ch, err := conn.Channel()
	if err != nil {
		c.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	c.channel = ch

	if err := ch.ExchangeDeclare(c.cfg.UpdateExchange, "direct", false, false, false, false, nil); err != nil {
		c.Close()
		return fmt.Errorf("declare exchange %s: %w", c.cfg.UpdateExchange, err)
	}
	queue, err := ch.QueueDeclare(c.cfg.UpdateQueue, false, false, false, false, nil)
	if err != nil {
		c.Close()
		return fmt.Errorf("declare queue %s: %w", c.cfg.UpdateQueue, err)
	}
	for _, routingKey := range []string{orders.EventSaleUpdate, orders.EventBuyCompleted, orders.EventCancelled} {
		if err := ch.QueueBind(queue.Name, routingKey, c.cfg.UpdateExchange, false, nil); err != nil {
			c.Close()
			return fmt.Errorf("bind queue %s to %s: %w", queue.Name, routingKey, err)
		}
	}

	prefetch := c.cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		c.Close()
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(queue.Name, "", false, false, false, false, nil)
	if err != nil {
		c.Close()
		return fmt.Errorf("start consume: %w", err)
	}

	c.wg.Add(1)
	go c.consumeLoop(ctx, deliveries)

	c.logger.Infof("settlement consumer started: exchange=%s queue=%s", c.cfg.UpdateExchange, queue.Name)
	return nil
}

// Close stops consumption and releases broker resources.
func (c *Consumer) Close() error {
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.wg.Wait()
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context, deliveries <-chan amqp.Delivery) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				return
			}
			log := c.logger.WithField("routing_key", delivery.RoutingKey)
			if err := c.handleDelivery(ctx, &delivery); err != nil {
				log.WithError(err).Error("settlement event failed, dead-lettering")
				_ = delivery.Nack(false, false)
				continue
			}
			if err := delivery.Ack(false); err != nil {
				log.WithError(err).Warn("failed to ack delivery")
			}
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, delivery *amqp.Delivery) error {
	switch delivery.RoutingKey {
	case orders.EventSaleUpdate:
		var update orders.SaleUpdate
		if err := json.Unmarshal(delivery.Body, &update); err != nil {
			return fmt.Errorf("decode sale update: %w", err)
		}
		return c.service.HandleSaleUpdate(ctx, &update)
	case orders.EventBuyCompleted:
		var event orders.BuyCompleted
		if err := json.Unmarshal(delivery.Body, &event); err != nil {
			return fmt.Errorf("decode buy completion: %w", err)
		}
		if event.Success {
			return c.service.HandleBuyCompletion(ctx, &event.Data)
		}
		return c.service.HandleFailedBuy(ctx, &event.Data)
	case orders.EventCancelled:
		var event orders.Cancelled
		if err := json.Unmarshal(delivery.Body, &event); err != nil {
			return fmt.Errorf("decode cancellation: %w", err)
		}
		return c.service.HandleCancellation(ctx, &event)
	default:
		return fmt.Errorf("unsupported routing key: %s", delivery.RoutingKey)
	}
}
