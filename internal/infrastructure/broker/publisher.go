package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"main/internal/config"
	"main/internal/domain/entity/orders"
	"main/internal/domain/interfaces"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher dispatches order messages to the matching engine over a topic
// exchange. The routing key carries the shard suffix so every message for
// one instrument reaches the same engine partition.
type Publisher struct {
	channel  *amqp.Channel
	exchange string
	router   *Router
	logger   *logrus.Logger
	mu       sync.Mutex
}

var _ interfaces.OrderPublisher = (*Publisher)(nil)

func NewPublisher(conn *amqp.Connection, cfg config.RabbitMQConfig, router *Router, logger *logrus.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.OrderExchange, "topic", false, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.OrderExchange, err)
	}
	return &Publisher{
		channel:  ch,
		exchange: cfg.OrderExchange,
		router:   router,
		logger:   logger,
	}, nil
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if err := p.channel.Close(); err != nil {
		p.logger.Errorf("close rabbitmq channel: %v", err)
	}
}

func (p *Publisher) PublishLimitSell(ctx context.Context, order *orders.LimitSellOrder) error {
	return p.publish(ctx, orders.KindLimitSell, order.StockID, order)
}

func (p *Publisher) PublishMarketBuy(ctx context.Context, order *orders.MarketBuyOrder) error {
	return p.publish(ctx, orders.KindMarketBuy, order.StockID, order)
}

func (p *Publisher) PublishCancelSell(ctx context.Context, order *orders.CancelSellOrder) error {
	return p.publish(ctx, orders.KindCancelSell, order.StockID, order)
}

func (p *Publisher) publish(ctx context.Context, orderKind, stockID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	routingKey := p.router.RoutingKey(orderKind, stockID)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now().UTC(),
		Body:        body,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}
