package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/qlbh/storefront/internal/redisx"
	"github.com/qlbh/storefront/internal/shop"
)

// Service projects order lifecycle events into the redis status cache that
// the API's status endpoint reads through. Stock already moved synchronously
// when the order was created or cancelled; this consumer only maintains the
// read model.
type Service struct {
	Redis       *redis.Client
	ServiceName string
}

// HandleOrderEvent is installed as the consumer handler for every lifecycle
// topic.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope
	var env shop.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	status, ok := shop.StatusForEvent(env.EventType)
	if !ok {
		return nil // not a lifecycle event, ignore
	}

	// 2) dedup via redis (by event_id)
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	exists, err := redisx.Exists(ctx, s.Redis, dkey)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	// 3) project status; correlation id is the order id
	body, _ := json.Marshal(map[string]any{"status": status})
	skey := fmt.Sprintf(redisx.KeyOrderStatus, env.CorrelationID)
	if err := s.Redis.Set(ctx, skey, body, redisx.TTLStatusCache).Err(); err != nil {
		return err
	}
	return s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
}
