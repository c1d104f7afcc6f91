package cartstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/treadline/treadline-backend/pkg/logger"
	"github.com/treadline/treadline-backend/pkg/types"
)

// redisClient is the slice of pkg/redis the store needs.
type redisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Publish(ctx context.Context, channel string, payload any) error
	Subscribe(ctx context.Context, channel string) (*goredis.PubSub, error)
	CartKey(cartID string) string
	CartChangedChannel() string
}

// ChangeEvent is broadcast after every cart mutation so other open views
// (badge counters, parallel checkout tabs) converge on the latest snapshot.
type ChangeEvent struct {
	CartID string `json:"cart_id"`
	Action string `json:"action"`
}

const (
	ActionSaved   = "saved"
	ActionCleared = "cleared"
)

// Store reads and writes cart snapshots in shared storage. Mutations are
// read-modify-write with no locking: concurrent writers race and the last
// writer wins, with the change event bringing every reader back in sync.
type Store struct {
	redis redisClient
	logg  *logger.Logger
}

// NewStore builds the cart store.
func NewStore(client redisClient, logg *logger.Logger) (*Store, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	return &Store{redis: client, logg: logg}, nil
}

// Load parses the persisted snapshot. Missing or corrupt data yields an
// empty cart, never an error: a broken snapshot must not break browsing.
func (s *Store) Load(ctx context.Context, cartID string) []types.CartItem {
	raw, err := s.redis.Get(ctx, s.redis.CartKey(cartID))
	if err != nil {
		if !errors.Is(err, goredis.Nil) && s.logg != nil {
			s.logg.Warn(s.logg.WithCartID(ctx, cartID), "cart load failed, treating as empty")
		}
		return []types.CartItem{}
	}

	var items []types.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithCartID(ctx, cartID), "cart snapshot corrupt, treating as empty")
		}
		return []types.CartItem{}
	}
	if items == nil {
		items = []types.CartItem{}
	}
	return items
}

// Save persists the snapshot and then broadcasts the change.
func (s *Store) Save(ctx context.Context, cartID string, items []types.CartItem) error {
	if items == nil {
		items = []types.CartItem{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.redis.CartKey(cartID), string(payload), 0); err != nil {
		return err
	}
	s.notify(ctx, cartID, ActionSaved)
	return nil
}

// Clear removes the snapshot and then broadcasts the change.
func (s *Store) Clear(ctx context.Context, cartID string) error {
	if err := s.redis.Del(ctx, s.redis.CartKey(cartID)); err != nil {
		return err
	}
	s.notify(ctx, cartID, ActionCleared)
	return nil
}

// Subscribe delivers change events for the given cart until ctx is done.
// Events for other carts on the shared channel are filtered out.
func (s *Store) Subscribe(ctx context.Context, cartID string) (<-chan ChangeEvent, error) {
	sub, err := s.redis.Subscribe(ctx, s.redis.CartChangedChannel())
	if err != nil {
		return nil, err
	}

	events := make(chan ChangeEvent)
	go func() {
		defer close(events)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var event ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					continue
				}
				if event.CartID != cartID {
					continue
				}
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events, nil
}

// notify is best effort: a dropped notification only delays convergence of
// other views, it never fails the mutation that already committed.
func (s *Store) notify(ctx context.Context, cartID, action string) {
	payload, err := json.Marshal(ChangeEvent{CartID: cartID, Action: action})
	if err != nil {
		return
	}
	if err := s.redis.Publish(ctx, s.redis.CartChangedChannel(), string(payload)); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithCartID(ctx, cartID), "cart change notification failed")
	}
}
