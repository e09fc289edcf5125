package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"corkboard/internal/config"
	"corkboard/internal/logging"
	"corkboard/internal/realtime"
	"corkboard/internal/store"
)

// webpushService delivers notifications over the Web Push protocol with
// VAPID authentication.
type webpushService struct {
	subs       SubscriptionStore
	subscriber string
	publicKey  string
	privateKey string
	timeout    time.Duration
	logger     *slog.Logger

	// send is swappable for tests.
	send func(ctx context.Context, message []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error)
}

// NewService builds the push service. When no VAPID keys are configured it
// returns a no-op service so callers never need a nil check.
func NewService(cfg *config.Config, subs SubscriptionStore, logger *slog.Logger) Service {
	if cfg == nil || cfg.Push.VAPIDPublicKey == "" || cfg.Push.VAPIDPrivateKey == "" {
		return NewNop()
	}
	timeout := time.Duration(cfg.Push.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &webpushService{
		subs:       subs,
		subscriber: cfg.Push.Subscriber,
		publicKey:  cfg.Push.VAPIDPublicKey,
		privateKey: cfg.Push.VAPIDPrivateKey,
		timeout:    timeout,
		logger:     logging.WithComponent(logger, "push"),
		send:       webpush.SendNotificationWithContext,
	}
}

func (s *webpushService) Enabled() bool { return true }

func (s *webpushService) Deliver(ctx context.Context, eventType realtime.EventType, payload json.RawMessage, adminOnly bool) {
	subs, err := s.subs.ListSubscriptions(ctx, adminOnly)
	if err != nil {
		s.logger.Error("subscription lookup failed",
			logging.String("event", string(eventType)),
			logging.Error(err))
		return
	}
	if len(subs) == 0 {
		return
	}

	notification := buildNotification(eventType, payload)
	message, err := json.Marshal(notification)
	if err != nil {
		s.logger.Error("notification serialization failed", logging.Error(err))
		return
	}

	succeeded, failed := s.fanOut(ctx, subs, message)
	s.logger.Info("push delivery pass complete",
		logging.String("event", string(eventType)),
		logging.Bool("admin_only", adminOnly),
		logging.Int("succeeded", succeeded),
		logging.Int("failed", failed))
}

func (s *webpushService) SendTest(ctx context.Context) (int, error) {
	subs, err := s.subs.ListSubscriptions(ctx, false)
	if err != nil {
		return 0, fmt.Errorf("list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return 0, nil
	}

	message, err := json.Marshal(Notification{
		Title:     "Test notification",
		Body:      "Push delivery is working.",
		Tag:       "board-test",
		Icon:      defaultIcon,
		Badge:     defaultBadge,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return 0, fmt.Errorf("serialize test notification: %w", err)
	}

	succeeded, _ := s.fanOut(ctx, subs, message)
	return succeeded, nil
}

// fanOut attempts delivery to every subscription concurrently; one failing
// endpoint never blocks the others.
func (s *webpushService) fanOut(ctx context.Context, subs []*store.PushSubscription, message []byte) (succeeded, failed int) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, sub := range subs {
		wg.Add(1)
		go func(sub *store.PushSubscription) {
			defer wg.Done()
			err := s.deliverOne(ctx, sub, message)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
			} else {
				succeeded++
			}
		}(sub)
	}
	wg.Wait()
	return succeeded, failed
}

func (s *webpushService) deliverOne(ctx context.Context, sub *store.PushSubscription, message []byte) error {
	target := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}
	opts := &webpush.Options{
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             3600,
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.send(sendCtx, message, target, opts)
	if err != nil {
		s.logger.Warn("push delivery failed",
			logging.String("endpoint", sub.Endpoint),
			logging.Error(err))
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		// The endpoint is gone for good; prune it so the next pass never
		// tries again.
		if _, err := s.subs.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			s.logger.Error("subscription prune failed",
				logging.String("endpoint", sub.Endpoint),
				logging.Error(err))
		} else {
			s.logger.Info("pruned dead subscription", logging.String("endpoint", sub.Endpoint))
		}
		return fmt.Errorf("endpoint gone: status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		s.logger.Warn("push endpoint rejected delivery",
			logging.String("endpoint", sub.Endpoint),
			logging.Int("status", resp.StatusCode))
		return fmt.Errorf("push rejected: status %d", resp.StatusCode)
	default:
		if err := s.subs.TouchSubscription(ctx, sub.Endpoint); err != nil {
			s.logger.Debug("last-used update failed", logging.Error(err))
		}
		return nil
	}
}
