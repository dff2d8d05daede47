package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tutorslot/internal/logger"
	"tutorslot/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	queueKey  = "events"
	failedKey = "events:failed"
	maxTries  = 3
)

// Event is one notification job on the outbox queue.
type Event struct {
	Type      string                 `json:"type"`
	BookingID int                    `json:"booking_id"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Tries     int                    `json:"tries"`
	Created   time.Time              `json:"created"`
}

// Service queues booking events on a redis list and relays them to the
// notification collaborator. Delivery is at-least-once and best-effort:
// callers never block on it and never see its errors.
type Service struct {
	redis      *redis.Client
	webhookURL string
	client     *http.Client
}

func New(redisAddr, webhookURL string) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

// NewWithClient is used by tests to inject a mocked redis client.
func NewWithClient(rdb *redis.Client, webhookURL string) *Service {
	return &Service{
		redis:      rdb,
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

// Emit queues an event. Always called after the database commit.
func (s *Service) Emit(ctx context.Context, eventType string, bookingID int, payload map[string]interface{}) {
	event := Event{
		Type:      eventType,
		BookingID: bookingID,
		Payload:   payload,
		Tries:     0,
		Created:   time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Errorf("Failed to marshal event %s: %v", eventType, err)
		return
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Errorf("Failed to queue event %s for booking %d: %v", eventType, bookingID, err)
		return
	}

	metrics.RecordEvent(eventType)
	logger.Infof("Event queued: %s for booking %d", eventType, bookingID)
}

// Start runs the relay loop until ctx is cancelled. It also reports the
// outbox depth to the queue-length gauge between pops.
func (s *Service) Start(ctx context.Context) {
	logger.Info("Notification relay started")

	depth := time.NewTicker(15 * time.Second)
	defer depth.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification relay stopped")
			return
		case <-depth.C:
			s.reportDepth(ctx)
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var event Event
	if err := json.Unmarshal([]byte(result[1]), &event); err != nil {
		logger.Errorf("Bad event data: %v", err)
		return
	}

	event.Tries++
	if err := s.deliver(ctx, event); err != nil {
		logger.Errorf("Failed to deliver %s for booking %d: %v", event.Type, event.BookingID, err)

		if event.Tries < maxTries {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(event)
			s.redis.LPush(context.Background(), queueKey, data)
			logger.Infof("Retrying event %s (attempt %d)", event.Type, event.Tries+1)
		} else {
			logger.Errorf("Event %s for booking %d failed after %d attempts", event.Type, event.BookingID, maxTries)
			s.saveFailed(event, err)
		}
		return
	}

	logger.Infof("Event delivered: %s for booking %d", event.Type, event.BookingID)
}

func (s *Service) deliver(ctx context.Context, event Event) error {
	if s.webhookURL == "" {
		// No collaborator configured; events are logged and dropped.
		logger.Infof("Event %s for booking %d (no webhook configured)", event.Type, event.BookingID)
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

func (s *Service) saveFailed(event Event, cause error) {
	failed := map[string]interface{}{
		"event": event,
		"error": cause.Error(),
		"time":  time.Now().UTC(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedKey, data)
	logger.Errorf("Event moved to failed queue: %s for booking %d", event.Type, event.BookingID)
}

// reportDepth pushes the current outbox depth onto the queue-length gauge.
func (s *Service) reportDepth(ctx context.Context) {
	metrics.EventQueueLength.Set(float64(s.QueueLength(ctx)))
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}
