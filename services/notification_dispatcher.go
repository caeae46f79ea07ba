package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"estateSocialAPI/internal/metrics"
	"estateSocialAPI/internal/notification"
	"estateSocialAPI/internal/realtime"
	"estateSocialAPI/internal/store"
)

type PushNotificationProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

// RealtimePublisher delivers a message to a user's open connections and
// reports how many received it.
type RealtimePublisher interface {
	SendToUser(userID uuid.UUID, msg *realtime.Message) int
}

// NotificationDispatcher delivers notifications on a fixed pool of workers.
// Delivery failures are logged and counted, never returned to the caller.
type NotificationDispatcher struct {
	devices      store.DeviceTokens
	publisher    RealtimePublisher
	pushProvider PushNotificationProvider
	workers      int
	jobQueue     chan *DispatchJob
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

type DispatchJob struct {
	Notification *notification.Notification
}

func NewNotificationDispatcher(devices store.DeviceTokens, publisher RealtimePublisher, workers int) *NotificationDispatcher {
	if workers < 1 {
		workers = 1
	}
	dispatcher := &NotificationDispatcher{
		devices:   devices,
		publisher: publisher,
		workers:   workers,
		jobQueue:  make(chan *DispatchJob, 100),
		stopChan:  make(chan struct{}),
	}

	dispatcher.startWorkers()
	return dispatcher
}

// SetPushProvider injects the push backend. Call before traffic starts.
func (d *NotificationDispatcher) SetPushProvider(provider PushNotificationProvider) {
	d.pushProvider = provider
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

func (d *NotificationDispatcher) worker(id int) {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobQueue:
			d.processJob(job)
		case <-d.stopChan:
			return
		}
	}
}

func (d *NotificationDispatcher) processJob(job *DispatchJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	notif := job.Notification

	if d.publisher != nil {
		msg := &realtime.Message{Event: string(notif.Type), Data: notif}
		if d.publisher.SendToUser(notif.UserID, msg) > 0 {
			metrics.NotificationsDispatched.WithLabelValues("realtime", "delivered").Inc()
		} else {
			metrics.NotificationsDispatched.WithLabelValues("realtime", "offline").Inc()
		}
	}

	if d.pushProvider == nil {
		return
	}

	tokens, err := d.devices.ListDeviceTokens(ctx, notif.UserID)
	if err != nil {
		log.Printf("processJob: failed to load devices for user %s: %v", notif.UserID, err)
		metrics.NotificationsDispatched.WithLabelValues("push", "failed").Inc()
		return
	}
	if len(tokens) == 0 {
		return
	}

	deviceTokens := make([]notification.DeviceToken, 0, len(tokens))
	for _, t := range tokens {
		deviceTokens = append(deviceTokens, *t)
	}

	if err := d.pushProvider.SendPush(ctx, deviceTokens, notif.Title, notif.Body, notif.Data); err != nil {
		log.Printf("Push failed for user %s: %v", notif.UserID, err)
		metrics.NotificationsDispatched.WithLabelValues("push", "failed").Inc()
		return
	}
	metrics.NotificationsDispatched.WithLabelValues("push", "sent").Inc()
}

// DispatchNotification queues notif. It gives up after five seconds when the
// queue is full, or immediately once the dispatcher is stopped.
func (d *NotificationDispatcher) DispatchNotification(ctx context.Context, notif *notification.Notification) {
	job := &DispatchJob{Notification: notif}

	select {
	case d.jobQueue <- job:
	case <-d.stopChan:
		log.Printf("Dropping notification %s: dispatcher stopped", notif.ID)
	case <-ctx.Done():
		log.Printf("Dropping notification %s: %v", notif.ID, ctx.Err())
	case <-time.After(5 * time.Second):
		log.Printf("Failed to queue notification %s: queue full", notif.ID)
		metrics.NotificationsDispatched.WithLabelValues("queue", "dropped").Inc()
	}
}

// Stop the dispatcher gracefully. Queued jobs that no worker picked up are
// discarded.
func (d *NotificationDispatcher) Stop() {
	d.stopOnce.Do(func() {
		log.Println("Stopping notification dispatcher...")
		close(d.stopChan)
		d.wg.Wait()
		log.Println("Notification dispatcher stopped")
	})
}
