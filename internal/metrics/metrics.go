// Package metrics holds the friend graph counters exported on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	FriendRequestsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "friend_requests_created_total",
			Help: "Total number of friend requests created",
		},
	)
	FriendRequestTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "friend_request_transitions_total",
			Help: "Total number of friend requests moved out of pending",
		},
		[]string{"status"},
	)
	FriendshipsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "friendships_created_total",
			Help: "Total number of friendships created",
		},
	)
	FriendshipsRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "friendships_removed_total",
			Help: "Total number of friendships removed",
		},
	)
	NotificationsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dispatched_total",
			Help: "Notification deliveries by channel and result",
		},
		[]string{"channel", "result"},
	)
)

// Register adds the domain collectors to reg. Call this once from main.go.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		FriendRequestsCreated,
		FriendRequestTransitions,
		FriendshipsCreated,
		FriendshipsRemoved,
		NotificationsDispatched,
	)
}
