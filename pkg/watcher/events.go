package watcher

import "walletview/pkg/models"

// EventType defines the type of event being broadcast.
type EventType string

const (
	EventProviderDetected EventType = "provider_detected"
	EventAccountsChanged  EventType = "accounts_changed"
	EventChainChanged     EventType = "chain_changed"
	EventWalletRefreshed  EventType = "wallet_refreshed"
	EventConnectStarted   EventType = "connect_started"
	EventConnectFailed    EventType = "connect_failed"
	EventErrorDismissed   EventType = "error_dismissed"
)

// Event carries a snapshot of the view state taken right after the change.
type Event struct {
	Type  EventType        `json:"type"`
	State models.ViewState `json:"data"`
}

// Subscriber is a channel that receives events.
type Subscriber chan Event
