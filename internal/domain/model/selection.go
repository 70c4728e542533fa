package model

import "time"

// Selection records the outcome of the one-time storage backend decision.
// FallbackReason is empty when the remote backend was selected.
type Selection struct {
	Backend        Backend
	FallbackReason string
	SelectedAt     time.Time
}

// IsFallback returns true when the local file backend replaced the remote one.
func (s Selection) IsFallback() bool {
	return s.Backend == BackendLocalFile
}
