package models

import "time"

// ProviderKind selects which adapter drives a model's jobs.
type ProviderKind string

const (
	ProviderKindSync  ProviderKind = "sync"
	ProviderKindQueue ProviderKind = "async-queue"
)

// AIModel is one entry in the model catalog: an external generative model
// reachable through one of the provider adapters. Settings carries
// provider-specific inference parameters (steps, strength, guidance) that
// are forwarded opaquely with each invocation.
type AIModel struct {
	ID          string
	Identifier  string
	DisplayName string
	Description string
	Kind        ProviderKind
	Settings    map[string]string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
