// posthog_client.go wraps posthog.Client so callers need not care whether
// analytics is configured.
package utils

import (
	"log/slog"

	"github.com/posthog/posthog-go"
)

// TenantGroup is the posthog group type ledger events are attached to.
const TenantGroup = "tenant"

// PosthogClientWrapper is a nil-safe posthog client. Every method is a no-op
// when no API key was configured.
type PosthogClientWrapper struct {
	posthogClient posthog.Client
	logger        *slog.Logger
}

// InitializePosthogClient connects to posthog, or returns a disabled wrapper
// when apiKey is empty or the client cannot be created.
func InitializePosthogClient(apiKey string, logger *slog.Logger) *PosthogClientWrapper {
	if apiKey == "" {
		logger.Warn("Posthog API key is empty, ledger analytics disabled")
		return &PosthogClientWrapper{}
	}
	client, err := posthog.NewWithConfig(apiKey, posthog.Config{Endpoint: "https://eu.i.posthog.com"})
	if err != nil {
		logger.Error("Failed to initialize posthog client, ledger analytics disabled", slog.String("error", err.Error()))
		return &PosthogClientWrapper{}
	}
	logger.Info("Ledger analytics enabled")
	return &PosthogClientWrapper{posthogClient: client, logger: logger}
}

func (w *PosthogClientWrapper) IsInitialized() bool {
	return w != nil && w.posthogClient != nil
}

// CaptureTenantEvent records event for the acting user, grouped under the tenant.
func (w *PosthogClientWrapper) CaptureTenantEvent(userID, tenantID, event string, properties map[string]any) {
	if !w.IsInitialized() {
		return
	}
	capture := posthog.Capture{
		DistinctId: userID,
		Event:      event,
		Properties: properties,
	}
	if tenantID != "" {
		capture.Groups = posthog.NewGroups().Set(TenantGroup, tenantID)
	}
	w.logger.Debug("Capturing ledger event", slog.String("event", event), slog.String("tenant_id", tenantID))
	if err := w.posthogClient.Enqueue(capture); err != nil {
		w.logger.Warn("Failed to enqueue posthog event", slog.String("event", event), slog.String("error", err.Error()))
	}
}

// Close flushes queued events.
func (w *PosthogClientWrapper) Close() {
	if !w.IsInitialized() {
		return
	}
	if err := w.posthogClient.Close(); err != nil {
		w.logger.Warn("Failed to close posthog client", slog.String("error", err.Error()))
	}
}
