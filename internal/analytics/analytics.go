package analytics

import (
	"os"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/posthog/posthog-go"
	"github.com/safedep/cage/internal/version"
	"github.com/safedep/dry/log"
)

// Injected at build time. Analytics is a no-op when empty.
var analyticsWriteKey string

const (
	analyticsEndpoint   = "https://us.i.posthog.com"
	analyticsDisableEnv = "CAGE_DISABLE_ANALYTICS"
)

var (
	clientOnce sync.Once
	client     posthog.Client
	distinctId string
)

// Disabled reports whether telemetry collection is turned off, either
// because no write key was injected at build time or because the user
// opted out through the environment.
func Disabled() bool {
	return analyticsWriteKey == "" || os.Getenv(analyticsDisableEnv) != ""
}

func getClient() posthog.Client {
	clientOnce.Do(func() {
		c, err := posthog.NewWithConfig(analyticsWriteKey, posthog.Config{
			Endpoint: analyticsEndpoint,
		})
		if err != nil {
			log.Debugf("analytics: failed to create client: %v", err)
			return
		}

		client = c
		distinctId = uuid.NewString()
	})

	return client
}

// TrackEvent enqueues a telemetry event. Events are delivered best effort
// and never block or fail the command being tracked.
func TrackEvent(name string, properties ...map[string]interface{}) {
	if Disabled() {
		return
	}

	c := getClient()
	if c == nil {
		return
	}

	props := posthog.NewProperties().
		Set("version", version.Version).
		Set("os", runtime.GOOS).
		Set("arch", runtime.GOARCH)

	for _, p := range properties {
		for k, v := range p {
			props = props.Set(k, v)
		}
	}

	err := c.Enqueue(posthog.Capture{
		DistinctId: distinctId,
		Event:      name,
		Properties: props,
	})
	if err != nil {
		log.Debugf("analytics: failed to enqueue event %s: %v", name, err)
	}
}

// Close flushes any queued events. Safe to call when analytics is disabled.
func Close() {
	if client != nil {
		_ = client.Close()
	}
}
