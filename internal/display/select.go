package display

import (
	"log/slog"
	"strings"
)

// Settings choose the label backend.
type Settings struct {
	Enabled  bool
	Provider string
	Stream   StreamConfig
}

// Availability describes what the running host can offer.
type Availability struct {
	// Entities is set when the world can spawn native label objects.
	Entities EntityHost
	// Callback is set when a host bridge is attached.
	Callback Callback
	Version  string
}

// Select picks the configured provider if the host can support it and
// falls back to None otherwise.
func Select(s Settings, a Availability, logger *slog.Logger) Provider {
	if logger == nil {
		logger = slog.Default()
	}
	if !s.Enabled {
		logger.Info("Labels are disabled in config")
		return None{}
	}

	name := strings.ToLower(strings.TrimSpace(s.Provider))
	switch name {
	case "entity", "armorstand":
		if a.Entities != nil {
			logger.Info("Using native entities as label provider")
			return NewEntity(a.Entities)
		}
	case "host", "decentholograms", "holographicdisplays":
		if a.Callback != nil {
			logger.Info("Using host hologram plugin as label provider", "configured", s.Provider)
			return NewHost(a.Callback)
		}
	case "stream":
		if s.Stream.URL != "" {
			st := NewStream(s.Stream, logger)
			if err := st.Connect(a.Version); err != nil {
				logger.Warn("Label stream unavailable", "url", s.Stream.URL, "error", err)
				break
			}
			logger.Info("Using label stream as label provider", "url", s.Stream.URL)
			return st
		}
	}

	logger.Warn("No valid label provider found or configured, labels disabled", "configured", s.Provider)
	return None{}
}
