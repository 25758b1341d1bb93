package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/itnt/extension/pkg/core"
	"github.com/itnt/extension/pkg/streaming"
)

// JournalExport is the root JSON structure of an export file.
type JournalExport struct {
	Server           string                       `json:"server"`
	ExtensionVersion string                       `json:"extensionVersion"`
	StartTime        time.Time                    `json:"startTime"`
	EndTime          time.Time                    `json:"endTime"`
	Counts           map[string]int               `json:"counts"`
	Events           []streaming.LifecyclePayload `json:"events"`
}

// exportJSON writes the journal to a JSON or gzipped JSON file. Callers hold mu.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	server := strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(b.server)
	if server == "" {
		server = "journal"
	}
	filename := fmt.Sprintf("%s_%s.json", server, export.StartTime.Format("20060102_150405"))
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	b.lastExportMeta = core.UploadMetadata{
		Server:   b.server,
		Events:   len(export.Events),
		Duration: export.EndTime.Sub(export.StartTime).Seconds(),
	}
	return nil
}

func (b *Backend) buildExport() JournalExport {
	export := JournalExport{
		Server:           b.server,
		ExtensionVersion: b.version,
		Counts:           make(map[string]int),
		Events:           make([]streaming.LifecyclePayload, 0, len(b.events)),
	}

	for i, e := range b.events {
		if i == 0 || e.Time.Before(export.StartTime) {
			export.StartTime = e.Time
		}
		if e.Time.After(export.EndTime) {
			export.EndTime = e.Time
		}
		export.Counts[string(e.Kind)]++
		export.Events = append(export.Events, streaming.NewLifecyclePayload(e))
	}
	return export
}

func writeJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func writeGzipJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	if err := json.NewEncoder(gw).Encode(data); err != nil {
		_ = gw.Close()
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("failed to flush gzip: %w", err)
	}
	return nil
}
