package pwagen

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"pwaforge/internal/job"
	"pwaforge/internal/logging"
)

// ExportOptions carry target-specific parameters.
type ExportOptions struct {
	// github
	Repository string
	// cf
	WorkerName string
}

// Exporter packages a validated job's generated files into the requested
// artifact. GitHub and Cloudflare targets are demo mocks that fabricate
// plausible descriptors without touching any external service.
type Exporter struct {
	logger *slog.Logger
}

// NewExporter constructs an exporter.
func NewExporter(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Exporter{logger: logging.NewComponentLogger(logger, "exporter")}
}

// Export produces the artifact descriptor for the export stage.
func (e *Exporter) Export(ctx context.Context, state job.State, exportType job.ExportType, opts ExportOptions) (job.Export, error) {
	if err := ctx.Err(); err != nil {
		return job.Export{}, err
	}
	if len(state.Generated) == 0 {
		return job.Export{}, fmt.Errorf("job %s has no generated files", state.ID)
	}

	var (
		result job.Export
		err    error
	)
	switch exportType {
	case job.ExportZip:
		result, err = e.exportZip(state)
	case job.ExportGitHub:
		result, err = e.exportGitHub(state, opts)
	case job.ExportCloudflare:
		result, err = e.exportCloudflare(state, opts)
	default:
		return job.Export{}, fmt.Errorf("unsupported export type %q", exportType)
	}
	if err != nil {
		return job.Export{}, err
	}

	e.logger.Info("export produced",
		logging.String(logging.FieldJobID, state.ID),
		logging.String("type", string(exportType)))

	return result, nil
}

func (e *Exporter) exportZip(state job.State) (job.Export, error) {
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for _, file := range state.Generated {
		if file.ChangeType == job.ChangeDeleted {
			continue
		}
		entry, err := writer.Create(file.Path)
		if err != nil {
			return job.Export{}, fmt.Errorf("create archive entry %s: %w", file.Path, err)
		}
		if _, err := entry.Write([]byte(file.Content)); err != nil {
			return job.Export{}, fmt.Errorf("write archive entry %s: %w", file.Path, err)
		}
	}
	if err := writer.Close(); err != nil {
		return job.Export{}, fmt.Errorf("finalize archive: %w", err)
	}

	return job.Export{
		Type:     job.ExportZip,
		Filename: exportFilename(state.Input),
		Payload:  base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

func (e *Exporter) exportGitHub(state job.State, opts ExportOptions) (job.Export, error) {
	repo := opts.Repository
	if repo == "" {
		if state.InputType != job.InputGitHub {
			return job.Export{}, fmt.Errorf("github export requires a repository")
		}
		repo = state.Input
	}
	branch := "pwa/forge-" + shortID(state.ID)
	return job.Export{
		Type:   job.ExportGitHub,
		Branch: branch,
		PRURL:  strings.TrimSuffix(repo, "/") + "/pull/" + shortID(state.ID),
	}, nil
}

func (e *Exporter) exportCloudflare(state job.State, opts ExportOptions) (job.Export, error) {
	name := opts.WorkerName
	if name == "" {
		name = "pwaforge-" + shortID(state.ID)
	}
	return job.Export{
		Type:       job.ExportCloudflare,
		WorkerName: name,
		WorkerURL:  "https://" + name + ".workers.dev",
	}, nil
}

func exportFilename(input string) string {
	base := strings.TrimSuffix(input, ".zip")
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	if base == "" {
		base = "project"
	}
	return base + "-pwa.zip"
}

func shortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	if id == "" {
		return uuid.NewString()[:8]
	}
	return id
}
