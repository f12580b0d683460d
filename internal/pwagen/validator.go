package pwagen

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"pwaforge/internal/config"
	"pwaforge/internal/job"
	"pwaforge/internal/logging"
)

// Validator audits the generated file set and produces a checklist score.
type Validator struct {
	logger *slog.Logger
	delay  time.Duration
}

// NewValidator builds a validator from configuration.
func NewValidator(cfg *config.Config, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Validator{
		logger: logging.NewComponentLogger(logger, "validator"),
		delay:  time.Duration(cfg.Pipeline.ValidateDelayMS) * time.Millisecond,
	}
}

// Validate runs the checklist against the job's generated files. The delay
// stands in for a real audit run.
func (v *Validator) Validate(ctx context.Context, state job.State) (job.Validation, error) {
	if len(state.Generated) == 0 {
		return job.Validation{}, fmt.Errorf("job %s has no generated files", state.ID)
	}
	if err := wait(ctx, v.delay); err != nil {
		return job.Validation{}, err
	}

	find := func(suffix string) (job.GeneratedFile, bool) {
		for _, file := range state.Generated {
			if strings.HasSuffix(file.Path, suffix) {
				return file, true
			}
		}
		return job.GeneratedFile{}, false
	}

	manifest, hasManifest := find("manifest.json")
	_, hasSW := find("sw.js")
	_, hasOffline := find("offline.html")
	entryRegistered := false
	for _, file := range state.Generated {
		if file.ChangeType == job.ChangeModified && strings.Contains(file.Content, "serviceWorker") {
			entryRegistered = true
			break
		}
	}

	checklist := []job.Check{
		check("manifest-present", hasManifest, "Web app manifest is generated", "No web app manifest found"),
		check("manifest-theme-color", hasManifest && strings.Contains(manifest.Content, "theme_color"), "Manifest declares a theme color", "Manifest is missing theme_color"),
		check("manifest-icons", hasManifest && strings.Contains(manifest.Content, "512x512"), "Manifest ships installable icons", "Manifest lacks a 512x512 icon"),
		check("service-worker", hasSW, "Service worker is generated", "No service worker found"),
		check("sw-registration", entryRegistered, "Entry file registers the service worker", "Entry file does not register the service worker"),
		check("offline-fallback", hasOffline, "Offline fallback page is present", "No offline fallback page"),
	}

	passed := 0
	var remediation []string
	for _, item := range checklist {
		if item.Pass {
			passed++
			continue
		}
		remediation = append(remediation, remediationFor(item.ID))
	}

	result := job.Validation{
		Score:       formatScore(passed, len(checklist)),
		Checklist:   checklist,
		Remediation: remediation,
	}

	v.logger.Info("validation complete",
		logging.String(logging.FieldJobID, state.ID),
		logging.String("score", result.Score),
		logging.Int("failed", len(remediation)))

	return result, nil
}

func check(id string, pass bool, okMsg, failMsg string) job.Check {
	msg := okMsg
	if !pass {
		msg = failMsg
	}
	return job.Check{ID: id, Pass: pass, Message: msg}
}

func remediationFor(checkID string) string {
	switch checkID {
	case "manifest-present":
		return "Add a manifest.json with name, icons, and start_url, and link it from index.html"
	case "manifest-theme-color":
		return "Set theme_color in manifest.json so the installed app chrome matches your brand"
	case "manifest-icons":
		return "Provide a 512x512 icon (plus a maskable variant) in manifest.json"
	case "service-worker":
		return "Generate a service worker to enable offline support and installability"
	case "sw-registration":
		return "Register the service worker from your entry file on window load"
	case "offline-fallback":
		return "Add an offline.html fallback page and serve it from the service worker"
	default:
		return "Review the failing check and regenerate"
	}
}

func formatScore(passed, total int) string {
	if total <= 0 {
		return "0/100"
	}
	if passed >= total {
		return job.PerfectScore
	}
	score := int(math.Round(float64(passed) * 100 / float64(total)))
	return fmt.Sprintf("%d/100", score)
}
