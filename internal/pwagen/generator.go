package pwagen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"pwaforge/internal/job"
	"pwaforge/internal/logging"
)

const (
	manifestFilePath    = "public/manifest.json"
	serviceWorkerPath   = "public/sw.js"
	offlinePagePath     = "public/offline.html"
	defaultThemeColor   = "#0066FF"
	defaultBackground   = "#FFFFFF"
	manifestSchema      = "https://json.schemastore.org/web-manifest-combined.json"
	defaultAppName      = "pwaforge app"
	defaultAppShortName = "pwaforge"
)

// GenerateOptions customize the produced manifest.
type GenerateOptions struct {
	ThemeColor      string
	BackgroundColor string
	AppName         string
}

// ManifestIcon is one icon entry of the web app manifest.
type ManifestIcon struct {
	Src     string `json:"src"`
	Sizes   string `json:"sizes"`
	Type    string `json:"type"`
	Purpose string `json:"purpose,omitempty"`
}

// Manifest models the generated web app manifest document.
type Manifest struct {
	Schema          string         `json:"$schema"`
	Name            string         `json:"name"`
	ShortName       string         `json:"short_name"`
	StartURL        string         `json:"start_url"`
	Display         string         `json:"display"`
	ThemeColor      string         `json:"theme_color"`
	BackgroundColor string         `json:"background_color"`
	Icons           []ManifestIcon `json:"icons"`
}

// Generator produces the four PWA files for the generate stage.
type Generator struct {
	logger *slog.Logger
	titler cases.Caser
}

// NewGenerator constructs a generator.
func NewGenerator(logger *slog.Logger) *Generator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Generator{
		logger: logging.NewComponentLogger(logger, "generator"),
		titler: cases.Title(language.English),
	}
}

// Generate builds the manifest, service worker, offline page, and the modified
// entry file. It requires the analyze stage's result for entry file placement.
func (g *Generator) Generate(ctx context.Context, state job.State, opts GenerateOptions) ([]job.GeneratedFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if state.Analysis == nil {
		return nil, fmt.Errorf("job %s has no analysis result", state.ID)
	}

	appName := opts.AppName
	if appName == "" {
		appName = g.AppName(state.Input)
	}
	manifest := g.buildManifest(appName, opts)
	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}

	entryFile := state.Analysis.EntryFile
	if entryFile == "" {
		entryFile = defaultEntryFile
	}
	manifestPath := state.Analysis.ManifestPath
	if manifestPath == "" {
		manifestPath = manifestFilePath
	}

	files := []job.GeneratedFile{
		{Path: manifestPath, Content: string(manifestJSON), ChangeType: job.ChangeNew},
		{Path: serviceWorkerPath, Content: serviceWorkerScript(appName), ChangeType: job.ChangeNew},
		{Path: offlinePagePath, Content: offlinePage(appName), ChangeType: job.ChangeNew},
		{Path: entryFile, Content: entryFileWithRegistration(entryFile), ChangeType: job.ChangeModified},
	}

	g.logger.Info("assets generated",
		logging.String(logging.FieldJobID, state.ID),
		logging.String("app", appName),
		logging.Int("files", len(files)))

	return files, nil
}

// AppName derives a display name from the job input. An archive name like
// "my-cool-app.zip" becomes "My Cool App"; a repository URL uses its last
// path segment.
func (g *Generator) AppName(input string) string {
	base := input
	if strings.Contains(base, "://") {
		base = strings.TrimSuffix(base, "/")
		base = path.Base(base)
	}
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ", ".", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return defaultAppName
	}
	return g.titler.String(base)
}

func (g *Generator) buildManifest(appName string, opts GenerateOptions) Manifest {
	theme := opts.ThemeColor
	if theme == "" {
		theme = defaultThemeColor
	}
	background := opts.BackgroundColor
	if background == "" {
		background = defaultBackground
	}
	short := appName
	if fields := strings.Fields(appName); len(fields) > 0 {
		short = fields[0]
	}
	return Manifest{
		Schema:          manifestSchema,
		Name:            appName,
		ShortName:       short,
		StartURL:        "/",
		Display:         "standalone",
		ThemeColor:      theme,
		BackgroundColor: background,
		Icons: []ManifestIcon{
			{Src: "pwa-192x192.png", Sizes: "192x192", Type: "image/png"},
			{Src: "pwa-512x512.png", Sizes: "512x512", Type: "image/png"},
			{Src: "maskable-icon-512x512.png", Sizes: "512x512", Type: "image/png", Purpose: "maskable"},
		},
	}
}

func serviceWorkerScript(appName string) string {
	return fmt.Sprintf(`const CACHE = %q;
const OFFLINE_URL = "/offline.html";
self.addEventListener("install", (event) => {
  event.waitUntil(caches.open(CACHE).then((cache) => cache.add(OFFLINE_URL)));
  self.skipWaiting();
});
self.addEventListener("activate", (event) => {
  event.waitUntil(self.clients.claim());
});
self.addEventListener("fetch", (event) => {
  if (event.request.mode !== "navigate") return;
  event.respondWith(
    fetch(event.request).catch(() => caches.match(OFFLINE_URL))
  );
});
`, cacheName(appName))
}

func offlinePage(appName string) string {
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>%s - Offline</title>
</head>
<body>
  <h1>You are offline</h1>
  <p>%s needs a network connection for this page. It will reload automatically once you are back online.</p>
  <script>addEventListener("online", () => location.reload());</script>
</body>
</html>
`, appName, appName)
}

func entryFileWithRegistration(entryFile string) string {
	return fmt.Sprintf(`// %s
if ("serviceWorker" in navigator) {
  window.addEventListener("load", () => {
    navigator.serviceWorker.register("/sw.js").catch((err) => {
      console.error("service worker registration failed", err);
    });
  });
}
`, entryFile)
}

func cacheName(appName string) string {
	slug := strings.ToLower(strings.Join(strings.Fields(appName), "-"))
	if slug == "" {
		slug = defaultAppShortName
	}
	return slug + "-v1"
}
