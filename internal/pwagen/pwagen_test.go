package pwagen

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"pwaforge/internal/job"
	"pwaforge/internal/testsupport"
)

func buildArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for name, content := range files {
		entry, err := writer.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	return buf.Bytes()
}

func TestDetectStackOrdering(t *testing.T) {
	cases := []struct {
		name string
		deps map[string]string
		dev  map[string]string
		want string
	}{
		{"next shadows react", map[string]string{"next": "14", "react": "18"}, nil, "Next.js"},
		{"angular", map[string]string{"@angular/core": "17"}, nil, "Angular"},
		{"svelte", nil, map[string]string{"svelte": "4"}, "SvelteKit"},
		{"vue", map[string]string{"vue": "3"}, nil, "Vue/Nuxt"},
		{"vite react", map[string]string{"react": "18"}, map[string]string{"vite": "5"}, "Vite+React"},
		{"plain react", map[string]string{"react": "18"}, nil, "React (CRA)"},
		{"empty", nil, nil, "Vanilla JS"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := detectStack(packageManifest{Dependencies: tc.deps, DevDependencies: tc.dev})
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAnalyzeArchiveCountsEntriesAndDetectsStack(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	analyzer := NewAnalyzer(cfg, nil)

	payload := buildArchive(t, map[string]string{
		"package.json": `{"dependencies":{"react":"18"},"devDependencies":{"vite":"5"}}`,
		"index.html":   "<html></html>",
		"src/main.tsx": "render()",
	})
	analysis, err := analyzer.AnalyzeArchive(context.Background(), "app.zip", payload)
	if err != nil {
		t.Fatalf("AnalyzeArchive failed: %v", err)
	}
	if analysis.TotalFiles != 3 {
		t.Fatalf("expected 3 entries, got %d", analysis.TotalFiles)
	}
	if analysis.DetectedStack != "Vite+React" {
		t.Fatalf("unexpected stack: %q", analysis.DetectedStack)
	}
	if analysis.Platform != "pwaforge" || !analysis.CloudflareOptimized {
		t.Fatalf("unexpected analysis: %#v", analysis)
	}
}

func TestAnalyzeArchiveWithoutPackageJSONIsVanilla(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	analyzer := NewAnalyzer(cfg, nil)

	payload := buildArchive(t, map[string]string{"index.html": "<html></html>"})
	analysis, err := analyzer.AnalyzeArchive(context.Background(), "site.zip", payload)
	if err != nil {
		t.Fatalf("AnalyzeArchive failed: %v", err)
	}
	if analysis.DetectedStack != "Vanilla JS" {
		t.Fatalf("expected Vanilla JS, got %q", analysis.DetectedStack)
	}
}

func TestAnalyzeArchiveRejectsGarbage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	analyzer := NewAnalyzer(cfg, nil)
	if _, err := analyzer.AnalyzeArchive(context.Background(), "junk.zip", []byte("not a zip")); err == nil {
		t.Fatal("expected error for malformed archive")
	}
}

func TestAnalyzeRepoReturnsMockedResult(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	analyzer := NewAnalyzer(cfg, nil)

	analysis, err := analyzer.AnalyzeRepo(context.Background(), "https://github.com/acme/shop")
	if err != nil {
		t.Fatalf("AnalyzeRepo failed: %v", err)
	}
	if analysis.DetectedStack != "Vite+React" || analysis.TotalFiles != 123 {
		t.Fatalf("unexpected repo analysis: %#v", analysis)
	}
	if _, err := analyzer.AnalyzeRepo(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestAnalyzeRepoHonorsContextCancellation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.AnalyzeDelayMS = 60_000
	analyzer := NewAnalyzer(cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := analyzer.AnalyzeRepo(ctx, "https://github.com/acme/shop"); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func generatedState(t *testing.T) job.State {
	t.Helper()
	gen := NewGenerator(nil)
	state := job.State{
		ID:        "job-1",
		Input:     "my-cool-app.zip",
		InputType: job.InputZip,
		Status:    job.StatusComplete,
		Analysis: &job.Analysis{
			EntryFile:    "src/main.tsx",
			ManifestPath: "public/manifest.json",
		},
		CreatedAt: time.Now().UnixMilli(),
	}
	files, err := gen.Generate(context.Background(), state, GenerateOptions{ThemeColor: "#0066FF"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	state.Status = job.StatusGenerated
	state.Generated = files
	return state
}

func TestGenerateProducesExactlyFourFiles(t *testing.T) {
	state := generatedState(t)
	if len(state.Generated) != 4 {
		t.Fatalf("expected 4 files, got %d", len(state.Generated))
	}

	paths := map[string]job.ChangeType{}
	for _, file := range state.Generated {
		paths[file.Path] = file.ChangeType
	}
	if paths["public/manifest.json"] != job.ChangeNew {
		t.Fatalf("manifest missing or wrong change type: %#v", paths)
	}
	if paths["public/sw.js"] != job.ChangeNew || paths["public/offline.html"] != job.ChangeNew {
		t.Fatalf("worker assets missing: %#v", paths)
	}
	if paths["src/main.tsx"] != job.ChangeModified {
		t.Fatalf("entry file must be modified in place: %#v", paths)
	}
}

func TestGenerateManifestCarriesOptions(t *testing.T) {
	state := generatedState(t)
	var manifest string
	for _, file := range state.Generated {
		if file.Path == "public/manifest.json" {
			manifest = file.Content
		}
	}
	for _, want := range []string{`"name": "My Cool App"`, `"theme_color": "#0066FF"`, `"display": "standalone"`, `"start_url": "/"`, "maskable"} {
		if !strings.Contains(manifest, want) {
			t.Fatalf("manifest missing %q:\n%s", want, manifest)
		}
	}
}

func TestGenerateRequiresAnalysis(t *testing.T) {
	gen := NewGenerator(nil)
	_, err := gen.Generate(context.Background(), job.State{ID: "job-1"}, GenerateOptions{})
	if err == nil {
		t.Fatal("expected error without analysis")
	}
}

func TestAppNameDerivation(t *testing.T) {
	gen := NewGenerator(nil)
	cases := []struct{ in, want string }{
		{"my-cool-app.zip", "My Cool App"},
		{"shop_front.zip", "Shop Front"},
		{"https://github.com/acme/storefront", "Storefront"},
		{"", "pwaforge app"},
	}
	for _, tc := range cases {
		if got := gen.AppName(tc.in); got != tc.want {
			t.Errorf("AppName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidatePerfectSetScoresSentinel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	validator := NewValidator(cfg, nil)

	report, err := validator.Validate(context.Background(), generatedState(t))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if report.Score != job.PerfectScore {
		t.Fatalf("expected perfect score, got %q", report.Score)
	}
	if len(report.Remediation) != 0 {
		t.Fatalf("perfect run must have no remediation, got %v", report.Remediation)
	}
	for _, item := range report.Checklist {
		if !item.Pass {
			t.Fatalf("unexpected failing check: %#v", item)
		}
	}
}

func TestValidateMissingManifestScoresBelowPerfect(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	validator := NewValidator(cfg, nil)

	state := generatedState(t)
	var withoutManifest []job.GeneratedFile
	for _, file := range state.Generated {
		if strings.HasSuffix(file.Path, "manifest.json") {
			continue
		}
		withoutManifest = append(withoutManifest, file)
	}
	state.Generated = withoutManifest

	report, err := validator.Validate(context.Background(), state)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if report.Score == job.PerfectScore {
		t.Fatal("missing manifest must not score perfect")
	}
	if len(report.Remediation) == 0 {
		t.Fatal("expected remediation entries")
	}
	found := false
	for _, entry := range report.Remediation {
		if strings.Contains(strings.ToLower(entry), "manifest") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a manifest-specific remediation, got %v", report.Remediation)
	}
}

func TestValidateRequiresGeneratedFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	validator := NewValidator(cfg, nil)
	if _, err := validator.Validate(context.Background(), job.State{ID: "job-1"}); err == nil {
		t.Fatal("expected error without generated files")
	}
}

func TestFormatScoreRounds(t *testing.T) {
	cases := []struct {
		passed, total int
		want          string
	}{
		{6, 6, job.PerfectScore},
		{5, 6, "83/100"},
		{3, 6, "50/100"},
		{0, 6, "0/100"},
		{0, 0, "0/100"},
	}
	for _, tc := range cases {
		if got := formatScore(tc.passed, tc.total); got != tc.want {
			t.Errorf("formatScore(%d, %d) = %q, want %q", tc.passed, tc.total, got, tc.want)
		}
	}
}

func TestExportZipRoundTrips(t *testing.T) {
	exporter := NewExporter(nil)
	state := generatedState(t)

	artifact, err := exporter.Export(context.Background(), state, job.ExportZip, ExportOptions{})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if artifact.Type != job.ExportZip || artifact.Filename != "my-cool-app-pwa.zip" {
		t.Fatalf("unexpected artifact: %#v", artifact)
	}

	raw, err := base64.StdEncoding.DecodeString(artifact.Payload)
	if err != nil {
		t.Fatalf("payload is not base64: %v", err)
	}
	reader, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		t.Fatalf("payload is not a zip: %v", err)
	}
	if len(reader.File) != len(state.Generated) {
		t.Fatalf("expected %d entries, got %d", len(state.Generated), len(reader.File))
	}
}

func TestExportGitHubFabricatesPullRequest(t *testing.T) {
	exporter := NewExporter(nil)
	state := generatedState(t)
	state.Input = "https://github.com/acme/shop"
	state.InputType = job.InputGitHub

	artifact, err := exporter.Export(context.Background(), state, job.ExportGitHub, ExportOptions{})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !strings.HasPrefix(artifact.Branch, "pwa/forge-") {
		t.Fatalf("unexpected branch: %q", artifact.Branch)
	}
	if !strings.HasPrefix(artifact.PRURL, "https://github.com/acme/shop/pull/") {
		t.Fatalf("unexpected PR url: %q", artifact.PRURL)
	}
}

func TestExportGitHubRequiresRepository(t *testing.T) {
	exporter := NewExporter(nil)
	state := generatedState(t)
	if _, err := exporter.Export(context.Background(), state, job.ExportGitHub, ExportOptions{}); err == nil {
		t.Fatal("zip-input job without a repository option must not export to github")
	}
}

func TestExportCloudflareNamesWorker(t *testing.T) {
	exporter := NewExporter(nil)
	state := generatedState(t)

	artifact, err := exporter.Export(context.Background(), state, job.ExportCloudflare, ExportOptions{WorkerName: "shop-pwa"})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if artifact.WorkerName != "shop-pwa" || artifact.WorkerURL != "https://shop-pwa.workers.dev" {
		t.Fatalf("unexpected artifact: %#v", artifact)
	}
}

func TestExportRejectsUnknownType(t *testing.T) {
	exporter := NewExporter(nil)
	if _, err := exporter.Export(context.Background(), generatedState(t), job.ExportType("ftp"), ExportOptions{}); err == nil {
		t.Fatal("expected error for unknown export type")
	}
}
