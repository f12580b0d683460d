// Package pwagen holds the stage collaborators the pipeline invokes: archive
// analysis with stack detection, PWA asset generation, checklist validation,
// and artifact export. Detection heuristics and scoring are demo mocks with
// deterministic outputs; the pipeline treats these as opaque callbacks.
package pwagen
