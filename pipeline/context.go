// Package pipeline sequences entry point resolution, acquisition, ingestion
// and page generation for one run over a site.
package pipeline

import (
	"log/slog"
	"time"

	"github.com/c360studio/openhub/content"
	"github.com/c360studio/openhub/index"
	"github.com/c360studio/openhub/repocache"
	"github.com/c360studio/openhub/specbuild"
	"github.com/google/uuid"
)

// LastUpdateKey is merged onto entry documents with their repository's HEAD time.
const LastUpdateKey = "last_update"

// AcquisitionKind labels why a repository was acquired.
type AcquisitionKind string

// Acquisition kinds.
const (
	KindProject      AcquisitionKind = "project"
	KindSoftwareDocs AcquisitionKind = "software_docs"
	KindSoftwareRepo AcquisitionKind = "software_repo"
	KindSpec         AcquisitionKind = "spec"
	KindParentHub    AcquisitionKind = "parent_hub"
)

// Acquisition records one repository acquisition of a run.
type Acquisition struct {
	Kind      AcquisitionKind
	EntryID   string
	Path      string
	RemoteURL string
	Result    repocache.Result
}

// RunContext carries everything one run reads and writes.
//
// Run reads Site, Cache, Builders and Logger. It appends to Site.Pages and
// the Site collections, merges last_update into entry documents, and fills
// IsHub, Indexes, Warnings and Acquisitions.
type RunContext struct {
	RunID string

	Site     *content.Site
	Cache    *repocache.Cache
	Builders *specbuild.Registry
	Logger   *slog.Logger

	IsHub        bool
	Indexes      index.Indexes
	Warnings     []specbuild.Warning
	Acquisitions []Acquisition

	// SoftwareEntries and SpecEntries are the entry documents resolved this run.
	SoftwareEntries []*content.Document
	SpecEntries     []*content.Document

	StartedAt  time.Time
	FinishedAt time.Time

	visited map[string]repocache.Result
}

// NewRunContext creates a context with a fresh run ID. A nil builders
// registry selects specbuild.DefaultRegistry and a nil logger slog.Default().
func NewRunContext(site *content.Site, cache *repocache.Cache, builders *specbuild.Registry, logger *slog.Logger) *RunContext {
	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.New().String()
	logger = logger.With(slog.String("run_id", runID))
	if builders == nil {
		builders = specbuild.DefaultRegistry(logger)
	}
	return &RunContext{
		RunID:    runID,
		Site:     site,
		Cache:    cache,
		Builders: builders,
		Logger:   logger,
		visited:  make(map[string]repocache.Result),
	}
}

// Succeeded returns the acquisitions that produced a usable checkout.
func (rc *RunContext) Succeeded() []Acquisition {
	var out []Acquisition
	for _, a := range rc.Acquisitions {
		if a.Result.Success {
			out = append(out, a)
		}
	}
	return out
}
