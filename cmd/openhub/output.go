package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/c360studio/openhub/content"
	"github.com/c360studio/openhub/index"
	"github.com/c360studio/openhub/pipeline"
	"github.com/c360studio/openhub/repocache"
	"github.com/prometheus/common/expfmt"
	"gopkg.in/yaml.v3"
)

// DataFile is the destination-relative file holding the run's derived indexes.
const DataFile = "_data/openhub.yml"

// writeOutput writes every generated page, its assets and the index data file.
func writeOutput(dest string, rc *pipeline.RunContext) error {
	for _, page := range rc.Site.Pages {
		if err := writePage(dest, page); err != nil {
			return err
		}
	}
	return writeDataFile(filepath.Join(dest, filepath.FromSlash(DataFile)), rc)
}

func writePage(dest string, page *content.Page) error {
	out := filepath.Join(dest, filepath.FromSlash(page.OutputPath()))
	data, err := content.MarshalFrontMatter(page.Data, page.Content)
	if err != nil {
		return fmt.Errorf("render page %s: %w", page.OutputPath(), err)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("create page directory: %w", err)
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("write page %s: %w", out, err)
	}

	for _, asset := range page.Assets {
		if err := copyFile(asset.Source, filepath.Join(dest, filepath.FromSlash(asset.OutputPath))); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open asset %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create asset directory: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create asset %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy asset %s: %w", dst, err)
	}
	return out.Close()
}

// runData is the serialized form of a run's derived data.
type runData struct {
	RunID        string            `yaml:"run_id"`
	GeneratedAt  time.Time         `yaml:"generated_at"`
	IsHub        bool              `yaml:"is_hub"`
	Posts        []postData        `yaml:"posts_combined"`
	Projects     partitionData     `yaml:"projects,omitempty"`
	Software     partitionData     `yaml:"software"`
	Specs        partitionData     `yaml:"specs"`
	Warnings     []string          `yaml:"warnings,omitempty"`
	Acquisitions []acquisitionData `yaml:"acquisitions,omitempty"`
}

type postData struct {
	URL           string     `yaml:"url"`
	Title         string     `yaml:"title,omitempty"`
	Date          *time.Time `yaml:"date,omitempty"`
	ParentProject string     `yaml:"parent_project,omitempty"`
}

type partitionData struct {
	Featured []string `yaml:"featured,omitempty"`
	Rest     []string `yaml:"rest,omitempty"`
}

type acquisitionData struct {
	Kind       string     `yaml:"kind"`
	Entry      string     `yaml:"entry,omitempty"`
	Path       string     `yaml:"path"`
	Success    bool       `yaml:"success"`
	Newly      bool       `yaml:"newly_initialized"`
	ModifiedAt *time.Time `yaml:"modified_at,omitempty"`
}

func newRunData(rc *pipeline.RunContext) runData {
	d := runData{
		RunID:       rc.RunID,
		GeneratedAt: rc.FinishedAt,
		IsHub:       rc.IsHub,
		Projects:    urlsOf(rc.Indexes.Projects),
		Software:    urlsOf(rc.Indexes.Software),
		Specs:       urlsOf(rc.Indexes.Specs),
	}

	for _, post := range rc.Indexes.Posts {
		p := postData{URL: post.URL, Title: post.Title()}
		if date, ok := post.Date(); ok {
			p.Date = &date
		}
		if parent, ok := post.Data["parent_project"].(map[string]any); ok {
			p.ParentProject, _ = parent["name"].(string)
		}
		d.Posts = append(d.Posts, p)
	}
	for _, w := range rc.Warnings {
		d.Warnings = append(d.Warnings, w.Message)
	}
	for _, a := range rc.Acquisitions {
		d.Acquisitions = append(d.Acquisitions, acquisitionData{
			Kind:       string(a.Kind),
			Entry:      a.EntryID,
			Path:       a.Path,
			Success:    a.Result.Success,
			Newly:      a.Result.NewlyInitialized,
			ModifiedAt: a.Result.ModifiedAt,
		})
	}
	return d
}

func urlsOf(p index.Partition) partitionData {
	var d partitionData
	for _, doc := range p.Featured {
		d.Featured = append(d.Featured, doc.URL)
	}
	for _, doc := range p.Rest {
		d.Rest = append(d.Rest, doc.URL)
	}
	return d
}

func writeDataFile(path string, rc *pipeline.RunContext) error {
	data, err := yaml.Marshal(newRunData(rc))
	if err != nil {
		return fmt.Errorf("marshal run data: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write run data: %w", err)
	}
	return nil
}

// writeMetricsFile writes the cache metrics in the Prometheus text format.
func writeMetricsFile(path string, metrics *repocache.Metrics) error {
	families, err := metrics.Registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metrics file: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(f, mf); err != nil {
			f.Close()
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return f.Close()
}

// parseDebounce parses a --debounce value.
func parseDebounce(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid debounce %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid debounce %q: must be positive", s)
	}
	return d, nil
}
