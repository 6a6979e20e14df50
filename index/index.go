// Package index derives listings over the merged content graph.
package index

import (
	"sort"
	"strings"

	"github.com/c360studio/openhub/content"
)

// FeaturePriorityKey orders featured items; items without it are not featured.
const FeaturePriorityKey = "feature_with_priority"

// Partition splits items into featured and the rest.
type Partition struct {
	// Featured is ordered by ascending priority.
	Featured []*content.Document

	// Rest keeps the input order.
	Rest []*content.Document
}

// Indexes holds every derived listing of a run.
type Indexes struct {
	// Posts is the combined blog feed, newest first.
	Posts []*content.Document

	Projects Partition
	Software Partition
	Specs    Partition
}

// isProjectIndex matches /projects/<name>/index.
func isProjectIndex(doc *content.Document) bool {
	pieces := strings.Split(doc.URL, "/")
	return len(pieces) == 4 && pieces[1] == content.LabelProjects && pieces[3] == "index"
}

// BlogFeed returns the site's posts and, on a hub, every project's posts,
// newest first. Hub project index documents get a "name" and project posts a
// "parent_project" pointing at their project's data.
func BlogFeed(site *content.Site, isHub bool) []*content.Document {
	var feed []*content.Document
	if posts, ok := site.Collections[content.LabelPosts]; ok {
		feed = append(feed, posts.Docs...)
	}

	if isHub {
		if projects, ok := site.Collections[content.LabelProjects]; ok {
			feed = append(feed, projectPosts(projects)...)
		}
	}

	sortByDateDesc(feed)
	return feed
}

func projectPosts(projects *content.Collection) []*content.Document {
	byName := make(map[string]*content.Document)
	for _, doc := range projects.Docs {
		if !isProjectIndex(doc) {
			continue
		}
		name := strings.Split(doc.URL, "/")[2]
		doc.Data["name"] = name
		byName[name] = doc
	}

	var posts []*content.Document
	for _, doc := range projects.Docs {
		if !strings.Contains(doc.URL, "/_posts/") {
			continue
		}
		if project, ok := byName[strings.Split(doc.URL, "/")[2]]; ok {
			doc.Data["parent_project"] = project.Data
		}
		posts = append(posts, doc)
	}
	return posts
}

// sortByDateDesc orders docs newest first; undated documents sort last and
// ties keep their order.
func sortByDateDesc(docs []*content.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		di, iok := docs[i].Date()
		dj, jok := docs[j].Date()
		if iok != jok {
			return iok
		}
		return di.After(dj)
	})
}

// PartitionFeatured separates items carrying a numeric feature_with_priority.
func PartitionFeatured(docs []*content.Document) Partition {
	type ranked struct {
		doc      *content.Document
		priority float64
	}

	var featured []ranked
	var p Partition
	for _, doc := range docs {
		if priority, ok := featurePriority(doc); ok {
			featured = append(featured, ranked{doc, priority})
			continue
		}
		p.Rest = append(p.Rest, doc)
	}

	sort.SliceStable(featured, func(i, j int) bool {
		return featured[i].priority < featured[j].priority
	})
	for _, f := range featured {
		p.Featured = append(p.Featured, f.doc)
	}
	return p
}

func featurePriority(doc *content.Document) (float64, bool) {
	switch v := doc.Data[FeaturePriorityKey].(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
