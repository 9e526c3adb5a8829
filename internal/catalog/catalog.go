// Package catalog indexes the benchmark's tabular instance source and
// derives sandbox image tags from instance metadata.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Row is one benchmark row, keyed by InstanceID. Only the columns the
// harness actually consumes are kept as named fields; the rest of the
// original table is not needed downstream.
type Row struct {
	InstanceID       string
	Repo             string
	RepoLanguage     string
	ProblemStatement string
	Requirements     string
	Interface        string
}

// InstanceInput is the exact projection written to instance.json.
type InstanceInput struct {
	Repo             string `json:"repo"`
	RepoLanguage     string `json:"repo_language"`
	ProblemStatement string `json:"problem_statement"`
	Requirements     string `json:"requirements"`
	Interface        string `json:"interface"`
}

// Input projects the row's instance-input fields.
func (r Row) Input() InstanceInput {
	return InstanceInput{
		Repo:             r.Repo,
		RepoLanguage:     r.RepoLanguage,
		ProblemStatement: r.ProblemStatement,
		Requirements:     r.Requirements,
		Interface:        r.Interface,
	}
}

// Catalog is an in-memory index of benchmark rows by instance id.
type Catalog struct {
	rows map[string]Row
}

// Load reads the CSV benchmark file and indexes it by instance_id,
// skipping malformed rows rather than failing the whole load, matching
// the reference loader's on_bad_lines='skip' behavior.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read catalog header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}

	required := []string{"instance_id", "repo", "repo_language", "problem_statement", "requirements", "interface"}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("catalog %s: missing column %q", path, col)
		}
	}

	rows := make(map[string]Row)
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			// skip malformed record, mirroring on_bad_lines='skip'
			continue
		}
		if len(rec) <= idx["instance_id"] {
			continue
		}
		row := Row{
			InstanceID:       field(rec, idx, "instance_id"),
			Repo:             field(rec, idx, "repo"),
			RepoLanguage:     field(rec, idx, "repo_language"),
			ProblemStatement: field(rec, idx, "problem_statement"),
			Requirements:     field(rec, idx, "requirements"),
			Interface:        field(rec, idx, "interface"),
		}
		rows[row.InstanceID] = row
	}

	return &Catalog{rows: rows}, nil
}

func field(rec []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}

// Lookup returns the row for instanceID, or false if unknown.
func (c *Catalog) Lookup(instanceID string) (Row, bool) {
	row, ok := c.rows[instanceID]
	return row, ok
}

// elementWebPinnedID is the one instance id whose full repo name must be
// preserved verbatim in its image tag.
const elementWebPinnedID = "instance_element-hq__element-web-ec0f940ef0e8e3b61078f145f34dc40d1938e6c5-vnan"

// ImageTag derives the sandbox image tag for a row, replicating the
// original sweap_get_docker_tag algorithm exactly, including its special
// cases for element-hq/element-web rows.
func ImageTag(row Row) string {
	repoBase, repoNameOnly := splitRepo(row.Repo)
	hash := strings.TrimPrefix(row.InstanceID, "instance_")

	lowerRepo := strings.ToLower(row.Repo)
	switch {
	case row.InstanceID == elementWebPinnedID:
		repoNameOnly = "element-web"
	case strings.Contains(lowerRepo, "element-hq") && strings.Contains(lowerRepo, "element-web"):
		repoNameOnly = "element"
		hash = strings.TrimSuffix(hash, "-vnan")
	default:
		hash = strings.TrimSuffix(hash, "-vnan")
	}

	tag := fmt.Sprintf("%s.%s-%s", repoBase, repoNameOnly, hash)
	if len(tag) > 128 {
		tag = tag[:128]
	}
	return tag
}

// splitRepo lowercases repo ("owner/name") and splits it into its two
// path components. A malformed repo string yields an empty second part.
func splitRepo(repo string) (base, name string) {
	lower := strings.ToLower(repo)
	parts := strings.SplitN(lower, "/", 2)
	if len(parts) != 2 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

// ImageReference builds the fully-qualified sandbox image reference for
// a row given the configured image base.
func ImageReference(imageBase string, row Row) string {
	return fmt.Sprintf("%s:%s", imageBase, ImageTag(row))
}
