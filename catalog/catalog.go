// Package catalog holds the known console report keys with their status
// bucket and human name.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"gsc_coverage/models"
)

type Entry struct {
	Key    models.ReportIdentifier `yaml:"key"`
	Status models.Status           `yaml:"status"`
	Name   string                  `yaml:"name"`
}

type Catalog struct {
	entries map[models.ReportIdentifier]Entry
}

var defaultEntries = []Entry{
	{models.AllURLs, models.StatusIndexed, "Indexed pages"},
	{"CAMYAiAB", models.StatusValid, "Indexed, not submitted in sitemap"},
	{"CAMYASAB", models.StatusValid, "Submitted and indexed"},
	{"CAMYEyAE", models.StatusError, "Server error (5xx)"},
	{"CAMYHyAE", models.StatusError, "Submitted URL not found (404)"},
	{"CAMYHCAE", models.StatusError, "Submitted URL marked 'noindex'"},
	{"CAMYFCAE", models.StatusError, "Redirect error"},
	{"CAMYICAE", models.StatusError, "Submitted URL seems to be a Soft 404"},
	{"CAMYISAE", models.StatusError, "Submitted URL has crawl issue"},
	{"CAMYGyAE", models.StatusError, "Submitted URL blocked by robots.txt"},
	{"CAMYNSAE", models.StatusError, "Submitted URL returned 403"},
	{"CAMYNiAE", models.StatusError, "Submitted URL blocked due to other 4xx issue"},
	{"CAMYHiAE", models.StatusError, "Submitted URL returns unauthorised request (401)"},
	{"CAMYBCAD", models.StatusWarning, "Indexed, though blocked by robots.txt"},
	{"CAMYMiAD", models.StatusWarning, "Page indexed without content"},
	{"CAMYByAC", models.StatusExcluded, "Blocked by robots.txt"},
	{"CAMYCCAC", models.StatusExcluded, "Excluded by 'noindex' tag"},
	{"CAMYGCAC", models.StatusExcluded, "Alternate page with proper canonical tag"},
	{"CAMYFyAC", models.StatusExcluded, "Crawled - currently not indexed"},
	{"CAMYCyAC", models.StatusExcluded, "Page with redirect"},
	{"CAMYDSAC", models.StatusExcluded, "Not found (404)"},
	{"CAMYECAC", models.StatusExcluded, "Duplicate, Google chose different canonical than user"},
	{"CAMYDyAC", models.StatusExcluded, "Duplicate without user-selected canonical"},
	{"CAMYGSAC", models.StatusExcluded, "Duplicate, submitted URL not selected as canonical"},
	{"CAMYDiAC", models.StatusExcluded, "Soft 404"},
	{"CAMYFiAC", models.StatusExcluded, "Discovered - currently not indexed"},
	{"CAMYMyAC", models.StatusExcluded, "Blocked due to access forbidden (403)"},
	{"CAMYNCAC", models.StatusExcluded, "Blocked due to other 4xx issue"},
	{"CAMYCiAC", models.StatusExcluded, "Blocked due to unauthorized request (401)"},
	{"CAMYJyAC", models.StatusExcluded, "Crawl anomaly"},
}

// The two trailing characters of a coverage key encode its bucket.
var suffixBuckets = map[string]models.Status{
	"AB": models.StatusValid,
	"AE": models.StatusError,
	"AD": models.StatusWarning,
	"AC": models.StatusExcluded,
}

func Default() *Catalog {
	c := &Catalog{entries: make(map[models.ReportIdentifier]Entry, len(defaultEntries))}
	for _, e := range defaultEntries {
		c.entries[e.Key] = e
	}
	return c
}

// Load reads a YAML list of entries and layers it over the defaults.
// A missing file yields the defaults.
func Load(path string) (*Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, err
	}

	var file struct {
		Reports []Entry `yaml:"reports"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	for _, e := range file.Reports {
		if e.Key == "" {
			continue
		}
		if status, ok := models.ParseStatus(string(e.Status)); ok {
			e.Status = status
		} else {
			e.Status = bucketFromKey(e.Key)
		}
		c.entries[e.Key] = e
	}
	return c, nil
}

func (c *Catalog) Lookup(id models.ReportIdentifier) (Entry, bool) {
	e, ok := c.entries[id]
	return e, ok
}

// StatusFor returns the bucket of a key, known or not.
func (c *Catalog) StatusFor(id models.ReportIdentifier) models.Status {
	if e, ok := c.entries[id]; ok {
		return e.Status
	}
	return bucketFromKey(id)
}

func (c *Catalog) NameFor(id models.ReportIdentifier) models.Text {
	if e, ok := c.entries[id]; ok && e.Name != "" {
		return models.PresentText(e.Name)
	}
	return models.MissingText()
}

func (c *Catalog) Len() int { return len(c.entries) }

func bucketFromKey(id models.ReportIdentifier) models.Status {
	key := string(id)
	if id == models.AllURLs {
		return models.StatusIndexed
	}
	if strings.HasPrefix(key, "CAMY") && len(key) >= 2 {
		if s, ok := suffixBuckets[key[len(key)-2:]]; ok {
			return s
		}
	}
	return models.StatusNotIndexed
}
