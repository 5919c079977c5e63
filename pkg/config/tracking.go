package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TrackedProject is one entry of the tracked-projects file
type TrackedProject struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name,omitempty"` // Display name override
}

// TrackingFile lists the projects the dashboard should follow
//
//	projects:
//	  - id: 12345678
//	    name: "Momentum v2"
//	  - id: 23456789
type TrackingFile struct {
	Projects []TrackedProject `yaml:"projects"`
}

// LoadTrackingFile reads the YAML tracking file at path.
// Unknown fields fail the load (KnownFields) so typos surface immediately.
func LoadTrackingFile(path string) (*TrackingFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tracking file: %w", err)
	}

	var tf TrackingFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&tf); err != nil {
		return nil, fmt.Errorf("parse tracking file %s: %w", path, err)
	}

	if err := tf.validate(); err != nil {
		return nil, fmt.Errorf("tracking file %s: %w", path, err)
	}

	return &tf, nil
}

func (tf *TrackingFile) validate() error {
	if len(tf.Projects) == 0 {
		return fmt.Errorf("no projects listed")
	}

	seen := make(map[int64]bool, len(tf.Projects))
	for i, p := range tf.Projects {
		if p.ID <= 0 {
			return fmt.Errorf("projects[%d]: id must be positive", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("projects[%d]: duplicate id %d", i, p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// TrackedProjects merges QC_PROJECT_ID and the tracking file.
// An empty result means "track every accessible project".
func (c *Config) TrackedProjects() ([]TrackedProject, error) {
	var tracked []TrackedProject

	if c.QC.ProjectsFile != "" {
		tf, err := LoadTrackingFile(c.QC.ProjectsFile)
		if err != nil {
			return nil, err
		}
		tracked = append(tracked, tf.Projects...)
	}

	if c.QC.ProjectID > 0 {
		for _, p := range tracked {
			if p.ID == c.QC.ProjectID {
				return tracked, nil
			}
		}
		tracked = append(tracked, TrackedProject{ID: c.QC.ProjectID})
	}

	return tracked, nil
}
