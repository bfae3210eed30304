package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mrsinham/measurelink/internal/services"
)

// Config describes a viewer workspace: the studies and series loaded, the
// viewport layout and the structured reports available for hydration.
type Config struct {
	Studies       []StudyConfigYAML  `yaml:"studies"`
	Viewports     []ViewportYAML     `yaml:"viewports,omitempty"`
	Reports       []ReportYAML       `yaml:"reports,omitempty"`
	Customization *CustomizationYAML `yaml:"customization,omitempty"`
}

// StudyConfigYAML holds one study with YAML tags for serialization.
type StudyConfigYAML struct {
	StudyInstanceUID string             `yaml:"study_instance_uid"`
	Series           []SeriesConfigYAML `yaml:"series"`
}

// SeriesConfigYAML holds one series and its instances.
type SeriesConfigYAML struct {
	SeriesInstanceUID string               `yaml:"series_instance_uid"`
	SeriesNumber      string               `yaml:"series_number"`
	Modality          string               `yaml:"modality"`
	DisplaySetUID     string               `yaml:"display_set_uid,omitempty"`
	MultiFrame        bool                 `yaml:"multi_frame,omitempty"`
	Instances         []InstanceConfigYAML `yaml:"instances"`
}

// InstanceConfigYAML holds one image instance.
type InstanceConfigYAML struct {
	SOPInstanceUID      string `yaml:"sop_instance_uid"`
	InstanceNumber      int    `yaml:"instance_number"`
	NumberOfFrames      int    `yaml:"number_of_frames,omitempty"`
	ImageID             string `yaml:"image_id"`
	FrameOfReferenceUID string `yaml:"frame_of_reference_uid,omitempty"`
}

// ViewportYAML binds a viewport to an image and display set.
type ViewportYAML struct {
	ID            string `yaml:"id"`
	ImageID       string `yaml:"image_id"`
	DisplaySetUID string `yaml:"display_set_uid"`
}

// ReportYAML registers one structured-report display set backed by a DICOM
// file on disk.
type ReportYAML struct {
	DisplaySetUID     string `yaml:"display_set_uid"`
	StudyInstanceUID  string `yaml:"study_instance_uid"`
	SeriesInstanceUID string `yaml:"series_instance_uid"`
	SeriesNumber      string `yaml:"series_number,omitempty"`
	Path              string `yaml:"path"`
}

// CustomizationYAML carries the viewer customizations the workflow reads.
type CustomizationYAML struct {
	LabelOnMeasure string `yaml:"label_on_measure,omitempty"`
	DisableEditing bool   `yaml:"disable_editing,omitempty"`
}

// LoadConfig reads and validates a workspace config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the structural requirements of a workspace config.
func (c *Config) Validate() error {
	if len(c.Studies) == 0 {
		return fmt.Errorf("config: at least one study is required")
	}
	for i, study := range c.Studies {
		if study.StudyInstanceUID == "" {
			return fmt.Errorf("config: studies[%d] has no study_instance_uid", i)
		}
		if len(study.Series) == 0 {
			return fmt.Errorf("config: study %s has no series", study.StudyInstanceUID)
		}
		for j, series := range study.Series {
			if series.SeriesInstanceUID == "" {
				return fmt.Errorf("config: study %s series[%d] has no series_instance_uid", study.StudyInstanceUID, j)
			}
			for k, inst := range series.Instances {
				if inst.SOPInstanceUID == "" {
					return fmt.Errorf("config: series %s instances[%d] has no sop_instance_uid", series.SeriesInstanceUID, k)
				}
				if inst.ImageID == "" {
					return fmt.Errorf("config: instance %s has no image_id", inst.SOPInstanceUID)
				}
			}
		}
	}
	for i, report := range c.Reports {
		if report.DisplaySetUID == "" {
			return fmt.Errorf("config: reports[%d] has no display_set_uid", i)
		}
		if report.Path == "" {
			return fmt.Errorf("config: report %s has no path", report.DisplaySetUID)
		}
	}
	return nil
}

// CustomizationValues flattens the customization block into the service's
// key-value form.
func (c *Config) CustomizationValues() map[string]any {
	values := make(map[string]any)
	if c.Customization == nil {
		return values
	}
	if c.Customization.LabelOnMeasure != "" {
		values[services.CustomizationLabelOnMeasure] = c.Customization.LabelOnMeasure
	}
	if c.Customization.DisableEditing {
		values[services.CustomizationDisableEditing] = true
	}
	return values
}
