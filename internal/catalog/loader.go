package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	catalogParseErrorTemplateConstant      = "failed to parse embedded catalog: %w"
	enhancementsParseErrorTemplateConstant = "failed to parse embedded enhancements: %w"
)

//go:embed data/catalog.yaml
var embeddedCatalogContent []byte

//go:embed data/enhancements.yaml
var embeddedEnhancementsContent []byte

// Enhancement carries the supplementary reference data overlaid onto a base item.
type Enhancement struct {
	EvidenceRequirements []EvidenceRequirement `yaml:"evidence_requirements"`
	SuccessMetrics       []string              `yaml:"success_metrics"`
	ContinuousMonitoring bool                  `yaml:"continuous_monitoring"`
	ControlReferences    []string              `yaml:"control_references"`
}

type enhancementsDocument struct {
	Enhancements map[string]Enhancement `yaml:"enhancements"`
}

// LoadCatalog parses the embedded base catalog and resets every item to its pristine state.
func LoadCatalog() (Data, error) {
	return ParseCatalog(embeddedCatalogContent)
}

// ParseCatalog decodes a YAML catalog and initializes per-item progress fields.
func ParseCatalog(content []byte) (Data, error) {
	var data Data
	if unmarshalError := yaml.Unmarshal(content, &data); unmarshalError != nil {
		return Data{}, fmt.Errorf(catalogParseErrorTemplateConstant, unmarshalError)
	}

	for categoryIndex := range data.Categories {
		items := data.Categories[categoryIndex].Items
		for itemIndex := range items {
			items[itemIndex].Status = CompletionStatusNotStarted
			items[itemIndex].Evidence = ""
			items[itemIndex].CompletedItems = make([]bool, len(items[itemIndex].Checklist))
			items[itemIndex].Documents = nil
		}
	}

	return data, nil
}

// LoadEnhancements parses the embedded enhancement mapping keyed by item identifier.
func LoadEnhancements() (map[string]Enhancement, error) {
	return ParseEnhancements(embeddedEnhancementsContent)
}

// ParseEnhancements decodes a YAML enhancement mapping.
func ParseEnhancements(content []byte) (map[string]Enhancement, error) {
	var document enhancementsDocument
	if unmarshalError := yaml.Unmarshal(content, &document); unmarshalError != nil {
		return nil, fmt.Errorf(enhancementsParseErrorTemplateConstant, unmarshalError)
	}
	if document.Enhancements == nil {
		return map[string]Enhancement{}, nil
	}
	return document.Enhancements, nil
}

// InitialData returns the embedded catalog with enhancements applied.
func InitialData() (Data, error) {
	baseData, catalogError := LoadCatalog()
	if catalogError != nil {
		return Data{}, catalogError
	}

	enhancements, enhancementsError := LoadEnhancements()
	if enhancementsError != nil {
		return Data{}, enhancementsError
	}

	return MergeEnhancements(baseData, enhancements), nil
}
