package embedded

import (
	_ "embed"
)

// Detector and classifier tables
//
//go:embed data/indicators.yaml
var IndicatorsYAML []byte

//go:embed data/annotation_keywords.yaml
var AnnotationKeywordsYAML []byte
