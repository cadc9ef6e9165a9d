package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/Harshanhkp24/KrishiMitra/internal/models"
)

// FeatureOrder is the column order the classifier was trained on.
var FeatureOrder = []string{"soil_type", "rainfall", "temperature"}

// Artifact bundles the trained classifier, its label map and the soil
// encoding. It is never mutated after construction and is shared read-only
// by all requests.
type Artifact struct {
	version    string
	classifier Classifier
	labels     map[int]string
	encoding   SoilEncoding
}

// modelFile is the on-disk layout of the classifier blob.
type modelFile struct {
	Version      string       `json:"version"`
	Features     []string     `json:"features"`
	SoilEncoding SoilEncoding `json:"soil_encoding,omitempty"`
	Trees        []Tree       `json:"trees"`
}

// New assembles an artifact from parts. A nil encoding selects the default.
func New(classifier Classifier, labels map[int]string, encoding SoilEncoding) *Artifact {
	if encoding == nil {
		encoding = DefaultSoilEncoding()
	}
	copied := make(map[int]string, len(labels))
	for k, v := range labels {
		copied[k] = v
	}
	return &Artifact{
		classifier: classifier,
		labels:     copied,
		encoding:   encoding.clone(),
	}
}

// Load reads the classifier and label map from their two files. Whether the
// classifier can emit codes missing from the label map is not checked here;
// Decode reports it when it happens.
func Load(modelPath, labelsPath string) (*Artifact, error) {
	mf, err := readModelFile(modelPath)
	if err != nil {
		return nil, models.ArtifactLoad(modelPath, err)
	}
	labels, err := readLabels(labelsPath)
	if err != nil {
		return nil, models.ArtifactLoad(labelsPath, err)
	}

	a := New(&Forest{Trees: mf.Trees}, labels, mf.SoilEncoding)
	a.version = mf.Version
	return a, nil
}

func readModelFile(path string) (*modelFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var mf modelFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}

	if !slices.Equal(mf.Features, FeatureOrder) {
		return nil, fmt.Errorf("feature order %v does not match %v", mf.Features, FeatureOrder)
	}
	if mf.SoilEncoding != nil {
		if err := mf.SoilEncoding.validate(); err != nil {
			return nil, err
		}
	}
	if err := (&Forest{Trees: mf.Trees}).validate(); err != nil {
		return nil, err
	}
	return &mf, nil
}

func readLabels(path string) (map[int]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode label map: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("label map is empty")
	}

	labels := make(map[int]string, len(raw))
	for key, name := range raw {
		code, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("label key %q is not a class code", key)
		}
		if name == "" {
			return nil, fmt.Errorf("class %d has an empty name", code)
		}
		labels[code] = name
	}
	return labels, nil
}

// Encode maps a soil label to its training-time code.
func (a *Artifact) Encode(soilType string) (int, error) {
	return a.encoding.Encode(soilType)
}

// Classify runs the classifier on an already ordered feature vector.
func (a *Artifact) Classify(features [NumFeatures]float64) int {
	return a.classifier.Predict(features)
}

// Decode maps a class code to the crop name.
func (a *Artifact) Decode(code int) (string, error) {
	name, ok := a.labels[code]
	if !ok {
		return "", models.UnknownClassCode(code)
	}
	return name, nil
}

// SoilTypes lists the accepted soil labels in code order.
func (a *Artifact) SoilTypes() []string {
	return a.encoding.Labels()
}

// Version is the model version recorded in the model file, if any.
func (a *Artifact) Version() string {
	return a.version
}
