package surrogate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const (
	artifactSchemaVersion = 1
	artifactCodecVersion  = 1
)

var ErrArtifactVersion = errors.New("surrogate artifact version mismatch")

// Model pairs a regressor with the schema its inputs must follow. It is
// read-only after construction.
type Model struct {
	Schema    Schema
	Regressor Regressor
}

func (m *Model) Predict(in Input) (float64, error) {
	x, err := m.Schema.Vector(in)
	if err != nil {
		return 0, err
	}
	return m.Regressor.Predict(x)
}

func (m *Model) PredictNamed(features map[string]float64) (float64, error) {
	x, err := m.Schema.VectorFromNamed(features)
	if err != nil {
		return 0, err
	}
	return m.Regressor.Predict(x)
}

type artifact struct {
	SchemaVersion int    `json:"schema_version"`
	CodecVersion  int    `json:"codec_version"`
	Kind          string `json:"kind"`
	Schema        Schema `json:"schema"`
	GP            *GP    `json:"gp,omitempty"`
}

// Save writes the model and its schema as one JSON artifact.
func (m *Model) Save(w io.Writer) error {
	gp, ok := m.Regressor.(*GP)
	if !ok {
		return fmt.Errorf("save: unsupported regressor %T", m.Regressor)
	}
	enc := json.NewEncoder(w)
	return enc.Encode(artifact{
		SchemaVersion: artifactSchemaVersion,
		CodecVersion:  artifactCodecVersion,
		Kind:          "gp",
		Schema:        m.Schema,
		GP:            gp,
	})
}

// Load reads an artifact written by Save and validates schema and
// regressor against each other.
func Load(r io.Reader) (*Model, error) {
	var a artifact
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("decode surrogate artifact: %w", err)
	}
	if a.SchemaVersion != artifactSchemaVersion || a.CodecVersion != artifactCodecVersion {
		return nil, fmt.Errorf("%w: schema=%d codec=%d", ErrArtifactVersion, a.SchemaVersion, a.CodecVersion)
	}
	if a.Kind != "gp" || a.GP == nil {
		return nil, fmt.Errorf("unsupported regressor kind %q", a.Kind)
	}
	if err := a.Schema.Validate(); err != nil {
		return nil, err
	}
	if err := a.GP.validate(); err != nil {
		return nil, err
	}
	if a.GP.Dim() != a.Schema.Len() {
		return nil, fmt.Errorf("%w: regressor width %d, schema width %d", ErrSchemaMismatch, a.GP.Dim(), a.Schema.Len())
	}
	return &Model{Schema: a.Schema, Regressor: a.GP}, nil
}
