package model

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ArtifactVersion is the current model artifact format.
const ArtifactVersion = 1

// ErrCorruptArtifact marks regressor parameters that cannot be evaluated.
var ErrCorruptArtifact = errors.New("corrupt model artifact")

const (
	regressorLinear = "linear"
	regressorForest = "random_forest"
)

type artifact struct {
	Version   int              `msgpack:"version"`
	ID        string           `msgpack:"id"`
	Mode      Mode             `msgpack:"mode"`
	CreatedAt time.Time        `msgpack:"created_at"`
	Features  []string         `msgpack:"features"`
	Scaler    *Scaler          `msgpack:"scaler"`
	Kind      string           `msgpack:"regressor"`
	Linear    *LinearRegressor `msgpack:"linear,omitempty"`
	Forest    *RandomForest    `msgpack:"forest,omitempty"`
	Report    Report           `msgpack:"report"`
}

// Encode writes m as a msgpack artifact.
func Encode(w io.Writer, m *FittedModel) error {
	if m == nil {
		return fmt.Errorf("encode model: nil model")
	}
	a := artifact{
		Version:   ArtifactVersion,
		ID:        m.id,
		Mode:      m.mode,
		CreatedAt: m.createdAt,
		Features:  m.features,
		Scaler:    m.scaler,
		Report:    m.report,
	}
	switch r := m.regressor.(type) {
	case *LinearRegressor:
		a.Kind, a.Linear = regressorLinear, r
	case *RandomForest:
		a.Kind, a.Forest = regressorForest, r
	default:
		return fmt.Errorf("encode model: unsupported regressor %T", m.regressor)
	}

	if err := msgpack.NewEncoder(w).Encode(&a); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	return nil
}

// Decode reads a msgpack artifact and re-checks its feature order.
func Decode(r io.Reader) (*FittedModel, error) {
	var a artifact
	if err := msgpack.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if a.Version != ArtifactVersion {
		return nil, fmt.Errorf("decode model: unsupported artifact version %d", a.Version)
	}

	m := &FittedModel{
		id:        a.ID,
		mode:      a.Mode,
		createdAt: a.CreatedAt,
		features:  a.Features,
		scaler:    a.Scaler,
		report:    a.Report,
	}
	switch a.Kind {
	case regressorLinear:
		if a.Linear != nil {
			if err := a.Linear.validate(); err != nil {
				return nil, fmt.Errorf("decode model: %w", err)
			}
			m.regressor = a.Linear
		}
	case regressorForest:
		if a.Forest != nil && len(a.Forest.Trees) > 0 {
			if err := a.Forest.validate(); err != nil {
				return nil, fmt.Errorf("decode model: %w", err)
			}
			m.regressor = a.Forest
		}
	default:
		return nil, fmt.Errorf("decode model: unknown regressor %q", a.Kind)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return m, nil
}

// Save writes m to path, replacing any existing file only once the new
// artifact is fully written.
func Save(path string, m *FittedModel) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := Encode(bw, m); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("save model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

// Load reads a model artifact from path.
func Load(path string) (*FittedModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	defer f.Close()

	return Decode(bufio.NewReader(f))
}
