package model

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/gbtune/pkg/errors"
)

// SaveModel gob-encodes m to filename, creating parent directories. m must
// be a concrete model value or pointer with exported fields.
//
//	err := model.SaveModel(final.Model, "out/model.gob")
func SaveModel(m any, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return errors.Wrapf(err, "create model directory for %s", filename)
	}
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "create model file %s", filename)
	}
	if err := SaveModelToWriter(m, file); err != nil {
		file.Close()
		return err
	}
	return errors.Wrapf(file.Close(), "close model file %s", filename)
}

// LoadModel decodes a model written by SaveModel into m, which must be a
// pointer to the same concrete type.
//
//	var m lightgbm.Model
//	err := model.LoadModel(&m, "out/model.gob")
func LoadModel(m any, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "open model file %s", filename)
	}
	defer file.Close()
	return LoadModelFromReader(m, file)
}

// SaveModelToWriter gob-encodes m to w.
func SaveModelToWriter(m any, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(m); err != nil {
		return errors.Wrap(err, "encode model")
	}
	return nil
}

// LoadModelFromReader decodes a gob-encoded model from r into m.
func LoadModelFromReader(m any, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(m); err != nil {
		return errors.Wrap(err, "decode model")
	}
	return nil
}
