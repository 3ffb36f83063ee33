package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/gbtune/pkg/errors"
)

// Encode renders the report as indented JSON with a trailing newline. The
// encoding is stable: equal reports encode to equal bytes.
func Encode(r *EvaluationReport) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, errors.Wrap(err, "encode report")
	}
	return buf.Bytes(), nil
}

// WriteJSON writes the report to path, creating parent directories. The file
// is replaced atomically.
func WriteJSON(path string, r *EvaluationReport) error {
	data, err := Encode(r)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create report directory %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".report-*.json")
	if err != nil {
		return errors.Wrap(err, "create temporary report")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write report")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close report")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "move report to %s", path)
	}
	return nil
}

// ReadJSON loads a report written by WriteJSON.
func ReadJSON(path string) (*EvaluationReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read report %s", path)
	}
	var r EvaluationReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrapf(err, "decode report %s", path)
	}
	return &r, nil
}
