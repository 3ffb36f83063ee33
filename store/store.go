// Package store keeps a SQLite ledger of search runs: the selected
// configuration and test metrics per run, the CV summary per configuration
// and every fold outcome.
package store

import (
	"context"
	"database/sql"
	"encoding/json"

	_ "modernc.org/sqlite"

	"github.com/YuminosukeSato/gbtune/pkg/errors"
	"github.com/YuminosukeSato/gbtune/report"
	ms "github.com/YuminosukeSato/gbtune/sklearn/model_selection"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id          TEXT PRIMARY KEY,
	model           TEXT,
	selected_index  INTEGER NOT NULL,
	selected_params TEXT NOT NULL,
	cv_mean_auc     REAL NOT NULL,
	test_auc        REAL NOT NULL,
	auc_lower       REAL NOT NULL,
	auc_upper       REAL NOT NULL,
	threshold       REAL NOT NULL,
	report_json     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS config_summaries (
	run_id           TEXT NOT NULL,
	config_index     INTEGER NOT NULL,
	params           TEXT NOT NULL,
	mean_auc         REAL NOT NULL,
	std_auc          REAL NOT NULL,
	stderr_auc       REAL NOT NULL,
	mean_sensitivity REAL NOT NULL,
	mean_specificity REAL NOT NULL,
	successful_folds INTEGER NOT NULL,
	failed_folds     INTEGER NOT NULL,
	invalid          INTEGER NOT NULL,
	invalid_reason   TEXT,
	PRIMARY KEY (run_id, config_index),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS fold_metrics (
	run_id       TEXT NOT NULL,
	config_index INTEGER NOT NULL,
	repeat       INTEGER NOT NULL,
	fold         INTEGER NOT NULL,
	failed       INTEGER NOT NULL,
	auc          REAL,
	sensitivity  REAL,
	specificity  REAL,
	reason       TEXT,
	PRIMARY KEY (run_id, config_index, repeat, fold),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// Store is a run ledger backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates the ledger at path and applies the schema. Use
// ":memory:" for a private in-memory ledger.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open ledger %s", path)
	}
	// a single connection keeps ":memory:" databases shared between calls
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{"PRAGMA foreign_keys=ON", schema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "migrate ledger")
		}
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunRecord is one row of the runs table.
type RunRecord struct {
	RunID          string
	Model          string
	SelectedIndex  int
	SelectedParams []ms.Param
	CVMeanAUC      float64
	TestAUC        float64
	AUCLower       float64
	AUCUpper       float64
	Threshold      float64
}

// SummaryRecord is one row of the config_summaries table.
type SummaryRecord struct {
	ConfigIndex     int
	Params          []ms.Param
	MeanAUC         float64
	StdAUC          float64
	StdErrAUC       float64
	MeanSensitivity float64
	MeanSpecificity float64
	SuccessfulFolds int
	FailedFolds     int
	Invalid         bool
	InvalidReason   string
}

// FoldRecord is one row of the fold_metrics table. Metric fields are zero
// for failed folds.
type FoldRecord struct {
	ConfigIndex int
	Repeat      int
	Fold        int
	Failed      bool
	AUC         float64
	Sensitivity float64
	Specificity float64
	Reason      string
}

// SaveRun records a finished run. Saving the same run id again replaces the
// previous rows, so re-running a search leaves one copy in the ledger. res
// may be nil, in which case no fold rows are written.
func (s *Store) SaveRun(ctx context.Context, rep *report.EvaluationReport, res *ms.SearchResult) error {
	if rep == nil || rep.RunID == "" {
		return errors.NewValueError("store.SaveRun", "report has no run id")
	}
	body, err := report.Encode(rep)
	if err != nil {
		return err
	}
	selected, err := json.Marshal(rep.Selected.Params)
	if err != nil {
		return errors.Wrap(err, "encode selected params")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	for _, table := range []string{"fold_metrics", "config_summaries"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = ?", rep.RunID); err != nil {
			return errors.Wrapf(err, "clear %s", table)
		}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (run_id, model, selected_index, selected_params, cv_mean_auc,
		 test_auc, auc_lower, auc_upper, threshold, report_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.RunID, rep.Model, rep.Selected.Index, string(selected), rep.Selected.MeanAUC,
		rep.AUC.AUC, rep.AUC.Lower, rep.AUC.Upper, rep.Threshold, string(body),
	)
	if err != nil {
		return errors.Wrap(err, "insert run")
	}

	for _, row := range rep.CVSummary {
		params, err := json.Marshal(row.Params)
		if err != nil {
			return errors.Wrap(err, "encode params")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO config_summaries (run_id, config_index, params, mean_auc, std_auc, stderr_auc,
			 mean_sensitivity, mean_specificity, successful_folds, failed_folds, invalid, invalid_reason)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rep.RunID, row.Index, string(params), row.MeanAUC, row.StdAUC, row.StdErrAUC,
			row.MeanSensitivity, row.MeanSpecificity, row.SuccessfulFolds, row.FailedFolds,
			row.Invalid, row.InvalidReason,
		)
		if err != nil {
			return errors.Wrapf(err, "insert summary for config #%d", row.Index)
		}
	}

	if res != nil && res.CV != nil {
		if err := insertFolds(ctx, tx, rep.RunID, res.CV); err != nil {
			return err
		}
	}
	return errors.Wrap(tx.Commit(), "commit run")
}

func insertFolds(ctx context.Context, tx *sql.Tx, runID string, cv *ms.CVResults) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO fold_metrics (run_id, config_index, repeat, fold, failed, auc, sensitivity, specificity, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare fold insert")
	}
	defer stmt.Close()

	for _, cr := range cv.Configs {
		idx := cr.Config.Index()
		for _, m := range cr.Metrics {
			if _, err := stmt.ExecContext(ctx, runID, idx, m.Repeat, m.Fold, false,
				m.AUC, m.Sensitivity, m.Specificity, nil); err != nil {
				return errors.Wrapf(err, "insert fold metric for config #%d", idx)
			}
		}
		for _, f := range cr.Failures {
			if _, err := stmt.ExecContext(ctx, runID, idx, f.Repeat, f.Fold, true,
				nil, nil, nil, f.Reason); err != nil {
				return errors.Wrapf(err, "insert fold failure for config #%d", idx)
			}
		}
	}
	return nil
}

// Run loads the run row for runID. A missing run yields sql.ErrNoRows.
func (s *Store) Run(ctx context.Context, runID string) (*RunRecord, error) {
	var (
		rec    RunRecord
		model  sql.NullString
		params string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, model, selected_index, selected_params, cv_mean_auc, test_auc, auc_lower, auc_upper, threshold
		 FROM runs WHERE run_id = ?`, runID,
	).Scan(&rec.RunID, &model, &rec.SelectedIndex, &params, &rec.CVMeanAUC,
		&rec.TestAUC, &rec.AUCLower, &rec.AUCUpper, &rec.Threshold)
	if err != nil {
		return nil, errors.Wrapf(err, "load run %s", runID)
	}
	rec.Model = model.String
	if err := json.Unmarshal([]byte(params), &rec.SelectedParams); err != nil {
		return nil, errors.Wrap(err, "decode selected params")
	}
	return &rec, nil
}

// Report returns the stored EvaluationReport of runID.
func (s *Store) Report(ctx context.Context, runID string) (*report.EvaluationReport, error) {
	var body string
	if err := s.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE run_id = ?`, runID).Scan(&body); err != nil {
		return nil, errors.Wrapf(err, "load report %s", runID)
	}
	var rep report.EvaluationReport
	if err := json.Unmarshal([]byte(body), &rep); err != nil {
		return nil, errors.Wrap(err, "decode report")
	}
	return &rep, nil
}

// Summaries returns the CV summary rows of runID in enumeration order.
func (s *Store) Summaries(ctx context.Context, runID string) ([]SummaryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT config_index, params, mean_auc, std_auc, stderr_auc, mean_sensitivity, mean_specificity,
		 successful_folds, failed_folds, invalid, invalid_reason
		 FROM config_summaries WHERE run_id = ? ORDER BY config_index`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "query summaries")
	}
	defer rows.Close()

	var out []SummaryRecord
	for rows.Next() {
		var (
			rec    SummaryRecord
			params string
			reason sql.NullString
		)
		if err := rows.Scan(&rec.ConfigIndex, &params, &rec.MeanAUC, &rec.StdAUC, &rec.StdErrAUC,
			&rec.MeanSensitivity, &rec.MeanSpecificity, &rec.SuccessfulFolds, &rec.FailedFolds,
			&rec.Invalid, &reason); err != nil {
			return nil, errors.Wrap(err, "scan summary")
		}
		if err := json.Unmarshal([]byte(params), &rec.Params); err != nil {
			return nil, errors.Wrap(err, "decode params")
		}
		rec.InvalidReason = reason.String
		out = append(out, rec)
	}
	return out, errors.Wrap(rows.Err(), "iterate summaries")
}

// Folds returns the fold rows of one configuration of runID ordered by
// repeat and fold.
func (s *Store) Folds(ctx context.Context, runID string, configIndex int) ([]FoldRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT config_index, repeat, fold, failed, auc, sensitivity, specificity, reason
		 FROM fold_metrics WHERE run_id = ? AND config_index = ? ORDER BY repeat, fold`,
		runID, configIndex)
	if err != nil {
		return nil, errors.Wrap(err, "query folds")
	}
	defer rows.Close()

	var out []FoldRecord
	for rows.Next() {
		var (
			rec             FoldRecord
			auc, sens, spec sql.NullFloat64
			reason          sql.NullString
		)
		if err := rows.Scan(&rec.ConfigIndex, &rec.Repeat, &rec.Fold, &rec.Failed,
			&auc, &sens, &spec, &reason); err != nil {
			return nil, errors.Wrap(err, "scan fold")
		}
		rec.AUC, rec.Sensitivity, rec.Specificity = auc.Float64, sens.Float64, spec.Float64
		rec.Reason = reason.String
		out = append(out, rec)
	}
	return out, errors.Wrap(rows.Err(), "iterate folds")
}
