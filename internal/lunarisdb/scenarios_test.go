package lunarisdb

import (
	"os"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// scenarioFile is the shape of testdata/scenarios.yaml.
type scenarioFile struct {
	Scenarios []scenario `yaml:"scenarios"`
}

type scenario struct {
	Name       string      `yaml:"name"`
	Statements []statement `yaml:"statements"`
}

type statement struct {
	SQL              string   `yaml:"sql"`
	WantMessage      string   `yaml:"wantMessage"`
	WantErrContains  string   `yaml:"wantErrContains"`
	WantRowCount     *int     `yaml:"wantRowCount"`
	WantRowsAffected *int64   `yaml:"wantRowsAffected"`
	WantColumns      []string `yaml:"wantColumns"`
	WantFirstRow     []string `yaml:"wantFirstRow"`
}

// TestScenarios replays testdata/scenarios.yaml, a YAML-authored
// complement to the hand-written cases in database_test.go covering the
// same spec.md §8 walkthrough plus a couple of supplementary checks.
func TestScenarios(t *testing.T) {
	raw, err := os.ReadFile("testdata/scenarios.yaml")
	if err != nil {
		t.Fatalf("read scenarios.yaml: %v", err)
	}
	var file scenarioFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		t.Fatalf("unmarshal scenarios.yaml: %v", err)
	}
	if len(file.Scenarios) == 0 {
		t.Fatal("scenarios.yaml defines no scenarios")
	}

	for _, sc := range file.Scenarios {
		sc := sc
		t.Run(sc.Name, func(t *testing.T) {
			db := openTestDB(t)
			for i, st := range sc.Statements {
				res, err := db.ExecuteSQL(st.SQL)
				if st.WantErrContains != "" {
					if err == nil {
						t.Fatalf("statement %d (%q): expected error containing %q, got none", i, st.SQL, st.WantErrContains)
					}
					if !strings.Contains(err.Error(), st.WantErrContains) {
						t.Fatalf("statement %d (%q): error %q does not contain %q", i, st.SQL, err.Error(), st.WantErrContains)
					}
					continue
				}
				if err != nil {
					t.Fatalf("statement %d (%q): %v", i, st.SQL, err)
				}
				if st.WantMessage != "" && res.Message != st.WantMessage {
					t.Fatalf("statement %d (%q): message = %q, want %q", i, st.SQL, res.Message, st.WantMessage)
				}
				if st.WantRowCount != nil && len(res.Rows) != *st.WantRowCount {
					t.Fatalf("statement %d (%q): row count = %d, want %d", i, st.SQL, len(res.Rows), *st.WantRowCount)
				}
				if st.WantRowsAffected != nil && res.RowsAffected != *st.WantRowsAffected {
					t.Fatalf("statement %d (%q): rows affected = %d, want %d", i, st.SQL, res.RowsAffected, *st.WantRowsAffected)
				}
				if len(st.WantColumns) > 0 {
					if len(res.Columns) != len(st.WantColumns) {
						t.Fatalf("statement %d (%q): columns = %v, want %v", i, st.SQL, res.Columns, st.WantColumns)
					}
					for j, c := range st.WantColumns {
						if res.Columns[j] != c {
							t.Fatalf("statement %d (%q): column %d = %q, want %q", i, st.SQL, j, res.Columns[j], c)
						}
					}
				}
				if len(st.WantFirstRow) > 0 {
					if len(res.Rows) == 0 {
						t.Fatalf("statement %d (%q): wantFirstRow set but no rows returned", i, st.SQL)
					}
					row := res.Rows[0]
					for j, want := range st.WantFirstRow {
						if j >= len(row) {
							t.Fatalf("statement %d (%q): row has %d columns, wantFirstRow names %d", i, st.SQL, len(row), len(st.WantFirstRow))
						}
						if got := row[j].String(); got != want {
							t.Fatalf("statement %d (%q): first row col %d = %q, want %q", i, st.SQL, j, got, want)
						}
					}
				}
			}
		})
	}
}
