package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// GoldenDir is where scenario transcripts live, relative to the package
// under test.
const GoldenDir = "testdata/scenarios/golden"

// TranscriptSnapshot is the golden form of a run: the scenario name and every
// exchange, in order.
type TranscriptSnapshot struct {
	Scenario   string     `json:"scenario"`
	Transcript []Exchange `json:"transcript"`
}

// MarshalSnapshot renders the transcript of result as indented JSON with a
// trailing newline. HTML characters are left unescaped so image URLs read as
// the API sent them.
func MarshalSnapshot(scenario *Scenario, result *Result) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(TranscriptSnapshot{
		Scenario:   scenario.Name,
		Transcript: result.Transcript,
	}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares the transcript against
// GoldenDir/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass; a golden mismatch
// fails t through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}

	data, err := MarshalSnapshot(scenario, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return result, nil
}
