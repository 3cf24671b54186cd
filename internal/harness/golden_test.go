package harness

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios_Golden runs every scenario under testdata/scenarios and
// compares its transcript with the golden file of the same name.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -run TestScenarios_Golden -update
func TestScenarios_Golden(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		name := strings.TrimSuffix(filepath.Base(f), ".yaml")
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(f)
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "scenario errors: %v", result.Errors)
		})
	}
}

func TestMarshalSnapshot_Shape(t *testing.T) {
	s := &Scenario{Name: "shape"}
	r := NewResult()
	r.AddExchange(Exchange{
		Step:   "restaurants",
		Method: "GET",
		Path:   "/restaurants",
		Status: 200,
		Body:   json.RawMessage(`[{"image":"https://x.test/a.jpg?w=1&q=2"}]`),
	})

	data, err := MarshalSnapshot(s, r)
	require.NoError(t, err)

	want := `{
  "scenario": "shape",
  "transcript": [
    {
      "step": "restaurants",
      "method": "GET",
      "path": "/restaurants",
      "status": 200,
      "body": [
        {
          "image": "https://x.test/a.jpg?w=1&q=2"
        }
      ]
    }
  ]
}
`
	assert.Equal(t, want, string(data))
}

func TestMarshalSnapshot_EmptyTranscript(t *testing.T) {
	data, err := MarshalSnapshot(&Scenario{Name: "none"}, NewResult())
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"scenario\": \"none\",\n  \"transcript\": []\n}\n", string(data))
}
