package rulefile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/oncall/core/factory"
	"github.com/kilianp07/oncall/core/model"
)

func TestLoadYAML(t *testing.T) {
	rules, err := Load("testdata/rules.yaml")
	require.NoError(t, err)
	require.Len(t, rules, 4)

	cov := rules[0]
	assert.Equal(t, "coverage_g", cov.ID)
	assert.Equal(t, "coverage", cov.Kind)
	assert.Equal(t, 1, cov.EffectivePriority())
	assert.True(t, cov.Active())

	assert.False(t, rules[2].Active())
	assert.Equal(t, "", rules[3].ID)
	assert.Equal(t, 0, rules[3].EffectivePriority())

	var p struct {
		ShiftTypes []string `json:"shift_types"`
		Min        int      `json:"min"`
		Max        *int     `json:"max"`
	}
	require.NoError(t, factory.DecodeStrict(cov.Params, &p))
	assert.Equal(t, []string{"G"}, p.ShiftTypes)
	require.NotNil(t, p.Max)
	assert.Equal(t, 1, *p.Max)
}

func TestLoadJSONMatchesYAML(t *testing.T) {
	rules, err := Load("testdata/rules.yaml")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "rules.json")
	doc := `{"rules":[{"id":"coverage_g","kind":"coverage","priority":1,"params":{"shift_types":["G"],"min":1,"max":1}}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	js, err := Load(path)
	require.NoError(t, err)
	require.Len(t, js, 1)
	assert.Equal(t, rules[0].ID, js[0].ID)
	assert.Equal(t, rules[0].EffectivePriority(), js[0].EffectivePriority())
}

func TestDecodeErrors(t *testing.T) {
	_, err := Parse([]byte("rule:\n  - kind: coverage\n"))
	assert.Error(t, err, "unknown top-level key")

	_, err = Parse([]byte("rules:\n  - id: x\n"))
	var ir *model.InvalidRuleError
	require.ErrorAs(t, err, &ir)
	assert.Equal(t, "x", ir.Rule)

	_, err = DecodeJSON(strings.NewReader(`{"rules":[{"kind":"coverage","weight":2}]}`))
	assert.Error(t, err)

	rules, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestEncodeRoundTrip(t *testing.T) {
	rules, err := Load("testdata/rules.yaml")
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, rules))
	back, err := Decode(&buf)
	require.NoError(t, err)
	require.Len(t, back, len(rules))
	for i := range rules {
		if rules[i].ID != back[i].ID || rules[i].Kind != back[i].Kind || rules[i].Active() != back[i].Active() {
			t.Fatalf("rule %d changed: %+v != %+v", i, rules[i], back[i])
		}
	}
}
