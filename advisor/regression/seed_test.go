package regression

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biwstack/biw-advisor/advisor"
)

func TestBuiltinSeed_CoversEveryClass(t *testing.T) {
	seed, err := BuiltinSeed()
	require.NoError(t, err)

	assert.Equal(t, advisor.QueryClasses, seed.Classes())
	assert.Len(t, seed.Sizes[Small], 15)
	assert.Len(t, seed.Sizes[Medium], 13)
	assert.Len(t, seed.Sizes[Large], 18)

	b, ok := seed.Buckets(advisor.ClassLinregr)
	require.True(t, ok)
	assert.Equal(t, Sample{Size: 1.5, TimeMs: 5.009}, b[Small][0])
	assert.Equal(t, b[Small][len(b[Small])-1], b[Medium][0])
}

func TestSeedBuckets_UnknownClass(t *testing.T) {
	seed, err := BuiltinSeed()
	require.NoError(t, err)
	_, ok := seed.Buckets("forest")
	assert.False(t, ok)
}

func TestParseSeed_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"two buckets", `
sizes: [[1, 2, 3], [3, 4, 5]]
times: {}
`},
		{"unknown class", `
sizes: [[1, 2], [2, 3], [3, 4]]
times:
  forest: [[1, 2], [2, 3], [3, 4]]
`},
		{"length mismatch", `
sizes: [[1, 2], [2, 3], [3, 4]]
times:
  svm: [[1, 2], [2], [3, 4]]
`},
		{"unshared boundary", `
sizes: [[1, 2], [3, 4], [4, 5]]
times: {}
`},
		{"unknown field", `
sizes: [[1, 2], [2, 3], [3, 4]]
times: {}
version: 2
`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSeed([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadSeed_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	content := `
sizes: [[1, 2, 3, 4], [4, 5, 6, 7], [7, 8, 9, 10]]
times:
  tree: [[1, 2, 3, 4], [4, 5, 6, 7], [7, 8, 9, 10]]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	seed, err := LoadSeed(path)

	require.NoError(t, err)
	assert.Equal(t, []advisor.QueryClass{advisor.ClassTree}, seed.Classes())
}
