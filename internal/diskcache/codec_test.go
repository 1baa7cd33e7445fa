package diskcache

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRecord struct {
	Version int                    `json:"version"`
	Hash    string                 `json:"toolsHash"`
	Entries map[string]sampleEntry `json:"embeddings"`
}

type sampleEntry struct {
	Name      string      `json:"name"`
	Vector    []float32   `json:"embedding"`
	Keywords  []string    `json:"keywords"`
	KeywordVs [][]float32 `json:"keywordEmbeddings"`
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name       string
		base       string
		compressed bool
	}{
		{"cache.json", ExtJSON, false},
		{"cache.cbor", ExtCBOR, false},
		{"cache.json.zst", ExtJSON, true},
		{"cache.cbor.zst", ExtCBOR, true},
		{"cache", ExtJSON, false},
		{"cache.bin", ExtJSON, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, compressed := format(tt.name)
			assert.Equal(t, tt.base, base)
			assert.Equal(t, tt.compressed, compressed)
		})
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	want := sampleRecord{
		Version: 1,
		Hash:    "abc123",
		Entries: map[string]sampleEntry{
			"weather": {
				Name:      "weather",
				Vector:    []float32{0.25, -0.5, 1},
				Keywords:  []string{"weather", "forecast"},
				KeywordVs: [][]float32{{1, 0, 0}, {0, 1, 0}},
			},
		},
	}

	for _, name := range []string{"c.json", "c.cbor", "c.json.zst", "c.cbor.zst"} {
		t.Run(name, func(t *testing.T) {
			data, err := Marshal(name, want)
			require.NoError(t, err)

			var got sampleRecord
			require.NoError(t, Unmarshal(name, data, &got))
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCodec_JSONFieldNames(t *testing.T) {
	data, err := Marshal("c.json", sampleRecord{Version: 1, Hash: "h"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"toolsHash":"h"`)
	assert.Contains(t, string(data), `"version":1`)
}

func TestCodec_Corrupt(t *testing.T) {
	var rec sampleRecord
	assert.Error(t, Unmarshal("c.json", []byte("{not json"), &rec))
	assert.Error(t, Unmarshal("c.cbor", []byte{0xff, 0x00}, &rec))
	assert.Error(t, Unmarshal("c.json.zst", []byte("not zstd"), &rec))
}

func TestCodec_CBORDeterministic(t *testing.T) {
	rec := sampleRecord{Entries: map[string]sampleEntry{
		"b": {Name: "b"}, "a": {Name: "a"}, "c": {Name: "c"},
	}}
	first, err := Marshal("c.cbor", rec)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Marshal("c.cbor", rec)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
