package diskcache

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// Encodings selected by blob name extension.
const (
	ExtJSON = ".json"
	ExtCBOR = ".cbor"
	ExtZstd = ".zst"
)

// Encoder and decoder settings never change after init; the zstd
// encoder and decoder are safe for concurrent use.
var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode

	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	// Core deterministic encoding: same record, same bytes.
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("diskcache: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("diskcache: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("diskcache: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("diskcache: zstd decoder initialization failed: " + err.Error())
	}
}

// format splits a blob name into its base encoding and whether it is
// zstd-compressed. "x.json.zst" is (".json", true); unknown extensions
// encode as JSON.
func format(name string) (string, bool) {
	compressed := strings.HasSuffix(name, ExtZstd)
	if compressed {
		name = strings.TrimSuffix(name, ExtZstd)
	}
	if filepath.Ext(name) == ExtCBOR {
		return ExtCBOR, compressed
	}
	return ExtJSON, compressed
}

// Marshal encodes v in the format implied by name.
func Marshal(name string, v any) ([]byte, error) {
	base, compressed := format(name)

	var (
		data []byte
		err  error
	)
	switch base {
	case ExtCBOR:
		data, err = cborEnc.Marshal(v)
	default:
		data, err = json.Marshal(v)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", base, err)
	}

	if compressed {
		data = zstdEncoder.EncodeAll(data, nil)
	}
	return data, nil
}

// Unmarshal decodes data in the format implied by name into v.
func Unmarshal(name string, data []byte, v any) error {
	base, compressed := format(name)

	if compressed {
		raw, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return fmt.Errorf("zstd decompress: %w", err)
		}
		data = raw
	}

	var err error
	switch base {
	case ExtCBOR:
		err = cborDec.Unmarshal(data, v)
	default:
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", base, err)
	}
	return nil
}
