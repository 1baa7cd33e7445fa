package embedding

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"unicode"

	"github.com/zeebo/blake3"
)

// DefaultLexicalDimension is the default width of lexical vectors.
const DefaultLexicalDimension = 256

// stopWords carry no topical signal and are dropped before hashing.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "can": true, "do": true, "for": true, "from": true,
	"i": true, "in": true, "is": true, "it": true, "me": true, "my": true,
	"of": true, "on": true, "or": true, "please": true, "the": true, "this": true,
	"to": true, "what": true, "with": true, "you": true,
}

// LexicalProvider is an offline provider that hashes word tokens into a
// fixed-width signed vector (the hashing trick). Texts that share words get
// similar vectors; it has no notion of synonyms. Output is deterministic.
type LexicalProvider struct {
	dimension int
}

// NewLexicalProvider creates a lexical provider. dimension <= 0 selects the default.
func NewLexicalProvider(dimension int) *LexicalProvider {
	if dimension <= 0 {
		dimension = DefaultLexicalDimension
	}
	return &LexicalProvider{dimension: dimension}
}

// Name includes the dimension because it changes every vector.
func (p *LexicalProvider) Name() string {
	return fmt.Sprintf("lexical-v1:%d", p.dimension)
}

// Dimension returns the vector width.
func (p *LexicalProvider) Dimension() int {
	return p.dimension
}

// Embed hashes each token into a bucket with a pseudo-random sign.
func (p *LexicalProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("no embeddable tokens in %q", text)
	}

	vec := make(Embedding, p.dimension)
	for _, token := range tokens {
		sum := blake3.Sum256([]byte(token))
		bucket := binary.LittleEndian.Uint32(sum[:4]) % uint32(p.dimension)
		if sum[4]&1 == 0 {
			vec[bucket]++
		} else {
			vec[bucket]--
		}
	}
	return vec.Normalize(), nil
}

// Tokenize lowercases text, splits it on anything that is not a letter or
// digit, drops stop words and strips a plural "s".
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if stopWords[f] {
			continue
		}
		if len(f) > 3 && strings.HasSuffix(f, "s") && !strings.HasSuffix(f, "ss") {
			f = f[:len(f)-1]
		}
		tokens = append(tokens, f)
	}
	return tokens
}
