package IO

import (
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/manningwu07/seq2seq/params"
	"github.com/manningwu07/seq2seq/utils"
)

// PadRune fills positions past the end of a string during encoding.
const PadRune = ' '

// CharacterTable maps a fixed vocabulary of runes to one-hot rows and back.
// It is immutable after construction and safe for concurrent use.
type CharacterTable struct {
	chars   []rune
	indices map[rune]int
}

func NewCharacterTable(chars string) (*CharacterTable, error) {
	runes := []rune(chars)
	if len(runes) == 0 {
		return nil, params.Configf("character table: empty vocabulary")
	}
	idx := make(map[rune]int, len(runes))
	for i, r := range runes {
		if j, dup := idx[r]; dup {
			return nil, params.Configf("character table: duplicate character %q at indices %d and %d", r, j, i)
		}
		idx[r] = i
	}
	return &CharacterTable{chars: runes, indices: idx}, nil
}

// Size is the vocabulary size V.
func (c *CharacterTable) Size() int { return len(c.chars) }

func (c *CharacterTable) Chars() string { return string(c.chars) }

func (c *CharacterTable) Index(r rune) (int, bool) {
	i, ok := c.indices[r]
	return i, ok
}

// Encode returns a (maxLen x V) one-hot matrix. Positions past the end of text
// encode PadRune; runes beyond maxLen are ignored.
func (c *CharacterTable) Encode(text string, maxLen int) (*mat.Dense, error) {
	if maxLen < 1 {
		return nil, params.Configf("encode: maxLen %d, expected >= 1", maxLen)
	}
	out := mat.NewDense(maxLen, len(c.chars), nil)
	if err := c.encodeInto(out, []rune(text), maxLen); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CharacterTable) encodeInto(dst *mat.Dense, runes []rune, maxLen int) error {
	for i := 0; i < maxLen; i++ {
		r := rune(PadRune)
		if i < len(runes) {
			r = runes[i]
		}
		j, ok := c.indices[r]
		if !ok {
			if i >= len(runes) {
				return params.Encodingf("padding rune %q is not in vocabulary %q", r, string(c.chars))
			}
			return params.Encodingf("unknown character %q at position %d in %q, vocabulary is %q",
				r, i, string(runes), string(c.chars))
		}
		dst.Set(i, j, 1)
	}
	return nil
}

// EncodeBatch encodes every text independently; row i of the result is texts[i].
func (c *CharacterTable) EncodeBatch(texts []string, maxLen int) (Tensor, error) {
	if maxLen < 1 {
		return Tensor{}, params.Configf("encode batch: maxLen %d, expected >= 1", maxLen)
	}
	seqs := make([]*mat.Dense, len(texts))
	for i, text := range texts {
		m := mat.NewDense(maxLen, len(c.chars), nil)
		if err := c.encodeInto(m, []rune(text), maxLen); err != nil {
			return Tensor{}, err
		}
		seqs[i] = m
	}
	return Tensor{Seqs: seqs, T: maxLen, V: len(c.chars)}, nil
}

// Decode maps every row to the rune of its largest entry. Ties go to the
// lowest index.
func (c *CharacterTable) Decode(m mat.Matrix) string {
	r, cols := m.Dims()
	if cols != len(c.chars) {
		panic("CharacterTable.Decode: column count does not match vocabulary size")
	}
	var sb strings.Builder
	sb.Grow(r)
	for i := 0; i < r; i++ {
		sb.WriteRune(c.chars[utils.ArgmaxRow(m, i)])
	}
	return sb.String()
}

// DecodeVecs is Decode over one probability vector per time step.
func (c *CharacterTable) DecodeVecs(steps []*mat.VecDense) string {
	var sb strings.Builder
	for _, v := range steps {
		sb.WriteRune(c.chars[utils.ArgmaxVec(v)])
	}
	return sb.String()
}
