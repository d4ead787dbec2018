package IO

import (
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/manningwu07/seq2seq/params"
)

// Example is one padded question/answer pair, e.g. {"12+7 ", "19 "}.
type Example struct {
	Question string
	Answer   string
}

type pairKey struct{ lo, hi int }

// PairCapacity is the number of distinct unordered addend pairs drawing
// `digits` decimal digits per operand: n(n+1)/2 with n = 10^digits.
func PairCapacity(digits int) int64 {
	n := int64(1)
	for i := 0; i < digits; i++ {
		n *= 10
	}
	return n * (n + 1) / 2
}

// Generate draws numExamples unique addition examples. Operands are built from
// `digits` random decimal digits, so leading zeros are allowed and "07" is 7.
// Pairs are deduplicated irrespective of operand order; the question keeps the
// order the operands were drawn in.
func Generate(rng *rand.Rand, digits, numExamples int, invert bool) ([]Example, error) {
	if invert {
		return nil, params.ErrInvertNotImplemented
	}
	if digits < 1 || digits > params.MaxDigits {
		return nil, params.Configf("generate: digits %d, expected 1..%d", digits, params.MaxDigits)
	}
	if numExamples < 0 {
		return nil, params.Configf("generate: numExamples %d, expected >= 0", numExamples)
	}
	if capacity := PairCapacity(digits); int64(numExamples) > capacity {
		return nil, params.Capacityf("generate: %d unique examples requested but only %d distinct addend pairs exist for %d digits",
			numExamples, capacity, digits)
	}

	maxLen := 2*digits + 1
	draw := func() int {
		v := 0
		for i := 0; i < digits; i++ {
			v = v*10 + rng.IntN(10)
		}
		return v
	}

	out := make([]Example, 0, numExamples)
	seen := make(map[pairKey]struct{}, numExamples)
	for len(out) < numExamples {
		a, b := draw(), draw()
		key := pairKey{a, b}
		if b < a {
			key = pairKey{b, a}
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		q := strconv.Itoa(a) + "+" + strconv.Itoa(b)
		ans := strconv.Itoa(a + b)
		out = append(out, Example{
			Question: padRight(q, maxLen),
			Answer:   padRight(ans, digits+1),
		})
	}
	return out, nil
}

// Split cuts examples at floor(len*ratio). Both halves share the input array.
func Split(examples []Example, ratio float64) (train, test []Example) {
	cut := int(float64(len(examples)) * ratio)
	cut = max(0, min(cut, len(examples)))
	return examples[:cut:cut], examples[cut:]
}

// Questions and Answers project the two columns of a data set.
func Questions(examples []Example) []string {
	out := make([]string, len(examples))
	for i, e := range examples {
		out[i] = e.Question
	}
	return out
}

func Answers(examples []Example) []string {
	out := make([]string, len(examples))
	for i, e := range examples {
		out[i] = e.Answer
	}
	return out
}

func padRight(s string, width int) string {
	if n := width - len(s); n > 0 {
		return s + strings.Repeat(string(PadRune), n)
	}
	return s
}

// PadQuestion pads a raw "a+b" query for the model, e.g. from a prompt.
func PadQuestion(q string, digits int) string {
	return padRight(strings.TrimSpace(q), 2*digits+1)
}
