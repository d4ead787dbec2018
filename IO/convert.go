package IO

import "github.com/pkg/errors"

// Convert encodes questions as (N, 2*digits+1, V) and answers as (N, digits+1, V).
func Convert(examples []Example, table *CharacterTable, digits int) (inputs, targets Tensor, err error) {
	maxLen := 2*digits + 1
	inputs, err = table.EncodeBatch(Questions(examples), maxLen)
	if err != nil {
		return Tensor{}, Tensor{}, errors.Wrap(err, "encoding questions")
	}
	targets, err = table.EncodeBatch(Answers(examples), digits+1)
	if err != nil {
		return Tensor{}, Tensor{}, errors.Wrap(err, "encoding answers")
	}
	return inputs, targets, nil
}
