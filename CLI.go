package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/manningwu07/seq2seq/IO"
	"github.com/manningwu07/seq2seq/params"
	"github.com/manningwu07/seq2seq/rnn"
)

// QueryCLI answers "a+b" questions read line by line from in until EOF or
// "exit". Bad questions are reported and skipped.
func QueryCLI(model *rnn.Seq2Seq, table *IO.CharacterTable, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, "Addition CLI. Type 'exit' to quit.")
	for {
		fmt.Fprint(out, "Q: ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" {
			break
		}
		if line == "" {
			continue
		}
		answer, err := Answer(model, table, line)
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			continue
		}
		fmt.Fprintf(out, "A: %s = %s\n", line, answer)
	}
	return scanner.Err()
}

// Answer pads, encodes and decodes one question.
func Answer(model *rnn.Seq2Seq, table *IO.CharacterTable, question string) (string, error) {
	q := IO.PadQuestion(question, model.Digits)
	if len([]rune(q)) > model.InLen {
		return "", params.Encodingf("%q is longer than %d characters", question, model.InLen)
	}
	x, err := table.EncodeBatch([]string{q}, model.InLen)
	if err != nil {
		return "", err
	}
	probs, err := model.Predict(x)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(table.Decode(probs.Seqs[0]), " "), nil
}
