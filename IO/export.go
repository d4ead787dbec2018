package IO

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

var historyHeader = []string{
	"iteration", "train_loss", "train_accuracy",
	"validation_loss", "validation_accuracy", "examples_per_sec",
}

// CSVHistoryWriter appends one row per training iteration, flushing after each
// row so the file can be charted while training is still running.
type CSVHistoryWriter struct {
	f *os.File
	w *csv.Writer
}

// CreateHistoryCSV creates or truncates path and writes the header.
func CreateHistoryCSV(path string) (*CSVHistoryWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "creating history log %s", path)
	}
	h := &CSVHistoryWriter{f: f, w: csv.NewWriter(f)}
	if err := h.write(historyHeader); err != nil {
		f.Close()
		return nil, err
	}
	return h, nil
}

func (h *CSVHistoryWriter) WriteRow(iteration int, trainLoss, trainAcc, valLoss, valAcc, examplesPerSec float64) error {
	return h.write([]string{
		strconv.Itoa(iteration),
		formatFloat(trainLoss),
		formatFloat(trainAcc),
		formatFloat(valLoss),
		formatFloat(valAcc),
		strconv.FormatFloat(examplesPerSec, 'f', 1, 64),
	})
}

func (h *CSVHistoryWriter) write(rec []string) error {
	if err := h.w.Write(rec); err != nil {
		return errors.Wrap(err, "writing history row")
	}
	h.w.Flush()
	return errors.Wrap(h.w.Error(), "flushing history log")
}

func (h *CSVHistoryWriter) Close() error {
	h.w.Flush()
	if err := h.w.Error(); err != nil {
		h.f.Close()
		return errors.Wrap(err, "flushing history log")
	}
	return h.f.Close()
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
