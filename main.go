package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/manningwu07/seq2seq/IO"
	"github.com/manningwu07/seq2seq/parallel"
	"github.com/manningwu07/seq2seq/params"
	"github.com/manningwu07/seq2seq/rnn"
	"github.com/manningwu07/seq2seq/trainer"
)

// parseFlags overrides the defaults from the command line.
func parseFlags(args []string, stderr io.Writer) (params.TrainingConfig, error) {
	cfg := params.DefaultConfig()
	fs := flag.NewFlagSet("seq2seq", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.Chars, "chars", cfg.Chars, "vocabulary, must contain a space for padding")
	fs.IntVar(&cfg.Digits, "digits", cfg.Digits, "max digits per operand")
	fs.IntVar(&cfg.TrainingSize, "examples", cfg.TrainingSize, "number of unique examples to generate")
	fs.Float64Var(&cfg.SplitRatio, "split", cfg.SplitRatio, "fraction of examples used for training")
	fs.StringVar(&cfg.RNNType, "rnn", cfg.RNNType, "SimpleRNN, GRU or LSTM")
	fs.IntVar(&cfg.RNNLayers, "layers", cfg.RNNLayers, "recurrent layers (only 1 is supported)")
	fs.IntVar(&cfg.RNNLayerSize, "hidden", cfg.RNNLayerSize, "hidden width")
	fs.IntVar(&cfg.BatchSize, "batch", cfg.BatchSize, "mini-batch size")
	fs.IntVar(&cfg.TrainIterations, "iterations", cfg.TrainIterations, "training iterations, one epoch each")
	fs.Float64Var(&cfg.LearningRate, "lr", cfg.LearningRate, "Adam learning rate")
	fs.Float64Var(&cfg.WeightDecay, "wd", cfg.WeightDecay, "decoupled weight decay, 0 disables")
	fs.Float64Var(&cfg.GradClip, "clip", cfg.GradClip, "global grad-norm clip, 0 disables")
	fs.BoolVar(&cfg.Shuffle, "shuffle", cfg.Shuffle, "shuffle the training set every epoch")
	fs.IntVar(&cfg.CountOfTests, "tests", cfg.CountOfTests, "test questions decoded after training")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed, 0 seeds from the clock")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "gradient workers, 0 = physical cores")
	fs.StringVar(&cfg.HistoryCSV, "history", cfg.HistoryCSV, "csv history log, empty disables")
	fs.BoolVar(&cfg.Interactive, "cli", cfg.Interactive, "answer questions from stdin after training")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return cfg, err
		}
		return cfg, params.Configf("%v", err)
	}
	return cfg, cfg.Validate()
}

// historyPath tags the csv name with the run id: training_log-1a2b3c4d.csv.
func historyPath(path string, runID uuid.UUID) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + runID.String()[:8] + ext
}

func run(ctx context.Context, cfg params.TrainingConfig, logger *log.Logger) error {
	runID := uuid.New()
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	logger.Printf("run %s, seed %d", runID, seed)
	logger.Print(parallel.CPUInfo())
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	table, err := IO.NewCharacterTable(cfg.Chars)
	if err != nil {
		return err
	}
	examples, err := IO.Generate(rng, cfg.Digits, cfg.TrainingSize, false)
	if err != nil {
		return errors.Wrap(err, "generating data")
	}
	train, test := IO.Split(examples, cfg.SplitRatio)
	trainX, trainY, err := IO.Convert(train, table, cfg.Digits)
	if err != nil {
		return errors.Wrap(err, "converting training split")
	}
	testX, testY, err := IO.Convert(test, table, cfg.Digits)
	if err != nil {
		return errors.Wrap(err, "converting test split")
	}
	logger.Printf("data: %d train / %d test examples, vocabulary %q, input %v, target %v",
		len(train), len(test), table.Chars(), trainX.Shape(), trainY.Shape())

	model, err := rnn.BuildFromConfig(cfg, table.Size(), rng)
	if err != nil {
		return err
	}
	workers := cfg.Workers
	if workers == 0 {
		workers = parallel.DefaultWorkers()
	}
	model.SetWorkers(workers)
	logger.Printf("model (%d workers):\n%s", model.Workers(), model.Summary())

	ev, err := trainer.NewEvaluator(model, table, testX, test, cfg.CountOfTests)
	if err != nil {
		return err
	}

	sinks := trainer.Sinks{trainer.LogSink{Logger: logger}}
	var csvSink *trainer.CSVSink
	if cfg.HistoryCSV != "" {
		path := historyPath(cfg.HistoryCSV, runID)
		w, err := IO.CreateHistoryCSV(path)
		if err != nil {
			return err
		}
		defer w.Close()
		csvSink = &trainer.CSVSink{W: w}
		sinks = append(sinks, csvSink)
		logger.Printf("history: %s", path)
	}

	loop := trainer.NewLoop(logger, sinks, rng)
	loop.Shuffle = cfg.Shuffle
	if _, err := loop.Run(ctx, model, trainX, trainY, testX, testY, cfg.TrainIterations, cfg.BatchSize); err != nil {
		if !errors.Is(err, context.Canceled) {
			return err
		}
		logger.Printf("interrupted: %v", err)
	}
	if csvSink != nil && csvSink.Err() != nil {
		logger.Printf("history log: %v", csvSink.Err())
	}

	samples, err := ev.Evaluate()
	if err != nil {
		return err
	}
	sinks.OnEvaluation(samples)

	if cfg.Interactive {
		return QueryCLI(model, table, os.Stdin, os.Stdout)
	}
	return nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := log.New(os.Stdout, "", log.LstdFlags)
	if err := run(ctx, cfg, logger); err != nil {
		logger.Printf("error: %v", err)
		os.Exit(1)
	}
}
