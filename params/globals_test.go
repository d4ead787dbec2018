package params

import (
	"errors"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}
	if c.InputLen() != 5 || c.OutputLen() != 3 {
		t.Fatalf("lengths = %d/%d, want 5/3", c.InputLen(), c.OutputLen())
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*TrainingConfig){
		"empty chars":   func(c *TrainingConfig) { c.Chars = "" },
		"no pad rune":   func(c *TrainingConfig) { c.Chars = "0123456789+" },
		"zero digits":   func(c *TrainingConfig) { c.Digits = 0 },
		"too many":      func(c *TrainingConfig) { c.Digits = MaxDigits + 1 },
		"split 1":       func(c *TrainingConfig) { c.SplitRatio = 1 },
		"stacked":       func(c *TrainingConfig) { c.RNNLayers = 2 },
		"zero width":    func(c *TrainingConfig) { c.RNNLayerSize = 0 },
		"zero batch":    func(c *TrainingConfig) { c.BatchSize = 0 },
		"negative iter": func(c *TrainingConfig) { c.TrainIterations = -1 },
		"zero lr":       func(c *TrainingConfig) { c.LearningRate = 0 },
		"beta2 one":     func(c *TrainingConfig) { c.AdamBeta2 = 1 },
		"negative wd":   func(c *TrainingConfig) { c.WeightDecay = -0.1 },
		"workers":       func(c *TrainingConfig) { c.Workers = -2 },
	}
	for name, mutate := range cases {
		c := DefaultConfig()
		mutate(&c)
		err := c.Validate()
		if !errors.Is(err, ErrConfig) {
			t.Errorf("%s: got %v, want ErrConfig", name, err)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	err := Capacityf("want %d, have %d", 10, 3)
	if got := err.Error(); got != "capacity error: want 10, have 3" {
		t.Fatalf("Error() = %q", got)
	}
	if !errors.Is(err, ErrCapacity) || errors.Is(err, ErrConfig) {
		t.Fatalf("kind mismatch for %v", err)
	}
	if (&Error{Kind: ErrTraining}).Error() != ErrTraining.Error() {
		t.Fatal("empty Msg should render the kind only")
	}
}
