package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"continual-gem/config"
	"continual-gem/dataset"
	"continual-gem/gem"
	"continual-gem/nn"
	"continual-gem/strategy"
)

var trainCmd = &cobra.Command{
	Use:   "train exp0.csv [exp1.csv ...]",
	Short: "Train on the given experiences in order",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTrain,
}

func init() {
	f := trainCmd.Flags()
	f.Int("patterns", 256, "episodic memory patterns per experience")
	f.Float64("memory-strength", 0.5, "constraint slack favouring backward transfer")
	f.Int("epochs", 1, "epochs per experience")
	f.Int("batch", 32, "training minibatch size (also the memory chunk size)")
	f.Float64("lr", 0.1, "learning rate")
	f.String("optimizer", "sgd", "sgd, adam or adagrad")
	f.IntSlice("hidden", []int{100, 100}, "hidden layer sizes")
	f.Bool("tsv", false, "input files are tab separated")
	f.String("init", "", "start from the weights in this model JSON")
	f.String("out", "", "write the trained model JSON here")

	for key, flag := range map[string]string{
		"gem.patterns_per_experience": "patterns",
		"gem.memory_strength":         "memory-strength",
		"train.epochs":                "epochs",
		"train.batch_size":            "batch",
		"train.lr":                    "lr",
		"train.optimizer":             "optimizer",
		"model.hidden":                "hidden",
		"data.tsv":                    "tsv",
		"input.model":                 "init",
		"output.model":                "out",
	} {
		if err := v.BindPFlag(key, f.Lookup(flag)); err != nil {
			panic(err)
		}
	}
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	if logLevel == "" {
		if lvl, err := log.ParseLevel(cfg.Log.Level); err == nil {
			log.SetLevel(lvl)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runID := uuid.New().String()
	log.Info("starting run", "run", runID, "device", nn.DescribeDevice().String())

	exps, err := loadStream(args, cfg.Data)
	if err != nil {
		return err
	}
	sets := make([]dataset.Dataset, len(exps))
	for i := range exps {
		sets[i] = exps[i].Dataset
	}
	in, classes := dataset.NumFeatures(sets...), dataset.NumClasses(sets...)
	if in == 0 || classes < 2 {
		return fmt.Errorf("need non-empty data with at least two classes, got %d features and %d classes", in, classes)
	}

	sizes := append(append([]int{in}, cfg.Model.Hidden...), classes)
	model, err := nn.NewMLP(sizes, cfg.Model.Seed)
	if err != nil {
		return err
	}
	if cfg.Input.Model != "" {
		from, err := nn.LoadModelJSON(cfg.Input.Model, model)
		if err != nil {
			return fmt.Errorf("loading initial weights: %w", err)
		}
		log.Info("loaded initial weights", "path", cfg.Input.Model, "from_run", from)
	}
	opt, err := nn.NewOptimizer(cfg.Train.Optimizer, cfg.Train.LR, cfg.Train.Momentum)
	if err != nil {
		return err
	}
	plugin, err := gem.NewPlugin(cfg.GEM)
	if err != nil {
		return err
	}
	s, err := strategy.New(model, opt, nn.CrossEntropy{}, cfg.Train.BatchSize, cfg.Train.Epochs, plugin)
	if err != nil {
		return err
	}
	log.Info("model ready", "layers", sizes, "params", nn.NumParams(model.Parameters()),
		"patterns_per_experience", cfg.GEM.PatternsPerExperience, "memory_strength", cfg.GEM.MemoryStrength)

	for i, exp := range exps {
		t0 := time.Now()
		if err := s.Train(ctx, exp); err != nil {
			return fmt.Errorf("training on %s: %w", exp.Name, err)
		}
		results := s.Eval(exps[:i+1])
		for _, r := range results {
			log.Info("eval", "after", exp.ID, "experience", r.Experience, "acc", fmt.Sprintf("%.4f", r.Accuracy), "loss", fmt.Sprintf("%.4f", r.Loss))
		}
		log.Info("experience done", "experience", exp.ID, "file", exp.Name,
			"mean_acc", fmt.Sprintf("%.4f", strategy.MeanAccuracy(results)), "time", time.Since(t0), "gem", plugin.GetMetrics())
	}

	if cfg.Output.Model != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Output.Model), 0o755); err != nil {
			return err
		}
		if err := nn.SaveModelJSON(cfg.Output.Model, model, runID); err != nil {
			return err
		}
		log.Info("saved model", "path", cfg.Output.Model)
	}
	return nil
}

func loadStream(paths []string, d config.Data) ([]dataset.Experience, error) {
	sets := make([]dataset.Dataset, len(paths))
	for i, p := range paths {
		ds, err := dataset.LoadCSV(p, dataset.CSVOptions{TSV: d.TSV, Header: d.Header, MaxRows: d.MaxRows})
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", p, err)
		}
		log.Info("loaded experience", "experience", i, "file", p, "samples", ds.Len())
		sets[i] = ds
	}
	return dataset.Stream(paths, sets)
}
