package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"floodrisk/config"
	"floodrisk/db"
	"floodrisk/logging"
	"floodrisk/ml"
)

func main() {
	flags := newTrainFlags()
	flags.fs.Parse(os.Args[1:])

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	flags.apply(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid settings: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("training failed", zap.Error(err))
	}
}

type trainFlags struct {
	fs *flag.FlagSet

	configPath string
	dataPath   string
	modelPath  string
	trees      int
	seed       int64
	maxDepth   int
	testRatio  float64
	encoding   string
}

func newTrainFlags() *trainFlags {
	f := &trainFlags{fs: flag.NewFlagSet("train_model", flag.ExitOnError)}
	f.fs.StringVar(&f.configPath, "config", "config.yaml", "config file")
	f.fs.StringVar(&f.dataPath, "data", "", "training CSV (overrides training.data_path)")
	f.fs.StringVar(&f.modelPath, "model_path", "", "model output path (overrides model.path)")
	f.fs.IntVar(&f.trees, "trees", 0, "number of trees")
	f.fs.Int64Var(&f.seed, "seed", 0, "random seed")
	f.fs.IntVar(&f.maxDepth, "max_depth", 0, "max tree depth, 0 for unlimited")
	f.fs.Float64Var(&f.testRatio, "test_ratio", 0, "held-out fraction")
	f.fs.StringVar(&f.encoding, "encoding", "", "category encoding: fitted or fixed")
	return f
}

// apply copies the flags given on the command line over cfg. Flags left off
// keep the config value, so an explicit zero such as -seed 0 still wins.
func (f *trainFlags) apply(cfg *config.Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "data":
			cfg.Training.DataPath = f.dataPath
		case "model_path":
			cfg.Model.Path = f.modelPath
		case "trees":
			cfg.Training.Trees = f.trees
		case "seed":
			cfg.Training.Seed = f.seed
		case "max_depth":
			cfg.Training.MaxDepth = f.maxDepth
		case "test_ratio":
			cfg.Training.TestRatio = f.testRatio
		case "encoding":
			cfg.Training.Encoding = f.encoding
		}
	})
}

func run(cfg *config.Config, logger *zap.Logger) error {
	if cfg.Training.DataPath == "" {
		return errors.New("training data path is required")
	}
	rows, err := ml.LoadDataset(cfg.Training.DataPath)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	logger.Info("dataset loaded", zap.String("path", cfg.Training.DataPath), zap.Int("rows", len(rows)))

	result, err := ml.Train(rows, ml.TrainingConfig{
		Trees:     cfg.Training.Trees,
		MaxDepth:  cfg.Training.MaxDepth,
		Seed:      cfg.Training.Seed,
		TestRatio: cfg.Training.TestRatio,
		Encoding:  cfg.Training.Encoding,
	})
	if err != nil {
		return err
	}
	artifact := result.Artifact
	evaluation := artifact.Evaluation

	logger.Info("model trained",
		zap.Int("train_rows", len(result.TrainY)),
		zap.Int("test_rows", len(result.TestY)),
		zap.Float64("accuracy", evaluation.Accuracy),
		zap.Float64("precision", evaluation.Macro.Precision),
		zap.Float64("recall", evaluation.Macro.Recall),
	)
	fmt.Fprintf(os.Stdout, "Labels: %v\n\n%s\nConfusion matrix (rows true, columns predicted):\n%s\n",
		artifact.Encoder.Labels.Names, evaluation.Report(), evaluation.ConfusionMatrix())

	if err := ml.SaveModel(cfg.Model.Path, artifact); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	logger.Info("model saved", zap.String("path", cfg.Model.Path))

	if cfg.Database.Path == "" {
		return nil
	}
	store, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()
	return store.SaveTrainingLog(db.TrainingLog{
		ModelName:  "random_forest",
		ModelPath:  cfg.Model.Path,
		Encoding:   artifact.Encoding,
		Trees:      artifact.Forest.NTrees,
		Seed:       artifact.Forest.Seed,
		Accuracy:   evaluation.Accuracy,
		Precision:  evaluation.Macro.Precision,
		Recall:     evaluation.Macro.Recall,
		F1:         evaluation.Macro.F1,
		TrainedAt:  artifact.TrainedAt,
		DataPoints: artifact.DataPoints,
	})
}
