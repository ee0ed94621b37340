package main

import (
	"fmt"
	"strings"

	"github.com/RishiKendai/lichen/internal/models"
	"github.com/projectdiscovery/goflags"
)

const modeServe = "serve"

type options struct {
	Mode           string
	BasePath       string
	Gradeable      string
	Language       string
	SequenceLength int
	Workers        int
	EnvFile        string
}

func parseFlags() (*options, error) {
	opts := &options{}
	flagSet := goflags.NewFlagSet()
	flagSet.SetDescription(`lichen fingerprints tokenized submissions and ranks them by shared code.`)

	flagSet.CreateGroup("run", "Run",
		flagSet.StringVarP(&opts.Mode, "mode", "m", models.ModeAll, "stage to run (hash, rank, all, serve)"),
		flagSet.StringVarP(&opts.BasePath, "base-path", "b", "", "run base path holding config.json and users/"),
		flagSet.StringVarP(&opts.Gradeable, "gradeable", "g", "", "gradeable name stored with the results (default base path name)"),
	)

	flagSet.CreateGroup("overrides", "Overrides",
		flagSet.StringVarP(&opts.Language, "language", "l", "", "language overriding config.json"),
		flagSet.IntVarP(&opts.SequenceLength, "sequence-length", "sl", 0, "sequence length overriding config.json"),
		flagSet.IntVarP(&opts.Workers, "workers", "w", 0, "worker count overriding WORKER_COUNT (0 = CPU based)"),
	)

	flagSet.CreateGroup("config", "Config",
		flagSet.StringVar(&opts.EnvFile, "env-file", "", "dotenv file to load (default .env)"),
	)

	if err := flagSet.Parse(); err != nil {
		return nil, fmt.Errorf("could not read flags: %w", err)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func (o *options) validate() error {
	o.Mode = strings.ToLower(strings.TrimSpace(o.Mode))
	switch o.Mode {
	case modeServe:
		return nil
	case models.ModeHash, models.ModeRank, models.ModeAll:
	default:
		return fmt.Errorf("unknown mode %q", o.Mode)
	}
	if o.BasePath == "" {
		return fmt.Errorf("-base-path is required in %s mode", o.Mode)
	}
	if o.SequenceLength < 0 {
		return fmt.Errorf("-sequence-length must be >= 1")
	}
	if o.Workers < 0 {
		return fmt.Errorf("-workers must not be negative")
	}
	return nil
}
