package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/prosody-engine/internal/config"
	"github.com/snarg/prosody-engine/internal/extract"
	"github.com/snarg/prosody-engine/internal/prosody"
)

func main() {
	provider := flag.String("provider", "rule-based", "prosody provider to use")
	wpm := flag.Int("wpm", prosody.DefaultWPM, "base reading speed in words per minute")
	sensitivity := flag.Float64("sensitivity", prosody.DefaultSensitivity, "prosody sensitivity [0.0,1.0]")
	chunkSize := flag.Int("chunk-size", prosody.DefaultChunkSize, "words per analysis chunk")
	workers := flag.Int("workers", 1, "concurrent chunk analyses")
	output := flag.String("o", "", "output file (default stdout)")
	envFile := flag.String("env-file", "", "path to .env file with provider credentials")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <file.txt|file.epub>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	inputPath := flag.Arg(0)

	cfg, err := config.Load(config.Overrides{EnvFile: *envFile, Provider: *provider})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, err := os.ReadFile(inputPath)
	if err != nil {
		log.Fatal().Err(err).Str("file", inputPath).Msg("failed to read input")
	}
	doc, err := extract.FromFile(inputPath, data)
	if err != nil {
		log.Fatal().Err(err).Str("file", inputPath).Msg("extraction failed")
	}
	if doc.Title != "" {
		log.Info().Str("title", doc.Title).Str("author", doc.Author).Msg("document loaded")
	}

	pr, err := prosody.NewProcessor(prosody.NewDefaultRegistry(), cfg.DefaultProvider, providerConfig(cfg, log))
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.DefaultProvider).Msg("provider setup failed")
	}

	opts := prosody.AnalysisOptions{WPM: *wpm, Sensitivity: *sensitivity}
	copts := prosody.ChunkOptions{ChunkSize: *chunkSize, Workers: *workers}

	start := time.Now()
	res, err := pr.BatchAnalyze(ctx, doc.Text, opts, copts)
	if err != nil {
		log.Fatal().Err(err).Msg("analysis failed")
	}
	log.Info().
		Int("words", len(res.Words)).
		Dur("elapsed", time.Since(start)).
		Msg("analysis complete")

	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			log.Fatal().Err(err).Str("file", *output).Msg("failed to create output")
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.Fatal().Err(err).Msg("failed to write result")
	}
}

// providerConfig assembles the provider Config from env-derived settings.
func providerConfig(cfg *config.Config, log zerolog.Logger) prosody.Config {
	pc := prosody.Config{MaxTextLength: cfg.MaxTextLength, Log: log}
	switch cfg.DefaultProvider {
	case prosody.ProviderOpenAI:
		pc.APIKey = cfg.OpenAIAPIKey
		pc.BaseURL = cfg.OpenAIBaseURL
		pc.Model = cfg.OpenAIModel
		pc.Temperature = cfg.OpenAITemp
	case prosody.ProviderKokoroTTS:
		pc.BaseURL = cfg.KokoroURL
		pc.Voice = cfg.KokoroVoice
		pc.Speed = cfg.KokoroSpeed
		pc.Timeout = cfg.KokoroTimeout
	}
	return pc
}
