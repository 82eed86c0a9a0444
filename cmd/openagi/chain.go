package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/openagi/internal/config"
	"github.com/aretw0/openagi/pkg/domain"
	"github.com/aretw0/openagi/pkg/dsl"
	"github.com/aretw0/openagi/pkg/ports"
	"github.com/aretw0/openagi/pkg/relay"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// chainFlags maps command line flags to LLM form fields.
var chainFlags = []struct {
	flag  string
	field string
	usage string
}{
	{"api-key", domain.FieldAPIKey, "Model API key (defaults to TOGETHER_API_KEY)"},
	{"model", domain.FieldModel, "Model name"},
	{"max-tokens", domain.FieldMaxTokens, "Max Tokens, integer > 0"},
	{"temperature", domain.FieldTemperature, "Temperature, between 0 and 1"},
	{"top-k", domain.FieldTopK, "Top K, integer >= 1"},
	{"repetition-penalty", domain.FieldRepetitionPenalty, "Repetition Penalty, number >= 0"},
}

func addChainFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("input", "i", "", "Input text (defaults to the arguments, or stdin when piped)")
	for _, f := range chainFlags {
		cmd.Flags().String(f.flag, "", f.usage)
	}
}

// chainFromFlags builds the Input → LLM → Output workflow from cfg.LLM overridden by flags.
func chainFromFlags(cmd *cobra.Command, args []string, cfg *config.Config, stdin io.Reader) (*domain.Workflow, error) {
	llm := cfg.LLM
	for _, f := range chainFlags {
		if !cmd.Flags().Changed(f.flag) {
			continue
		}
		v, _ := cmd.Flags().GetString(f.flag)
		if err := llm.Set(f.field, v); err != nil {
			return nil, err
		}
	}

	input, err := readInput(cmd, args, stdin)
	if err != nil {
		return nil, err
	}
	return dsl.Chain(input, llm)
}

func readInput(cmd *cobra.Command, args []string, stdin io.Reader) (string, error) {
	if cmd.Flags().Changed("input") {
		return cmd.Flags().GetString("input")
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// openRelay returns the relay the CLI talks to: the configured relay URL, or a
// relay served on a loopback port for the lifetime of ctx.
func openRelay(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (ports.Relay, func(), error) {
	url := cfg.Relay.URL
	if v, _ := cmd.Flags().GetString("relay-url"); v != "" {
		url = v
	}
	if url != "" {
		logger.Debug("using remote relay", "url", url)
		return relay.NewClient(url, nil), func() {}, nil
	}

	opts := []relay.Option{relay.WithUpstreamURL(cfg.Relay.UpstreamURL), relay.WithLogger(logger)}
	if cfg.Relay.IntegerTemperature {
		opts = append(opts, relay.WithIntegerTemperature())
	}
	local, err := relay.Listen(ctx, relay.NewHandler(opts...))
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("local relay started", "url", local.URL)
	return relay.NewClient(local.URL, nil), func() {
		if err := local.Close(); err != nil {
			logger.Warn("local relay close failed", "error", err)
		}
	}, nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

