package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/openagi/internal/presentation/tui"
	"github.com/aretw0/openagi/internal/runtime"
	"github.com/aretw0/openagi/pkg/observability"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var runCmd = &cobra.Command{
	Use:   "run [input text]",
	Short: "Run an Input → LLM → Output chain once",
	Long: `Builds the three node chain from the configuration and flags, runs it through the relay
and prints the generated text. Markdown output is rendered when stdout is a terminal.`,
	Example: `  openagi run --model meta-llama/Llama-3.3-70B-Instruct-Turbo --max-tokens 256 --temperature 0.7 --top-k 50 "Write a haiku"
  echo "Summarize this" | openagi run --relay-url http://localhost:5000/api/together`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		wf, err := chainFromFlags(cmd, args, cfg, cmd.InOrStdin())
		if err != nil {
			return err
		}

		relayClient, closeRelay, err := openRelay(cmd.Context(), cmd, cfg, logger)
		if err != nil {
			return err
		}
		defer closeRelay()

		engine := runtime.NewEngine(relayClient,
			runtime.WithLogger(logger),
			runtime.WithLifecycleHooks(observability.LoggingHooks(logger)),
		)
		output, err := engine.Run(cmd.Context(), wf)
		if err != nil {
			tui.Status(cmd.ErrOrStderr(), false, err.Error())
			return fmt.Errorf("run failed: %w", err)
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return json.NewEncoder(out).Encode(map[string]string{"output": output})
		}

		render := tui.Plain
		if f, ok := out.(*os.File); ok && isTerminal(f) && !raw(cmd) {
			width := 0
			if w, _, err := term.GetSize(int(f.Fd())); err == nil {
				width = w
			}
			if r, err := tui.NewRenderer(width); err == nil {
				render = r
			} else {
				logger.Debug("markdown renderer unavailable", "error", err)
			}
		}
		text, err := render(output)
		if err != nil {
			return err
		}
		fmt.Fprint(out, text)
		return nil
	},
}

func raw(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("raw")
	return v
}

func init() {
	rootCmd.AddCommand(runCmd)
	addChainFlags(runCmd)
	runCmd.Flags().String("relay-url", "", "Use a running relay instead of starting a local one")
	runCmd.Flags().Bool("json", false, "Print the result as JSON")
	runCmd.Flags().Bool("raw", false, "Do not render markdown")
}
