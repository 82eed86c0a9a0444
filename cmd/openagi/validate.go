package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/openagi/internal/presentation/tui"
	"github.com/aretw0/openagi/internal/runtime"
	"github.com/aretw0/openagi/pkg/domain"
	"github.com/aretw0/openagi/pkg/ports"
	"github.com/aretw0/openagi/pkg/schema"
	"github.com/spf13/cobra"
)

// errNotReady is returned when a chain would not reach the relay.
var errNotReady = errors.New("workflow is not ready to run")

type validateReport struct {
	Fields []schema.FieldState `json:"fields"`
	Ready  bool                `json:"ready"`
	Kind   string              `json:"kind,omitempty"`
	Error  string              `json:"error,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate [input text]",
	Short: "Check a chain without calling the model",
	Long: `Runs the same checks as a run (API key, input, numeric ranges and model) and
prints the state of every LLM form field. Exits non-zero when the chain is not ready.`,
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

		// Preflight never reaches the relay.
		noRelay := ports.RelayFunc(nil)
		engine := runtime.NewEngine(noRelay, runtime.WithLogger(logger))

		report := validateReport{Fields: schema.FieldStates(wf.LLMConfig), Ready: true}
		if _, err := engine.Preflight(wf); err != nil {
			var re *domain.RunError
			if !errors.As(err, &re) {
				return err
			}
			report.Ready = false
			report.Kind = string(re.Kind)
			report.Error = re.Message
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			if err := json.NewEncoder(out).Encode(report); err != nil {
				return err
			}
		} else {
			for _, f := range report.Fields {
				line := fmt.Sprintf("%-18s ok", f.Field)
				if !f.Valid {
					line = fmt.Sprintf("%-18s %s", f.Field, f.Message)
				}
				tui.Status(out, f.Valid, line)
			}
			if report.Ready {
				tui.Status(out, true, "Ready to run.")
			} else {
				tui.Status(out, false, report.Error)
			}
		}

		if !report.Ready {
			return errNotReady
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	addChainFlags(validateCmd)
	validateCmd.Flags().Bool("json", false, "Print the report as JSON")
}
