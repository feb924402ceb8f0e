package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rshade/stagehand/internal/engine/batch"
	"github.com/rshade/stagehand/internal/scaffolder"
)

// Output formats accepted by actions run.
const (
	outputJSON = "json"
	outputYAML = "yaml"
)

func newActionsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "actions", Short: "Scaffolder action commands"}
	cmd.AddCommand(NewActionsListCmd(), NewActionsRunCmd())
	return cmd
}

// NewActionsListCmd lists the registered scaffolder actions.
func NewActionsListCmd() *cobra.Command {
	var showExamples bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered scaffolder actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := newBackend(nil)
			if err != nil {
				return err
			}
			reg, err := newActionRegistry(b.Services())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err = renderActions(out, reg.List()); err != nil {
				return err
			}
			if showExamples {
				return writeExamples(out, reg.List())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showExamples, "examples", false, "print template examples for each action")
	return cmd
}

func writeExamples(w io.Writer, actions []*scaffolder.Action) error {
	for _, a := range actions {
		for _, ex := range a.Examples {
			if _, err := fmt.Fprintf(w, "\n# %s: %s\n%s", a.ID, ex.Description, ex.Example); err != nil {
				return err
			}
		}
	}
	return nil
}

// NewActionsRunCmd runs one scaffolder action with input read from a YAML or
// JSON file.
func NewActionsRunCmd() *cobra.Command {
	var (
		inputPath string
		dryRun    bool
		output    string
		workspace string
	)

	cmd := &cobra.Command{
		Use:   "run <action-id>",
		Short: "Run a scaffolder action",
		Example: `  # Fetch two entities with shared defaults
  stagehand actions run catalog:fetch --input values.yaml --output yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != outputJSON && output != outputYAML {
				return fmt.Errorf("unsupported output format %q (use json or yaml)", output)
			}
			input, err := readActionInput(inputPath, cmd.InOrStdin())
			if err != nil {
				return err
			}

			b, err := newBackend(nil)
			if err != nil {
				return err
			}
			reg, err := newActionRegistry(b.Services())
			if err != nil {
				return err
			}

			result, err := scaffolder.Execute(cmd.Context(), reg, args[0], input, scaffolder.ExecuteOptions{
				DryRun:    dryRun,
				Workspace: workspace,
				Logger:    &logger,
			})
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), output, result)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "-", "action input file (YAML or JSON, - for stdin)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "run the action in dry-run mode")
	cmd.Flags().StringVarP(&output, "output", "o", outputJSON, "output format: json or yaml")
	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace directory handed to the action")
	return cmd
}

// readActionInput decodes the input document. YAML is a superset of JSON, so
// one decoder serves both.
func readActionInput(path string, stdin io.Reader) (batch.Values, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading action input: %w", err)
	}

	var input map[string]any
	if err = yaml.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("parsing action input: %w", err)
	}
	return batch.Values(input), nil
}

func writeResult(w io.Writer, format string, result batch.Values) error {
	if format == outputYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(jsonRoundTrip(result)); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// jsonRoundTrip converts result into plain maps so that YAML output uses the
// same field names as JSON output.
func jsonRoundTrip(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err = json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
