package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/medscribe/internal/domain/generation"
	api "github.com/kailas-cloud/medscribe/internal/transport/chi"
)

// errRunFailed reports a run whose terminal record was an error; the message is already printed.
var errRunFailed = errors.New("run failed")

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Get recommendations for a case, informed by similar stored cases",
		Long: `Stream an analysis of a medical document.

Examples:
  medscribectl analyze --file case.txt --model openai
  medscribectl analyze --file case.txt --model local --top-k 5 --filter specialty=Кардиология`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("file")
			doc, err := readInput(cmd, path)
			if err != nil {
				return err
			}
			model, _ := cmd.Flags().GetString("model")
			rawFilters, _ := cmd.Flags().GetStringSlice("filter")
			filters, err := parsePairs(rawFilters)
			if err != nil {
				return err
			}
			params, err := streamParameters(cmd)
			if err != nil {
				return err
			}

			req := api.AnalyzeRequest{
				MedicalDoc:     doc,
				ModelType:      generation.ModelType(model),
				FilterMetadata: toAny(filters),
				Parameters:     params,
			}
			if cmd.Flags().Changed("top-k") {
				k, _ := cmd.Flags().GetInt("top-k")
				req.TopK = &k
			}

			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			p := newEventPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), jsonOutput(cmd))
			if err := c.Analyze(cmd.Context(), req, p.print); err != nil {
				return err
			}
			return p.result()
		},
	}

	cmd.Flags().StringP("file", "f", "-", "medical document file, - for stdin")
	cmd.Flags().StringP("model", "m", string(generation.OpenAI), "model type (openai, deepseek, local, ollama)")
	cmd.Flags().IntP("top-k", "k", 3, "number of similar cases (1-10)")
	cmd.Flags().StringSlice("filter", nil, "metadata filter key=value (repeatable)")
	addParameterFlags(cmd)

	return cmd
}

func transcriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Turn a consultation transcript into a structured clinical note",
		Long: `Stream a structured clinical note generated from a dialogue.

Examples:
  medscribectl transcript --file visit.txt --model deepseek`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("file")
			transcript, err := readInput(cmd, path)
			if err != nil {
				return err
			}
			model, _ := cmd.Flags().GetString("model")
			params, err := streamParameters(cmd)
			if err != nil {
				return err
			}

			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			p := newEventPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), jsonOutput(cmd))
			err = c.ProcessTranscript(cmd.Context(), api.TranscriptRequest{
				Transcript: transcript,
				ModelType:  generation.ModelType(model),
				Parameters: params,
			}, p.print)
			if err != nil {
				return err
			}
			return p.result()
		},
	}

	cmd.Flags().StringP("file", "f", "-", "transcript file, - for stdin")
	cmd.Flags().StringP("model", "m", string(generation.OpenAI), "model type (openai, deepseek, local, ollama)")
	addParameterFlags(cmd)

	return cmd
}

func addParameterFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("temperature", 0, "sampling temperature")
	cmd.Flags().Int("max-tokens", 0, "maximum generated tokens")
}

// streamParameters returns only the flags the user set, so server defaults apply otherwise.
func streamParameters(cmd *cobra.Command) (generation.Parameters, error) {
	params := generation.Parameters{}
	if cmd.Flags().Changed("temperature") {
		v, err := cmd.Flags().GetFloat64("temperature")
		if err != nil {
			return nil, err
		}
		params[generation.ParamTemperature] = v
	}
	if cmd.Flags().Changed("max-tokens") {
		v, err := cmd.Flags().GetInt("max-tokens")
		if err != nil {
			return nil, err
		}
		if v <= 0 {
			return nil, fmt.Errorf("--max-tokens must be positive")
		}
		params[generation.ParamMaxTokens] = v
	}
	if len(params) == 0 {
		return nil, nil
	}
	return params, nil
}

// eventPrinter renders stream records as they arrive.
type eventPrinter struct {
	out, errOut io.Writer
	raw         bool
	failed      bool
}

func newEventPrinter(out, errOut io.Writer, raw bool) *eventPrinter {
	return &eventPrinter{out: out, errOut: errOut, raw: raw}
}

func (p *eventPrinter) print(ev api.StreamEvent) error {
	if ev.Status == "error" {
		p.failed = true
	}
	if p.raw {
		return printJSONLine(p.out, ev)
	}

	switch ev.Status {
	case "completed":
		fmt.Fprintf(p.errOut, "%s %s\n", success("✓"), ev.Message)
		if len(ev.SimilarDocuments) > 0 {
			fmt.Fprintln(p.out, heading("Похожие случаи:"))
			printResults(p.out, ev.SimilarDocuments)
			fmt.Fprintln(p.out)
		}
		if ev.Recommendations != nil {
			fmt.Fprintln(p.out, *ev.Recommendations)
		}
		if ev.StructuredDoc != nil {
			fmt.Fprintln(p.out, *ev.StructuredDoc)
		}
		if ev.ModelInfo != nil {
			fmt.Fprintf(p.errOut, "%s %s (%s)\n", muted("model:"), ev.ModelInfo.Name, ev.ModelInfo.Type)
		}
	case "error":
		fmt.Fprintf(p.errOut, "%s %s\n", failure("✗"), ev.Message)
	default:
		fmt.Fprintf(p.errOut, "%s %s\n", muted("…"), ev.Message)
	}
	return nil
}

func (p *eventPrinter) result() error {
	if p.failed {
		return errRunFailed
	}
	return nil
}
