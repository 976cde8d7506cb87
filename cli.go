package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"minirag/backend/internal/answer"
	"minirag/backend/internal/app"
	"minirag/backend/internal/pipeline"
	"minirag/backend/internal/rag"
	"minirag/backend/internal/retrieval"
)

var (
	ingestDocID string

	askDocID   string
	askJSON    bool
	askIngests []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest FILE",
	Short: "Chunk, embed and store a text file (- reads stdin)",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

var askCmd = &cobra.Command{
	Use:   "ask QUESTION",
	Short: "Answer a question from stored passages",
	Long: `Retrieves the passages closest to the question, reranks them and asks
the completion model for an answer that cites them as [n].

With --memory nothing persists between runs; pass --ingest to load files
into the in-process index first.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDocID, "doc-id", rag.DefaultDocumentID, "document ID to store the passages under")

	askCmd.Flags().StringVar(&askDocID, "doc-id", rag.DefaultDocumentID, "restrict retrieval to this document ID")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	askCmd.Flags().StringSliceVar(&askIngests, "ingest", nil, "files to ingest under --doc-id before asking")

	rootCmd.AddCommand(ingestCmd, askCmd)
}

// openPipeline wires a pipeline without the HTTP layer or the Postgres ledger.
func openPipeline(ctx context.Context) (*pipeline.Pipeline, func(), error) {
	store, err := app.OpenVectorStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	providers, err := app.NewProviders(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	ql, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("query logging disabled", "error", err)
		ql = nil
	}
	cleanup := func() {
		providers.Close()
		if ql != nil {
			ql.Close()
		}
	}
	return app.NewPipeline(cfg, store, providers, ql), cleanup, nil
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(b), nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if cfg.VectorBackend == "memory" {
		slog.Warn("ingesting into the in-memory index; passages are discarded when the command exits")
	}

	content, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	p, closeFn, err := openPipeline(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	n, err := p.Ingest(ctx, content, ingestDocID)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stored %d chunks under %q\n", n, ingestDocID)
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	p, closeFn, err := openPipeline(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	for _, path := range askIngests {
		content, err := readInput(cmd, path)
		if err != nil {
			return err
		}
		if _, err := p.Ingest(ctx, content, askDocID); err != nil {
			return fmt.Errorf("ingest %s failed: %w", path, err)
		}
	}

	ans, err := p.Ask(ctx, args[0], askDocID)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return outputAnswerJSON(cmd, args[0], ans)
	}
	outputAnswerText(cmd, ans)
	return nil
}

func outputAnswerJSON(cmd *cobra.Command, question string, ans *rag.Answer) error {
	usage := answer.EstimateUsage(question, ans)
	data, err := json.MarshalIndent(struct {
		*rag.Answer
		answer.Usage
	}{ans, usage}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func outputAnswerText(cmd *cobra.Command, ans *rag.Answer) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ans.Text)
	if len(ans.Citations) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Sources:")
	for _, c := range ans.Citations {
		fmt.Fprintf(out, "  [%d] %s\n", c.Number, c.SourceText)
	}
}
