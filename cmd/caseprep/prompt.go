package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	apperr "caseprep/internal/errors"
	"caseprep/internal/prompt"
)

func newPromptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt --case ID --question ID [flags] ANSWER...",
		Short: "Build the feedback prompt for a candidate answer",
		Long: "Retrieves past answers to the same question using the candidate answer as the query " +
			"and prints the feedback-generation prompt. Question text, rubric and instructions come " +
			"from the flags, or from the configured casebook when the flags are omitted. " +
			"Pass - as ANSWER to read it from stdin.",
		Args: cobra.MinimumNArgs(1),
		RunE: runPrompt,
	}
	addScopeFlags(cmd)
	cmd.Flags().String("question-file", "", "file holding the question text")
	cmd.Flags().String("rubric-file", "", "file holding the rubric")
	cmd.Flags().String("instructions-file", "", "file holding generation instructions")
	return cmd
}

func runPrompt(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	answer := strings.Join(args, " ")
	if answer == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return apperr.Wrap(err, apperr.CodeSourceReadFailure, "reading answer from stdin")
		}
		answer = string(data)
	}
	answer = strings.TrimSpace(answer)

	scope, n := a.scopeFlags(cmd)
	in := prompt.Input{Answer: answer}

	questionFile, _ := cmd.Flags().GetString("question-file")
	rubricFile, _ := cmd.Flags().GetString("rubric-file")
	instructionsFile, _ := cmd.Flags().GetString("instructions-file")

	if questionFile == "" || rubricFile == "" {
		book, err := a.casebook(cmd.Context())
		if err != nil {
			return fmt.Errorf("question text and rubric need --question-file and --rubric-file or a casebook: %w", err)
		}
		q, err := book.Question(scope)
		if err != nil {
			return err
		}
		in.Question, in.Rubric, in.Instructions = q.Text, q.Rubric, q.Instructions
	}
	for _, f := range []struct {
		path string
		dst  *string
	}{
		{questionFile, &in.Question},
		{rubricFile, &in.Rubric},
		{instructionsFile, &in.Instructions},
	} {
		if f.path == "" {
			continue
		}
		data, err := os.ReadFile(f.path)
		if err != nil {
			return apperr.Wrap(err, apperr.CodeSourceReadFailure, "reading "+f.path)
		}
		*f.dst = strings.TrimSpace(string(data))
	}

	store, err := a.store()
	if err != nil {
		return err
	}
	in.Examples, err = store.NearestNeighbors(cmd.Context(), answer, scope, n)
	if err != nil {
		return err
	}
	if len(in.Examples) == 0 {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "No relevant past examples found; the prompt relies on the answer alone.")
	}

	_, _ = fmt.Fprint(cmd.OutOrStdout(), prompt.Build(in))
	return nil
}
