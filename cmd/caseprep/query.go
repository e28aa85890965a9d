package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"caseprep/internal/domain"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query --case ID --question ID [-n N] TEXT...",
		Short: "Find past answers to the same question that resemble TEXT",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runQuery,
	}
	addScopeFlags(cmd)
	cmd.Flags().Bool("json", false, "print results as JSON")
	return cmd
}

type neighborJSON struct {
	Position   int     `json:"position"`
	Score      float32 `json:"score"`
	CaseID     string  `json:"case_id"`
	QuestionID string  `json:"question_id"`
	Answer     string  `json:"answer"`
	Feedback   string  `json:"feedback"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	store, err := a.store()
	if err != nil {
		return err
	}
	scope, n := a.scopeFlags(cmd)
	text := strings.Join(args, " ")

	neighbors, err := store.NearestNeighbors(cmd.Context(), text, scope, n)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		rows := make([]neighborJSON, len(neighbors))
		for i, nb := range neighbors {
			rows[i] = neighborJSON{
				Position:   nb.Position,
				Score:      nb.Score,
				CaseID:     string(nb.Record.CaseID),
				QuestionID: string(nb.Record.QuestionID),
				Answer:     nb.Record.Answer,
				Feedback:   nb.Record.Feedback,
			}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	_, _ = fmt.Fprint(out, renderNeighbors(scope, neighbors))
	return nil
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func renderNeighbors(scope domain.Scope, neighbors []domain.Neighbor) string {
	if len(neighbors) == 0 {
		return dimStyle.Render(fmt.Sprintf("No past answers found for %s.", scope)) + "\n"
	}
	var b strings.Builder
	for i, nb := range neighbors {
		b.WriteString(titleStyle.Render(fmt.Sprintf("#%d  position %d  score %.4f", i+1, nb.Position, nb.Score)))
		b.WriteString("\n")
		b.WriteString("Past Answer: " + nb.Record.Answer + "\n")
		b.WriteString("Feedback Given: " + nb.Record.Feedback + "\n\n")
	}
	return b.String()
}
