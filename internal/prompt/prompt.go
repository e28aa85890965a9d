// Package prompt renders the feedback-generation prompt for a candidate answer.
package prompt

import (
	"strings"

	"caseprep/internal/domain"
)

// Input is everything the prompt is built from. Examples are the retrieved
// neighbors, nearest first; they may be empty.
type Input struct {
	Question     string
	Answer       string
	Examples     []domain.Neighbor
	Rubric       string
	Instructions string
}

// Build renders the prompt. The historical examples block is left out
// entirely when there are no examples.
func Build(in Input) string {
	var b strings.Builder

	b.WriteString("\nCase Question:\n")
	b.WriteString(in.Question)
	b.WriteString("\n\nCandidate's Answer:\n")
	b.WriteString(in.Answer)
	b.WriteString("\n\n")

	if len(in.Examples) > 0 {
		b.WriteString("Historical Examples:\n")
		for i, ex := range in.Examples {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString("Past Answer: ")
			b.WriteString(ex.Record.Answer)
			b.WriteString("\nFeedback Given: ")
			b.WriteString(ex.Record.Feedback)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n\nRubric:\n")
	b.WriteString(in.Rubric)
	b.WriteString("\n\n")
	b.WriteString(in.Instructions)
	b.WriteString("\n")
	return b.String()
}
