package prompt_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"caseprep/internal/domain"
	"caseprep/internal/prompt"
)

func TestBuild_WithExamples(t *testing.T) {
	out := prompt.Build(prompt.Input{
		Question: "How many coffee shops are in Paris?",
		Answer:   "Start from population.",
		Examples: []domain.Neighbor{
			{Record: domain.Record{Answer: "Top-down estimate", Feedback: "State assumptions"}},
			{Record: domain.Record{Answer: "Bottom-up estimate", Feedback: "Sanity-check the result"}},
		},
		Rubric:       "Structure, math, synthesis",
		Instructions: "Give three bullet points.",
	})

	want := "\nCase Question:\nHow many coffee shops are in Paris?\n\n" +
		"Candidate's Answer:\nStart from population.\n\n" +
		"Historical Examples:\n" +
		"Past Answer: Top-down estimate\nFeedback Given: State assumptions\n" +
		"\n" +
		"Past Answer: Bottom-up estimate\nFeedback Given: Sanity-check the result\n" +
		"\n\nRubric:\nStructure, math, synthesis\n\nGive three bullet points.\n"
	assert.Equal(t, want, out)
}

func TestBuild_WithoutExamples(t *testing.T) {
	out := prompt.Build(prompt.Input{
		Question: "Q",
		Answer:   "A",
		Rubric:   "R",
	})

	assert.NotContains(t, out, "Historical Examples")
	assert.NotContains(t, out, "Past Answer")
	assert.True(t, strings.Index(out, "Candidate's Answer:") < strings.Index(out, "Rubric:"))
}
