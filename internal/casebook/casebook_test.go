package casebook_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseprep/internal/casebook"
	"caseprep/internal/domain"
	apperr "caseprep/internal/errors"
)

const sample = `{
  "2": {
    "case_title": "Coffee chain",
    "case_text": "A coffee chain is losing money.",
    "system_role": "You are an interview coach.",
    "questions": {
      "1": {"question_text": "What drives profit?", "rubric": "Structure", "generation_instructions": "Be brief."},
      "10": {"question_text": "Recommend.", "rubric": "Synthesis"},
      "9": {"question_text": "Size the market.", "rubric": "Math"}
    }
  },
  "1": {"case_title": "Airline", "questions": {}}
}`

func TestDecode(t *testing.T) {
	book, err := casebook.Decode([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, book.CaseIDs())

	c, err := book.Case("2")
	require.NoError(t, err)
	assert.Equal(t, "Coffee chain", c.Title)
	assert.Equal(t, "You are an interview coach.", c.SystemRole)
	assert.Equal(t, []string{"1", "9", "10"}, c.QuestionIDs())

	q, err := book.Question(domain.NewScope("2", "1"))
	require.NoError(t, err)
	assert.Equal(t, casebook.Question{Text: "What drives profit?", Rubric: "Structure", Instructions: "Be brief."}, q)
}

func TestQuestion_NotFound(t *testing.T) {
	book, err := casebook.Decode([]byte(sample))
	require.NoError(t, err)

	_, err = book.Question(domain.NewScope("3", "1"))
	assert.True(t, apperr.IsNotFound(err))

	_, err = book.Question(domain.NewScope("2", "4"))
	assert.True(t, apperr.IsNotFound(err))
}

func TestDecode_Malformed(t *testing.T) {
	for name, data := range map[string]string{
		"not json":         `{`,
		"array":            `[]`,
		"missing title":    `{"1": {"questions": {}}}`,
		"question no text": `{"1": {"case_title": "t", "questions": {"1": {"rubric": "r"}}}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := casebook.Decode([]byte(data))
			require.Error(t, err)
			assert.Equal(t, apperr.CodeCasebookInvalidFormat, apperr.CodeOf(err))
		})
	}
}
