// Package casebook reads the sealed case catalogue: case texts, questions,
// rubrics and generation instructions keyed by case and question id.
package casebook

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"caseprep/internal/domain"
	apperr "caseprep/internal/errors"
)

const bookSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": {
    "type": "object",
    "required": ["case_title", "questions"],
    "properties": {
      "case_title":  {"type": "string"},
      "case_text":   {"type": "string"},
      "system_role": {"type": "string"},
      "questions": {
        "type": "object",
        "additionalProperties": {
          "type": "object",
          "required": ["question_text", "rubric"],
          "properties": {
            "question_text":           {"type": "string"},
            "rubric":                  {"type": "string"},
            "generation_instructions": {"type": "string"}
          }
        }
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(bookSchema))
})

type Question struct {
	Text         string `json:"question_text"`
	Rubric       string `json:"rubric"`
	Instructions string `json:"generation_instructions"`
}

type Case struct {
	Title      string              `json:"case_title"`
	Text       string              `json:"case_text"`
	SystemRole string              `json:"system_role"`
	Questions  map[string]Question `json:"questions"`
}

// QuestionIDs returns the case's question ids in natural order.
func (c Case) QuestionIDs() []string {
	return sortedKeys(c.Questions)
}

// Book is the decoded catalogue.
type Book struct {
	cases map[string]Case
}

// Decode validates and parses a serialized catalogue.
func Decode(data []byte) (*Book, error) {
	schema, err := compiledSchema()
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternalFailure, "compiling casebook schema")
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeCasebookInvalidFormat, "casebook: invalid JSON")
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, apperr.New(apperr.CodeCasebookInvalidFormat,
			"casebook: schema violation: "+strings.Join(details, "; "))
	}

	var cases map[string]Case
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeCasebookInvalidFormat, "casebook: decoding cases")
	}
	return &Book{cases: cases}, nil
}

// CaseIDs returns all case ids in natural order.
func (b *Book) CaseIDs() []string {
	return sortedKeys(b.cases)
}

func (b *Book) Case(id domain.CaseID) (Case, error) {
	c, ok := b.cases[string(id)]
	if !ok {
		return Case{}, apperr.Errorf(apperr.CodeCasebookNotFound, "casebook: no case %q", id)
	}
	return c, nil
}

// Question looks up the question addressed by scope.
func (b *Book) Question(scope domain.Scope) (Question, error) {
	c, err := b.Case(scope.Case)
	if err != nil {
		return Question{}, err
	}
	q, ok := c.Questions[string(scope.Question)]
	if !ok {
		return Question{}, apperr.Errorf(apperr.CodeCasebookNotFound, "casebook: case %q has no question %q", scope.Case, scope.Question)
	}
	return q, nil
}

// sortedKeys orders ids numerically when both are integers, else lexically,
// so "10" follows "9".
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA == nil && errB == nil && a != b {
			return a < b
		}
		return keys[i] < keys[j]
	})
	return keys
}
