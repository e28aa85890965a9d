// Package metadata decodes the record table that accompanies the vector index.
//
// The table is a JSON array; element i describes vector i of the index.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"caseprep/internal/domain"
	apperr "caseprep/internal/errors"
)

const tableSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["case_id", "question_id", "answer", "feedback"],
    "properties": {
      "case_id":     {"$ref": "#/definitions/id"},
      "question_id": {"$ref": "#/definitions/id"},
      "answer":      {"type": "string"},
      "feedback":    {"type": "string"}
    }
  },
  "definitions": {
    "id": {
      "oneOf": [
        {"type": "string", "minLength": 1},
        {"type": "integer"}
      ]
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(tableSchema))
})

// Table is the ordered list of records. It is immutable after decoding.
type Table struct {
	records []domain.Record
}

// NewTable wraps records without copying them.
func NewTable(records []domain.Record) *Table {
	return &Table{records: records}
}

func (t *Table) Len() int { return len(t.records) }

// At returns the record at position i.
func (t *Table) At(i int) domain.Record { return t.records[i] }

type wireRecord struct {
	CaseID     any    `json:"case_id"`
	QuestionID any    `json:"question_id"`
	Answer     string `json:"answer"`
	Feedback   string `json:"feedback"`
}

// Decode validates and parses a serialized table. Integral numeric ids are
// normalized to decimal strings, so a question id of 2.0 matches "2".
func Decode(data []byte) (*Table, error) {
	schema, err := compiledSchema()
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternalFailure, "compiling metadata schema")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		// gojsonschema reports unparseable documents here.
		return nil, apperr.Wrap(err, apperr.CodeMetadataInvalidFormat, "metadata: invalid JSON")
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, apperr.New(apperr.CodeMetadataInvalidFormat,
			"metadata: schema violation: "+strings.Join(details, "; "))
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var wire []wireRecord
	if err := dec.Decode(&wire); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeMetadataInvalidFormat, "metadata: decoding records")
	}

	records := make([]domain.Record, len(wire))
	for i, w := range wire {
		caseID, err := normalizeID(w.CaseID)
		if err != nil {
			return nil, positionError(i, "case_id", err)
		}
		questionID, err := normalizeID(w.QuestionID)
		if err != nil {
			return nil, positionError(i, "question_id", err)
		}
		records[i] = domain.Record{
			CaseID:     domain.CaseID(caseID),
			QuestionID: domain.QuestionID(questionID),
			Answer:     w.Answer,
			Feedback:   w.Feedback,
		}
	}
	return NewTable(records), nil
}

// Encode writes records in the format Decode reads. Ids are written as strings.
func Encode(w io.Writer, records []domain.Record) error {
	wire := make([]wireRecord, len(records))
	for i, r := range records {
		wire[i] = wireRecord{
			CaseID:     string(r.CaseID),
			QuestionID: string(r.QuestionID),
			Answer:     r.Answer,
			Feedback:   r.Feedback,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(wire)
}

// normalizeID keeps strings verbatim and renders integral numbers in
// canonical decimal form, so 7 and 7.0 both become "7". Tables written by
// the Python indexer compared str(id), where 7.0 was "7.0" and never
// matched "7"; here it does.
func normalizeID(v any) (string, error) {
	switch id := v.(type) {
	case string:
		if id == "" {
			return "", fmt.Errorf("empty id")
		}
		return id, nil
	case json.Number:
		r, ok := new(big.Rat).SetString(id.String())
		if !ok || !r.IsInt() {
			return "", fmt.Errorf("id %s is not an integer", id)
		}
		return r.Num().String(), nil
	default:
		return "", fmt.Errorf("id has type %T", v)
	}
}

func positionError(pos int, field string, err error) error {
	return apperr.New(apperr.CodeMetadataInvalidFormat,
		fmt.Sprintf("metadata: record %d: %s: %v", pos, field, err),
		apperr.FieldPosition(pos))
}
