package domain

// CaseID identifies an interview case. Ids are compared as exact strings.
type CaseID string

// QuestionID identifies a question within a case.
type QuestionID string

// Scope partitions the flat vector index into independent retrieval contexts.
type Scope struct {
	Case     CaseID
	Question QuestionID
}

// NewScope builds a Scope from raw identifiers.
func NewScope(caseID, questionID string) Scope {
	return Scope{Case: CaseID(caseID), Question: QuestionID(questionID)}
}

// Valid reports whether both identifiers are set.
func (s Scope) Valid() bool {
	return s.Case != "" && s.Question != ""
}

func (s Scope) String() string {
	return string(s.Case) + "/" + string(s.Question)
}

// Record is one historical answer with the feedback it received.
// Record i describes the vector at position i of the index.
type Record struct {
	CaseID     CaseID
	QuestionID QuestionID
	Answer     string
	Feedback   string
}

// Scope returns the retrieval scope the record belongs to.
func (r Record) Scope() Scope {
	return Scope{Case: r.CaseID, Question: r.QuestionID}
}

// InScope reports whether the record belongs to scope s.
func (r Record) InScope(s Scope) bool {
	return r.CaseID == s.Case && r.QuestionID == s.Question
}

// Neighbor is a record judged relevant to a query.
type Neighbor struct {
	Record   Record
	Position int
	// Score is the raw metric value: inner product (higher is nearer) or
	// squared L2 distance (lower is nearer).
	Score float32
}
