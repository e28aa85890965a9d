// Package corpus pairs the vector index with its metadata table.
package corpus

import (
	"fmt"

	"caseprep/internal/domain"
	apperr "caseprep/internal/errors"
	"caseprep/internal/index"
	"caseprep/internal/metadata"
)

// Entry is the record stored at one position together with its vector.
type Entry struct {
	Position int
	Record   domain.Record
	Vector   []float32
}

// Corpus is an index and a table of equal length.
// Entries are only reachable through a single position, so a vector can never
// be paired with another position's record.
type Corpus struct {
	ix  *index.Flat
	tbl *metadata.Table
}

// New checks that ix and tbl describe the same positions.
func New(ix *index.Flat, tbl *metadata.Table) (*Corpus, error) {
	if ix == nil || tbl == nil {
		return nil, apperr.New(apperr.CodeInternalFailure, "corpus: index and metadata are required")
	}
	if ix.Len() != tbl.Len() {
		return nil, apperr.New(apperr.CodeCorpusMisaligned,
			fmt.Sprintf("corpus: index holds %d vectors but metadata holds %d records", ix.Len(), tbl.Len()),
			apperr.Field("vectors", ix.Len()),
			apperr.Field("records", tbl.Len()))
	}
	return &Corpus{ix: ix, tbl: tbl}, nil
}

func (c *Corpus) Len() int { return c.ix.Len() }

func (c *Corpus) Dim() int { return c.ix.Dim() }

func (c *Corpus) Metric() index.Metric { return c.ix.Metric() }

// Entry returns the aligned pair at pos.
func (c *Corpus) Entry(pos int) Entry {
	return Entry{Position: pos, Record: c.tbl.At(pos), Vector: c.ix.Vector(pos)}
}

// Search returns up to k neighbors nearest-first, across all scopes.
func (c *Corpus) Search(q []float32, k int) ([]domain.Neighbor, error) {
	hits, err := c.ix.Search(q, k)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Neighbor, len(hits))
	for i, h := range hits {
		out[i] = domain.Neighbor{Record: c.tbl.At(h.Pos), Position: h.Pos, Score: h.Score}
	}
	return out, nil
}

// Scopes counts records per scope.
func (c *Corpus) Scopes() map[domain.Scope]int {
	counts := make(map[domain.Scope]int)
	for i := 0; i < c.tbl.Len(); i++ {
		counts[c.tbl.At(i).Scope()]++
	}
	return counts
}
