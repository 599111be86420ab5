// Package parsers loads DIMACS CNF instances and model files into the plain
// (numVars, clauses) shape internal/sat.NewSolver accepts, for both its
// baseline and learning-mode search paths.
package parsers

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/rhartert/dimacs"
)

func reader(filename string, gzipped bool) (io.ReadCloser, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	rc := io.ReadCloser(file)
	if gzipped {
		rc, err = gzip.NewReader(rc)
		if err != nil {
			return nil, err
		}
	}
	return rc, nil
}

// LoadDIMACS parses a DIMACS CNF file and returns its variable count and
// clauses as signed, 1-based literals, ready for NewSolver.
func LoadDIMACS(filename string, gzipped bool) (numVars int, clauses [][]int, err error) {
	r, err := reader(filename, gzipped)
	if err != nil {
		return 0, nil, fmt.Errorf("error reading file %q: %s", filename, err)
	}
	defer r.Close()

	b := &instanceBuilder{}
	if err := dimacs.ReadBuilder(r, b); err != nil {
		return 0, nil, err
	}
	return b.numVars, b.clauses, nil
}

// instanceBuilder implements dimacs.Builder, collecting the instance into
// plain slices instead of writing directly into a solver.
type instanceBuilder struct {
	numVars int
	clauses [][]int
}

func (b *instanceBuilder) Problem(problem string, nVars int, nClauses int) error {
	if problem != "cnf" {
		return fmt.Errorf("not a CNF problem")
	}
	b.numVars = nVars
	b.clauses = make([][]int, 0, nClauses)
	return nil
}

func (b *instanceBuilder) Clause(tmpClause []int) error {
	clause := make([]int, len(tmpClause))
	copy(clause, tmpClause)
	b.clauses = append(b.clauses, clause)
	return nil
}

func (b *instanceBuilder) Comment(_ string) error {
	return nil // ignore comments
}

// ReadModels returns the list of models (if any) contained in the given
// DIMACS-style model file (one model per line, literals terminated by 0).
func ReadModels(filename string) ([][]bool, error) {
	r, err := reader(filename, false)
	if err != nil {
		return nil, fmt.Errorf("error reading file %q: %s", filename, err)
	}
	defer r.Close()

	b := &modelBuilder{}
	if err := dimacs.ReadBuilder(r, b); err != nil {
		return nil, err
	}
	return b.models, nil
}

type modelBuilder struct {
	models [][]bool
}

func (b *modelBuilder) Problem(problem string, nVars int, nClauses int) error {
	return fmt.Errorf("model files should not have problem lines")
}

func (b *modelBuilder) Comment(_ string) error {
	return nil // ignore comments
}

func (b *modelBuilder) Clause(tmpClause []int) error {
	model := make([]bool, len(tmpClause))
	for i, l := range tmpClause {
		model[i] = l > 0
	}
	b.models = append(b.models, model)
	return nil
}
