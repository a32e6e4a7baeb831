package fieldstore

import "github.com/fieldline/groundloop/internal/coverage"

const coverageFileName = "Coverage.bin"

// WriteCoverage persists an engine's run-length-encoded cell grid,
// delegating the codec itself to internal/coverage.
func (s *Store) WriteCoverage(e *coverage.Engine) error {
	data, err := e.Save()
	if err != nil {
		return err
	}
	return s.writeFile(coverageFileName, data)
}

// ReadCoverage loads Coverage.bin into an already-constructed engine
// (its Bounds/CellSizeM must match the original).
func (s *Store) ReadCoverage(e *coverage.Engine) error {
	data, err := s.readFile(coverageFileName)
	if err != nil {
		return err
	}
	return e.Load(data)
}
