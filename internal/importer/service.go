package importer

import (
	"io"
)

type Service struct {
	parser *Parser
}

func NewService() *Service {
	return &Service{parser: NewParser()}
}

// Parse reads a statement CSV and returns its rows. The caller decides
// which customer they belong to and how notes are filled in.
func (s *Service) Parse(r io.Reader) ([]Row, error) {
	return s.parser.Parse(r)
}
