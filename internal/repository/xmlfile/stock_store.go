package xmlfile

import (
	"context"
	"encoding/xml"

	"sharebrokering/internal/domain"
	"sharebrokering/internal/repository"
)

type stocksDocument struct {
	XMLName xml.Name       `xml:"stocks"`
	Stocks  []domain.Stock `xml:"stock"`
}

// StockStore persists the stock collection in a single XML file.
type StockStore struct {
	file snapshotFile
}

func NewStockStore(path string) repository.StockStore {
	return &StockStore{file: snapshotFile{path: path}}
}

func (s *StockStore) View(ctx context.Context, fn func(stocks []domain.Stock) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.file.mu.Lock()
	defer s.file.mu.Unlock()

	var doc stocksDocument
	if _, err := s.file.read(&doc); err != nil {
		return err
	}
	return fn(doc.Stocks)
}

func (s *StockStore) Update(ctx context.Context, fn func(stocks *[]domain.Stock) (bool, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.file.mu.Lock()
	defer s.file.mu.Unlock()

	var doc stocksDocument
	if _, err := s.file.read(&doc); err != nil {
		return err
	}

	save, err := fn(&doc.Stocks)
	if err != nil {
		return err
	}
	if !save {
		return nil
	}
	return s.file.write(&doc)
}
