package xmlfile

import (
	"context"
	"encoding/xml"

	"sharebrokering/internal/domain"
	"sharebrokering/internal/repository"
)

type usersDocument struct {
	XMLName xml.Name      `xml:"users"`
	Users   []domain.User `xml:"user"`
}

// UserStore persists the user collection in a single XML file, locked
// independently of the stock file.
type UserStore struct {
	file snapshotFile
}

func NewUserStore(path string) repository.UserStore {
	return &UserStore{file: snapshotFile{path: path}}
}

func (s *UserStore) View(ctx context.Context, fn func(users []domain.User) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.file.mu.Lock()
	defer s.file.mu.Unlock()

	var doc usersDocument
	if _, err := s.file.read(&doc); err != nil {
		return err
	}
	return fn(doc.Users)
}

func (s *UserStore) Update(ctx context.Context, fn func(users *[]domain.User) (bool, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.file.mu.Lock()
	defer s.file.mu.Unlock()

	var doc usersDocument
	if _, err := s.file.read(&doc); err != nil {
		return err
	}

	save, err := fn(&doc.Users)
	if err != nil {
		return err
	}
	if !save {
		return nil
	}
	return s.file.write(&doc)
}
