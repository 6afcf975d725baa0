// Package roster loads the static contact list the session starts with.
package roster

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/omochice/relay-chat-client/internal/session"
	"github.com/pelletier/go-toml/v2"
)

const currentVersion = 1

var (
	ErrUnsupportedVersion = errors.New("unsupported roster version")
	ErrDuplicateName      = errors.New("duplicate contact name")
	ErrEmptyName          = errors.New("contact name is empty")
)

//go:embed default_roster.toml
var defaultRoster []byte

type fileSchema struct {
	Version  int             `toml:"version"`
	Contacts []contactSchema `toml:"contacts"`
}

type contactSchema struct {
	ID          string `toml:"id"`
	Name        string `toml:"name"`
	Avatar      string `toml:"avatar"`
	Online      bool   `toml:"online"`
	LastMessage string `toml:"last_message"`
	Timestamp   string `toml:"timestamp"`
}

// Default returns the built-in roster.
func Default() []session.Contact {
	contacts, err := Parse(defaultRoster)
	if err != nil {
		panic(fmt.Sprintf("embedded roster: %v", err))
	}
	return contacts
}

// Load reads a roster file. An empty path yields the built-in roster.
func Load(path string) ([]session.Contact, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster file: %w", err)
	}
	contacts, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return contacts, nil
}

// Parse decodes a TOML roster. Contacts without an id get a random one.
func Parse(data []byte) ([]session.Contact, error) {
	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	if file.Version == 0 {
		file.Version = currentVersion
	}
	if file.Version != currentVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, file.Version)
	}

	seen := make(map[string]struct{}, len(file.Contacts))
	contacts := make([]session.Contact, 0, len(file.Contacts))
	for i, entry := range file.Contacts {
		if entry.Name == "" {
			return nil, fmt.Errorf("contact %d: %w", i, ErrEmptyName)
		}
		if _, ok := seen[entry.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, entry.Name)
		}
		seen[entry.Name] = struct{}{}
		contacts = append(contacts, entry.toContact())
	}
	return contacts, nil
}

// Encode writes contacts back in roster format. Groups are skipped.
func Encode(contacts []session.Contact) ([]byte, error) {
	file := fileSchema{Version: currentVersion}
	for _, c := range contacts {
		if c.IsGroup {
			continue
		}
		file.Contacts = append(file.Contacts, contactSchema{
			ID:          c.ID,
			Name:        c.Name,
			Avatar:      c.Avatar,
			Online:      c.Online,
			LastMessage: c.LastMessage,
			Timestamp:   c.Timestamp,
		})
	}
	data, err := toml.Marshal(file)
	if err != nil {
		return nil, fmt.Errorf("encode roster: %w", err)
	}
	return data, nil
}

func (s contactSchema) toContact() session.Contact {
	id := s.ID
	if id == "" {
		id = uuid.NewString()
	}
	return session.Contact{
		ID:          id,
		Name:        s.Name,
		Avatar:      s.Avatar,
		Online:      s.Online,
		LastMessage: s.LastMessage,
		Timestamp:   s.Timestamp,
	}
}
