package sandbox

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"gridedit/internal/model"
)

// TableDef describes one editable table. Rows only carry seed data.
type TableDef struct {
	Name           string           `yaml:"name" json:"name"`
	Columns        []model.Column   `yaml:"columns" json:"columns"`
	PKColumns      []string         `yaml:"pkColumns" json:"pkColumns"`
	PKUsesSequence []string         `yaml:"pkUsesSequence" json:"pkUsesSequence"`
	Rows           []map[string]any `yaml:"rows,omitempty" json:"-"`
}

type Fixture struct {
	Tables []TableDef `yaml:"tables"`
}

func LoadFixture(path string) (Fixture, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, err
	}
	return ParseFixture(b)
}

func ParseFixture(b []byte) (Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(b, &fx); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	seen := map[string]bool{}
	for _, t := range fx.Tables {
		if err := t.validate(); err != nil {
			return Fixture{}, err
		}
		if seen[t.Name] {
			return Fixture{}, fmt.Errorf("fixture: duplicate table %q", t.Name)
		}
		seen[t.Name] = true
	}
	return fx, nil
}

func (t TableDef) validate() error {
	if t.Name == "" {
		return errors.New("fixture: table without name")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("fixture: table %q has no columns", t.Name)
	}
	cols := map[string]model.Column{}
	for _, c := range t.Columns {
		if c.Name == "" {
			return fmt.Errorf("fixture: table %q has a column without name", t.Name)
		}
		if _, dup := cols[c.Name]; dup {
			return fmt.Errorf("fixture: table %q: duplicate column %q", t.Name, c.Name)
		}
		cols[c.Name] = c
	}
	for _, p := range t.PKColumns {
		if _, ok := cols[p]; !ok {
			return fmt.Errorf("fixture: table %q: unknown primary key column %q", t.Name, p)
		}
	}
	for _, s := range t.PKUsesSequence {
		if !t.isPK(s) {
			return fmt.Errorf("fixture: table %q: sequence column %q is not a primary key column", t.Name, s)
		}
		if !isIntType(cols[s].DataType) {
			return fmt.Errorf("fixture: table %q: sequence column %q must be an integer", t.Name, s)
		}
	}
	return nil
}

func (t TableDef) isPK(name string) bool {
	for _, p := range t.PKColumns {
		if p == name {
			return true
		}
	}
	return false
}

func (t TableDef) usesSequence(name string) bool {
	for _, s := range t.PKUsesSequence {
		if s == name {
			return true
		}
	}
	return false
}

func (t TableDef) column(name string) (model.Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return model.Column{}, false
}

//go:embed default_fixture.yaml
var defaultFixture []byte

// DefaultFixture is the built-in demo schema used when no fixture is given.
func DefaultFixture() (Fixture, error) {
	return ParseFixture(defaultFixture)
}
