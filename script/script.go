// Package script models migration script files and reads them from folders.
package script

import (
	"fmt"
	"strings"
)

// Category is the folder a script was found in.
type Category string

const (
	Init Category = "init"
	Up   Category = "up"
	Down Category = "down"
	Term Category = "term"
)

// Categories lists the script folders in the order they are scanned.
var Categories = []Category{Init, Up, Down, Term}

// Script is one migration script file. A Script is never modified after it
// has been scanned.
type Script struct {
	Version int64

	// Name is the file name, used to identify the script in logs and history.
	Name string

	Category Category

	// Environments the script is restricted to. Empty means every environment.
	Environments []string

	Content string
}

// AppliesTo reports whether s should run for the requested environments.
// No requested environment selects every script.
func (s *Script) AppliesTo(environments []string) bool {
	if len(s.Environments) == 0 || len(environments) == 0 {
		return true
	}
	for _, want := range environments {
		for _, have := range s.Environments {
			if strings.EqualFold(want, have) {
				return true
			}
		}
	}
	return false
}

func (s *Script) String() string {
	return fmt.Sprintf("%v/%v [%v]", s.Category, s.Name, s.Version)
}
