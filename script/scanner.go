package script

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/hashicorp/go-multierror"
)

// Scanner reads the scripts of one category from a folder.
type Scanner interface {
	// Scan returns the scripts in folder that apply to environments, ordered
	// by ascending version, together with the names of files that were not
	// recognised as scripts. A folder that does not exist yields no scripts.
	Scan(folder string, category Category, environments []string) (scripts []*Script, skipped []string, err error)
}

// FolderScanner is a Scanner for folders on disk or inside an fs.FS.
type FolderScanner struct {
	// FS, if set, is used instead of the operating system's file system and
	// folders are slash separated paths inside it.
	FS fs.FS

	// Extension defaults to DefaultExtension.
	Extension string
}

// NewFolderScanner returns a scanner reading from the operating system.
func NewFolderScanner() *FolderScanner {
	return &FolderScanner{Extension: DefaultExtension}
}

func (s *FolderScanner) regex() *regexp.Regexp {
	if s.Extension == "" || s.Extension == DefaultExtension {
		return Regex
	}
	return FilenameRegex(s.Extension)
}

func (s *FolderScanner) root(folder string) (fs.FS, string) {
	if s.FS != nil {
		return s.FS, path.Clean(filepath.ToSlash(folder))
	}
	return os.DirFS(folder), "."
}

// Scan implements Scanner.
func (s *FolderScanner) Scan(folder string, category Category, environments []string) ([]*Script, []string, error) {
	fsys, dir := s.root(folder)

	entries, err := fs.ReadDir(fsys, dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	} else if err != nil {
		return nil, nil, err
	}

	regex := s.regex()
	var result error
	var skipped []string
	byVersion := make(map[int64]*Script)
	scripts := make([]*Script, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		sc, err := Parse(regex, entry.Name(), category)
		if errors.Is(err, ErrParse) {
			skipped = append(skipped, entry.Name())
			continue
		} else if err != nil {
			result = multierror.Append(result, err)
			continue
		}

		if !sc.AppliesTo(environments) {
			continue
		}

		if existing, dup := byVersion[sc.Version]; dup {
			result = multierror.Append(result, ErrDuplicateScript{Script: sc, Existing: existing})
			continue
		}

		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		sc.Content = string(content)

		byVersion[sc.Version] = sc
		scripts = append(scripts, sc)
	}

	if result != nil {
		return nil, skipped, result
	}

	sort.Slice(scripts, func(i, j int) bool {
		return scripts[i].Version < scripts[j].Version
	})

	return scripts, skipped, nil
}
