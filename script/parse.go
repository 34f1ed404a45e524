package script

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrParse is returned for file names that do not look like scripts.
var ErrParse = errors.New("no match")

// DefaultExtension is the extension of script files.
const DefaultExtension = ".sql"

var filenameRegex = `^([0-9]+)(?:_([^.]*))?((?:\.[^.]+)*)%s$`

// FilenameRegex matches the following pattern for the given extension:
//
//	123.sql
//	123_name.sql
//	123_name.dev.sql
//	123_name.dev.stage.sql
func FilenameRegex(extension string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(filenameRegex, regexp.QuoteMeta(extension)))
}

// Regex is FilenameRegex for DefaultExtension.
var Regex = FilenameRegex(DefaultExtension)

// Parse returns a Script without content for a file name matching regex.
func Parse(regex *regexp.Regexp, filename string, category Category) (*Script, error) {
	m := regex.FindStringSubmatch(filename)
	if len(m) != 4 {
		return nil, ErrParse
	}

	version, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return nil, ErrInvalidVersion{Filename: filename, Err: err}
	}

	var environments []string
	if m[3] != "" {
		environments = strings.Split(strings.TrimPrefix(m[3], "."), ".")
	}

	return &Script{
		Version:      version,
		Name:         filename,
		Category:     category,
		Environments: environments,
	}, nil
}
