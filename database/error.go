package database

import (
	"errors"
	"fmt"
	nurl "net/url"
	"regexp"
)

// Error should be used for errors involving queries ran against the database
type Error struct {
	// Schema is the schema the query was issued for, if any
	Schema string

	// Query is a query excerpt
	Query []byte

	// Err is a useful/helping error message for humans
	Err string

	// OrigErr is the underlying error
	OrigErr error
}

func (e *Error) Error() string {
	prefix := ""
	if e.Schema != "" {
		prefix = "schema " + e.Schema + ": "
	}
	if len(e.Err) == 0 {
		return fmt.Sprintf("%s%v: %s", prefix, e.OrigErr, e.Query)
	}
	return fmt.Sprintf("%s%v: %s (details: %v)", prefix, e.Err, e.Query, e.OrigErr)
}

func (e *Error) Unwrap() error {
	return e.OrigErr
}

var (
	quotedKVRegex  = regexp.MustCompile(`password='[^']*'`)
	plainKVRegex   = regexp.MustCompile(`password=[^ ]*`)
	brokenURLRegex = regexp.MustCompile(`:[^:@/]+?@`)
)

// RedactPassword masks passwords that leaked into an error message, as
// drivers tend to echo the connection string they failed to use.
func RedactPassword(err error) error {
	if err == nil {
		return nil
	}
	input := err.Error()

	hasPassword := quotedKVRegex.MatchString(input) || plainKVRegex.MatchString(input) || brokenURLRegex.MatchString(input)
	if !hasPassword {
		return err
	}
	input = quotedKVRegex.ReplaceAllLiteralString(input, "password=xxxxx")
	input = plainKVRegex.ReplaceAllLiteralString(input, "password=xxxxx")
	input = brokenURLRegex.ReplaceAllLiteralString(input, ":xxxxxx@")

	return errors.New(input)
}

// RedactURL returns url with its password replaced, suitable for logging.
// Strings that do not parse as URLs are returned fully masked.
func RedactURL(url string) string {
	u, err := nurl.Parse(url)
	if err != nil {
		return "<unparsable connection string>"
	}
	return u.Redacted()
}
