package oracle

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// parseStatements splits a script into the statements Oracle accepts one at
// a time. Scripts containing PL/SQL blocks separate their statements with a
// line holding only plsqlStatementSeparator, other scripts with ";".
// Lines starting with "--" are dropped.
func parseStatements(rd io.Reader, plsqlStatementSeparator string) ([]string, error) {
	migr, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}
	plsqlEnabled := false
	if strings.Contains(strings.ToUpper(string(migr)), plsqlStatementEndToken) {
		plsqlEnabled = true
	}
	var queries []string
	var buf bytes.Buffer
	scanner := bufio.NewScanner(bytes.NewBuffer(migr))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if plsqlEnabled && strings.TrimSpace(line) == plsqlStatementSeparator {
			query := buf.String()
			if query != "" {
				queries = append(queries, query)
			}
			buf.Reset()
		}
		// ignore comment
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		if _, err := buf.WriteString(line + "\n"); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if plsqlEnabled {
		query := buf.String()
		if query != "" {
			queries = append(queries, query)
		}
	} else {
		queries = strings.Split(buf.String(), defaultStatementSeparator)
	}
	var results []string
	sLen := len(plsqlStatementEndToken)
	for _, query := range queries {
		query = strings.TrimSpace(query)
		if len(query) > sLen && strings.ToUpper(query[len(query)-sLen:]) != plsqlStatementEndToken {
			query = strings.TrimSuffix(query, ";")
		}
		if query == "" {
			continue
		}
		results = append(results, query)
	}
	return results, nil
}
