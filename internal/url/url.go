// Package url holds helpers for the connection URLs given to database drivers.
package url

import (
	"errors"
	nurl "net/url"
	"strings"
)

var errNoScheme = errors.New("no scheme")
var errEmptyURL = errors.New("URL cannot be empty")

// SchemeFromURL find scheme from beginning of string to the first colon
func SchemeFromURL(url string) (string, error) {
	if url == "" {
		return "", errEmptyURL
	}

	i := strings.Index(url, ":")

	// No : or : is the first character.
	if i < 1 {
		return "", errNoScheme
	}

	return url[0:i], nil
}

// Credentials reports the user of url and whether it carries a password.
func Credentials(url string) (user string, hasPassword bool, err error) {
	u, err := nurl.Parse(url)
	if err != nil {
		return "", false, err
	}
	if u.User == nil {
		return "", false, nil
	}
	_, hasPassword = u.User.Password()
	return u.User.Username(), hasPassword, nil
}

// WithCredentials returns url with its userinfo replaced. An empty user keeps
// the user already present in url.
func WithCredentials(url, user, password string) (string, error) {
	u, err := nurl.Parse(url)
	if err != nil {
		return "", err
	}
	if user == "" && u.User != nil {
		user = u.User.Username()
	}
	if user == "" {
		return "", errors.New("a user is required to set a password")
	}
	u.User = nurl.UserPassword(user, password)
	return u.String(), nil
}

// FilterCustomQuery filters all query values starting with `x-`
func FilterCustomQuery(u *nurl.URL) *nurl.URL {
	ux := *u
	vx := make(nurl.Values)
	for k, v := range ux.Query() {
		if len(k) <= 1 || k[0:2] != "x-" {
			vx[k] = v
		}
	}
	ux.RawQuery = vx.Encode()
	return &ux
}

// WithQuery returns url with the query parameter key set to value.
func WithQuery(url, key, value string) (string, error) {
	u, err := nurl.Parse(url)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
