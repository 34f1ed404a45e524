package url

import (
	nurl "net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemeFromURL(t *testing.T) {
	cases := []struct {
		url      string
		expected string
		err      error
	}{
		{"oracle://scott:tiger@db:1521/XE", "oracle", nil},
		{"sqlite:///tmp/app.db", "sqlite", nil},
		{"", "", errEmptyURL},
		{":oracle", "", errNoScheme},
		{"oracle", "", errNoScheme},
	}

	for _, c := range cases {
		t.Run(c.url, func(t *testing.T) {
			scheme, err := SchemeFromURL(c.url)
			assert.Equal(t, c.err, err)
			assert.Equal(t, c.expected, scheme)
		})
	}
}

func TestCredentials(t *testing.T) {
	user, hasPassword, err := Credentials("oracle://scott@db:1521/XE")
	require.NoError(t, err)
	assert.Equal(t, "scott", user)
	assert.False(t, hasPassword)

	user, hasPassword, err = Credentials("oracle://scott:tiger@db:1521/XE")
	require.NoError(t, err)
	assert.Equal(t, "scott", user)
	assert.True(t, hasPassword)

	user, hasPassword, err = Credentials("sqlite:///tmp/app.db")
	require.NoError(t, err)
	assert.Empty(t, user)
	assert.False(t, hasPassword)
}

func TestWithCredentials(t *testing.T) {
	u, err := WithCredentials("oracle://scott@db:1521/XE", "", "tiger")
	require.NoError(t, err)
	assert.Equal(t, "oracle://scott:tiger@db:1521/XE", u)

	u, err = WithCredentials("oracle://db:1521/XE", "system", "manager")
	require.NoError(t, err)
	assert.Equal(t, "oracle://system:manager@db:1521/XE", u)

	_, err = WithCredentials("oracle://db:1521/XE", "", "manager")
	assert.Error(t, err)
}

func TestFilterCustomQuery(t *testing.T) {
	u, err := nurl.Parse("sqlite:///tmp/app.db?x-no-tx-wrap=true&_pragma=foreign_keys(1)")
	require.NoError(t, err)

	filtered := FilterCustomQuery(u)
	assert.Equal(t, "_pragma=foreign_keys%281%29", filtered.RawQuery)
	assert.Contains(t, u.RawQuery, "x-no-tx-wrap", "the input URL is left alone")
}

func TestWithQuery(t *testing.T) {
	u, err := WithQuery("postgres://app@db/app?sslmode=disable", "x-connect-retries", "5")
	require.NoError(t, err)
	assert.Equal(t, "postgres://app@db/app?sslmode=disable&x-connect-retries=5", u)

	u, err = WithQuery("sqlite:///tmp/app.db?x-connect-retries=1", "x-connect-retries", "0")
	require.NoError(t, err)
	assert.Equal(t, "sqlite:///tmp/app.db?x-connect-retries=0", u)
}
