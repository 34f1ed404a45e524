package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/soothsayer-db/soothsayer"
	"github.com/soothsayer-db/soothsayer/database"
	iurl "github.com/soothsayer-db/soothsayer/internal/url"
)

// Option names, shared by flags, SOOTHSAYER_* environment variables and the
// options file.
const (
	KeyConnection     = "connection"
	KeyUsername       = "username"
	KeyPassword       = "password"
	KeySchema         = "schema"
	KeyTablespace     = "tablespace"
	KeyInput          = "input"
	KeyEnvironment    = "environment"
	KeyTargetVersion  = "target-version"
	KeyUseStored      = "usestored"
	KeyForce          = "force"
	KeyVerbose        = "verbose"
	KeyLogFormat      = "log-format"
	KeySQLPlus        = "sqlplus"
	KeySQLPlusPath    = "sqlplus-path"
	KeyTermPolicy     = "term-policy"
	KeyConnectRetries = "connect-retries"
	KeyOptionsFile    = "options-file"
)

// OverridableKeys can be set by the options file.
var OverridableKeys = []string{
	KeyConnection,
	KeyUsername,
	KeyPassword,
	KeySchema,
	KeyTablespace,
	KeyInput,
	KeyEnvironment,
	KeyTargetVersion,
	KeyUseStored,
	KeyForce,
	KeyVerbose,
	KeySQLPlus,
	KeySQLPlusPath,
	KeyTermPolicy,
	KeyConnectRetries,
}

// Config is the resolved configuration of one command.
type Config struct {
	Connection    string
	Username      string
	Password      string
	Schema        string
	Tablespace    string
	Input         string
	Environment   []string
	TargetVersion *int64
	UseStored     bool
	Force         bool
	Verbose       bool
	LogFormat     string
	SQLPlus       bool
	SQLPlusPath   string
	TermPolicy    soothsayer.TermPolicy

	// ConnectRetries is negative to keep the retries of
	// database.DefaultPingConfig.
	ConnectRetries int
}

// LoadConfig reads a Config from v.
func LoadConfig(v *viper.Viper) (Config, error) {
	c := Config{
		Connection:     v.GetString(KeyConnection),
		Username:       v.GetString(KeyUsername),
		Password:       v.GetString(KeyPassword),
		Schema:         v.GetString(KeySchema),
		Tablespace:     v.GetString(KeyTablespace),
		Input:          v.GetString(KeyInput),
		Environment:    splitList(v.GetStringSlice(KeyEnvironment)),
		UseStored:      v.GetBool(KeyUseStored),
		Force:          v.GetBool(KeyForce),
		Verbose:        v.GetBool(KeyVerbose),
		LogFormat:      v.GetString(KeyLogFormat),
		SQLPlus:        v.GetBool(KeySQLPlus),
		SQLPlusPath:    v.GetString(KeySQLPlusPath),
		ConnectRetries: -1,
	}
	if v.IsSet(KeyConnectRetries) {
		c.ConnectRetries = v.GetInt(KeyConnectRetries)
	}

	if s := strings.TrimSpace(v.GetString(KeyTargetVersion)); s != "" {
		target, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("can't read target version %q", s)
		}
		c.TargetVersion = &target
	}

	policy, err := soothsayer.ParseTermPolicy(v.GetString(KeyTermPolicy))
	if err != nil {
		return Config{}, err
	}
	c.TermPolicy = policy
	return c, nil
}

// MigrationInfo returns the run described by c.
func (c Config) MigrationInfo(direction soothsayer.Direction) soothsayer.MigrationInfo {
	schema := c.Schema
	if schema == "" {
		schema = c.Username
	}
	return soothsayer.MigrationInfo{
		Direction:         direction,
		ScriptFolder:      c.Input,
		TargetSchema:      schema,
		TargetTablespace:  c.Tablespace,
		TargetEnvironment: c.Environment,
		TargetVersion:     c.TargetVersion,
		UseStored:         c.UseStored,
		Forced:            c.Force,
	}
}

// PasswordReader prompts for the password of user.
type PasswordReader func(user string) (string, error)

// DatabaseURL returns the connection URL with the configured credentials
// applied. When a user is known but no password is, it asks prompt.
func (c Config) DatabaseURL(prompt PasswordReader) (string, error) {
	if c.Connection == "" {
		return "", fmt.Errorf("no connection given, use --%v", KeyConnection)
	}
	urlUser, hasPassword, err := iurl.Credentials(c.Connection)
	if err != nil {
		return "", database.RedactPassword(err)
	}

	user := c.Username
	if user == "" {
		user = urlUser
	}
	if user == "" {
		return c.Connection, nil
	}

	password := c.Password
	if password == "" {
		if hasPassword && (c.Username == "" || c.Username == urlUser) {
			return c.Connection, nil
		}
		if prompt == nil {
			return "", fmt.Errorf("no password given for '%v'", user)
		}
		if password, err = prompt(user); err != nil {
			return "", err
		}
	}
	return iurl.WithCredentials(c.Connection, user, password)
}

// withConnectRetries passes the configured retries to the driver through
// the connection URL.
func (c Config) withConnectRetries(url string) (string, error) {
	if c.ConnectRetries < 0 {
		return url, nil
	}
	return iurl.WithQuery(url, database.ConnectRetriesParam, strconv.Itoa(c.ConnectRetries))
}

// splitList splits comma separated values, as given by environment variables
// and the options file, into separate entries.
func splitList(values []string) []string {
	var list []string
	for _, v := range values {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				list = append(list, s)
			}
		}
	}
	return list
}
