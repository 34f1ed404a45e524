package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/soothsayer-db/soothsayer"
	"github.com/soothsayer-db/soothsayer/database"
	iurl "github.com/soothsayer-db/soothsayer/internal/url"
)

const usage = `Usage: soothsayer OPTIONS COMMAND
       soothsayer [ --version | --help ]

Options:
  -c, --connection       Database to migrate (driver://url)
  -u, --username         Database user, overrides the user of the connection
  -p, --password         Database password, prompted for when missing
  -s, --schema           Target schema (default: the user)
  -t, --tablespace       Tablespace for the versioning tables
  -i, --input            Folder holding the init, up, down and term folders
  -e, --environment      Comma separated environments to run scripts for
      --target-version   Version to migrate up or down to (default: all the way)
      --usestored        Roll back with the scripts stored in the database
  -f, --force            Run scripts even when their preconditions fail
      --sqlplus          Run scripts with the SQL*Plus client (oracle only)
      --sqlplus-path     SQL*Plus executable (default: sqlplus)
      --term-policy      When to run term scripts: no-version or no-version-table
  -r, --connect-retries  Connection retries after the first attempt (default: 3)
      --options-file     JSON file overriding options (default: options.json)
      --log-format       text or json (default: text)
  -v, --verbose          Print verbose logging
      --version          Print version
  -h, --help             Print usage

Commands:
  up, migrate      Apply init and up scripts
  down, rollback   Apply down scripts, and term scripts without a target version
  version          Print the current version of the schema
  help             Print usage

Database drivers: %v
`

// Usage prints the usage text to w.
func Usage(w io.Writer) {
	fmt.Fprintf(w, usage, strings.Join(database.List(), ", "))
}

// set main log
var log = &Log{logger: logrus.StandardLogger()}

// Main function of a cli application. v holds the bound flags and
// environment; args are the positional arguments.
func Main(version string, v *viper.Viper, args []string) {
	if v.GetBool("version") {
		fmt.Fprintln(os.Stderr, version)
		os.Exit(0)
	}
	if v.GetBool("help") {
		Usage(os.Stderr)
		os.Exit(0)
	}
	if len(args) < 1 {
		Usage(os.Stderr)
		// a missing command exits with 2 like an invalid flag does
		os.Exit(2)
	}

	l, err := NewLog(os.Stderr, v.GetBool(KeyVerbose), v.GetString(KeyLogFormat))
	if err != nil {
		log.fatalErr(err)
	}
	log = l

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startTime := time.Now()
	err = Run(ctx, v, args, log, ReadPassword)
	if err == errUnknownCommand {
		Usage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		log.fatalErr(err)
	}
	if log.Verbose() {
		log.Println("Finished after", time.Since(startTime))
	}
}

// Run applies the options file to v and executes the command named by
// args[0].
func Run(ctx context.Context, v *viper.Viper, args []string, log *Log, prompt PasswordReader) error {
	if len(args) < 1 {
		return errUnknownCommand
	}
	command := strings.ToLower(args[0])
	if command == "help" {
		Usage(log.logger.Out)
		return nil
	}
	run, ok := commands[command]
	if !ok {
		return errUnknownCommand
	}

	optionsPath := v.GetString(KeyOptionsFile)
	if optionsPath == "" {
		optionsPath = OptionsFileName
	}
	overrides, err := ReadOptionsFile(optionsPath, log)
	if err != nil {
		return err
	}
	for _, o := range overrides.ApplyTo(v, OverridableKeys) {
		log.Printf("Option '%v' is overridden by %v.", o, optionsPath)
	}

	c, err := LoadConfig(v)
	if err != nil {
		return err
	}
	log.setVerbose(c.Verbose)

	url, err := c.DatabaseURL(prompt)
	if err != nil {
		return err
	}
	if url, err = c.withConnectRetries(url); err != nil {
		return err
	}
	if c.Schema == "" {
		if c.Schema, _, err = iurl.Credentials(url); err != nil {
			return err
		}
	}
	m, err := newMigrator(c, url)
	if err != nil {
		return err
	}
	m.Log = log
	log.Printf("Connecting to '%v'.", database.RedactURL(url))
	return run(ctx, m, c, log)
}

var commands = map[string]func(ctx context.Context, m *soothsayer.Migrator, c Config, log *Log) error{
	"up":       upCmd,
	"migrate":  upCmd,
	"down":     downCmd,
	"rollback": downCmd,
	"version":  versionCmd,
}
