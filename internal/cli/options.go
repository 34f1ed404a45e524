package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/soothsayer-db/soothsayer"
)

// OptionsFileName is read from the working directory unless another file is
// given with --options-file.
const OptionsFileName = "options.json"

// OptionsFile holds option overrides read from a JSON file. Its keys match
// option names case-insensitively, ignoring dashes and underscores, so
// "targetVersion" overrides --target-version.
type OptionsFile struct {
	options map[string]interface{}
}

// ReadOptionsFile reads path. A missing file yields an empty OptionsFile.
func ReadOptionsFile(path string, log soothsayer.Logger) (*OptionsFile, error) {
	f := &OptionsFile{options: map[string]interface{}{}}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return f, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("invalid options file %v: %w", path, err)
	}
	f.options = v.AllSettings()

	if log != nil && len(f.options) > 0 {
		log.Log(soothsayer.Event{Level: soothsayer.LevelInfo, Message: "Options file contains the following configurations:"})
		for _, k := range f.keys() {
			log.Log(soothsayer.Event{Level: soothsayer.LevelText, Indent: 1, Message: fmt.Sprintf("'%v' : '%v'", k, f.display(k))})
		}
	}
	return f, nil
}

// IsEmpty reports whether the file configured nothing.
func (f *OptionsFile) IsEmpty() bool {
	return len(f.options) == 0
}

// ApplyTo sets every configured value whose key names one of options on v,
// overriding flags and environment. It returns the options it changed.
func (f *OptionsFile) ApplyTo(v *viper.Viper, options []string) []string {
	known := make(map[string]string, len(options))
	for _, o := range options {
		known[normalizeKey(o)] = o
	}

	var applied []string
	for _, k := range f.keys() {
		o, ok := known[normalizeKey(k)]
		if !ok {
			continue
		}
		v.Set(o, f.options[k])
		applied = append(applied, o)
	}
	return applied
}

func (f *OptionsFile) keys() []string {
	keys := make([]string, 0, len(f.options))
	for k := range f.options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f *OptionsFile) display(key string) interface{} {
	if normalizeKey(key) == normalizeKey(KeyPassword) {
		return "xxxxx"
	}
	return f.options[key]
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(k))
}
