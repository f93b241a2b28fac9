// Package config loads and saves the user-level configuration file
// described in spec §3: source path substitution rules, the visualizer's
// max string/array lengths, and the directories searched for separate
// debug info, all read from ~/.tracewell/config.yml.
package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"os/user"
	"path"

	"gopkg.in/yaml.v2"
)

const (
	configDir  string = ".tracewell"
	configFile string = "config.yml"
)

// SubstitutePathRule rewrites a source path stored in debug information,
// for when sources moved between compilation and debugging, per spec §3.
type SubstitutePathRule struct {
	From string
	To   string
}

// SubstitutePathRules is a slice of source path substitution rules.
type SubstitutePathRules []SubstitutePathRule

// Config defines every option settable through the config file.
type Config struct {
	// Source code path substitution rules, applied when resolving a
	// DWARF-recorded file path against the filesystem.
	SubstitutePath SubstitutePathRules `yaml:"substitute-path"`

	// MaxStringLen bounds how many bytes ReadCString-backed
	// visualization reads, per spec §4.7.
	MaxStringLen *int `yaml:"max-string-len,omitempty"`
	// MaxArrayValues bounds how many elements an array/slice
	// visualization reads.
	MaxArrayValues *int `yaml:"max-array-values,omitempty"`

	// DebugInfoDirectories lists the directories searched for debug
	// info files separate from the binary itself (the build-id layout
	// under /usr/lib/debug, for instance).
	DebugInfoDirectories []string `yaml:"debug-info-directories"`

	// CatchAllSyscalls sets the default syscall-catch policy's
	// catch-all flag for newly launched targets.
	CatchAllSyscalls bool `yaml:"catch-all-syscalls"`
}

// LoadConfig populates a Config from ~/.tracewell/config.yml, writing a
// commented default file first if none exists.
func LoadConfig() *Config {
	if err := createConfigPath(); err != nil {
		fmt.Printf("could not create config directory: %v\n", err)
		return &Config{}
	}
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		fmt.Printf("unable to get config file path: %v\n", err)
		return &Config{}
	}

	f, err := os.Open(fullConfigFile)
	if err != nil {
		f, err = createDefaultConfig(fullConfigFile)
		if err != nil {
			fmt.Printf("error creating default config file: %v\n", err)
			return &Config{}
		}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			fmt.Printf("closing config file failed: %v\n", cerr)
		}
	}()

	data, err := ioutil.ReadAll(f)
	if err != nil {
		fmt.Printf("unable to read config data: %v\n", err)
		return &Config{}
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		fmt.Printf("unable to decode config file: %v\n", err)
		return &Config{}
	}
	return &c
}

// SaveConfig marshals and writes conf to disk.
func SaveConfig(conf *Config) error {
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(*conf)
	if err != nil {
		return err
	}
	f, err := os.Create(fullConfigFile)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(out)
	return err
}

func createDefaultConfig(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("unable to create config file: %v", err)
	}
	if err := writeDefaultConfig(f); err != nil {
		return nil, fmt.Errorf("unable to write default configuration: %v", err)
	}
	return f, nil
}

func writeDefaultConfig(f *os.File) error {
	_, err := f.WriteString(
		`# Configuration file for tracewell.

# This is the default configuration file. Available options are provided,
# but disabled. Delete the leading hash mark to enable an item.

# Define source path substitution rules. Used when a path recorded in
# debug information no longer matches where the sources live on disk.
substitute-path:
  # - {from: path, to: path}

# Maximum number of elements read from an array or slice when visualizing
# a value.
# max-array-values: 64

# Maximum number of bytes read from a char*/string when visualizing a
# value.
# max-string-len: 64

# List of directories to search for separate debug info files.
debug-info-directories: ["/usr/lib/debug/.build-id"]

# Whether newly launched targets catch every syscall by default, rather
# than only the ones named on an explicit "catch syscall" breakpoint.
# catch-all-syscalls: false
`)
	return err
}

func createConfigPath() error {
	dir, err := GetConfigFilePath("")
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// GetConfigFilePath joins file onto ~/.tracewell.
func GetConfigFilePath(file string) (string, error) {
	userHomeDir := "."
	if usr, err := user.Current(); err == nil {
		userHomeDir = usr.HomeDir
	}
	return path.Join(userHomeDir, configDir, file), nil
}
