package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"os/user"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

const (
	configDir  string = ".nodedebug"
	configFile string = "config.yml"
)

// Defaults used when a key is missing from the configuration file.
const (
	DefaultTestnetURL       = "https://testnet-api.elrond.com"
	DefaultRestDebuggerPort = 8080
	DefaultErdpyPath        = "erdpy"
)

// Config defines all configuration options available to be set through the config file.
type Config struct {
	// Commands aliases for the interactive session.
	Aliases map[string][]string `yaml:"aliases"`

	// TestnetURL is the node endpoint forwarded to the debug server for
	// calls that target the test network.
	TestnetURL string `yaml:"testnet-url"`
	// RestDebuggerPort is the local port the debug server listens on.
	RestDebuggerPort int `yaml:"rest-debugger-port"`
	// IdeFolder is the folder holding the SDK tools, nodedebug included.
	IdeFolder string `yaml:"ide-folder"`

	// ErdpyPath is the erdpy executable, either a name looked up in PATH
	// or an absolute path.
	ErdpyPath string `yaml:"erdpy-path"`
	// ErdpyMinVersion, if set, is the lowest erdpy version accepted.
	ErdpyMinVersion string `yaml:"erdpy-min-version,omitempty"`
	// NodeDebugArgs are extra arguments appended to "erdpy nodedebug",
	// quoted like a shell command line.
	NodeDebugArgs string `yaml:"nodedebug-args,omitempty"`
	// UsePTY runs the debug server inside a pseudo-terminal so that its
	// colored output is preserved.
	UsePTY bool `yaml:"use-pty"`
}

// LoadConfig attempts to populate a Config object from the config.yml file.
func LoadConfig() *Config {
	err := createConfigPath()
	if err != nil {
		fmt.Printf("Could not create config directory: %v.", err)
		return defaultConfig()
	}
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		fmt.Printf("Unable to get config file path: %v.", err)
		return defaultConfig()
	}

	if _, err := os.Stat(fullConfigFile); os.IsNotExist(err) {
		f, err := createDefaultConfig(fullConfigFile)
		if err != nil {
			fmt.Printf("Error creating default config file: %v", err)
			return defaultConfig()
		}
		f.Close()
	}

	c, err := LoadConfigFile(fullConfigFile)
	if err != nil {
		fmt.Printf("%v.", err)
		return defaultConfig()
	}
	return c
}

// LoadConfigFile reads and decodes the configuration file at path, filling
// in defaults for missing keys.
func LoadConfigFile(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config data: %v", err)
	}

	var c Config
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		return nil, fmt.Errorf("unable to decode config file: %v", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// SaveConfig will marshal and save the config struct
// to disk.
func SaveConfig(conf *Config) error {
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		return err
	}
	return SaveConfigFile(fullConfigFile, conf)
}

// SaveConfigFile writes conf to path.
func SaveConfigFile(path string, conf *Config) error {
	out, err := yaml.Marshal(*conf)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(out)
	return err
}

func defaultConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.TestnetURL == "" {
		c.TestnetURL = DefaultTestnetURL
	}
	if c.RestDebuggerPort <= 0 {
		c.RestDebuggerPort = DefaultRestDebuggerPort
	}
	if c.IdeFolder == "" {
		c.IdeFolder = filepath.Join(userHomeDir(), "elrondsdk")
	}
	if c.ErdpyPath == "" {
		c.ErdpyPath = DefaultErdpyPath
	}
}

// ToolFolder returns the folder the nodedebug tool is installed in.
func (c *Config) ToolFolder() string {
	return filepath.Join(c.IdeFolder, "nodedebug")
}

// ToolPath returns the path of the nodedebug executable.
func (c *Config) ToolPath() string {
	return filepath.Join(c.ToolFolder(), "nodedebug")
}

// Validate checks the values that can not be checked by decoding alone.
func (c *Config) Validate() error {
	if _, err := c.ExtraArgs(); err != nil {
		return fmt.Errorf("invalid nodedebug-args %q: %v", c.NodeDebugArgs, err)
	}
	return nil
}

// ExtraArgs splits NodeDebugArgs into separate arguments.
func (c *Config) ExtraArgs() ([]string, error) {
	return SplitArgs(c.NodeDebugArgs)
}

func createDefaultConfig(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("unable to create config file: %v", err)
	}
	err = writeDefaultConfig(f)
	if err != nil {
		return nil, fmt.Errorf("unable to write default configuration: %v", err)
	}
	return f, nil
}

func writeDefaultConfig(f *os.File) error {
	_, err := f.WriteString(
		`# Configuration file for nodedebug.

# This is the default configuration file. Available options are provided, but disabled.
# Delete the leading hash mark to enable an item.

# Node endpoint used for calls made with --testnet.
# testnet-url: "https://testnet-api.elrond.com"

# Port of the local debug server REST API.
# rest-debugger-port: 8080

# Folder holding the SDK tools.
# ide-folder: "~/elrondsdk"

# erdpy executable and the lowest accepted version.
# erdpy-path: "erdpy"
# erdpy-min-version: "0.7.0"

# Extra arguments for "erdpy nodedebug".
# nodedebug-args: "--port 8080"

# Run the debug server inside a pseudo-terminal.
# use-pty: false

# Provided aliases will be added to the default aliases for a given command.
aliases:
  # command: ["alias1", "alias2"]
`)
	return err
}

// createConfigPath creates the directory structure at which all config files are saved.
func createConfigPath() error {
	path, err := GetConfigFilePath("")
	if err != nil {
		return err
	}
	return os.MkdirAll(path, 0700)
}

// ConfigFilePath returns the path of the configuration file.
func ConfigFilePath() (string, error) {
	return GetConfigFilePath(configFile)
}

// GetConfigFilePath gets the full path to the given config file name.
func GetConfigFilePath(file string) (string, error) {
	if configPath := os.Getenv("XDG_CONFIG_HOME"); configPath != "" {
		return filepath.Join(configPath, "nodedebug", file), nil
	}
	return filepath.Join(userHomeDir(), configDir, file), nil
}

func userHomeDir() string {
	userHomeDir := "."
	usr, err := user.Current()
	if err == nil {
		userHomeDir = usr.HomeDir
	}
	return userHomeDir
}
