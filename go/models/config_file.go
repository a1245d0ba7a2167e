package models

import (
	"os"

	"github.com/pkg/errors"
	"github.com/shibukawa/configdir"
	"gopkg.in/yaml.v3"
)

const ConfigFileName = "hookcorn.yml"

// FileConfig is the on-disk YAML shape. Nil fields leave the corresponding
// Config value untouched.
type FileConfig struct {
	StackWords  *int    `yaml:"stack_words"`
	SupportURL  *string `yaml:"support_url"`
	HostHandler *string `yaml:"host_handler"`
	Color       *bool   `yaml:"color"`
	LogFile     *string `yaml:"log_file"`
	Verbose     *bool   `yaml:"verbose"`
}

func ParseFileConfig(data []byte) (FileConfig, error) {
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, errors.Wrap(err, "failed to parse config")
	}
	return fc, nil
}

func LoadFile(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, errors.Wrapf(err, "failed to read config %s", path)
	}
	return ParseFileConfig(data)
}

// LoadUser looks for hookcorn.yml in the local, user and system config
// folders, in that order. A missing file is not an error.
func LoadUser() (FileConfig, error) {
	dirs := configdir.New("hookcorn", "")
	dirs.LocalPath, _ = os.Getwd()
	folder := dirs.QueryFolderContainsFile(ConfigFileName)
	if folder == nil {
		return FileConfig{}, nil
	}
	data, err := folder.ReadFile(ConfigFileName)
	if err != nil {
		return FileConfig{}, errors.Wrapf(err, "failed to read config in %s", folder.Path)
	}
	return ParseFileConfig(data)
}

func (fc FileConfig) Apply(c *Config) {
	if fc.StackWords != nil {
		c.StackWords = *fc.StackWords
	}
	if fc.SupportURL != nil {
		c.SupportURL = *fc.SupportURL
	}
	if fc.HostHandler != nil {
		c.HostHandler = *fc.HostHandler
	}
	if fc.Color != nil {
		c.Color = *fc.Color
	}
	if fc.LogFile != nil {
		c.LogFile = *fc.LogFile
	}
	if fc.Verbose != nil {
		c.Verbose = *fc.Verbose
	}
}
