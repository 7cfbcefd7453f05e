// Package config loads the optional on-disk defaults file
// (.creduce-go.yaml) that can pre-set flag values not given on the
// command line. It is sugar on top of the CLI surface, never a
// replacement for it: every field here mirrors a flag, and flags always
// win when both are set.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config mirrors the reduction options a user may want to default via a
// committed project file instead of retyping on every invocation.
type Config struct {
	Workers             int    `yaml:"workers"`
	PreprocessCmd       string `yaml:"preprocess_cmd"`
	Fuzz                bool   `yaml:"fuzz"`
	SanityCheckEachPass bool   `yaml:"sanity_checks"`
	Sanitize            bool   `yaml:"sanitize"`
	SkipInitial         bool   `yaml:"skip_initial_passes"`
	Slow                bool   `yaml:"slow"`
	VerySlow            bool   `yaml:"sllooww"`
	NoDefaults          bool   `yaml:"no_default_passes"`
	PrintDiff           bool   `yaml:"print_diff"`
	SaveTemps           bool   `yaml:"save_temps"`
	Cache               bool   `yaml:"cache"`
	CacheSize           int    `yaml:"cache_size"`
	Verbose             bool   `yaml:"verbose"`
	GiveupAfter         int    `yaml:"give_up_after"`

	StatisticsFile string `yaml:"statistics_file"`
}

// FileName is the project-local config file the loader looks for.
const FileName = ".creduce-go.yaml"

// Load reads path (or FileName in the current directory if path is
// empty) and returns its Config. A missing file is not an error: it
// simply means no on-disk defaults apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = FileName
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Statistics mirrors delta.Counters in a yaml/json-friendly shape for
// --statistics-file, the supplemented counters dump this driver adds on
// top of creduce's stdout-only reporting.
type Statistics struct {
	GoodCnt      int                       `yaml:"good_cnt" json:"good_cnt"`
	BadCnt       int                       `yaml:"bad_cnt" json:"bad_cnt"`
	MethodWorked map[string]map[string]int `yaml:"method_worked" json:"method_worked"`
	MethodFailed map[string]map[string]int `yaml:"method_failed" json:"method_failed"`
	OrigSize     int64                     `yaml:"orig_size" json:"orig_size"`
	FinalSize    int64                     `yaml:"final_size" json:"final_size"`
	ElapsedSecs  float64                   `yaml:"elapsed_secs" json:"elapsed_secs"`
}

// WriteStatistics dumps stats to path as yaml or json, picked by the
// file extension (.json vs anything else defaulting to yaml).
func WriteStatistics(path string, stats Statistics) error {
	var data []byte
	var err error
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		data, err = json.MarshalIndent(stats, "", "  ")
	} else {
		data, err = yaml.Marshal(stats)
	}
	if err != nil {
		return fmt.Errorf("config: marshal statistics: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
