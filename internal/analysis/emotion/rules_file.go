package emotion

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

type rulesFile struct {
	Rules []Rule `toml:"rule"`
}

// LoadRulesFile reads an ordered rule table from a TOML file:
//
//	[[rule]]
//	category = "greeting"
//	keywords = ["привет", "hello"]
//
//	[[rule.secondary]]
//	label = "fatigue"
//	keywords = ["устал"]
func LoadRulesFile(path string) ([]Rule, error) {
	var file rulesFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("failed to decode emotion rules %s: %w", path, err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("emotion rules %s: no [[rule]] entries", path)
	}
	return file.Rules, nil
}

// ParseRules decodes a rule table from TOML text.
func ParseRules(data string) ([]Rule, error) {
	var file rulesFile
	if _, err := toml.Decode(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode emotion rules: %w", err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("emotion rules: no [[rule]] entries")
	}
	return file.Rules, nil
}
