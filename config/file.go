package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aluiziolira/go-scrape-listings/query"
)

// LoadFile overlays the YAML file at path onto cfg. The file has a search
// section holding the query and a scraper section holding everything else;
// keys that are not present keep their current value.
//
//	search:
//	  area: amsterdam
//	  want_to: buy
//	  number_of_pages: 3
//	scraper:
//	  timeout: 20s
//	  output_format: sqlite
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	doc := struct {
		Search  *query.Config `yaml:"search"`
		Scraper *Config       `yaml:"scraper"`
	}{
		Search:  &cfg.Search,
		Scraper: cfg,
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}
