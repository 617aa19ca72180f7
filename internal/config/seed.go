package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/shenikar/emergency_response_system/internal/service"
	"gopkg.in/yaml.v3"
)

// LoadGeographySeed читает справочник муниципалитетов и барангаев из YAML
func LoadGeographySeed(path string) (service.GeographySeed, error) {
	var seed service.GeographySeed
	raw, err := os.ReadFile(path)
	if err != nil {
		return seed, fmt.Errorf("ошибка чтения файла %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return seed, fmt.Errorf("ошибка разбора файла %s: %w", path, err)
	}
	return seed, nil
}
