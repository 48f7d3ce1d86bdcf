// internal/simulator/fixture.go
package simulator

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixture lists the simulated devices
type Fixture struct {
	Devices []DeviceFixture `yaml:"devices"`
}

// DeviceFixture describes one simulated device
type DeviceFixture struct {
	ID         string   `yaml:"id"`
	Version    string   `yaml:"version"`
	Min        float64  `yaml:"min"`
	Max        float64  `yaml:"max"`
	Components []string `yaml:"components"`
}

// LoadFixture reads a YAML fixture file
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes a YAML fixture and fills defaults
func ParseFixture(data []byte) (*Fixture, error) {
	var fixture Fixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	for i := range fixture.Devices {
		fixture.Devices[i].applyDefaults()
		if err := fixture.Devices[i].validate(); err != nil {
			return nil, fmt.Errorf("device %d: %w", i, err)
		}
	}
	return &fixture, nil
}

// DefaultFixture returns the devices used when no fixture file is configured
func DefaultFixture() *Fixture {
	fixture := &Fixture{
		Devices: []DeviceFixture{
			{Components: []string{"i,CO2,K-30,PPM", "i,temperature,DS18B20,C"}},
			{Components: []string{"i,humidity,DHT22,%", "o,relay,SRD-05,state"}},
		},
	}
	for i := range fixture.Devices {
		fixture.Devices[i].applyDefaults()
	}
	return fixture
}

func (d *DeviceFixture) applyDefaults() {
	if d.Version == "" {
		d.Version = "1"
	}
	if d.Min == 0 && d.Max == 0 {
		d.Min, d.Max = 10.0, 20.0
	}
}

func (d *DeviceFixture) validate() error {
	if d.Max < d.Min {
		return fmt.Errorf("max %.2f below min %.2f", d.Max, d.Min)
	}
	if len(d.Components) == 0 {
		return fmt.Errorf("at least one component is required")
	}
	return nil
}
