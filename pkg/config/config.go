// Package config loads driver tunables from an INI file, the same
// textual configuration format the object dictionary parser uses for
// EDS files, repurposed here for the transport's own settings instead
// of a CANopen object dictionary.
package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// Config holds every tunable the driver needs to open a link and
// negotiate a session, with defaults matching the values observed on
// the wire absent an override file.
type Config struct {
	Bus      BusConfig
	T1       T1Config
	LogLevel string
}

// BusConfig selects and addresses the physical transport.
type BusConfig struct {
	Adapter string // "i2c" or "virtual"
	Channel string // e.g. "/dev/i2c-1"
	Addr    uint8  // 7-bit slave address
}

// T1Config mirrors pkg/t1.Config, expressed as plain fields so it can
// be loaded without importing pkg/t1 (which would be a dependency
// cycle were t1 ever to need config for its own defaults).
type T1Config struct {
	HostNAD           uint8
	CardNAD           uint8
	ValidateNAD       bool
	FallbackIFSC      uint16
	FallbackBWTMillis uint16
	AppletAIDHex      string // read from the file but not consumed: se050.Client always selects se050.AppletAID
}

// Default returns the configuration the driver uses absent any file.
func Default() Config {
	return Config{
		Bus: BusConfig{
			Adapter: "i2c",
			Channel: "/dev/i2c-1",
			Addr:    0x48,
		},
		T1: T1Config{
			HostNAD:           0x5A,
			CardNAD:           0xA5,
			ValidateNAD:       true,
			FallbackIFSC:      254,
			FallbackBWTMillis: 1000,
		},
		LogLevel: "info",
	}
}

// Load reads path as an INI file and overlays it on Default(). Missing
// keys keep their default value; the file need not specify every key.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := ini.Load(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: load %s: %w", path, err)
	}

	bus := f.Section("bus")
	cfg.Bus.Adapter = bus.Key("adapter").MustString(cfg.Bus.Adapter)
	cfg.Bus.Channel = bus.Key("channel").MustString(cfg.Bus.Channel)
	cfg.Bus.Addr = uint8(bus.Key("addr").MustUint(uint(cfg.Bus.Addr)))

	t1 := f.Section("t1")
	cfg.T1.HostNAD = uint8(t1.Key("host_nad").MustUint(uint(cfg.T1.HostNAD)))
	cfg.T1.CardNAD = uint8(t1.Key("card_nad").MustUint(uint(cfg.T1.CardNAD)))
	cfg.T1.ValidateNAD = t1.Key("validate_nad").MustBool(cfg.T1.ValidateNAD)
	cfg.T1.FallbackIFSC = uint16(t1.Key("fallback_ifsc").MustUint(uint(cfg.T1.FallbackIFSC)))
	cfg.T1.FallbackBWTMillis = uint16(t1.Key("fallback_bwt_ms").MustUint(uint(cfg.T1.FallbackBWTMillis)))
	cfg.T1.AppletAIDHex = t1.Key("applet_aid").MustString(cfg.T1.AppletAIDHex)

	cfg.LogLevel = f.Section("log").Key("level").MustString(cfg.LogLevel)

	return cfg, nil
}
