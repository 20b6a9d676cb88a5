package core

import (
	"bufio"
	"errors"
	"fmt"
	"math/big"
	"os"
	"reflect"
	"unicode"

	"github.com/ethereum/go-ethereum/common"
	"github.com/naoina/toml"
)

// GenesisAccount funds an account when a host is created.
type GenesisAccount struct {
	Address common.Address
	Balance *big.Int
}

// Config holds the host settings.
type Config struct {
	// MaxCallDepth bounds nested invocations, 1024 like the EVM.
	MaxCallDepth int

	// Alloc lists accounts funded at startup.
	Alloc []GenesisAccount `toml:",omitempty"`
}

// DefaultConfig contains the settings used when no config is provided.
var DefaultConfig = Config{
	MaxCallDepth: 1024,
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		id := fmt.Sprintf("%s.%s", rt.String(), field)
		if unicode.IsUpper(rune(rt.Name()[0])) {
			return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
		}
		return fmt.Errorf("unknown field %s", id)
	},
}

// LoadConfig reads a TOML config file on top of cfg.
func LoadConfig(file string, cfg *Config) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	if err != nil {
		return err
	}
	return cfg.Validate()
}

// Dump renders cfg in the format LoadConfig reads.
func (cfg *Config) Dump() ([]byte, error) {
	return tomlSettings.Marshal(cfg)
}

// Validate reports settings the host cannot run with.
func (cfg *Config) Validate() error {
	if cfg.MaxCallDepth <= 0 {
		return fmt.Errorf("invalid MaxCallDepth %d", cfg.MaxCallDepth)
	}
	for _, acc := range cfg.Alloc {
		if acc.Balance != nil && (acc.Balance.Sign() < 0 || acc.Balance.BitLen() > 256) {
			return fmt.Errorf("invalid balance for %s", acc.Address)
		}
	}
	return nil
}
