package data

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/target/printmaker/internal/core"
	"github.com/target/printmaker/internal/domain/model"
)

// Seed is queue and destination reference data loaded from YAML:
//
//	queues:
//	  - id: main
//	    policy: round_robin
//	destinations:
//	  - id: p1
//	    queue: main
//	    up: true
//	    address: 10.0.0.5:9100
type Seed struct {
	Queues       []model.Queue       `yaml:"queues"`
	Destinations []model.Destination `yaml:"destinations"`
}

// ParseSeed decodes a Seed, rejecting unknown fields.
func ParseSeed(r io.Reader) (*Seed, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var seed Seed
	if err := dec.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return &seed, nil
}

// LoadSeedFile reads and parses a YAML seed file.
func LoadSeedFile(path string) (*Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseSeed(f)
}

// ApplySeed upserts every queue, then every destination, into store.
func ApplySeed(ctx context.Context, store core.QueueStore, seed *Seed) error {
	if seed == nil {
		return nil
	}
	for i := range seed.Queues {
		if err := store.UpsertQueue(ctx, &seed.Queues[i]); err != nil {
			return fmt.Errorf("seed queue %q: %w", seed.Queues[i].ID, err)
		}
	}
	for i := range seed.Destinations {
		if err := store.UpsertDestination(ctx, &seed.Destinations[i]); err != nil {
			return fmt.Errorf("seed destination %q: %w", seed.Destinations[i].ID, err)
		}
	}
	return nil
}
