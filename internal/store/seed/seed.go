package seed

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/botbridge/routecore/internal/core/domain"
	"github.com/botbridge/routecore/internal/store"
)

// File is the on-disk shape of a routing config bundle.
type File struct {
	Tags       []domain.CapabilityTag `yaml:"tags" validate:"dive"`
	Strategies []domain.CostStrategy  `yaml:"strategies" validate:"dive"`
	Chains     []domain.FallbackChain `yaml:"chains" validate:"dive"`
	Models     []domain.Candidate     `yaml:"models" validate:"dive"`
}

// Load parses and validates a config bundle from disk.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}

	// Decode through mapstructure so duration fields accept "45s"
	// style values, which yaml.v3 cannot parse on its own.
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing seed file %s: %w", path, err)
	}

	var f File
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     &f,
		TagName:    "yaml",
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decoding seed file %s: %w", path, err)
	}

	if err := Validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks struct constraints plus cross-references the
// validator tags cannot express.
func Validate(f *File) error {
	v := validator.New()
	if err := v.Struct(f); err != nil {
		return fmt.Errorf("seed validation: %w", err)
	}

	for _, m := range f.Models {
		if !m.Protocol.Valid() {
			return fmt.Errorf("model %s/%s: unknown protocol %q", m.Vendor, m.Model, m.Protocol)
		}
	}
	for _, c := range f.Chains {
		for _, s := range c.Steps {
			if !s.Protocol.Valid() {
				return fmt.Errorf("chain %s: step %s/%s has unknown protocol %q",
					c.ID, s.Vendor, s.Model, s.Protocol)
			}
		}
	}
	for _, t := range f.Tags {
		if t.RequiredProtocol != "" && !t.RequiredProtocol.Valid() {
			return fmt.Errorf("tag %s: unknown protocol %q", t.ID, t.RequiredProtocol)
		}
	}
	return nil
}

// Apply upserts the bundle into the repository in one transaction.
func Apply(ctx context.Context, repo store.Repository, f *File) error {
	return repo.WithTx(ctx, func(tx store.Repository) error {
		for i := range f.Tags {
			if err := tx.Tags().Upsert(ctx, &f.Tags[i]); err != nil {
				return fmt.Errorf("seeding tag %s: %w", f.Tags[i].ID, err)
			}
		}
		for i := range f.Strategies {
			if err := tx.Strategies().Upsert(ctx, &f.Strategies[i]); err != nil {
				return fmt.Errorf("seeding strategy %s: %w", f.Strategies[i].ID, err)
			}
		}
		for i := range f.Chains {
			if err := tx.Chains().Upsert(ctx, &f.Chains[i]); err != nil {
				return fmt.Errorf("seeding chain %s: %w", f.Chains[i].ID, err)
			}
		}
		for i := range f.Models {
			if err := tx.Models().Upsert(ctx, &f.Models[i]); err != nil {
				return fmt.Errorf("seeding model %s/%s: %w", f.Models[i].Vendor, f.Models[i].Model, err)
			}
		}
		return nil
	})
}
