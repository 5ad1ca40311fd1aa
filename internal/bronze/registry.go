// Package bronze owns the bronze layer of the data platform: schema
// migrations, the source dataset registry, and the one-time bulk loaders
// that populate the raw dataset tables.
package bronze

import (
	_ "embed"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed datasets.yaml
var registryYAML []byte

// Dataset describes one source dataset: where to fetch it, where the raw
// file is archived, and which bronze table it lands in.
type Dataset struct {
	Name         string `yaml:"name"`
	Table        string `yaml:"table"`
	URL          string `yaml:"url"`
	Format       string `yaml:"format"`
	Delimiter    string `yaml:"delimiter"`
	Charset      string `yaml:"charset"`
	BucketPrefix string `yaml:"bucket_prefix"`
	ContentType  string `yaml:"content_type"`
}

// DelimiterRune returns the CSV delimiter, defaulting to comma.
func (d Dataset) DelimiterRune() rune {
	if d.Delimiter == "" {
		return ','
	}
	return rune(d.Delimiter[0])
}

type registry struct {
	Datasets []Dataset `yaml:"datasets"`
}

var (
	registryOnce sync.Once
	registryVal  []Dataset
	registryErr  error
)

// Datasets returns the embedded dataset registry.
func Datasets() ([]Dataset, error) {
	registryOnce.Do(func() {
		var reg registry
		if err := yaml.Unmarshal(registryYAML, &reg); err != nil {
			registryErr = eris.Wrap(err, "bronze: parse dataset registry")
			return
		}
		registryVal = reg.Datasets
	})
	return registryVal, registryErr
}

// LookupDataset finds a dataset by name or table name.
func LookupDataset(name string) (Dataset, error) {
	datasets, err := Datasets()
	if err != nil {
		return Dataset{}, err
	}
	for _, d := range datasets {
		if d.Name == name || d.Table == name {
			return d, nil
		}
	}
	return Dataset{}, eris.Errorf("bronze: unknown dataset %q", name)
}
