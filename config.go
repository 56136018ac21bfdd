package seeker

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is process configuration, loaded from a YAML file and returned by
// LoadConfig rather than stashed in a package variable, so callers own their
// own copy and tests never fight over global state.
type Config struct {
	Index struct {
		// WriterBufferBytes bounds the single-threaded writer's in-memory
		// buffer before a segment must be sealed.
		WriterBufferBytes int64 `yaml:"writer_buffer_bytes"`
	} `yaml:"index"`

	// Webgraph is validated by LoadConfig, but webgraph.Open takes no Config
	// and nothing reads these fields: the webgraph package uses its own
	// maxBatchSize and MaxLabelBytes constants and one goroutine per segment.
	Webgraph struct {
		// Workers is the executor's worker count for parallel segment
		// fan-out. Zero means one worker per physical core.
		Workers int `yaml:"workers"`
		// MaxBatchSize is the writer's in-memory edge batch size before a
		// sorted run is appended to the active segment.
		MaxBatchSize int `yaml:"max_batch_size"`
		// MaxLabelBytes caps an edge label; longer labels are truncated at a
		// UTF-8 char boundary.
		MaxLabelBytes int `yaml:"max_label_bytes"`
	} `yaml:"webgraph"`

	Frontier struct {
		DBPath           string `yaml:"db_path"`
		URLsPerJob       int    `yaml:"urls_per_job"`
		DomainBatchLimit int    `yaml:"domain_batch_limit"`
	} `yaml:"frontier"`

	Fetcher struct {
		UserAgent string `yaml:"user_agent"`
	} `yaml:"fetcher"`
}

// DefaultConfig returns Config populated with conservative defaults suitable
// for a single-process development setup.
func DefaultConfig() Config {
	var c Config
	c.Index.WriterBufferBytes = 1 << 30 // 1GB
	c.Webgraph.Workers = 0              // 0 => runtime.NumCPU()
	c.Webgraph.MaxBatchSize = 100_000
	c.Webgraph.MaxLabelBytes = 1024
	c.Frontier.DBPath = "frontier.db"
	c.Frontier.URLsPerJob = 50
	c.Frontier.DomainBatchLimit = 32_784 // sqlite parameter-count ceiling
	c.Fetcher.UserAgent = "seeker (+https://github.com/iParadigms/seeker)"
	return c
}

// LoadConfig reads and validates a YAML config file, falling back to
// DefaultConfig for anything the file does not set. A missing file is not an
// error — defaults are used, surfaced as a return value instead of a side
// effect of package import.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, Errf("seeker.LoadConfig", KindIO, err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, Errf("seeker.LoadConfig", KindInput, err)
	}
	return c, assertConfigInvariants(c)
}

func assertConfigInvariants(c Config) error {
	var errs []string
	if c.Index.WriterBufferBytes <= 0 {
		errs = append(errs, "index.writer_buffer_bytes must be > 0")
	}
	if c.Webgraph.MaxBatchSize <= 0 {
		errs = append(errs, "webgraph.max_batch_size must be > 0")
	}
	if c.Webgraph.MaxLabelBytes <= 0 {
		errs = append(errs, "webgraph.max_label_bytes must be > 0")
	}
	if c.Frontier.URLsPerJob <= 0 {
		errs = append(errs, "frontier.urls_per_job must be > 0")
	}
	if c.Frontier.DomainBatchLimit <= 0 || c.Frontier.DomainBatchLimit > 32_784 {
		errs = append(errs, "frontier.domain_batch_limit must be in (0, 32784]")
	}
	if len(errs) > 0 {
		msg := ""
		for _, e := range errs {
			msg += "\t" + e + "\n"
		}
		return Errf("seeker.LoadConfig", KindInput, fmt.Errorf("config invalid:\n%s", msg))
	}
	return nil
}

// StartupTimeout is a 30-second timeout constant; nothing in this module
// reads it.
const StartupTimeout = 30 * time.Second
