package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/framegraph/engine/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer"
)

type Config struct {
	Application ApplicationConfig `toml:"application"`
	Renderer    RendererConfig    `toml:"renderer"`
	FrameGraph  FrameGraphConfig  `toml:"framegraph"`
	Log         LogConfig         `toml:"log"`
}

type ApplicationConfig struct {
	// The application name used in windowing, if applicable.
	Name string `toml:"name"`
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"start_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"start_y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"width"`
	// Window starting height, if applicable.
	StartHeight uint32 `toml:"height"`
}

type RendererConfig struct {
	// "vulkan" or "headless"
	Backend    string `toml:"backend"`
	Validation bool   `toml:"validation"`
	// Headless only, in bytes. Zero is unlimited.
	MemoryBudget uint64 `toml:"memory_budget"`
}

type FrameGraphConfig struct {
	// "report" or "fatal"
	HazardPolicy string `toml:"hazard_policy"`
	AliasBuffers bool   `toml:"alias_buffers"`
	// When set, the schedule of the first frame is dumped there.
	DumpFile string `toml:"dump_file"`
	// Directory watched for *.fg.toml pipeline descriptions.
	PipelineDir string `toml:"pipeline_dir"`
	// Base name of the description in PipelineDir to render, without the
	// .fg.toml extension. Empty lets the application declare its own passes.
	Pipeline string `toml:"pipeline"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

func Default() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:        "FrameGraph",
			StartPosX:   100,
			StartPosY:   100,
			StartWidth:  1280,
			StartHeight: 720,
		},
		Renderer: RendererConfig{
			Backend: renderer.Vulkan.String(),
		},
		FrameGraph: FrameGraphConfig{
			HazardPolicy: framegraph.HazardPolicyReport.String(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a TOML file on top of the defaults. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML on top of the defaults. Unknown keys are errors.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := c.RendererType(); err != nil {
		return err
	}
	if _, err := c.HazardPolicy(); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.FrameGraph.Pipeline != "" && c.FrameGraph.PipelineDir == "" {
		return fmt.Errorf("pipeline %q needs a pipeline_dir", c.FrameGraph.Pipeline)
	}
	if c.Application.StartWidth == 0 || c.Application.StartHeight == 0 {
		return fmt.Errorf("application size must not be zero, got %dx%d", c.Application.StartWidth, c.Application.StartHeight)
	}
	return nil
}

func (c *Config) RendererType() (renderer.RendererType, error) {
	return renderer.ParseRendererType(c.Renderer.Backend)
}

func (c *Config) HazardPolicy() (framegraph.HazardPolicy, error) {
	return framegraph.ParseHazardPolicy(c.FrameGraph.HazardPolicy)
}

// Encode writes the configuration back as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
