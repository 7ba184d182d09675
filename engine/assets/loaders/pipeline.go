package loaders

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/framegraph/engine/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

/**
 * @brief A render pipeline as written in a *.fg.toml file: an ordered list of
 * passes, each creating, reading and writing named resources.
 */
type PipelineDescription struct {
	Name   string            `toml:"name"`
	Passes []PassDescription `toml:"pass"`
}

type PassDescription struct {
	Name   string                `toml:"name"`
	Create []ResourceDescription `toml:"create"`
	Read   []AccessDescription   `toml:"read"`
	Write  []AccessDescription   `toml:"write"`
}

/**
 * @brief A resource created by a pass. Kind is "texture" (default) or "buffer".
 * A non zero Scale sizes the texture relative to the framebuffer and
 * overrides Width and Height.
 */
type ResourceDescription struct {
	Name      string   `toml:"name"`
	Kind      string   `toml:"kind"`
	Usage     string   `toml:"usage"`
	Format    string   `toml:"format"`
	Dimension string   `toml:"dimension"`
	Width     uint32   `toml:"width"`
	Height    uint32   `toml:"height"`
	Depth     uint32   `toml:"depth"`
	Samples   uint32   `toml:"samples"`
	Mips      *uint32  `toml:"mips"`
	Scale     float64  `toml:"scale"`
	Size      uint64   `toml:"size"`
	Options   []string `toml:"options"`
}

/**
 * @brief A read or write of a resource by name. Version pins an older version,
 * otherwise the latest one is used. A write with SharedOutput produces the
 * version another pass already produced instead of a new one.
 */
type AccessDescription struct {
	Resource     string `toml:"resource"`
	Usage        string `toml:"usage"`
	Version      *int32 `toml:"version"`
	SharedOutput bool   `toml:"shared_output"`
}

// Extent is the framebuffer size scaled resources are computed from.
type Extent struct {
	Width  uint32
	Height uint32
}

// ExecuteFactory hands out the body of a declared pass. It may return nil.
type ExecuteFactory func(pass string) framegraph.PassExecuteFunc

type PipelineLoader struct{}

func (pl *PipelineLoader) Load(path string) (interface{}, error) {
	return LoadPipeline(path)
}

func LoadPipeline(path string) (*PipelineDescription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pd, err := ParsePipeline(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pd, nil
}

// ParsePipeline decodes and validates a pipeline description. Unknown keys are
// rejected so typos do not silently drop a pass input.
func ParsePipeline(data []byte) (*PipelineDescription, error) {
	pd := &PipelineDescription{}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(pd); err != nil {
		var sme *toml.StrictMissingError
		if errors.As(err, &sme) {
			return nil, fmt.Errorf("pipeline: %s", sme.String())
		}
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if err := pd.Validate(); err != nil {
		return nil, err
	}
	return pd, nil
}

// Validate checks every name and enum in the description, then declares it
// into a scratch graph so ordering and version mistakes fail here too.
func (pd *PipelineDescription) Validate() error {
	if pd.Name == "" {
		return errors.New("pipeline: missing name")
	}
	if len(pd.Passes) == 0 {
		return fmt.Errorf("pipeline %q: no passes", pd.Name)
	}
	passes := make(map[string]struct{}, len(pd.Passes))
	created := make(map[string]struct{})
	var errs []error
	for i, p := range pd.Passes {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("pass %d: missing name", i))
			continue
		}
		if _, dup := passes[p.Name]; dup {
			errs = append(errs, fmt.Errorf("pass %q: declared twice", p.Name))
		}
		passes[p.Name] = struct{}{}
		for _, rd := range p.Create {
			if _, dup := created[rd.Name]; dup {
				errs = append(errs, fmt.Errorf("pass %q: resource %q created twice", p.Name, rd.Name))
			}
			created[rd.Name] = struct{}{}
			if _, err := rd.Info(Extent{Width: 1, Height: 1}); err != nil {
				errs = append(errs, fmt.Errorf("pass %q: %w", p.Name, err))
			}
			if _, err := metadata.ParseResourceUsage(rd.Usage); err != nil {
				errs = append(errs, fmt.Errorf("pass %q: resource %q: %w", p.Name, rd.Name, err))
			}
		}
		for _, ad := range append(append([]AccessDescription{}, p.Read...), p.Write...) {
			if ad.Resource == "" {
				errs = append(errs, fmt.Errorf("pass %q: access without a resource", p.Name))
			}
			if _, err := metadata.ParseResourceUsage(ad.Usage); err != nil {
				errs = append(errs, fmt.Errorf("pass %q: resource %q: %w", p.Name, ad.Resource, err))
			}
			if ad.Version != nil && *ad.Version < 0 {
				errs = append(errs, fmt.Errorf("pass %q: resource %q: negative version", p.Name, ad.Resource))
			}
		}
		for _, ad := range p.Read {
			if ad.SharedOutput {
				errs = append(errs, fmt.Errorf("pass %q: shared_output on a read of %q", p.Name, ad.Resource))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("pipeline %q: %w", pd.Name, errors.Join(errs...))
	}
	// declaration order and version references only show up when declaring
	if _, err := pd.Declare(framegraph.New(), Extent{Width: 1, Height: 1}, nil); err != nil {
		return fmt.Errorf("pipeline %q: %w", pd.Name, err)
	}
	return nil
}

// Info turns the description into the descriptor the allocator matches on.
func (rd ResourceDescription) Info(extent Extent) (metadata.ResourceInfo, error) {
	if rd.Name == "" {
		return metadata.ResourceInfo{}, errors.New("resource without a name")
	}
	switch rd.Kind {
	case "buffer":
		if rd.Size == 0 {
			return metadata.ResourceInfo{}, fmt.Errorf("buffer %q: size must be positive", rd.Name)
		}
		return metadata.BufferInfo(rd.Size), nil
	case "", "texture":
	default:
		return metadata.ResourceInfo{}, fmt.Errorf("resource %q: unknown kind %q", rd.Name, rd.Kind)
	}

	format, err := metadata.ParseTextureFormat(rd.Format)
	if err != nil {
		return metadata.ResourceInfo{}, fmt.Errorf("texture %q: %w", rd.Name, err)
	}
	dim, err := metadata.ParseTextureDimension(rd.Dimension)
	if err != nil {
		return metadata.ResourceInfo{}, fmt.Errorf("texture %q: %w", rd.Name, err)
	}
	width, height := rd.Width, rd.Height
	if rd.Scale < 0 {
		return metadata.ResourceInfo{}, fmt.Errorf("texture %q: negative scale", rd.Name)
	}
	if rd.Scale > 0 {
		width = scaled(extent.Width, rd.Scale)
		height = scaled(extent.Height, rd.Scale)
	}
	if width == 0 || height == 0 {
		return metadata.ResourceInfo{}, fmt.Errorf("texture %q: width and height must be positive", rd.Name)
	}

	desc := metadata.NewTexture2D(format, width, height)
	desc.Dimension = dim
	if rd.Depth > 0 {
		desc.Depth = rd.Depth
	}
	if rd.Samples > 0 {
		desc.SampleCount = rd.Samples
	}
	if rd.Mips != nil {
		desc.Mips = metadata.MipLevels(*rd.Mips)
	}
	for _, opt := range rd.Options {
		switch opt {
		case "sparse":
			desc.Options |= metadata.TextureOptionSparse
		case "cube":
			desc.Options |= metadata.TextureOptionCubeCompatible
		default:
			return metadata.ResourceInfo{}, fmt.Errorf("texture %q: unknown option %q", rd.Name, opt)
		}
	}
	return metadata.TextureInfo(desc), nil
}

func scaled(v uint32, scale float64) uint32 {
	return uint32(max(1, math.Round(float64(v)*scale)))
}

/**
 * @brief Declares the pipeline into fg in file order. Within a pass reads are
 * linked first, then writes, then creates. Returns the pass nodes by name.
 */
func (pd *PipelineDescription) Declare(fg *framegraph.FrameGraph, extent Extent, factory ExecuteFactory) (map[string]framegraph.NodeIndex, error) {
	// versions[name][v] is the node of version v of the named resource
	versions := make(map[string][]framegraph.NodeIndex)
	passes := make(map[string]framegraph.NodeIndex, len(pd.Passes))

	resolve := func(pass string, ad AccessDescription) (framegraph.NodeIndex, error) {
		vs, ok := versions[ad.Resource]
		if !ok {
			return framegraph.InvalidNode, fmt.Errorf("pass %q: resource %q is not created by an earlier pass", pass, ad.Resource)
		}
		if ad.Version == nil {
			return vs[len(vs)-1], nil
		}
		if int(*ad.Version) >= len(vs) {
			return framegraph.InvalidNode, fmt.Errorf("pass %q: resource %q has no version %d", pass, ad.Resource, *ad.Version)
		}
		return vs[*ad.Version], nil
	}

	for _, p := range pd.Passes {
		infos := make([]metadata.ResourceInfo, len(p.Create))
		for i, rd := range p.Create {
			info, err := rd.Info(extent)
			if err != nil {
				return nil, fmt.Errorf("pass %q: %w", p.Name, err)
			}
			infos[i] = info
		}

		pass := fg.CreatePassNode(p.Name)
		passes[p.Name] = pass

		for _, ad := range p.Read {
			node, err := resolve(p.Name, ad)
			if err != nil {
				return nil, err
			}
			usage, _ := metadata.ParseResourceUsage(ad.Usage)
			fg.LinkInput(pass, node, usage)
		}
		for _, ad := range p.Write {
			node, err := resolve(p.Name, ad)
			if err != nil {
				return nil, err
			}
			usage, _ := metadata.ParseResourceUsage(ad.Usage)
			fg.LinkInput(pass, node, usage)

			vs := versions[ad.Resource]
			next := int(fg.Node(node).RenameIndex) + 1
			switch {
			case ad.SharedOutput:
				if next >= len(vs) {
					return nil, fmt.Errorf("pass %q: no version %d of %q to share", p.Name, next, ad.Resource)
				}
				fg.LinkOutput(pass, vs[next], usage)
			case next != len(vs):
				return nil, fmt.Errorf("pass %q: write to stale version %d of %q, latest is %d", p.Name, next-1, ad.Resource, len(vs)-1)
			default:
				clone := fg.CloneResourceNode(node)
				fg.LinkOutput(pass, clone, usage)
				versions[ad.Resource] = append(vs, clone)
			}
		}
		for i, rd := range p.Create {
			if _, exists := versions[rd.Name]; exists {
				return nil, fmt.Errorf("pass %q: resource %q already exists", p.Name, rd.Name)
			}
			usage, _ := metadata.ParseResourceUsage(rd.Usage)
			r := fg.CreateResourceNode(rd.Name, infos[i])
			fg.LinkOutput(pass, r, usage)
			versions[rd.Name] = []framegraph.NodeIndex{r}
		}

		if factory != nil {
			if fn := factory(p.Name); fn != nil {
				fg.SetPassExecute(pass, fn)
			}
		}
	}
	return passes, nil
}
