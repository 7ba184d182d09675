package assets

import (
	"path/filepath"
	"strings"
)

// Loader turns a file on disk into a decoded asset. The concrete type of the
// returned value depends on the loader.
type Loader interface {
	Load(path string) (interface{}, error)
}

type AssetType int

const (
	AssetTypeNone AssetType = iota
	// AssetTypePipeline is a *.fg.toml frame graph description.
	AssetTypePipeline
	// AssetTypeConfig is any other *.toml file, read as an engine config.
	AssetTypeConfig
)

func (t AssetType) String() string {
	switch t {
	case AssetTypePipeline:
		return "pipeline"
	case AssetTypeConfig:
		return "config"
	}
	return "none"
}

const PipelineExtension = ".fg.toml"

func determineAssetType(path string) AssetType {
	switch {
	case strings.HasSuffix(path, PipelineExtension):
		return AssetTypePipeline
	case filepath.Ext(path) == ".toml":
		return AssetTypeConfig
	default:
		return AssetTypeNone
	}
}
