package loaders

import "github.com/spaghettifunk/framegraph/engine/config"

type ConfigLoader struct{}

func (cl *ConfigLoader) Load(path string) (interface{}, error) {
	return config.Load(path)
}
