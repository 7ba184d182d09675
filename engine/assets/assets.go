package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/framegraph/engine/assets/loaders"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/systems"
)

var ErrAssetManagerClosed = errors.New("asset manager already closed")

type AssetInfo struct {
	Path       string
	Type       AssetType
	LastLoaded time.Time
}

// ChangeFunc is called after a watched asset was created or modified and has
// been reloaded. Exactly one of asset and err is set.
type ChangeFunc func(info AssetInfo, asset interface{}, err error)

/**
 * @brief Indexes pipeline descriptions and configs under a directory and
 * reloads them when they change on disk. Reloads run on the job system when
 * one is given, otherwise on the watcher goroutine.
 */
type AssetManager struct {
	assets    map[string]AssetInfo
	loaders   map[AssetType]Loader
	listeners []ChangeFunc
	jobs      *systems.JobSystem

	mutex sync.RWMutex

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager(jobs *systems.JobSystem) (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	am := &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[AssetType]Loader),
		jobs:     jobs,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	am.registerLoader(AssetTypePipeline, &loaders.PipelineLoader{})
	am.registerLoader(AssetTypeConfig, &loaders.ConfigLoader{})
	return am, nil
}

func (am *AssetManager) Initialize(assetsDir string) error {
	if err := am.addRecursive(assetsDir); err != nil {
		return err
	}
	go am.start()
	core.LogInfo("asset manager watching %s (%d assets)", assetsDir, len(am.Assets()))
	return nil
}

// OnChange registers fn for every later reload.
func (am *AssetManager) OnChange(fn ChangeFunc) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.listeners = append(am.listeners, fn)
}

// AddRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	am.mutex.RLock()
	closed := am.isClosed
	am.mutex.RUnlock()
	if closed {
		return ErrAssetManagerClosed
	}
	return am.watchRecursive(name, false)
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType AssetType, loader Loader) {
	am.loaders[assetType] = loader
}

// Assets lists the indexed assets sorted by path.
func (am *AssetManager) Assets() []AssetInfo {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	out := make([]AssetInfo, 0, len(am.assets))
	for _, a := range am.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// LoadAsset loads an indexed asset with the loader of its type.
func (am *AssetManager) LoadAsset(path string) (interface{}, error) {
	path = filepath.Clean(path)

	am.mutex.Lock()
	asset, exists := am.assets[path]
	if exists {
		asset.LastLoaded = time.Now()
		am.assets[path] = asset
	}
	am.mutex.Unlock()
	if !exists {
		return nil, fmt.Errorf("asset not found: %s", path)
	}

	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %s", asset.Type)
	}
	return loader.Load(path)
}

// LoadPipeline finds the pipeline description called name.fg.toml anywhere
// under the watched directories.
func (am *AssetManager) LoadPipeline(name string) (*loaders.PipelineDescription, error) {
	want := name + PipelineExtension
	for _, a := range am.Assets() {
		if a.Type != AssetTypePipeline || filepath.Base(a.Path) != want {
			continue
		}
		v, err := am.LoadAsset(a.Path)
		if err != nil {
			return nil, err
		}
		return v.(*loaders.PipelineDescription), nil
	}
	return nil, fmt.Errorf("pipeline not found: %s", name)
}

// Shutdown stops the watcher. Reloads already queued on the job system still
// run.
func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return ErrAssetManagerClosed
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	<-am.stopped
	return nil
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name, false); err != nil {
						core.LogError("%s", err)
					}
				}
				continue
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if info, ok := am.handleFileEvent(e.Name); ok {
					am.reload(info)
				}
			}
			// A renamed file shows up again as a create under its new name.
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				am.removeAsset(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("%s", err)

		case <-am.done:
			if err := am.fsnotify.Close(); err != nil {
				core.LogError("%s", err)
			}
			return
		}
	}
}

func (am *AssetManager) reload(info AssetInfo) {
	log := core.Logger("asset", info.Path, "type", info.Type.String())
	job := systems.JobTask{
		Name: "reload " + info.Path,
		Run: func() (interface{}, error) {
			return am.LoadAsset(info.Path)
		},
		OnComplete: func(asset interface{}) {
			log.Debug("reloaded")
			am.notify(info, asset, nil)
		},
		OnFailure: func(err error) {
			log.Error("reload failed", "err", err)
			am.notify(info, nil, err)
		},
	}
	if am.jobs != nil {
		if err := am.jobs.Submit(job); err == nil {
			return
		}
	}
	asset, err := job.Run()
	if err != nil {
		job.OnFailure(err)
		return
	}
	job.OnComplete(asset)
}

func (am *AssetManager) notify(info AssetInfo, asset interface{}, err error) {
	am.mutex.RLock()
	listeners := append([]ChangeFunc(nil), am.listeners...)
	am.mutex.RUnlock()
	for _, fn := range listeners {
		fn(info, asset, err)
	}
}

// watchRecursive adds all directories under the given one to the watch list.
// A file created before its directory watch is added is still picked up by
// the walk.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				return am.fsnotify.Remove(walkPath)
			}
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) (AssetInfo, bool) {
	path = filepath.Clean(path)
	assetType := determineAssetType(path)
	if assetType == AssetTypeNone || strings.HasPrefix(filepath.Base(path), ".") {
		return AssetInfo{}, false
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	info := AssetInfo{
		Path:       path,
		Type:       assetType,
		LastLoaded: time.Now(),
	}
	am.assets[path] = info
	return info, true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, filepath.Clean(path))
}
