package guest

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry manages loaded apps.
type Registry struct {
	sync.RWMutex
	apps   map[string]*App // name -> app
	logger *zap.Logger
}

// NewRegistry creates a new app registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		apps:   make(map[string]*App),
		logger: logger.With(zap.String("component", "guest-registry")),
	}
}

// Register adds an app to the registry.
func (r *Registry) Register(app *App) error {
	r.Lock()
	defer r.Unlock()

	name := app.Manifest.Name

	if _, exists := r.apps[name]; exists {
		return &AppAlreadyRegisteredError{AppName: name}
	}

	r.apps[name] = app

	r.logger.Info("App registered",
		zap.String("name", name),
		zap.String("version", app.Manifest.Version),
	)

	return nil
}

// Get retrieves an app by name.
func (r *Registry) Get(name string) (*App, bool) {
	r.RLock()
	defer r.RUnlock()

	app, ok := r.apps[name]
	return app, ok
}

// List returns all registered apps sorted by name.
func (r *Registry) List() []*App {
	r.RLock()
	defer r.RUnlock()

	result := make([]*App, 0, len(r.apps))
	for _, app := range r.apps {
		result = append(result, app)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Manifest.Name < result[j].Manifest.Name
	})
	return result
}

// Unregister removes an app from the registry.
func (r *Registry) Unregister(name string) {
	r.Lock()
	defer r.Unlock()

	if _, ok := r.apps[name]; !ok {
		return
	}
	delete(r.apps, name)

	r.logger.Info("App unregistered", zap.String("name", name))
}

// Count returns the number of registered apps.
func (r *Registry) Count() int {
	r.RLock()
	defer r.RUnlock()

	return len(r.apps)
}
