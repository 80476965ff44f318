package ygggo_db

import "sync"

// Registry hands out one Classifier per engine, creating it on first use.
type Registry struct {
	mu          sync.RWMutex
	classifiers map[Engine]Classifier
}

func NewRegistry() *Registry {
	return &Registry{classifiers: make(map[Engine]Classifier)}
}

// Classifier returns the shared classifier for e.
func (r *Registry) Classifier(e Engine) (Classifier, error) {
	r.mu.RLock()
	c, ok := r.classifiers[e]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.classifiers[e]; ok {
		return c, nil
	}
	c, err := newClassifier(e)
	if err != nil {
		return nil, err
	}
	r.classifiers[e] = c
	return c, nil
}

func newClassifier(e Engine) (Classifier, error) {
	switch e {
	case EngineMySQL:
		return mysqlClassifier{}, nil
	case EnginePostgres:
		return ansiClassifier{}, nil
	case EngineSQLite:
		return sqliteClassifier{}, nil
	}
	return nil, &UnsupportedDriverError{Driver: string(e)}
}

var defaultRegistry = NewRegistry()

// ClassifierFor returns the process-wide classifier for e.
func ClassifierFor(e Engine) (Classifier, error) {
	return defaultRegistry.Classifier(e)
}
