package core

import (
	"context"
	"fmt"

	"trainingcore/internal/kv"
)

// StorageConfig selects the key-value medium backing a service.
type StorageConfig = kv.Config

// OpenService opens the configured medium, hydrates a store from it and
// wraps the store in a service. A nil engine selects the default rules.
// Load problems are logged and returned as warnings; only failing to open the
// medium is an error.
func OpenService(ctx context.Context, cfg StorageConfig, engine *RulesEngine, opts ...Option) (*Service, Result, error) {
	medium, err := kv.Open(ctx, cfg)
	if err != nil {
		return nil, Result{}, fmt.Errorf("open %s storage: %w", driverName(cfg.Driver), err)
	}
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	store, loaded := NewPersistentStore(ctx, medium, engine)
	svc := NewService(store, opts...)
	for _, w := range loaded.Warnings() {
		svc.logger.WarnContext(ctx, w.Message, "rule", w.Rule, "driver", medium.Driver())
	}
	counts := svc.Counts()
	svc.logger.DebugContext(ctx, "storage opened", "driver", medium.Driver(),
		"subjects", counts.Subjects, "courses", counts.Courses,
		"batches", counts.Batches, "students", counts.Students)
	return svc, loaded, nil
}

func driverName(d kv.Driver) kv.Driver {
	if d == "" {
		return kv.DriverSQLite
	}
	return d
}

// Close releases the key-value medium, if any.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kv == nil {
		return nil
	}
	err := s.kv.Close()
	s.kv = nil
	return err
}

// Driver reports the attached medium, or memory when none is attached.
func (s *MemoryStore) Driver() kv.Driver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.kv == nil {
		return kv.DriverMemory
	}
	return s.kv.Driver()
}

// Close releases the service's storage.
func (s *Service) Close() error {
	return s.store.Close()
}
