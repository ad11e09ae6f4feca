package config

import "fmt"

// Validate rejects configurations that would produce nonsensical runtime
// behavior (e.g. a zero worker pool). It is called once at the end of Load().
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Database.PoolSize <= 0 {
		return fmt.Errorf("database.pool_size must be positive")
	}
	if c.Scan.HashWorkers <= 0 {
		return fmt.Errorf("scan.hash_workers must be positive")
	}
	if c.Job.WorkerCount <= 0 {
		return fmt.Errorf("job.worker_count must be positive")
	}
	if c.Semantic.RocchioAlpha < 0 || c.Semantic.RocchioBeta < 0 || c.Semantic.RocchioGamma < 0 {
		return fmt.Errorf("semantic Rocchio weights must be non-negative")
	}
	if c.Face.SuggestMinCount < 1 {
		return fmt.Errorf("face.suggest_min_count must be at least 1")
	}
	return nil
}
