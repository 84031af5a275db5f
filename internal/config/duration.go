package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// flexDuration accepts Go duration strings ("30s", "2m") and bare seconds
// (600) in config files. yaml.v3 and encoding/json treat time.Duration as a
// plain integer of nanoseconds, so the sections with duration settings
// decode through aux shapes built on this type.
type flexDuration time.Duration

func parseDurationStrict(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid duration %q", s)
}

func (d *flexDuration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := parseDurationStrict(value.Value)
	if err != nil {
		return err
	}
	*d = flexDuration(parsed)
	return nil
}

func (d *flexDuration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := parseDurationStrict(s)
		if err != nil {
			return err
		}
		*d = flexDuration(parsed)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(data, &secs); err == nil {
		*d = flexDuration(time.Duration(secs * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration %s", data)
}

// set overwrites target only when the field was present in the source, so
// file overlays keep defaults for everything they do not mention.
func (d *flexDuration) set(target *time.Duration) {
	if d != nil {
		*target = time.Duration(*d)
	}
}

type serverAux struct {
	Port            *int          `yaml:"port" json:"port"`
	Host            *string       `yaml:"host" json:"host"`
	ReadTimeout     *flexDuration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    *flexDuration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout     *flexDuration `yaml:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout *flexDuration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RequestTimeout  *flexDuration `yaml:"request_timeout" json:"request_timeout"`
}

func (a serverAux) apply(s *Server) {
	if a.Port != nil {
		s.Port = *a.Port
	}
	if a.Host != nil {
		s.Host = *a.Host
	}
	a.ReadTimeout.set(&s.ReadTimeout)
	a.WriteTimeout.set(&s.WriteTimeout)
	a.IdleTimeout.set(&s.IdleTimeout)
	a.ShutdownTimeout.set(&s.ShutdownTimeout)
	a.RequestTimeout.set(&s.RequestTimeout)
}

func (s *Server) UnmarshalYAML(value *yaml.Node) error {
	var aux serverAux
	if err := value.Decode(&aux); err != nil {
		return err
	}
	aux.apply(s)
	return nil
}

func (s *Server) UnmarshalJSON(data []byte) error {
	var aux serverAux
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	aux.apply(s)
	return nil
}

type graphAux struct {
	Endpoint                *string       `yaml:"endpoint" json:"endpoint"`
	Timeout                 *flexDuration `yaml:"timeout" json:"timeout"`
	MaxRetries              *int          `yaml:"max_retries" json:"max_retries"`
	RetryBase               *flexDuration `yaml:"retry_base" json:"retry_base"`
	RetryMaxDelay           *flexDuration `yaml:"retry_max_delay" json:"retry_max_delay"`
	BreakerFailureThreshold *uint32       `yaml:"breaker_failure_threshold" json:"breaker_failure_threshold"`
	BreakerOpenDuration     *flexDuration `yaml:"breaker_open_duration" json:"breaker_open_duration"`
}

func (a graphAux) apply(g *Graph) {
	if a.Endpoint != nil {
		g.Endpoint = *a.Endpoint
	}
	if a.MaxRetries != nil {
		g.MaxRetries = *a.MaxRetries
	}
	if a.BreakerFailureThreshold != nil {
		g.BreakerFailureThreshold = *a.BreakerFailureThreshold
	}
	a.Timeout.set(&g.Timeout)
	a.RetryBase.set(&g.RetryBase)
	a.RetryMaxDelay.set(&g.RetryMaxDelay)
	a.BreakerOpenDuration.set(&g.BreakerOpenDuration)
}

func (g *Graph) UnmarshalYAML(value *yaml.Node) error {
	var aux graphAux
	if err := value.Decode(&aux); err != nil {
		return err
	}
	aux.apply(g)
	return nil
}

func (g *Graph) UnmarshalJSON(data []byte) error {
	var aux graphAux
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	aux.apply(g)
	return nil
}

type caseDBAux struct {
	DSN             *string       `yaml:"dsn" json:"dsn"`
	MaxOpenConns    *int          `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    *int          `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime *flexDuration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	QueryTimeout    *flexDuration `yaml:"query_timeout" json:"query_timeout"`
}

func (a caseDBAux) apply(c *CaseDB) {
	if a.DSN != nil {
		c.DSN = *a.DSN
	}
	if a.MaxOpenConns != nil {
		c.MaxOpenConns = *a.MaxOpenConns
	}
	if a.MaxIdleConns != nil {
		c.MaxIdleConns = *a.MaxIdleConns
	}
	a.ConnMaxLifetime.set(&c.ConnMaxLifetime)
	a.QueryTimeout.set(&c.QueryTimeout)
}

func (c *CaseDB) UnmarshalYAML(value *yaml.Node) error {
	var aux caseDBAux
	if err := value.Decode(&aux); err != nil {
		return err
	}
	aux.apply(c)
	return nil
}

func (c *CaseDB) UnmarshalJSON(data []byte) error {
	var aux caseDBAux
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	aux.apply(c)
	return nil
}

type cacheAux struct {
	EnableMemory     *bool         `yaml:"enable_memory" json:"enable_memory"`
	EnablePersistent *bool         `yaml:"enable_persistent" json:"enable_persistent"`
	MemoryCapacity   *int          `yaml:"memory_capacity" json:"memory_capacity"`
	MemoryTTL        *flexDuration `yaml:"memory_ttl" json:"memory_ttl"`
	ActiveCaseTTL    *flexDuration `yaml:"active_case_ttl" json:"active_case_ttl"`
	ClosedCaseTTL    *flexDuration `yaml:"closed_case_ttl" json:"closed_case_ttl"`
	SweepInterval    *flexDuration `yaml:"sweep_interval" json:"sweep_interval"`
}

func (a cacheAux) apply(c *Cache) {
	if a.EnableMemory != nil {
		c.EnableMemory = *a.EnableMemory
	}
	if a.EnablePersistent != nil {
		c.EnablePersistent = *a.EnablePersistent
	}
	if a.MemoryCapacity != nil {
		c.MemoryCapacity = *a.MemoryCapacity
	}
	a.MemoryTTL.set(&c.MemoryTTL)
	a.ActiveCaseTTL.set(&c.ActiveCaseTTL)
	a.ClosedCaseTTL.set(&c.ClosedCaseTTL)
	a.SweepInterval.set(&c.SweepInterval)
}

func (c *Cache) UnmarshalYAML(value *yaml.Node) error {
	var aux cacheAux
	if err := value.Decode(&aux); err != nil {
		return err
	}
	aux.apply(c)
	return nil
}

func (c *Cache) UnmarshalJSON(data []byte) error {
	var aux cacheAux
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	aux.apply(c)
	return nil
}

type buildAux struct {
	OverallDeadline       *flexDuration `yaml:"overall_deadline" json:"overall_deadline"`
	MetadataTimeout       *flexDuration `yaml:"metadata_timeout" json:"metadata_timeout"`
	ScoringBudget         *flexDuration `yaml:"scoring_budget" json:"scoring_budget"`
	MaxParallelDimensions *int          `yaml:"max_parallel_dimensions" json:"max_parallel_dimensions"`
	BatchWorkers          *int          `yaml:"batch_workers" json:"batch_workers"`
	MaxBatchSize          *int          `yaml:"max_batch_size" json:"max_batch_size"`
}

func (a buildAux) apply(b *Build) {
	if a.MaxParallelDimensions != nil {
		b.MaxParallelDimensions = *a.MaxParallelDimensions
	}
	if a.BatchWorkers != nil {
		b.BatchWorkers = *a.BatchWorkers
	}
	if a.MaxBatchSize != nil {
		b.MaxBatchSize = *a.MaxBatchSize
	}
	a.OverallDeadline.set(&b.OverallDeadline)
	a.MetadataTimeout.set(&b.MetadataTimeout)
	a.ScoringBudget.set(&b.ScoringBudget)
}

func (b *Build) UnmarshalYAML(value *yaml.Node) error {
	var aux buildAux
	if err := value.Decode(&aux); err != nil {
		return err
	}
	aux.apply(b)
	return nil
}

func (b *Build) UnmarshalJSON(data []byte) error {
	var aux buildAux
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	aux.apply(b)
	return nil
}
