// Package generator produces synthetic log events with weighted distributions
// and submits them to the gateway. A non-zero seed makes the sequence of
// generated events reproducible.
package generator

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vanamuthuV/logsy/pkg/events"
)

// Default distributions used by the loadgen CLI.
const (
	DefaultLevelDist   = "DEBUG:10,INFO:55,WARN:20,ERROR:12,FATAL:3"
	DefaultServiceDist = "billing:25,auth:20,checkout:20,search:15,notifications:10,gateway:10"
)

// Config controls what the generator emits.
type Config struct {
	LevelDist   string
	ServiceDist string
	Seed        int64
}

// Generator creates log events according to configured distributions.
type Generator struct {
	rng         *rand.Rand
	levelDist   []weightedValue
	serviceDist []weightedValue
	now         func() time.Time
}

type weightedValue struct {
	value  string
	weight int
}

const (
	instanceProbability = 0.7
	metadataProbability = 0.5
)

var messages = map[events.Level][]string{
	events.LevelDebug: {"cache lookup", "request headers parsed", "retrying idempotent call"},
	events.LevelInfo:  {"request completed", "user signed in", "job finished", "config reloaded"},
	events.LevelWarn:  {"slow query detected", "retry budget low", "deprecated endpoint called"},
	events.LevelError: {"database connection refused", "payment provider timeout", "failed to write file"},
	events.LevelFatal: {"out of memory", "unable to bind port", "corrupted state detected"},
}

// New validates cfg and returns a generator.
func New(cfg Config) (*Generator, error) {
	levels, err := parseWeightedDistribution(cfg.LevelDist)
	if err != nil {
		return nil, fmt.Errorf("invalid level distribution: %w", err)
	}
	for _, l := range levels {
		if _, err := events.ParseLevel(l.value); err != nil {
			return nil, fmt.Errorf("invalid level distribution: %w", err)
		}
	}
	services, err := parseWeightedDistribution(cfg.ServiceDist)
	if err != nil {
		return nil, fmt.Errorf("invalid service distribution: %w", err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		rng:         rand.New(rand.NewSource(seed)),
		levelDist:   levels,
		serviceDist: services,
		now:         time.Now,
	}, nil
}

// ParseDistribution parses "KEY:PERCENT,..." where the percentages sum to 100.
func ParseDistribution(distStr string) (map[string]int, error) {
	if strings.TrimSpace(distStr) == "" {
		return nil, fmt.Errorf("distribution string cannot be empty")
	}

	result := make(map[string]int)
	total := 0
	for _, part := range strings.Split(distStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, pct, ok := strings.Cut(part, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid distribution format: %s (expected KEY:PERCENT)", part)
		}
		percent, err := strconv.Atoi(strings.TrimSpace(pct))
		if err != nil {
			return nil, fmt.Errorf("invalid percentage in %s: %w", part, err)
		}
		if percent < 0 || percent > 100 {
			return nil, fmt.Errorf("percentage must be 0-100, got %d in %s", percent, part)
		}
		result[key] += percent
		total += percent
	}

	if total != 100 {
		return nil, fmt.Errorf("distribution percentages must sum to 100, got %d", total)
	}
	return result, nil
}

// parseWeightedDistribution returns the distribution sorted by value so a
// seeded generator does not depend on map iteration order.
func parseWeightedDistribution(distStr string) ([]weightedValue, error) {
	distMap, err := ParseDistribution(distStr)
	if err != nil {
		return nil, err
	}

	result := make([]weightedValue, 0, len(distMap))
	for value, weight := range distMap {
		result = append(result, weightedValue{value: value, weight: weight})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].value < result[j].value })
	return result, nil
}

// Generate creates one event. ERROR and FATAL events carry a stack trace.
func (g *Generator) Generate() *events.LogEvent {
	level := events.Level(strings.ToUpper(g.selectWeighted(g.levelDist)))
	service := g.selectWeighted(g.serviceDist)

	e := &events.LogEvent{
		Timestamp: events.NewTimestamp(g.now()),
		Level:     level,
		Message:   g.selectFrom(messages[level]),
		Service:   service,
		TraceID:   g.traceID(),
	}
	if g.rng.Float64() < instanceProbability {
		e.InstanceID = fmt.Sprintf("%s-%d", service, g.rng.Intn(5)+1)
	}
	if g.rng.Float64() < metadataProbability {
		e.Metadata = map[string]any{
			"region":      g.selectFrom([]string{"us-east-1", "us-west-2", "eu-west-1"}),
			"duration_ms": g.rng.Intn(5000),
		}
	}
	if level.IsAlerting() {
		e.StackTrace = fmt.Sprintf("goroutine 1 [running]:\nmain.handle()\n\t/app/%s/handler.go:%d", service, g.rng.Intn(400)+1)
	}
	return e
}

func (g *Generator) traceID() string {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// selectWeighted selects a value from a weighted distribution using cumulative probability.
func (g *Generator) selectWeighted(choices []weightedValue) string {
	if len(choices) == 0 {
		return "unknown"
	}

	total := 0
	for _, c := range choices {
		total += c.weight
	}
	if total == 0 {
		return choices[0].value
	}

	r := g.rng.Intn(total)
	cumulative := 0
	for _, c := range choices {
		cumulative += c.weight
		if r < cumulative {
			return c.value
		}
	}
	return choices[len(choices)-1].value
}

// selectFrom picks uniformly from choices.
func (g *Generator) selectFrom(choices []string) string {
	if len(choices) == 0 {
		return ""
	}
	return choices[g.rng.Intn(len(choices))]
}
