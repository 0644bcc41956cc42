// Package catalog loads learning modules from YAML and plans sessions
// through them.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okian/attune/internal/domain/model"
)

//go:embed default.yaml
var defaultCatalog []byte

// Sentinel errors.
var (
	ErrUnknownTopic = errors.New("unknown topic")
	ErrInvalid      = errors.New("invalid catalog")
)

// Planning constants.
const (
	minSessionMinutes = 15
	breakMinutes      = 5
	tiredBreakMinutes = 10
)

// Module is one unit of study.
type Module struct {
	ID         string `yaml:"id" json:"id"`
	Title      string `yaml:"title" json:"title"`
	Minutes    int    `yaml:"minutes" json:"minutes"`
	Difficulty string `yaml:"difficulty" json:"difficulty"`
}

// Catalog maps topics to ordered modules.
type Catalog struct {
	OptimalSessionMinutes int                 `yaml:"optimal_session_minutes"`
	Topics                map[string][]Module `yaml:"topics"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads a catalog file; an empty path yields the built-in one.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.OptimalSessionMinutes <= 0 {
		c.OptimalSessionMinutes = 45
	}
	for topic, mods := range c.Topics {
		for _, m := range mods {
			if m.ID == "" || m.Minutes <= 0 {
				return nil, fmt.Errorf("%w: topic %s has a module without id or minutes", ErrInvalid, topic)
			}
		}
	}
	return &c, nil
}

// TopicNames returns the sorted topic keys.
func (c *Catalog) TopicNames() []string {
	names := make([]string, 0, len(c.Topics))
	for t := range c.Topics {
		names = append(names, t)
	}
	sort.Strings(names)
	return names
}

// Modules returns the modules of topic.
func (c *Catalog) Modules(topic string) ([]Module, error) {
	mods, ok := c.Topics[topic]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	return mods, nil
}

// SessionMinutes shortens the optimal session for tired or confused
// learners.
func (c *Catalog) SessionMinutes(sv model.SignalVector) int {
	m := c.OptimalSessionMinutes
	if sv.Fatigue > 0.6 {
		m = m * 2 / 3
	}
	if sv.Confusion > 0.6 {
		m = m * 4 / 5
	}
	return max(minSessionMinutes, m)
}

// Plan splits the topic's modules into sessions no longer than the
// adjusted session length.
func (c *Catalog) Plan(subjectID, topic string, sv model.SignalVector, now time.Time) (model.LearningPath, error) {
	mods, err := c.Modules(topic)
	if err != nil {
		return model.LearningPath{}, err
	}
	sessionLen := c.SessionMinutes(sv)
	brk := breakMinutes
	if sv.Fatigue > 0.6 {
		brk = tiredBreakMinutes
	}

	path := model.LearningPath{
		ID:             subjectID + ":" + topic + ":" + strconv.FormatInt(now.Unix(), 10),
		SubjectID:      subjectID,
		Topic:          topic,
		SessionMinutes: sessionLen,
	}
	for _, m := range mods {
		for left := m.Minutes; left > 0; left -= sessionLen {
			path.Sessions = append(path.Sessions, model.PathSession{
				Index:    len(path.Sessions) + 1,
				Modules:  []string{m.ID},
				Minutes:  min(left, sessionLen),
				BreakMin: brk,
			})
		}
		path.TotalMinutes += m.Minutes
	}
	return path, nil
}
