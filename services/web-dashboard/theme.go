package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/redis/go-redis/v9"
)

// darkModeKey matches the browser's localStorage key.
const darkModeKey = "darkMode"

// ThemeStore persists the single light/dark preference.
type ThemeStore interface {
	Load(ctx context.Context) (dark bool, err error)
	Save(ctx context.Context, dark bool) error
}

// RedisThemeStore keeps the flag in Valkey as "true"/"false".
type RedisThemeStore struct {
	rdb *redis.Client
	key string
}

func NewRedisThemeStore(rdb *redis.Client) *RedisThemeStore {
	return &RedisThemeStore{rdb: rdb, key: darkModeKey}
}

// Load returns false (light) when the key was never written.
func (s *RedisThemeStore) Load(ctx context.Context) (bool, error) {
	val, err := s.rdb.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load theme: %w", err)
	}
	return val == "true", nil
}

func (s *RedisThemeStore) Save(ctx context.Context, dark bool) error {
	if err := s.rdb.Set(ctx, s.key, boolString(dark), 0).Err(); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}

// MemoryThemeStore is used when no Valkey address is configured.
type MemoryThemeStore struct {
	mu   sync.Mutex
	dark bool
}

func (s *MemoryThemeStore) Load(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dark, nil
}

func (s *MemoryThemeStore) Save(_ context.Context, dark bool) error {
	s.mu.Lock()
	s.dark = dark
	s.mu.Unlock()
	return nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// ThemeMode returns the body class of the page.
func ThemeMode(dark bool) string {
	if dark {
		return "dark-mode"
	}
	return "light-mode"
}

// Particle is one decorative element of the background layer.
type Particle struct {
	LeftVW      float64 `json:"left_vw"`
	TopVH       float64 `json:"top_vh,omitempty"`
	Opacity     float64 `json:"opacity"`
	DurationSec float64 `json:"duration_s"`
}

// Effects is the background layer for one theme: floating particles in
// light mode, rain in dark mode. A toggle replaces the whole layer.
type Effects struct {
	Kind     string     `json:"kind"` // "particles" or "rain"
	Elements []Particle `json:"elements"`
}

const (
	particleCount = 40
	raindropCount = 30
)

// BackgroundEffects generates a fresh effect layer for the theme.
func BackgroundEffects(dark bool, rng *rand.Rand) Effects {
	if dark {
		drops := make([]Particle, raindropCount)
		for i := range drops {
			drops[i] = Particle{
				LeftVW:      rng.Float64() * 100,
				DurationSec: rng.Float64()*2 + 1,
				Opacity:     rng.Float64()*0.6 + 0.4,
			}
		}
		return Effects{Kind: "rain", Elements: drops}
	}

	dots := make([]Particle, particleCount)
	for i := range dots {
		dots[i] = Particle{
			LeftVW:      rng.Float64() * 100,
			TopVH:       rng.Float64() * 100,
			Opacity:     rng.Float64()*0.5 + 0.3,
			DurationSec: rng.Float64()*10 + 5,
		}
	}
	return Effects{Kind: "particles", Elements: dots}
}

// ThemeView is what the page and /api/theme receive.
type ThemeView struct {
	Dark    bool    `json:"dark"`
	Mode    string  `json:"mode"`
	Effects Effects `json:"effects"`
}

func newThemeView(dark bool, rng *rand.Rand) ThemeView {
	return ThemeView{Dark: dark, Mode: ThemeMode(dark), Effects: BackgroundEffects(dark, rng)}
}
