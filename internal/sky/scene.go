package sky

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func ParseTheme(value string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(value))) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	default:
		return "", fmt.Errorf("unknown theme %q", value)
	}
}

type ColorStop struct {
	Color  string `json:"color"`
	Offset int    `json:"offset"`
}

type Gradient struct {
	Angle int         `json:"angle"`
	Stops []ColorStop `json:"stops"`
}

// CSS renders the gradient as a CSS linear-gradient() value.
func (g Gradient) CSS() string {
	parts := make([]string, 0, len(g.Stops)+1)
	parts = append(parts, fmt.Sprintf("%ddeg", g.Angle))
	for _, stop := range g.Stops {
		parts = append(parts, fmt.Sprintf("%s %d%%", stop.Color, stop.Offset))
	}
	return "linear-gradient(" + strings.Join(parts, ", ") + ")"
}

// diagonal spreads colors evenly from 0% to 100% at 135deg.
func diagonal(colors ...string) Gradient {
	g := Gradient{Angle: 135, Stops: make([]ColorStop, len(colors))}
	for i, color := range colors {
		offset := 0
		if len(colors) > 1 {
			offset = i * 100 / (len(colors) - 1)
		}
		g.Stops[i] = ColorStop{Color: color, Offset: offset}
	}
	return g
}

type ParticleKind string

const (
	ParticleNone      ParticleKind = "none"
	ParticleSunray    ParticleKind = "sunray"
	ParticleCloud     ParticleKind = "cloud"
	ParticleRaindrop  ParticleKind = "raindrop"
	ParticleSnowflake ParticleKind = "snowflake"
)

// AnimationProfile describes the particle layer drawn behind the widget.
// FlashEvery is zero unless the category has lightning.
type AnimationProfile struct {
	Particle   ParticleKind  `json:"particle"`
	Count      int           `json:"count"`
	SpawnEvery time.Duration `json:"spawn_every"`
	Lifetime   time.Duration `json:"lifetime"`
	FlashEvery time.Duration `json:"flash_every,omitempty"`
}

var profiles = map[Category]AnimationProfile{
	CategoryClear:        {Particle: ParticleSunray, Count: 12, SpawnEvery: 800 * time.Millisecond, Lifetime: 6 * time.Second},
	CategoryCloudy:       {Particle: ParticleCloud, Count: 6, SpawnEvery: 2 * time.Second, Lifetime: 20 * time.Second},
	CategoryRain:         {Particle: ParticleRaindrop, Count: 60, SpawnEvery: 50 * time.Millisecond, Lifetime: 1200 * time.Millisecond},
	CategorySnow:         {Particle: ParticleSnowflake, Count: 40, SpawnEvery: 150 * time.Millisecond, Lifetime: 8 * time.Second},
	CategoryThunderstorm: {Particle: ParticleRaindrop, Count: 80, SpawnEvery: 40 * time.Millisecond, Lifetime: time.Second, FlashEvery: 7 * time.Second},
	CategoryDefault:      {Particle: ParticleNone},
}

func ProfileFor(category Category) AnimationProfile {
	if p, ok := profiles[category]; ok {
		return p
	}
	return profiles[CategoryDefault]
}

type themedGradient struct {
	light, dark Gradient
}

var dayGradients = map[Category]themedGradient{
	CategoryClear: {
		light: diagonal("#4facfe", "#00f2fe"),
		dark:  diagonal("#1e3c72", "#2a5298"),
	},
	CategoryCloudy: {
		light: diagonal("#8e9eab", "#eef2f3"),
		dark:  diagonal("#2c3e50", "#4c5c68"),
	},
	CategoryRain: {
		light: diagonal("#616161", "#9bc5c3"),
		dark:  diagonal("#232526", "#414345"),
	},
	CategorySnow: {
		light: diagonal("#e6dada", "#274046"),
		dark:  diagonal("#243949", "#517fa4"),
	},
	CategoryThunderstorm: {
		light: diagonal("#0f0c29", "#302b63", "#24243e"),
		dark:  diagonal("#0f0c29", "#302b63", "#24243e"),
	},
	CategoryDefault: {
		light: diagonal("#6a11cb", "#2575fc"),
		dark:  diagonal("#30cfd0", "#330867"),
	},
}

// Night backgrounds ignore the theme. Snow and thunderstorm share the
// default night sky.
var nightGradients = map[Category]Gradient{
	CategoryClear:   diagonal("#0f2027", "#203a43", "#2c5364"),
	CategoryCloudy:  diagonal("#141e30", "#243b55"),
	CategoryRain:    diagonal("#000000", "#434343"),
	CategoryDefault: diagonal("#0f2027", "#203a43", "#2c5364"),
}

func BackgroundFor(category Category, isDay bool, theme Theme) Gradient {
	if !isDay {
		if g, ok := nightGradients[category]; ok {
			return g
		}
		return nightGradients[CategoryDefault]
	}

	pair, ok := dayGradients[category]
	if !ok {
		pair = dayGradients[CategoryDefault]
	}
	if theme == ThemeDark {
		return pair.dark
	}
	return pair.light
}

// Scene is everything the renderer needs to theme the widget for a condition.
type Scene struct {
	Code       int              `json:"code"`
	Category   Category         `json:"category"`
	IsDay      bool             `json:"is_day"`
	Theme      Theme            `json:"theme"`
	Profile    AnimationProfile `json:"profile"`
	Background Gradient         `json:"background"`
	CSS        string           `json:"css"`
}

func ResolveScene(code int, isDay bool, theme Theme) Scene {
	if theme == "" {
		theme = ThemeLight
	}
	category := ClassifyCondition(code)
	background := BackgroundFor(category, isDay, theme)
	return Scene{
		Code:       code,
		Category:   category,
		IsDay:      isDay,
		Theme:      theme,
		Profile:    ProfileFor(category),
		Background: background,
		CSS:        background.CSS(),
	}
}

type Particle struct {
	Kind     ParticleKind  `json:"kind"`
	Index    int           `json:"index"`
	XPercent float64       `json:"x_percent"`
	Lifetime time.Duration `json:"lifetime"`
}

type Spawn struct {
	Delay    time.Duration `json:"delay"`
	Particle Particle      `json:"particle"`
}

// goldenStep scatters particles across the width without clustering.
const goldenStep = 61.80339887

// SpawnSchedule expands a profile into the ordered list of particles to
// spawn and when. The result is deterministic for a given profile.
func SpawnSchedule(p AnimationProfile) []Spawn {
	if p.Particle == ParticleNone || p.Count <= 0 {
		return nil
	}

	schedule := make([]Spawn, p.Count)
	for i := 0; i < p.Count; i++ {
		x := math.Mod(float64(i)*goldenStep, 100)
		schedule[i] = Spawn{
			Delay: time.Duration(i) * p.SpawnEvery,
			Particle: Particle{
				Kind:     p.Particle,
				Index:    i,
				XPercent: math.Round(x*100) / 100,
				Lifetime: p.Lifetime,
			},
		}
	}
	return schedule
}
