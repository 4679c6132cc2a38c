package sky

import (
	"fmt"
	"strings"
)

type Category int

const (
	CategoryDefault Category = iota
	CategoryClear
	CategoryCloudy
	CategoryRain
	CategorySnow
	CategoryThunderstorm
)

var categoryNames = map[Category]string{
	CategoryDefault:      "default",
	CategoryClear:        "clear",
	CategoryCloudy:       "cloudy",
	CategoryRain:         "rain",
	CategorySnow:         "snow",
	CategoryThunderstorm: "thunderstorm",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "default"
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func ParseCategory(value string) (Category, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for category, name := range categoryNames {
		if name == normalized {
			return category, nil
		}
	}
	return CategoryDefault, fmt.Errorf("unknown condition category %q", value)
}

// codeRange is half-open: [low, high).
type codeRange struct {
	low, high int
	category  Category
}

// Order matters: the first matching range wins. Boundaries follow the
// provider's observed code table and should not be moved without checking it.
var conditionRanges = []codeRange{
	{1000, 1003, CategoryClear},
	{1003, 1030, CategoryCloudy},
	{1063, 1070, CategoryRain},
	{1150, 1201, CategoryRain},
	{1114, 1150, CategorySnow},
	{1210, 1250, CategorySnow},
	{1273, 1300, CategoryThunderstorm},
}

// ClassifyCondition maps a provider condition code to a category. Unknown
// codes resolve to CategoryDefault.
func ClassifyCondition(code int) Category {
	for _, r := range conditionRanges {
		if code >= r.low && code < r.high {
			return r.category
		}
	}
	return CategoryDefault
}
