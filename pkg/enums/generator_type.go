package enums

import "fmt"

// GeneratorType identifies one external content generator.
type GeneratorType string

const (
	GeneratorCaption GeneratorType = "caption"
	GeneratorImage   GeneratorType = "image"
	GeneratorVideo   GeneratorType = "video"
	GeneratorMusic   GeneratorType = "music"
)

// GeneratorTypes lists every generator in dispatch order.
var GeneratorTypes = []GeneratorType{
	GeneratorCaption,
	GeneratorImage,
	GeneratorVideo,
	GeneratorMusic,
}

func (g GeneratorType) String() string {
	return string(g)
}

func (g GeneratorType) IsValid() bool {
	for _, candidate := range GeneratorTypes {
		if candidate == g {
			return true
		}
	}
	return false
}

func ParseGeneratorType(value string) (GeneratorType, error) {
	for _, candidate := range GeneratorTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid generator type %q", value)
}
