package analysis

import "strings"

// Config holds the static inputs of the analyzer
type Config struct {
	// Class identifier prefixes that are never analyzed and never recorded
	// as static-call dependencies
	IgnorePrefixes []string
	// Owners whose methods open and close groups
	ComposerOwners []string
	// Descriptor of the annotation carrying an explicit function key
	FunctionKeyAnnotation string
	// Owner of the bootstrap method that creates lambdas
	LambdaMetafactory string
}

func DefaultConfig() Config {
	return Config{
		IgnorePrefixes: []string{
			"java/",
			"javax/",
			"jdk/",
			"sun/",
			"kotlin/",
			"kotlinx/",
			"androidx/compose/runtime/",
			"androidx/compose/ui/graphics/",
			"org/jetbrains/skia/",
			"org/jetbrains/skiko/",
		},
		ComposerOwners: []string{
			"androidx/compose/runtime/Composer",
			"androidx/compose/runtime/ComposerKt",
		},
		FunctionKeyAnnotation: "Landroidx/compose/runtime/internal/FunctionKeyMeta;",
		LambdaMetafactory:     "java/lang/invoke/LambdaMetafactory",
	}
}

// Ignored reports whether a class identifier falls under an ignore prefix
func (c *Config) Ignored(classId string) bool {
	for _, p := range c.IgnorePrefixes {
		if strings.HasPrefix(classId, p) {
			return true
		}
	}
	return false
}

func (c *Config) isComposer(owner string) bool {
	for _, o := range c.ComposerOwners {
		if o == owner {
			return true
		}
	}
	return false
}
