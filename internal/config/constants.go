package config

import "strings"

const SourceFileExt = ".pasa"

// SourceFileExtensions are all recognized source file extensions
var SourceFileExtensions = []string{".pasa", ".ps"}

// Language-level names the compiler and VM agree on.
const (
	// InitializerName is the method name that acts as a class constructor.
	InitializerName = "sang"

	// ReceiverName is the implicit receiver variable inside methods.
	ReceiverName = "ni"
)

// Stringification of the primitive singletons (print output, error messages).
const (
	NilLiteral   = "wang"
	TrueLiteral  = "jing"
	FalseLiteral = "tej"
)

// ProjectConfigFile is the optional per-project CLI configuration.
const ProjectConfigFile = "pasa.yaml"

// IsSourceFile checks if a path has a recognized source extension.
func IsSourceFile(path string) bool {
	for _, ext := range SourceFileExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// TrimSourceExt removes a recognized source extension for display.
func TrimSourceExt(path string) string {
	for _, ext := range SourceFileExtensions {
		if strings.HasSuffix(path, ext) {
			return strings.TrimSuffix(path, ext)
		}
	}
	return path
}
