package common

// DefaultEntry is the function run by the driver unless told otherwise.
const DefaultEntry = "main"

// FileExtension is the extension of source files.
const FileExtension = ".ds"

// BuildConfig represents the build options/arguments.
type BuildConfig struct {
	Verbose bool
	DumpAST bool
	DumpIR  bool
	Run     bool
	Watch   bool
	Output  string
	Entry   string
}

func NewBuildConfig() *BuildConfig {
	return &BuildConfig{Entry: DefaultEntry}
}
