package config

// Paktfile represents the structure of the pakt.yaml manifest file.
type Paktfile struct {
	Version      string          `yaml:"version"`
	Requirements []string        `yaml:"requirements"`
	Targets      []TargetDTO     `yaml:"targets"`
	IndexURL     string          `yaml:"index-url"`
	LocalDirs    []string        `yaml:"local-dirs"`
	CacheDir     string          `yaml:"cache-dir"`
	LockPath     string          `yaml:"lock-path"`
	Resolution   ResolutionDTO   `yaml:"resolution"`
	Materialize  MaterializeDTO  `yaml:"materialize"`
	Build        BuildBackendDTO `yaml:"build"`
}

// TargetDTO describes one target environment in the manifest.
type TargetDTO struct {
	Implementation string            `yaml:"implementation"`
	Version        string            `yaml:"version"`
	Platform       string            `yaml:"platform"`
	ABI            string            `yaml:"abi"`
	Markers        map[string]string `yaml:"markers"`
}

// ResolutionDTO carries the resolver policy knobs.
type ResolutionDTO struct {
	MaxNarrowRetries *int   `yaml:"max-narrow-retries"`
	SourcePolicy     string `yaml:"source-policy"`
	AllowPrerelease  bool   `yaml:"allow-prerelease"`
}

// MaterializeDTO carries the materializer knobs.
type MaterializeDTO struct {
	Parallelism int `yaml:"parallelism"`
}

// BuildBackendDTO configures the subprocess build backend.
type BuildBackendDTO struct {
	Tool string   `yaml:"tool"`
	Args []string `yaml:"args"`
}
