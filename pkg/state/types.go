package state

import (
	"strings"
	"time"
)

// Stage labels where a version sits in the release flow.
type Stage string

const (
	StageDev      Stage = "dev"
	StageAlpha    Stage = "alpha"
	StageBeta     Stage = "beta"
	StageRC       Stage = "rc"
	StageSnapshot Stage = "snapshot"
	StageHotfix   Stage = "hotfix"
	StageStable   Stage = "stable"
	StageRelease  Stage = "release"
)

// stageKeywords maps version-string markers to stages. Scan order matters:
// the first keyword found wins.
var stageKeywords = []struct {
	keyword string
	stage   Stage
}{
	{"alpha", StageAlpha},
	{"beta", StageBeta},
	{"rc", StageRC},
	{"dev", StageDev},
	{"snapshot", StageSnapshot},
	{"hotfix", StageHotfix},
	{"stable", StageStable},
}

// DeriveStage classifies a version string by a case-insensitive keyword scan
// of its prerelease markers. Versions without a recognized marker are
// release versions.
func DeriveStage(version string) Stage {
	lower := strings.ToLower(version)
	for _, sk := range stageKeywords {
		if strings.Contains(lower, sk.keyword) {
			return sk.stage
		}
	}
	return StageRelease
}

// defaultStageProgression is the expected release flow recorded on fresh
// state. Purely descriptive; transitions outside it are allowed.
func defaultStageProgression() []Stage {
	return []Stage{StageDev, StageAlpha, StageBeta, StageRC, StageRelease}
}

// PlatformInfo records where the state file was created.
type PlatformInfo struct {
	OS       string `yaml:"os" json:"os"`
	Arch     string `yaml:"arch" json:"arch"`
	Hostname string `yaml:"hostname,omitempty" json:"hostname,omitempty"`
}

// IncrementHistory is one recorded version change.
type IncrementHistory struct {
	IncrementID      string         `yaml:"increment_id" json:"increment_id"`
	Timestamp        time.Time      `yaml:"timestamp" json:"timestamp"`
	FromVersion      string         `yaml:"from_version" json:"from_version"`
	ToVersion        string         `yaml:"to_version" json:"to_version"`
	IncrementType    string         `yaml:"increment_type,omitempty" json:"increment_type,omitempty"`
	FromStage        Stage          `yaml:"from_stage" json:"from_stage"`
	ToStage          Stage          `yaml:"to_stage" json:"to_stage"`
	StageTransition  bool           `yaml:"stage_transition" json:"stage_transition"`
	UserContext      string         `yaml:"user_context,omitempty" json:"user_context,omitempty"`
	SessionID        string         `yaml:"session_id" json:"session_id"`
	Platform         string         `yaml:"platform" json:"platform"`
	ValidationPassed bool           `yaml:"validation_passed" json:"validation_passed"`
	ValidationErrors []string       `yaml:"validation_errors,omitempty" json:"validation_errors,omitempty"`
	ProcessingTimeMS int64          `yaml:"processing_time_ms" json:"processing_time_ms"`
	Metadata         map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// StageTransition is one recorded stage change, kept separately from the
// increment history so stage flow can be audited even after increment
// entries age out.
type StageTransition struct {
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	From      Stage     `yaml:"from" json:"from"`
	To        Stage     `yaml:"to" json:"to"`
	Version   string    `yaml:"version" json:"version"`
}

// VersionState is the persisted document. The major/minor/patch/prerelease
// counters mirror the parsed current version so consumers can read them
// without a parser.
type VersionState struct {
	CurrentVersion    string             `yaml:"current_version" json:"current_version"`
	Stage             Stage              `yaml:"stage" json:"stage"`
	Major             int                `yaml:"major" json:"major"`
	Minor             int                `yaml:"minor" json:"minor"`
	Patch             int                `yaml:"patch" json:"patch"`
	PrereleaseCounter int                `yaml:"prerelease_counter" json:"prerelease_counter"`
	CreatedAt         time.Time          `yaml:"created_at" json:"created_at"`
	LastUpdated       time.Time          `yaml:"last_updated" json:"last_updated"`
	TotalIncrements   int                `yaml:"total_increments" json:"total_increments"`
	AutoIncrement     bool               `yaml:"auto_increment_enabled" json:"auto_increment_enabled"`
	StageProgression  []Stage            `yaml:"preferred_stage_progression,omitempty" json:"preferred_stage_progression,omitempty"`
	Platform          PlatformInfo       `yaml:"platform_info" json:"platform_info"`
	IncrementHistory  []IncrementHistory `yaml:"increment_history,omitempty" json:"increment_history,omitempty"`
	StageHistory      []StageTransition  `yaml:"stage_history,omitempty" json:"stage_history,omitempty"`
	Metadata          map[string]string  `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// clone deep-copies the state so callers can never alias store internals.
func (v *VersionState) clone() *VersionState {
	c := *v

	c.IncrementHistory = make([]IncrementHistory, len(v.IncrementHistory))
	copy(c.IncrementHistory, v.IncrementHistory)
	for i := range c.IncrementHistory {
		c.IncrementHistory[i].Metadata = copyAnyMap(v.IncrementHistory[i].Metadata)
		if errs := v.IncrementHistory[i].ValidationErrors; errs != nil {
			c.IncrementHistory[i].ValidationErrors = append([]string(nil), errs...)
		}
	}

	if v.StageProgression != nil {
		c.StageProgression = append([]Stage(nil), v.StageProgression...)
	}

	c.StageHistory = make([]StageTransition, len(v.StageHistory))
	copy(c.StageHistory, v.StageHistory)

	if v.Metadata != nil {
		c.Metadata = make(map[string]string, len(v.Metadata))
		for k, val := range v.Metadata {
			c.Metadata[k] = val
		}
	}

	return &c
}

func copyAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
