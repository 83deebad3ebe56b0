package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"onlevel-reserving/internal/data"
	"onlevel-reserving/internal/model"
)

// Config is the on-disk shape of a reserving run (YAML). The HTTP service
// accepts the same shape as JSON.
type Config struct {
	Name         string                    `yaml:"name" json:"name" default:"reserving"`
	Data         DataConfig                `yaml:"data" json:"data"`
	Schedules    map[string]ScheduleConfig `yaml:"schedules" json:"schedules" validate:"dive"`
	SampleWeight *SampleWeightConfig       `yaml:"sample_weight" json:"sample_weight"`
	Pipeline     []StepConfig              `yaml:"pipeline" json:"pipeline" validate:"required,min=1,dive"`
	Logging      LoggingConfig             `yaml:"logging" json:"logging"`

	// baseDir resolves relative file paths; the config file's directory.
	baseDir string
}

// DataConfig names the triangle source. Exactly one of File, Sample or
// Triangles.
type DataConfig struct {
	File      string             `yaml:"file" json:"file"`
	Sample    string             `yaml:"sample" json:"sample"`
	Triangles *data.TriangleFile `yaml:"triangles" json:"triangles"`
	// Grain and ValuationDate apply to XLSX workbooks, which carry neither.
	Grain         string `yaml:"grain" json:"grain" default:"Y" validate:"oneof=Y Q M A y q m a"`
	ValuationDate string `yaml:"valuation_date" json:"valuation_date"`
	Losses        string `yaml:"losses" json:"losses" default:"Incurred" validate:"required"`
	Exposure      string `yaml:"exposure" json:"exposure"`
}

// ScheduleConfig is a named rate history: inline events, a file, or a
// bundled sample.
type ScheduleConfig struct {
	File      string           `yaml:"file" json:"file"`
	Sample    string           `yaml:"sample" json:"sample"`
	Sheet     string           `yaml:"sheet" json:"sheet"`
	DateCol   string           `yaml:"date_col" json:"date_col" default:"date"`
	ChangeCol string           `yaml:"change_col" json:"change_col" default:"rate_change"`
	Events    []data.EventJSON `yaml:"events" json:"events" validate:"dive"`
}

// SampleWeightConfig builds the per-origin weight handed to the pipeline
// from a triangle column, optionally on-leveled with its own schedule.
type SampleWeightConfig struct {
	Column  string         `yaml:"column" json:"column" validate:"required"`
	OnLevel *OnLevelConfig `yaml:"onlevel" json:"onlevel"`
}

type OnLevelConfig struct {
	Schedule     string `yaml:"schedule" json:"schedule" validate:"required"`
	VerticalLine bool   `yaml:"vertical_line" json:"vertical_line"`
	TermMonths   int    `yaml:"term_months" json:"term_months" default:"12" validate:"gte=1,lte=120"`
	Basis        string `yaml:"basis" json:"basis" default:"policy" validate:"oneof=policy calendar accident"`
}

// StepConfig is one pipeline step; Params are read per Kind.
type StepConfig struct {
	Name   string         `yaml:"name" json:"name" validate:"required"`
	Kind   string         `yaml:"kind" json:"kind" validate:"required,oneof=parallelogram_olf development cape_cod"`
	Params map[string]any `yaml:"params" json:"params"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" json:"format" default:"console" validate:"oneof=console json"`
}

var validate = validator.New()

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	c.baseDir = filepath.Dir(path)
	if err := c.Prepare(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Prepare applies defaults and validates. Load calls it; callers decoding a
// Config themselves must too.
func (c *Config) Prepare() error {
	if c == nil {
		return model.ConfigurationError("", "config is nil")
	}
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("apply defaults: %w", err)
	}
	for name, s := range c.Schedules {
		if err := defaults.Set(&s); err != nil {
			return fmt.Errorf("apply defaults: %w", err)
		}
		c.Schedules[name] = s
	}
	if c.SampleWeight != nil && c.SampleWeight.OnLevel != nil {
		if err := defaults.Set(c.SampleWeight.OnLevel); err != nil {
			return fmt.Errorf("apply defaults: %w", err)
		}
	}
	return c.Validate()
}

// Validate checks field rules and cross references between sections.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return validationError(err)
	}
	if n := count(c.Data.File != "", c.Data.Sample != "", c.Data.Triangles != nil); n != 1 {
		return model.ConfigurationError("data", "exactly one of file, sample or triangles is required")
	}
	for name, s := range c.Schedules {
		if count(s.File != "", s.Sample != "", len(s.Events) > 0) != 1 {
			return model.ConfigurationError("schedules."+name, "exactly one of file, sample or events is required")
		}
	}

	seen := map[string]bool{}
	for i, st := range c.Pipeline {
		if seen[st.Name] {
			return model.ConfigurationError(fmt.Sprintf("pipeline[%d]", i), "duplicate step name %q", st.Name)
		}
		seen[st.Name] = true
		if st.Kind == KindParallelogramOLF {
			if err := c.checkSchedule(fmt.Sprintf("pipeline[%d].params.schedule", i), mustStr(st.Params, "schedule", "")); err != nil {
				return err
			}
		}
	}
	if sw := c.SampleWeight; sw != nil {
		if sw.OnLevel != nil {
			if err := c.checkSchedule("sample_weight.onlevel.schedule", sw.OnLevel.Schedule); err != nil {
				return err
			}
		}
	} else if c.Pipeline[len(c.Pipeline)-1].Kind == KindCapeCod {
		return model.ConfigurationError("sample_weight", "cape_cod needs a sample weight")
	}
	return nil
}

// UsesFiles reports whether any source reads from the local filesystem.
func (c *Config) UsesFiles() bool {
	if c.Data.File != "" {
		return true
	}
	for _, s := range c.Schedules {
		if s.File != "" {
			return true
		}
	}
	return false
}

func count(set ...bool) int {
	n := 0
	for _, b := range set {
		if b {
			n++
		}
	}
	return n
}

func (c *Config) checkSchedule(field, name string) error {
	if name == "" {
		return model.ConfigurationError(field, "schedule name is required")
	}
	if _, ok := c.Schedules[name]; !ok {
		return model.ConfigurationError(field, "unknown schedule %q", name)
	}
	return nil
}

// Resolve maps a configured path onto the filesystem. Relative paths are
// tried against the config file's directory first, then the working
// directory.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.baseDir == "" {
		return path
	}
	cand := filepath.Join(c.baseDir, path)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return path
}

func validationError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return model.ConfigurationError("", "%v", err)
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldMessage(fe))
	}
	e := model.ConfigurationError(ve[0].Namespace(), "%s", strings.Join(msgs, "; "))
	e.Cause = err
	return e
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
