package model

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	_ "embed"
)

const (
	SignalInterrupt = "interrupt"
	SignalTerminate = "terminate"

	LogFormatJSON = "json"
	LogFormatText = "text"

	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource)
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	if err := compiled.Validate(); err != nil {
		panic(err)
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
	if err := schema.Validate(); err != nil {
		panic(err)
	}
}

type Config struct {
	Version  int      `json:"version" yaml:"version"` // fixed 0 for now
	Jobs     Jobs     `json:"jobs" yaml:"jobs"`
	Shutdown Shutdown `json:"shutdown" yaml:"shutdown"`
	Service  Service  `json:"service" yaml:"service"`
}

// Jobs describes the job set spawned by a run: ids 0..count-1.
type Jobs struct {
	Count   int      `json:"count" yaml:"count"`
	Latency string   `json:"latency" yaml:"latency"` // Go duration, e.g. 5s or 1m30s
	Payload string   `json:"payload" yaml:"payload"` // printf template, %d is the job id
	Command *Command `json:"command,omitempty" yaml:"command,omitempty"`
}

// Command replaces the simulated work by an external process.
type Command struct {
	Path string            `json:"path" yaml:"path"`
	Args []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env  map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

// Environ returns the process environment for a job: the current environment
// followed by the configured variables and JOBVISOR_JOB_ID. Values starting
// with $ are expanded from the current environment.
func (c Command) Environ(jobID int) []string {
	extra := make([]string, 0, len(c.Env)+1)
	for k, v := range c.Env {
		if strings.HasPrefix(v, "$") {
			v = os.ExpandEnv(v)
		}
		extra = append(extra, strings.ToUpper(k)+"="+v)
	}
	slices.Sort(extra)
	extra = append(extra, "JOBVISOR_JOB_ID="+strconv.Itoa(jobID))
	return append(os.Environ(), extra...)
}

// Shutdown lists the OS signals which request a graceful shutdown.
type Shutdown struct {
	Signals []string `json:"signals" yaml:"signals"`
}

type Service struct {
	Verbose   bool   `json:"verbose" yaml:"verbose"`
	LogFormat string `json:"log_format" yaml:"log_format"` // "json"|"text"
	Output    string `json:"output" yaml:"output"`         // "text"|"json"|"yaml"
}

func DefaultConfig() Config {
	return Config{
		Version: 0,
		Jobs: Jobs{
			Count:   10,
			Latency: "5s",
			Payload: "job %d",
		},
		Shutdown: Shutdown{
			Signals: []string{SignalInterrupt, SignalTerminate},
		},
		Service: Service{
			Verbose:   false,
			LogFormat: LogFormatJSON,
			Output:    OutputText,
		},
	}
}

// LatencyDuration parses Jobs.Latency.
func (j Jobs) LatencyDuration() (time.Duration, error) {
	d, err := time.ParseDuration(j.Latency)
	if err != nil {
		return 0, fmt.Errorf("parsing jobs.latency: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("parsing jobs.latency: negative duration %s", d)
	}
	return d, nil
}

// LoadConfig validates YAML from r against CUE schema and decodes to Config.
func LoadConfig(r io.Reader) (Config, error) {
	yamlFile, err := yaml.Extract("config.yaml", r)
	if err != nil {
		return Config{}, err
	}
	yamlValue := cueCtx.BuildFile(yamlFile)

	unified := schema.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	); err != nil {
		return Config{}, err
	}

	var out Config
	if err := unified.Decode(&out); err != nil {
		return Config{}, err
	}
	if _, err := out.Jobs.LatencyDuration(); err != nil {
		return Config{}, err
	}

	return out, nil
}
