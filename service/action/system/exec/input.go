package exec

import (
	"github.com/mlgate/mlgate/service/action/system"
)

// Input represents an exec action request. Each command entry is started as
// an independent shell invocation.
type Input struct {
	Host         *system.Host      `json:"host,omitempty" description:"host to execute commands on"`
	Workdir      string            `json:"workdir,omitempty" description:"working directory for the commands"`
	Env          map[string]string `json:"env,omitempty" description:"environment variables set before commands run"`
	Commands     []string          `json:"commands,omitempty" description:"commands to execute on the target system"`
	TimeoutMs    int               `json:"timeoutMs,omitempty" yaml:"timeoutMs,omitempty" description:"max wait time before timing out a command"`
	AbortOnError *bool             `json:"abortOnError,omitempty" description:"stop on the first non-zero exit status (default true)"`
}

// Init applies the localhost default.
func (i *Input) Init() {
	if i.Host == nil {
		i.Host = &system.Host{}
	}
	if i.Host.URL == "" {
		i.Host.URL = "bash://localhost/"
	}
}
