// Package exec runs shell commands on local or remote hosts, used to launch
// training and tuning scripts that publish their metric reports for gating.
package exec

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs/url"
	"github.com/viant/gosh"
	"github.com/viant/gosh/runner"
	"github.com/viant/gosh/runner/local"
	rssh "github.com/viant/gosh/runner/ssh"
	"github.com/viant/scy/cred/secret"
	"golang.org/x/crypto/ssh"

	"github.com/mlgate/mlgate/service/action/system"
)

// Service executes shell commands, keeping one gosh session per host.
type Service struct {
	sessions map[string]*sessionInfo
	mux      sync.Mutex
}

type sessionInfo struct {
	service *gosh.Service
}

// New creates an exec service
func New() *Service {
	return &Service{sessions: make(map[string]*sessionInfo)}
}

// Execute runs the input commands sequentially on the target host.
func (s *Service) Execute(ctx context.Context, input *Input, output *Output) error {
	input.Init()
	session, err := s.getSession(ctx, input.Host, input.Env)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if input.Workdir != "" {
		if _, _, err := session.service.Run(ctx, fmt.Sprintf("cd %s", input.Workdir)); err != nil {
			return fmt.Errorf("failed to change directory: %w", err)
		}
	}
	abortOnError := true
	if input.AbortOnError != nil {
		abortOnError = *input.AbortOnError
	}
	timeout := time.Duration(input.TimeoutMs) * time.Millisecond
	if timeout == 0 {
		timeout = time.Minute
	}

	var commands []*Command
	var combinedStdout, combinedStderr strings.Builder
	var lastStatus int
	for _, cmd := range input.Commands {
		stdout, stderr, status := s.runCommand(ctx, session, cmd, timeout)
		commands = append(commands, &Command{Input: cmd, Output: stdout, Stderr: stderr, Status: status})
		if stdout != "" {
			combinedStdout.WriteString(stdout)
			combinedStdout.WriteString("\n")
		}
		if stderr != "" {
			combinedStderr.WriteString(stderr)
			combinedStderr.WriteString("\n")
		}
		lastStatus = status
		if abortOnError && status != 0 {
			break
		}
	}
	output.Commands = commands
	output.Stdout = strings.TrimSpace(combinedStdout.String())
	output.Stderr = strings.TrimSpace(combinedStderr.String())
	output.Status = lastStatus
	return nil
}

func (s *Service) runCommand(ctx context.Context, session *sessionInfo, command string, timeout time.Duration) (string, string, int) {
	started := time.Now()
	stdout, status, err := session.service.Run(ctx, command, runner.WithTimeout(int(timeout.Milliseconds())))
	if elapsed := time.Since(started); elapsed > timeout && err == nil {
		err = fmt.Errorf("command %v timed out after %s", command, elapsed)
	}
	if status == 0 && err == nil {
		return stdout, "", status
	}
	if stdout == "" && err != nil {
		stdout = err.Error()
	}
	return "", stdout, status
}

func (s *Service) getSession(ctx context.Context, host *system.Host, env map[string]string) (*sessionInfo, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if session, ok := s.sessions[host.URL]; ok {
		return session, nil
	}

	var envOptions []runner.Option
	if len(env) > 0 {
		envOptions = append(envOptions, runner.WithEnvironment(env))
	}
	var service *gosh.Service
	var err error
	if host.IsLocal() {
		service, err = gosh.New(ctx, local.New(envOptions...))
	} else {
		config, configErr := s.sshConfig(ctx, host)
		if configErr != nil {
			return nil, fmt.Errorf("failed to get SSH config: %w", configErr)
		}
		sshHost := url.Host(host.URL)
		if !strings.Contains(sshHost, ":") {
			sshHost += ":22"
		}
		service, err = gosh.New(ctx, rssh.New(sshHost, config, envOptions...))
	}
	if err != nil {
		return nil, err
	}
	session := &sessionInfo{service: service}
	s.sessions[host.URL] = session
	return session, nil
}

func (s *Service) sshConfig(ctx context.Context, host *system.Host) (*ssh.ClientConfig, error) {
	credentials := host.Credentials
	if credentials == "" {
		credentials = "localhost"
	}
	generic, err := secret.New().GetCredentials(ctx, credentials)
	if err != nil {
		return nil, err
	}
	return generic.SSH.Config(ctx)
}

// Close releases all sessions held by this service
func (s *Service) Close(ctx context.Context) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	var errs []string
	for id, session := range s.sessions {
		if err := session.service.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("failed to close session %s: %v", id, err))
		}
	}
	s.sessions = make(map[string]*sessionInfo)
	if len(errs) > 0 {
		return fmt.Errorf("errors closing sessions: %s", strings.Join(errs, "; "))
	}
	return nil
}
