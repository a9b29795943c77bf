package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Runner executes a command with stdin and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, error)
}

// Local runs commands on the host.
type Local struct{}

func (Local) Run(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, error) {
	return run(exec.CommandContext(ctx, name, args...), stdin)
}

// Docker runs commands inside a running container with docker exec.
type Docker struct {
	Container string
}

func (d Docker) Run(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, error) {
	return run(exec.CommandContext(ctx, "docker", d.Args(name, args, stdin != nil)...), stdin)
}

// Args is the docker argv for running name inside the container.
func (d Docker) Args(name string, args []string, interactive bool) []string {
	dockerArgs := []string{"exec"}
	if interactive {
		dockerArgs = append(dockerArgs, "-i")
	}
	dockerArgs = append(dockerArgs, d.Container, name)

	return append(dockerArgs, args...)
}

func run(cmd *exec.Cmd, stdin io.Reader) ([]byte, error) {
	if stdin != nil {
		cmd.Stdin = stdin
	}

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), fmt.Errorf("cmd returned error %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return stdout.Bytes(), nil
}

// ValidateContainer checks that a container with exactly this name is running.
func ValidateContainer(ctx context.Context, containerName string) error {
	if strings.TrimSpace(containerName) == "" {
		return fmt.Errorf("container name is empty")
	}

	cmd := exec.CommandContext(ctx, "docker", "ps", "--filter", fmt.Sprintf("name=%s", containerName), "--format", "{{.Names}}")
	cmdOutput, err := cmd.Output()
	if err != nil {
		return err
	}

	for _, name := range strings.Fields(string(cmdOutput)) {
		if name == containerName {
			return nil
		}
	}

	return fmt.Errorf("container %s is not running; docker output: %s", containerName, cmdOutput)
}

// ValidateBinary checks that binary can be found by r.
func ValidateBinary(ctx context.Context, r Runner, binary string) error {
	if strings.TrimSpace(binary) == "" {
		return fmt.Errorf("binary name is empty")
	}

	if _, ok := r.(Local); ok {
		if _, err := exec.LookPath(binary); err != nil {
			return fmt.Errorf("binary %s not found: %w", binary, err)
		}
		return nil
	}

	cmdOutput, err := r.Run(ctx, "which", []string{binary}, nil)
	if err != nil || strings.TrimSpace(string(cmdOutput)) == "" {
		return fmt.Errorf("binary %s not found; output: %s", binary, cmdOutput)
	}

	return nil
}
