package testutils

import (
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"
)

// DockerContainer describes a throwaway service container published on a
// local endpoint for contract tests.
type DockerContainer struct {
	Service  string
	Image    string
	Endpoint BaseEndpoint
	Port     int
	Env      []string
}

func CheckDockerIsRunning() error {
	if err := exec.Command("docker", "info").Run(); err != nil {
		return errors.New("docker must be running to run this test")
	}
	return nil
}

func (dc *DockerContainer) pullImage() error {
	if err := CheckDockerIsRunning(); err != nil {
		return err
	}
	output, err := exec.Command("docker", "pull", dc.Image).CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to pull %s: %s:\n%s", dc.Image, err, output)
	}
	return nil
}

func (dc *DockerContainer) runArgs() []string {
	args := []string{"run", "-d", "-p", fmt.Sprintf("%s:%d", dc.Endpoint, dc.Port)}
	for _, kv := range dc.Env {
		args = append(args, "-e", kv)
	}
	return append(args, dc.Image)
}

// Launch starts the container and returns a function that stops and removes
// it.
func (dc *DockerContainer) Launch() (cleanup func() error, err error) {
	var output []byte

	if err = dc.pullImage(); err != nil {
		return
	}
	cmd := exec.Command("docker", dc.runArgs()...)
	if output, err = cmd.CombinedOutput(); err != nil {
		const errFmt = "failed to start local %s at %s: %s:\n%s"
		err = fmt.Errorf(errFmt, dc.Service, dc.Endpoint, err, output)
		return
	}

	const logFmt = "local %s running at %s with container ID: %s"
	id := strings.TrimSpace(string(output))
	log.Printf(logFmt, dc.Service, dc.Endpoint, id)
	cleanup = func() error { return dc.remove(id) }
	return
}

func (dc *DockerContainer) remove(id string) (err error) {
	wrap := func(action string, err error, output []byte) error {
		const errFmt = "failed to %s %s container with ID %s: %s:\n%s"
		return fmt.Errorf(errFmt, action, dc.Service, id, err, output)
	}

	log.Printf("cleaning up %s container with ID: %s", dc.Service, id)

	if output, stopErr := exec.Command(
		"docker", "stop", "-t", "0", id,
	).CombinedOutput(); stopErr != nil {
		err = wrap("stop", stopErr, output)
	} else if output, rmErr := exec.Command(
		"docker", "rm", id,
	).CombinedOutput(); rmErr != nil {
		err = wrap("remove", rmErr, output)
	}
	return
}
