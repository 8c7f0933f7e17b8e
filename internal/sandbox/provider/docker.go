package provider

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/google/uuid"
)

const dockerCodePath = "/code/app.js"

// DockerProvider implements Provider using local containers.
// The template identifier is used as the container image. Intended for
// development, where the remote sandbox service is not reachable.
type DockerProvider struct {
	client *client.Client
}

// NewDockerProvider creates a Docker-backed provider.
func NewDockerProvider() (*DockerProvider, error) {
	// Initializes client from standard environment variables (DOCKER_HOST, etc.)
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	return &DockerProvider{client: cli}, nil
}

// Create starts an idle container from the template image.
func (d *DockerProvider) Create(ctx context.Context, template string) (Instance, error) {
	// Ensure image exists. Check locally first to save time.
	_, err := d.client.ImageInspect(ctx, template)
	if err != nil {
		reader, err := d.client.ImagePull(ctx, template, image.PullOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to pull image %s: %w", template, err)
		}
		defer reader.Close()
		io.Copy(io.Discard, reader)
	}

	containerConfig := &container.Config{
		Image: template,
		Cmd:   []string{"sleep", "infinity"},
		Tty:   true,
	}

	name := "vibeplane-sandbox-" + uuid.NewString()[:8]
	created, err := d.client.ContainerCreate(ctx, containerConfig, nil, nil, nil, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	if err := d.client.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	return &dockerInstance{client: d.client, containerID: created.ID}, nil
}

// dockerInstance is a sandbox backed by a running container.
type dockerInstance struct {
	client      *client.Client
	containerID string
}

func (i *dockerInstance) ID() string {
	return i.containerID
}

// Run copies the code into the container and executes it with node.
func (i *dockerInstance) Run(ctx context.Context, code string) (*RunResult, error) {
	archive, err := tarFile(dockerCodePath, []byte(code))
	if err != nil {
		return nil, err
	}

	if err := i.client.CopyToContainer(ctx, i.containerID, "/", archive, container.CopyToContainerOptions{}); err != nil {
		return nil, fmt.Errorf("failed to copy code into container: %w", err)
	}

	execResp, err := i.client.ContainerExecCreate(ctx, i.containerID, container.ExecOptions{
		Cmd:          []string{"node", dockerCodePath},
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create exec: %w", err)
	}

	attach, err := i.client.ContainerExecAttach(ctx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to attach exec: %w", err)
	}
	defer attach.Close()

	output, err := io.ReadAll(attach.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read exec output: %w", err)
	}

	inspect, err := i.client.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect exec: %w", err)
	}

	return &RunResult{Output: string(output), ExitCode: inspect.ExitCode}, nil
}

func (i *dockerInstance) Kill(ctx context.Context) error {
	return i.client.ContainerRemove(ctx, i.containerID, container.RemoveOptions{Force: true})
}

// tarFile packs a single file into an in-memory tar archive.
func tarFile(path string, content []byte) (io.Reader, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	hdr := &tar.Header{
		Name: path,
		Mode: 0o644,
		Size: int64(len(content)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return nil, err
	}
	if _, err := tw.Write(content); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}

	return &buf, nil
}
