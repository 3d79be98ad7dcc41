// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"context"
	"fmt"
	"io"
)

// Tool is an external program that reads stdin and writes stdout.
type Tool interface {
	// Name describes where the tool runs, e.g. "wkhtmltopdf" or
	// "docker:surnet/alpine-wkhtmltopdf".
	Name() string

	// Run invokes the tool with args.
	Run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error
}

// hostTool runs a binary found on the host PATH.
type hostTool struct {
	bin  string
	exec executor
}

// HostTool returns a Tool that runs bin directly. It fails when bin is not
// on PATH.
func HostTool(bin string) (Tool, error) {
	return newHostTool(bin, defaultExec)
}

func newHostTool(bin string, exec executor) (*hostTool, error) {
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("%s not found on PATH: %w", bin, err)
	}
	return &hostTool{bin: bin, exec: exec}, nil
}

func (h *hostTool) Name() string { return h.bin }

func (h *hostTool) Run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	if err := h.exec.RunPiped(ctx, h.bin, args, stdin, stdout); err != nil {
		return fmt.Errorf("running %s: %w", h.bin, err)
	}
	return nil
}

// imageTool runs an image whose entrypoint is the tool.
type imageTool struct {
	rt    Runtime
	image string
}

// ImageTool returns a Tool backed by a container image. It verifies the
// image is present locally.
func ImageTool(rt Runtime, image string) (Tool, error) {
	if err := rt.ImageExists(image); err != nil {
		return nil, fmt.Errorf("image not available in %s: %w", rt.Name(), err)
	}
	return &imageTool{rt: rt, image: image}, nil
}

func (t *imageTool) Name() string { return t.rt.Name() + ":" + t.image }

func (t *imageTool) Run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	return t.rt.Run(ctx, t.image, args, stdin, stdout)
}
