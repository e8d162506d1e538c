package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/valutlabs/forge/internal/compile"
	"github.com/valutlabs/forge/internal/image"
	"github.com/valutlabs/forge/internal/probe"
)

// Paths inside the runtime image.
const (
	binDir         = "/usr/local/bin"
	trustRootsPath = "/etc/ssl/certs/ca-certificates.crt"
	probeClient    = "healthprobe"
)

// OCI annotations carrying the embedded liveness probe parameters.
const (
	AnnotationProbeURL       = "com.valutlabs.forge.probe.url"
	AnnotationProbeInterval  = "com.valutlabs.forge.probe.interval"
	AnnotationProbeTimeout   = "com.valutlabs.forge.probe.timeout"
	AnnotationProbeGrace     = "com.valutlabs.forge.probe.grace"
	AnnotationProbeThreshold = "com.valutlabs.forge.probe.threshold"
)

// Inputs for runtime image assembly.
type Options struct {
	Store       *image.Store      // Content store holding all image blobs.
	Base        string            // Path to the base system image archive.
	Binary      *compile.Artifact // The stripped service binary.
	ServiceName string            // Service name; also the binary's filename in the image.
	Entrypoint  []string          // Image entrypoint. Defaults to the service binary.
	Port        int               // TCP port the service listens on. Zero exposes none.
	Platform    string            // Target platform (e.g., "linux/amd64").
	TrustRoots  string            // Host path of the CA certificate bundle.
	ProbeClient string            // Host path of the probe client binary. Empty omits it.
	Probe       *probe.Config     // Liveness probe parameters. Nil disables the probe.
}

// An assembled runtime image, addressable in its content store.
type Image struct {
	Store    *image.Store       // Store holding the image blobs.
	Target   ocispec.Descriptor // Manifest descriptor of the assembled image.
	Platform string             // Platform the image was assembled for.
}

// Builds the runtime image.
//
// The base archive is ingested into the content store and resolved to the
// manifest for the target platform. One layer is appended holding the
// service binary, the trust roots, and (if configured) the probe client.
// The image config gains the service entrypoint and, when a probe is
// configured, the manifest gains the probe annotations.
func Build(ctx context.Context, opts Options) (*Image, error) {
	slog.Info("assembling runtime image",
		"base", opts.Base,
		"service", opts.ServiceName,
		"platform", opts.Platform,
		"probe", opts.Probe != nil,
	)

	root, err := opts.Store.ImportArchive(ctx, opts.Base)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAssemble, err)
	}

	manifestDesc, err := opts.Store.ResolveManifest(ctx, root, opts.Platform)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAssemble, err)
	}

	manifest, err := opts.Store.ReadManifest(ctx, manifestDesc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAssemble, err)
	}

	config, err := opts.Store.ReadConfig(ctx, manifest.Config)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAssemble, err)
	}

	layer, diffID, err := opts.Store.WriteLayer(ctx, opts.layerEntries(), opts.ServiceName+"-layer")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAssemble, err)
	}

	manifest.Layers = append(manifest.Layers, layer)
	config.RootFS.DiffIDs = append(config.RootFS.DiffIDs, diffID)
	opts.applyConfig(&config)
	opts.applyAnnotations(&manifest)

	configDesc, err := opts.Store.WriteJSON(ctx, manifest.Config.MediaType, config, opts.ServiceName+"-config")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAssemble, err)
	}
	manifest.Config = configDesc

	target, err := opts.Store.WriteJSON(ctx, manifestDesc.MediaType, manifest, opts.ServiceName+"-manifest")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAssemble, err)
	}

	slog.Info("runtime image assembled", "digest", target.Digest)

	return &Image{
		Store:    opts.Store,
		Target:   target,
		Platform: opts.Platform,
	}, nil
}

// Returns the file list for the appended layer.
//
// This list is the complete contents of the layer; nothing else from the
// build environment is reachable from the image.
func (o Options) layerEntries() []image.LayerEntry {
	entries := []image.LayerEntry{
		{Source: o.Binary.Path, Path: binDir + "/" + o.ServiceName, Mode: 0755},
	}

	if o.TrustRoots != "" {
		entries = append(entries, image.LayerEntry{
			Source: o.TrustRoots, Path: trustRootsPath, Mode: 0644,
		})
	}

	if o.Probe != nil && o.ProbeClient != "" {
		entries = append(entries, image.LayerEntry{
			Source: o.ProbeClient, Path: binDir + "/" + probeClient, Mode: 0755,
		})
	}

	return entries
}

// Sets the entrypoint and exposed port on the image config.
//
// Cmd is cleared so the base image's default command cannot wrap or
// replace the service binary. The binary runs as process 1.
func (o Options) applyConfig(config *ocispec.Image) {
	entrypoint := o.Entrypoint
	if len(entrypoint) == 0 {
		entrypoint = []string{binDir + "/" + o.ServiceName}
	}

	config.Config.Entrypoint = entrypoint
	config.Config.Cmd = nil

	if o.Port > 0 {
		if config.Config.ExposedPorts == nil {
			config.Config.ExposedPorts = make(map[string]struct{})
		}
		config.Config.ExposedPorts[strconv.Itoa(o.Port)+"/tcp"] = struct{}{}
	}
}

// Embeds the probe parameters as manifest annotations.
func (o Options) applyAnnotations(manifest *ocispec.Manifest) {
	if o.Probe == nil {
		return
	}

	cfg := o.Probe.WithDefaults()
	if manifest.Annotations == nil {
		manifest.Annotations = make(map[string]string)
	}

	manifest.Annotations[AnnotationProbeURL] = cfg.URL
	manifest.Annotations[AnnotationProbeInterval] = cfg.Interval.String()
	manifest.Annotations[AnnotationProbeTimeout] = cfg.Timeout.String()
	manifest.Annotations[AnnotationProbeGrace] = cfg.Grace.String()
	manifest.Annotations[AnnotationProbeThreshold] = strconv.Itoa(cfg.Threshold)
}
