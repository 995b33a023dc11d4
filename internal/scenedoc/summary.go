package scenedoc

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/assetbridge/pkg/math"
	"github.com/Faultbox/assetbridge/pkg/native"
	"github.com/Faultbox/assetbridge/pkg/scene"
)

// Summary is a YAML-friendly overview of a scene.
type Summary struct {
	Name       string             `yaml:"name"`
	Flags      []string           `yaml:"flags,omitempty"`
	Nodes      int                `yaml:"nodes"`
	Depth      int                `yaml:"depth"`
	Metadata   []string           `yaml:"metadata,omitempty"`
	Meshes     []MeshSummary      `yaml:"meshes,omitempty"`
	Materials  []MaterialSummary  `yaml:"materials,omitempty"`
	Textures   []TextureSummary   `yaml:"textures,omitempty"`
	Lights     []string           `yaml:"lights,omitempty"`
	Cameras    []string           `yaml:"cameras,omitempty"`
	Animations []AnimationSummary `yaml:"animations,omitempty"`
	Bounds     *BoundsSummary     `yaml:"bounds,omitempty"`
	Heap       *HeapSummary       `yaml:"heap,omitempty"`
}

type MeshSummary struct {
	Name       string        `yaml:"name"`
	Primitives string        `yaml:"primitives"`
	Vertices   int           `yaml:"vertices"`
	Faces      int           `yaml:"faces"`
	Bones      int           `yaml:"bones,omitempty"`
	UVChannels int           `yaml:"uv_channels,omitempty"`
	Colors     int           `yaml:"color_channels,omitempty"`
	Material   int           `yaml:"material"`
	Bounds     [2][3]float32 `yaml:"bounds,flow"`
}

type MaterialSummary struct {
	Name       string   `yaml:"name"`
	Properties int      `yaml:"properties"`
	Textures   []string `yaml:"textures,omitempty"`
}

type TextureSummary struct {
	Filename string `yaml:"filename"`
	Format   string `yaml:"format"`
	Size     string `yaml:"size"`
}

type AnimationSummary struct {
	Name     string  `yaml:"name"`
	Seconds  float64 `yaml:"seconds"`
	Channels int     `yaml:"channels"`
}

// BoundsSummary is the world-space extent of the placed meshes.
type BoundsSummary struct {
	Min    [3]float32 `yaml:"min,flow"`
	Max    [3]float32 `yaml:"max,flow"`
	Center [3]float32 `yaml:"center,flow"`
	Size   [3]float32 `yaml:"size,flow"`
}

func arr(v math.Vec3) [3]float32 { return [3]float32{v.X, v.Y, v.Z} }

// HeapSummary reports native heap usage after a transcode.
type HeapSummary struct {
	LiveBlocks int    `yaml:"live_blocks"`
	LiveBytes  uint32 `yaml:"live_bytes"`
	HighWater  uint32 `yaml:"high_water"`
	Allocs     int    `yaml:"allocs"`
	Frees      int    `yaml:"frees"`
}

// NewHeapSummary copies heap counters.
func NewHeapSummary(st native.Stats) *HeapSummary {
	return &HeapSummary{
		LiveBlocks: st.LiveBlocks,
		LiveBytes:  st.LiveBytes,
		HighWater:  st.HighWater,
		Allocs:     st.Allocs,
		Frees:      st.Frees,
	}
}

var flagNames = []struct {
	flag scene.SceneFlags
	name string
}{
	{scene.FlagIncomplete, "incomplete"},
	{scene.FlagValidated, "validated"},
	{scene.FlagValidationWarning, "validation_warning"},
	{scene.FlagNonVerboseFormat, "non_verbose"},
	{scene.FlagTerrain, "terrain"},
	{scene.FlagAllowShared, "allow_shared"},
}

func primitiveNames(pt scene.PrimitiveType) string {
	var names []string
	for _, p := range []struct {
		t    scene.PrimitiveType
		name string
	}{
		{scene.PrimitivePoint, "point"},
		{scene.PrimitiveLine, "line"},
		{scene.PrimitiveTriangle, "triangle"},
		{scene.PrimitivePolygon, "polygon"},
	} {
		if pt&p.t != 0 {
			names = append(names, p.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Summarize collects counts and names from s.
func Summarize(s *scene.Scene) *Summary {
	sum := &Summary{Name: s.Name}
	for _, f := range flagNames {
		if s.Flags&f.flag != 0 {
			sum.Flags = append(sum.Flags, f.name)
		}
	}
	if s.RootNode != nil {
		s.RootNode.Walk(func(_ *scene.Node, depth int) bool {
			sum.Nodes++
			sum.Depth = max(sum.Depth, depth+1)
			return true
		})
	}
	for _, k := range s.Metadata.Keys() {
		e, _ := s.Metadata.Get(k)
		sum.Metadata = append(sum.Metadata, fmt.Sprintf("%s: %s = %v", k, e.Type, e.Data))
	}
	for _, m := range s.Meshes {
		b := m.BoundingBox
		sum.Meshes = append(sum.Meshes, MeshSummary{
			Name:       m.Name,
			Primitives: primitiveNames(m.PrimitiveType),
			Vertices:   m.VertexCount(),
			Faces:      m.FaceCount(),
			Bones:      len(m.Bones),
			UVChannels: m.TextureCoordChannelCount(),
			Colors:     m.ColorChannelCount(),
			Material:   m.MaterialIndex,
			Bounds:     [2][3]float32{arr(b.Min), arr(b.Max)},
		})
	}
	for _, m := range s.Materials {
		ms := MaterialSummary{Name: m.Name(), Properties: m.PropertyCount()}
		for _, t := range m.AllTextures() {
			ms.Textures = append(ms.Textures, fmt.Sprintf("%s/%d: %s", t.TextureType, t.TextureIndex, t.FilePath))
		}
		sum.Materials = append(sum.Materials, ms)
	}
	for i, t := range s.Textures {
		if t == nil {
			sum.Textures = append(sum.Textures, TextureSummary{Filename: fmt.Sprintf("*%d", i), Format: "missing"})
			continue
		}
		ts := TextureSummary{Filename: t.Filename, Format: t.FormatHint}
		if t.IsCompressed() {
			ts.Size = fmt.Sprintf("%d bytes", len(t.CompressedData))
		} else {
			ts.Size = fmt.Sprintf("%dx%d", t.Width, t.Height)
		}
		sum.Textures = append(sum.Textures, ts)
	}
	for _, l := range s.Lights {
		sum.Lights = append(sum.Lights, fmt.Sprintf("%s (%s)", l.Name, l.LightType))
	}
	for _, c := range s.Cameras {
		kind := "perspective"
		if c.IsOrthographic() {
			kind = "orthographic"
		}
		sum.Cameras = append(sum.Cameras, fmt.Sprintf("%s (%s)", c.Name, kind))
	}
	for _, a := range s.Animations {
		sum.Animations = append(sum.Animations, AnimationSummary{
			Name:     a.Name,
			Seconds:  a.Duration(),
			Channels: len(a.NodeAnimationChannels) + len(a.MeshAnimationChannels) + len(a.MeshMorphAnimationChannels),
		})
	}
	if b := s.Bounds(); b != (math.Box{}) {
		sum.Bounds = &BoundsSummary{Min: arr(b.Min), Max: arr(b.Max), Center: arr(b.Center()), Size: arr(b.Size())}
	}
	return sum
}

// WriteYAML writes the summary as a YAML document.
func (s *Summary) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}
