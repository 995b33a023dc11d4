// Package scenedoc reads hand-written YAML scene descriptions into managed
// scenes and dumps scene summaries back to YAML. scenetool uses it to feed
// the transcoder without a format importer.
package scenedoc

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is the YAML form of a scene.
type Document struct {
	Name       string         `yaml:"name"`
	Incomplete bool           `yaml:"incomplete,omitempty"`
	Metadata   []MetadataDoc  `yaml:"metadata,omitempty"`
	Root       *NodeDoc       `yaml:"root,omitempty"`
	Meshes     []MeshDoc      `yaml:"meshes,omitempty"`
	Materials  []MaterialDoc  `yaml:"materials,omitempty"`
	Textures   []TextureDoc   `yaml:"textures,omitempty"`
	Lights     []LightDoc     `yaml:"lights,omitempty"`
	Cameras    []CameraDoc    `yaml:"cameras,omitempty"`
	Animations []AnimationDoc `yaml:"animations,omitempty"`

	// baseDir resolves relative texture paths.
	baseDir string
}

// MetadataDoc is one typed metadata value. Type is inferred from the YAML
// value when empty: booleans, integers (int32 or int64 by range), floats
// (double), strings and three-element lists (vector3).
type MetadataDoc struct {
	Key   string `yaml:"key"`
	Type  string `yaml:"type,omitempty"`
	Value any    `yaml:"value"`
}

// NodeDoc describes one node. Matrix, when present, overrides the
// translation, rotation and scale fields; it holds 16 row-major values,
// or 9 for a 3x3 without translation.
type NodeDoc struct {
	Name        string        `yaml:"name"`
	Matrix      []float32     `yaml:"matrix,omitempty"`
	Translation *[3]float32   `yaml:"translation,omitempty"`
	Rotation    *RotationDoc  `yaml:"rotation,omitempty"`
	Scale       *[3]float32   `yaml:"scale,omitempty"`
	Meshes      []int         `yaml:"meshes,omitempty"`
	Metadata    []MetadataDoc `yaml:"metadata,omitempty"`
	Children    []*NodeDoc    `yaml:"children,omitempty"`
}

// RotationDoc is an axis-angle rotation in degrees.
type RotationDoc struct {
	Axis    [3]float32 `yaml:"axis"`
	Degrees float32    `yaml:"degrees"`
}

// MeshDoc describes one mesh. The primitive type is derived from face sizes.
type MeshDoc struct {
	Name       string         `yaml:"name"`
	Material   int            `yaml:"material"`
	Vertices   [][3]float32   `yaml:"vertices"`
	Normals    [][3]float32   `yaml:"normals,omitempty"`
	Tangents   [][3]float32   `yaml:"tangents,omitempty"`
	Bitangents [][3]float32   `yaml:"bitangents,omitempty"`
	Colors     [][][4]float32 `yaml:"colors,omitempty"`
	UVs        []UVChannelDoc `yaml:"uvs,omitempty"`
	Faces      [][]uint32     `yaml:"faces,omitempty"`
	Bones      []BoneDoc      `yaml:"bones,omitempty"`
}

// UVChannelDoc is one texture coordinate channel with 1 to 3 components
// per vertex.
type UVChannelDoc struct {
	Components int         `yaml:"components,omitempty"`
	Coords     [][]float32 `yaml:"coords"`
}

// BoneDoc describes a bone and the vertices it influences.
type BoneDoc struct {
	Name    string      `yaml:"name"`
	Offset  []float32   `yaml:"offset,omitempty"`
	Weights []WeightDoc `yaml:"weights,omitempty"`
}

type WeightDoc struct {
	Vertex uint32  `yaml:"vertex"`
	Weight float32 `yaml:"weight"`
}

// MaterialDoc describes a material through its common named values plus
// raw properties for anything else.
type MaterialDoc struct {
	Name       string           `yaml:"name"`
	Diffuse    []float32        `yaml:"diffuse,omitempty"`
	Ambient    []float32        `yaml:"ambient,omitempty"`
	Specular   []float32        `yaml:"specular,omitempty"`
	Emissive   []float32        `yaml:"emissive,omitempty"`
	Opacity    *float32         `yaml:"opacity,omitempty"`
	Shininess  *float32         `yaml:"shininess,omitempty"`
	TwoSided   bool             `yaml:"two_sided,omitempty"`
	Wireframe  bool             `yaml:"wireframe,omitempty"`
	Shading    string           `yaml:"shading,omitempty"`
	Properties []PropertyDoc    `yaml:"properties,omitempty"`
	Textures   []TextureSlotDoc `yaml:"textures,omitempty"`
}

// PropertyDoc is a raw material property. Numeric types read Values,
// string reads Text and buffer reads Data.
type PropertyDoc struct {
	Key     string    `yaml:"key"`
	Type    string    `yaml:"type"`
	Values  []float64 `yaml:"values,omitempty"`
	Text    string    `yaml:"text,omitempty"`
	Data    []byte    `yaml:"data,omitempty"`
	Texture string    `yaml:"texture,omitempty"`
	Index   int       `yaml:"index,omitempty"`
}

// TextureSlotDoc binds a texture file to a material.
type TextureSlotDoc struct {
	Type      string   `yaml:"type"`
	Index     int      `yaml:"index,omitempty"`
	Path      string   `yaml:"path"`
	UVIndex   int      `yaml:"uv_index,omitempty"`
	Blend     *float32 `yaml:"blend,omitempty"`
	Mapping   string   `yaml:"mapping,omitempty"`
	Operation string   `yaml:"operation,omitempty"`
	WrapU     string   `yaml:"wrap_u,omitempty"`
	WrapV     string   `yaml:"wrap_v,omitempty"`
}

// TextureDoc embeds a compressed image file. File is relative to the
// document; Hint is sniffed from the data when empty.
type TextureDoc struct {
	File     string `yaml:"file"`
	Filename string `yaml:"filename,omitempty"`
	Hint     string `yaml:"hint,omitempty"`
}

type LightDoc struct {
	Name        string     `yaml:"name"`
	Type        string     `yaml:"type"`
	Position    [3]float32 `yaml:"position,omitempty"`
	Direction   [3]float32 `yaml:"direction,omitempty"`
	Up          [3]float32 `yaml:"up,omitempty"`
	Color       [3]float32 `yaml:"color,omitempty"`
	Ambient     [3]float32 `yaml:"ambient,omitempty"`
	Attenuation [3]float32 `yaml:"attenuation,omitempty"`
	InnerCone   float32    `yaml:"inner_cone,omitempty"`
	OuterCone   float32    `yaml:"outer_cone,omitempty"`
	AreaSize    [2]float32 `yaml:"area_size,omitempty"`
}

// CameraDoc places a camera looking at a point. Angles are in degrees.
type CameraDoc struct {
	Name       string      `yaml:"name"`
	Position   [3]float32  `yaml:"position"`
	LookAt     [3]float32  `yaml:"look_at"`
	Up         *[3]float32 `yaml:"up,omitempty"`
	FOV        float32     `yaml:"fov,omitempty"`
	Near       float32     `yaml:"near,omitempty"`
	Far        float32     `yaml:"far,omitempty"`
	Aspect     float32     `yaml:"aspect,omitempty"`
	OrthoWidth float32     `yaml:"ortho_width,omitempty"`
}

type AnimationDoc struct {
	Name           string       `yaml:"name"`
	Duration       float64      `yaml:"duration"`
	TicksPerSecond float64      `yaml:"ticks_per_second,omitempty"`
	Channels       []ChannelDoc `yaml:"channels"`
}

// ChannelDoc animates one node. Rotation keys are axis-angle in degrees.
type ChannelDoc struct {
	Node      string           `yaml:"node"`
	Positions []VectorKeyDoc   `yaml:"positions,omitempty"`
	Rotations []RotationKeyDoc `yaml:"rotations,omitempty"`
	Scalings  []VectorKeyDoc   `yaml:"scalings,omitempty"`
	Pre       string           `yaml:"pre,omitempty"`
	Post      string           `yaml:"post,omitempty"`
}

type VectorKeyDoc struct {
	Time  float64    `yaml:"time"`
	Value [3]float32 `yaml:"value"`
}

type RotationKeyDoc struct {
	Time     float64     `yaml:"time"`
	Rotation RotationDoc `yaml:",inline"`
}

// LoadFile reads a scene document. Relative texture paths resolve against
// the document's directory.
func LoadFile(path string) (*Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("unsupported scene document extension: %s", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene document: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.baseDir = filepath.Dir(path)
	return doc, nil
}

// Load reads a scene document from r. Relative texture paths resolve
// against the working directory.
func Load(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read scene document: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes. Unknown keys are rejected so typos do not
// silently drop data.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return &doc, nil
		}
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	return &doc, nil
}
