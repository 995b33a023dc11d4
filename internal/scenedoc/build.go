package scenedoc

import (
	"errors"
	"fmt"
	stdmath "math"
	"os"
	"path/filepath"

	"github.com/chewxy/math32"

	"github.com/Faultbox/assetbridge/pkg/math"
	"github.com/Faultbox/assetbridge/pkg/scene"
)

var (
	shadingModes = map[string]scene.ShadingMode{
		"flat": scene.ShadingFlat, "gouraud": scene.ShadingGouraud, "phong": scene.ShadingPhong,
		"blinn": scene.ShadingBlinn, "toon": scene.ShadingToon, "oren_nayar": scene.ShadingOrenNayar,
		"minnaert": scene.ShadingMinnaert, "cook_torrance": scene.ShadingCookTorrance,
		"unlit": scene.ShadingNoShading, "fresnel": scene.ShadingFresnel, "pbr": scene.ShadingPBRBRDF,
	}
	mappings = map[string]scene.TextureMapping{
		"uv": scene.MappingFromUV, "sphere": scene.MappingSphere, "cylinder": scene.MappingCylinder,
		"box": scene.MappingBox, "plane": scene.MappingPlane,
	}
	operations = map[string]scene.TextureOperation{
		"multiply": scene.OpMultiply, "add": scene.OpAdd, "subtract": scene.OpSubtract,
		"divide": scene.OpDivide, "smooth_add": scene.OpSmoothAdd, "signed_add": scene.OpSignedAdd,
	}
	wrapModes = map[string]scene.TextureWrapMode{
		"wrap": scene.WrapWrap, "clamp": scene.WrapClamp, "mirror": scene.WrapMirror, "decal": scene.WrapDecal,
	}
	lightTypes = map[string]scene.LightSourceType{
		"directional": scene.LightDirectional, "point": scene.LightPoint, "spot": scene.LightSpot,
		"ambient": scene.LightAmbient, "area": scene.LightArea,
	}
	behaviours = map[string]scene.AnimationBehaviour{
		"default": scene.BehaviourDefault, "constant": scene.BehaviourConstant,
		"linear": scene.BehaviourLinear, "repeat": scene.BehaviourRepeat,
	}
	propertyTypes = map[string]scene.PropertyType{
		"float": scene.PropertyFloat, "double": scene.PropertyDouble, "string": scene.PropertyString,
		"int": scene.PropertyInteger, "integer": scene.PropertyInteger, "buffer": scene.PropertyBuffer,
	}
)

// lookup resolves an optional enum name; empty yields the zero value.
func lookup[T any](table map[string]T, what, name string) (T, error) {
	var zero T
	if name == "" {
		return zero, nil
	}
	v, ok := table[name]
	if !ok {
		return zero, fmt.Errorf("unknown %s %q", what, name)
	}
	return v, nil
}

func vec3(v [3]float32) math.Vec3 { return math.Vec3{X: v[0], Y: v[1], Z: v[2]} }

func vec3s(vs [][3]float32) []math.Vec3 {
	if len(vs) == 0 {
		return nil
	}
	out := make([]math.Vec3, len(vs))
	for i, v := range vs {
		out[i] = vec3(v)
	}
	return out
}

func radians(deg float32) float32 { return deg * math32.Pi / 180 }

// color accepts RGB (alpha 1) or RGBA.
func color(c []float32) (math.Color4, error) {
	switch len(c) {
	case 3:
		return math.Color4{R: c[0], G: c[1], B: c[2], A: 1}, nil
	case 4:
		return math.Color4{R: c[0], G: c[1], B: c[2], A: c[3]}, nil
	}
	return math.Color4{}, fmt.Errorf("color needs 3 or 4 components, got %d", len(c))
}

// matrix reads a row-major 4x4, or a 3x3 widened with no translation.
func matrix(m []float32) (math.Mat4, error) {
	switch len(m) {
	case 9:
		var m3 math.Mat3
		copy(m3[:], m)
		return m3.Mat4(), nil
	case 16:
		var out math.Mat4
		copy(out[:], m)
		return out, nil
	}
	return math.Mat4{}, fmt.Errorf("matrix needs 9 or 16 values, got %d", len(m))
}

func (r RotationDoc) mat4() math.Mat4 {
	return math.RotateAxis(vec3(r.Axis).Normalize(), radians(r.Degrees))
}

func (r RotationDoc) quat() math.Quat {
	return math.QuatFromAxisAngle(vec3(r.Axis).Normalize(), radians(r.Degrees))
}

// Build converts the document to a managed scene and validates it.
func (d *Document) Build() (*scene.Scene, error) {
	s := scene.New()
	s.Name = d.Name
	if d.Incomplete {
		s.Flags |= scene.FlagIncomplete
	}

	var errs []error
	wrap := func(what string, i int, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s[%d]: %w", what, i, err))
		}
	}

	if err := buildMetadata(&s.Metadata, d.Metadata); err != nil {
		errs = append(errs, fmt.Errorf("metadata: %w", err))
	}
	for i, md := range d.Meshes {
		m, err := md.build()
		wrap("meshes", i, err)
		s.Meshes = append(s.Meshes, m)
	}
	for i, md := range d.Materials {
		m, err := md.build()
		wrap("materials", i, err)
		s.Materials = append(s.Materials, m)
	}
	for i, td := range d.Textures {
		t, err := td.build(d.baseDir)
		wrap("textures", i, err)
		s.Textures = append(s.Textures, t)
	}
	for i, ld := range d.Lights {
		l, err := ld.build()
		wrap("lights", i, err)
		s.Lights = append(s.Lights, l)
	}
	for _, cd := range d.Cameras {
		s.Cameras = append(s.Cameras, cd.build())
	}
	for i, ad := range d.Animations {
		a, err := ad.build()
		wrap("animations", i, err)
		s.Animations = append(s.Animations, a)
	}
	if d.Root != nil {
		root, err := d.Root.build()
		if err != nil {
			errs = append(errs, fmt.Errorf("root: %w", err))
		}
		s.RootNode = root
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func buildMetadata(md *scene.Metadata, docs []MetadataDoc) error {
	for _, e := range docs {
		v, err := metadataValue(e)
		if err != nil {
			return fmt.Errorf("%q: %w", e.Key, err)
		}
		if err := md.Set(e.Key, v); err != nil {
			return err
		}
	}
	return nil
}

func metadataValue(e MetadataDoc) (any, error) {
	switch e.Type {
	case "":
		return inferMetadata(e.Value)
	case "bool":
		if b, ok := e.Value.(bool); ok {
			return b, nil
		}
	case "string":
		if s, ok := e.Value.(string); ok {
			return s, nil
		}
	case "vector3":
		if v, ok := vectorValue(e.Value); ok {
			return v, nil
		}
	case "int32", "int64", "uint32", "uint64":
		n, ok := e.Value.(int)
		if !ok {
			break
		}
		switch {
		case e.Type == "int32" && n >= stdmath.MinInt32 && n <= stdmath.MaxInt32:
			return int32(n), nil
		case e.Type == "int64":
			return int64(n), nil
		case e.Type == "uint32" && n >= 0 && uint64(n) <= stdmath.MaxUint32:
			return uint32(n), nil
		case e.Type == "uint64" && n >= 0:
			return uint64(n), nil
		}
		return nil, fmt.Errorf("%d does not fit %s", n, e.Type)
	case "float", "double":
		f, ok := number(e.Value)
		if !ok {
			break
		}
		if e.Type == "float" {
			return float32(f), nil
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown metadata type %q", e.Type)
	}
	return nil, fmt.Errorf("value %v is not a %s", e.Value, e.Type)
}

func inferMetadata(v any) (any, error) {
	switch v := v.(type) {
	case bool, string:
		return v, nil
	case int:
		if v >= stdmath.MinInt32 && v <= stdmath.MaxInt32 {
			return int32(v), nil
		}
		return int64(v), nil
	case uint64:
		return v, nil
	case float64:
		return v, nil
	case []any:
		if vec, ok := vectorValue(v); ok {
			return vec, nil
		}
	}
	return nil, fmt.Errorf("cannot infer a metadata type for %v", v)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func vectorValue(v any) (math.Vec3, bool) {
	list, ok := v.([]any)
	if !ok || len(list) != 3 {
		return math.Vec3{}, false
	}
	var c [3]float32
	for i, x := range list {
		f, ok := number(x)
		if !ok {
			return math.Vec3{}, false
		}
		c[i] = float32(f)
	}
	return vec3(c), true
}

func (nd *NodeDoc) transform() (math.Mat4, error) {
	if nd.Matrix != nil {
		return matrix(nd.Matrix)
	}
	m := math.Identity()
	if nd.Translation != nil {
		t := nd.Translation
		m = math.Translate(t[0], t[1], t[2])
	}
	if nd.Rotation != nil {
		m = m.Mul(nd.Rotation.mat4())
	}
	if nd.Scale != nil {
		sc := nd.Scale
		m = m.Mul(math.Scale(sc[0], sc[1], sc[2]))
	}
	return m, nil
}

// build converts the subtree with an explicit stack so deep documents do
// not recurse.
func (nd *NodeDoc) build() (*scene.Node, error) {
	type item struct {
		doc    *NodeDoc
		parent *scene.Node
	}
	var root *scene.Node
	stack := []item{{doc: nd}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if it.doc == nil {
			return nil, errors.New("empty child node")
		}
		n := scene.NewNode(it.doc.Name)
		tr, err := it.doc.transform()
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", it.doc.Name, err)
		}
		n.Transform = tr
		n.MeshIndices = it.doc.Meshes
		if err := buildMetadata(&n.Metadata, it.doc.Metadata); err != nil {
			return nil, fmt.Errorf("node %q metadata: %w", it.doc.Name, err)
		}
		if it.parent == nil {
			root = n
		} else if err := it.parent.AddChild(n); err != nil {
			return nil, err
		}
		// reversed so children attach in document order
		for i := len(it.doc.Children) - 1; i >= 0; i-- {
			stack = append(stack, item{doc: it.doc.Children[i], parent: n})
		}
	}
	return root, nil
}

func primitiveType(faces [][]uint32) scene.PrimitiveType {
	var pt scene.PrimitiveType
	for _, f := range faces {
		switch len(f) {
		case 1:
			pt |= scene.PrimitivePoint
		case 2:
			pt |= scene.PrimitiveLine
		case 3:
			pt |= scene.PrimitiveTriangle
		default:
			pt |= scene.PrimitivePolygon
		}
	}
	return pt
}

func (md MeshDoc) build() (*scene.Mesh, error) {
	m := &scene.Mesh{
		Name:          md.Name,
		MaterialIndex: md.Material,
		PrimitiveType: primitiveType(md.Faces),
	}
	m.Vertices = vec3s(md.Vertices)
	m.Normals = vec3s(md.Normals)
	m.Tangents = vec3s(md.Tangents)
	m.BiTangents = vec3s(md.Bitangents)

	if len(md.Colors) > scene.MaxColorSets {
		return nil, fmt.Errorf("%d color channels, at most %d", len(md.Colors), scene.MaxColorSets)
	}
	for ch, colors := range md.Colors {
		for _, c := range colors {
			m.Colors[ch] = append(m.Colors[ch], math.Color4{R: c[0], G: c[1], B: c[2], A: c[3]})
		}
	}

	if len(md.UVs) > scene.MaxTextureCoords {
		return nil, fmt.Errorf("%d uv channels, at most %d", len(md.UVs), scene.MaxTextureCoords)
	}
	for ch, uv := range md.UVs {
		comps := uv.Components
		if comps == 0 {
			comps = 2
		}
		for i, c := range uv.Coords {
			if len(c) != comps {
				return nil, fmt.Errorf("uvs[%d][%d]: want %d components, got %d", ch, i, comps, len(c))
			}
			var v [3]float32
			copy(v[:], c)
			m.TexCoords[ch] = append(m.TexCoords[ch], vec3(v))
		}
		m.UVComponentCount[ch] = comps
	}

	for _, f := range md.Faces {
		m.Faces = append(m.Faces, scene.Face{Indices: f})
	}
	for i, bd := range md.Bones {
		b := &scene.Bone{Name: bd.Name, OffsetMatrix: math.Identity()}
		if bd.Offset != nil {
			off, err := matrix(bd.Offset)
			if err != nil {
				return nil, fmt.Errorf("bones[%d]: %w", i, err)
			}
			b.OffsetMatrix = off
		}
		for _, w := range bd.Weights {
			b.VertexWeights = append(b.VertexWeights, scene.VertexWeight{VertexID: w.Vertex, Weight: w.Weight})
		}
		m.Bones = append(m.Bones, b)
	}
	m.ComputeBoundingBox()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (md MaterialDoc) build() (*scene.Material, error) {
	m := scene.NewMaterial()
	if md.Name != "" {
		m.SetName(md.Name)
	}
	for _, c := range []struct {
		vals []float32
		set  func(math.Color4)
	}{
		{md.Diffuse, m.SetColorDiffuse},
		{md.Ambient, m.SetColorAmbient},
		{md.Specular, m.SetColorSpecular},
		{md.Emissive, m.SetColorEmissive},
	} {
		if c.vals == nil {
			continue
		}
		col, err := color(c.vals)
		if err != nil {
			return nil, err
		}
		c.set(col)
	}
	if md.Opacity != nil {
		m.SetOpacity(*md.Opacity)
	}
	if md.Shininess != nil {
		m.SetShininess(*md.Shininess)
	}
	if md.TwoSided {
		m.SetTwoSided(true)
	}
	if md.Wireframe {
		m.SetWireframeEnabled(true)
	}
	if md.Shading != "" {
		sm, err := lookup(shadingModes, "shading mode", md.Shading)
		if err != nil {
			return nil, err
		}
		m.SetShadingMode(sm)
	}

	for i, pd := range md.Properties {
		p, err := pd.build()
		if err != nil {
			return nil, fmt.Errorf("properties[%d]: %w", i, err)
		}
		if !m.AddProperty(p) {
			return nil, fmt.Errorf("properties[%d]: duplicate key %s", i, p.FullyQualifiedName())
		}
	}

	for i, td := range md.Textures {
		slot, err := td.build()
		if err != nil {
			return nil, fmt.Errorf("textures[%d]: %w", i, err)
		}
		if !m.AddTexture(slot) {
			return nil, fmt.Errorf("textures[%d]: invalid slot %s/%d %q", i, slot.TextureType, slot.TextureIndex, slot.FilePath)
		}
	}
	return m, nil
}

func (pd PropertyDoc) build() (*scene.MaterialProperty, error) {
	typ, ok := propertyTypes[pd.Type]
	if !ok {
		return nil, fmt.Errorf("unknown property type %q", pd.Type)
	}
	var p *scene.MaterialProperty
	switch typ {
	case scene.PropertyFloat:
		vals := make([]float32, len(pd.Values))
		for i, v := range pd.Values {
			vals[i] = float32(v)
		}
		p = scene.NewFloatProperty(pd.Key, vals...)
	case scene.PropertyDouble:
		p = scene.NewDoubleProperty(pd.Key, pd.Values...)
	case scene.PropertyInteger:
		vals := make([]int32, len(pd.Values))
		for i, v := range pd.Values {
			if v != stdmath.Trunc(v) || v < stdmath.MinInt32 || v > stdmath.MaxInt32 {
				return nil, fmt.Errorf("%s: %v is not an int32", pd.Key, v)
			}
			vals[i] = int32(v)
		}
		p = scene.NewIntProperty(pd.Key, vals...)
	case scene.PropertyString:
		p = scene.NewStringProperty(pd.Key, pd.Text)
	case scene.PropertyBuffer:
		p = scene.NewBufferProperty(pd.Key, pd.Data)
	}
	if pd.Texture != "" {
		tt, ok := scene.ParseTextureType(pd.Texture)
		if !ok {
			return nil, fmt.Errorf("unknown texture type %q", pd.Texture)
		}
		p.ForTexture(tt, pd.Index)
	}
	return p, nil
}

func (td TextureSlotDoc) build() (scene.TextureSlot, error) {
	tt, ok := scene.ParseTextureType(td.Type)
	if !ok {
		return scene.TextureSlot{}, fmt.Errorf("unknown texture type %q", td.Type)
	}
	slot := scene.TextureSlot{
		FilePath:     td.Path,
		TextureType:  tt,
		TextureIndex: td.Index,
		UVIndex:      td.UVIndex,
		BlendFactor:  1,
	}
	if td.Blend != nil {
		slot.BlendFactor = *td.Blend
	}
	var err error
	if slot.Mapping, err = lookup(mappings, "mapping", td.Mapping); err != nil {
		return slot, err
	}
	if slot.Operation, err = lookup(operations, "operation", td.Operation); err != nil {
		return slot, err
	}
	if slot.WrapModeU, err = lookup(wrapModes, "wrap mode", td.WrapU); err != nil {
		return slot, err
	}
	if slot.WrapModeV, err = lookup(wrapModes, "wrap mode", td.WrapV); err != nil {
		return slot, err
	}
	return slot, nil
}

func (td TextureDoc) build(baseDir string) (*scene.EmbeddedTexture, error) {
	path := td.File
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read texture: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("texture %s is empty", td.File)
	}
	t := scene.NewCompressedTexture(data, td.Hint)
	t.Filename = td.Filename
	if t.Filename == "" {
		t.Filename = filepath.Base(td.File)
	}
	return t, nil
}

func (ld LightDoc) build() (*scene.Light, error) {
	lt, ok := lightTypes[ld.Type]
	if !ok {
		return nil, fmt.Errorf("unknown light type %q", ld.Type)
	}
	col := math.Color3{R: ld.Color[0], G: ld.Color[1], B: ld.Color[2]}
	return &scene.Light{
		Name:                 ld.Name,
		LightType:            lt,
		Position:             vec3(ld.Position),
		Direction:            vec3(ld.Direction),
		Up:                   vec3(ld.Up),
		AttenuationConstant:  ld.Attenuation[0],
		AttenuationLinear:    ld.Attenuation[1],
		AttenuationQuadratic: ld.Attenuation[2],
		ColorDiffuse:         col,
		ColorSpecular:        col,
		ColorAmbient:         math.Color3{R: ld.Ambient[0], G: ld.Ambient[1], B: ld.Ambient[2]},
		AngleInnerCone:       radians(ld.InnerCone),
		AngleOuterCone:       radians(ld.OuterCone),
		AreaSize:             math.Vec2{X: ld.AreaSize[0], Y: ld.AreaSize[1]},
	}, nil
}

func (cd CameraDoc) build() *scene.Camera {
	up := math.Vec3{Y: 1}
	if cd.Up != nil {
		up = vec3(*cd.Up)
	}
	pos := vec3(cd.Position)
	c := &scene.Camera{
		Name:              cd.Name,
		Position:          pos,
		Up:                up,
		Direction:         vec3(cd.LookAt).Sub(pos).Normalize(),
		FieldOfView:       radians(45),
		ClipPlaneNear:     0.1,
		ClipPlaneFar:      1000,
		AspectRatio:       cd.Aspect,
		OrthographicWidth: cd.OrthoWidth,
	}
	if cd.FOV > 0 {
		c.FieldOfView = radians(cd.FOV)
	}
	if cd.Near > 0 {
		c.ClipPlaneNear = cd.Near
	}
	if cd.Far > 0 {
		c.ClipPlaneFar = cd.Far
	}
	return c
}

func (ad AnimationDoc) build() (*scene.Animation, error) {
	a := &scene.Animation{
		Name:            ad.Name,
		DurationInTicks: ad.Duration,
		TicksPerSecond:  ad.TicksPerSecond,
	}
	for i, cd := range ad.Channels {
		ch := &scene.NodeAnimationChannel{NodeName: cd.Node}
		var err error
		if ch.PreState, err = lookup(behaviours, "behaviour", cd.Pre); err != nil {
			return nil, fmt.Errorf("channels[%d]: %w", i, err)
		}
		if ch.PostState, err = lookup(behaviours, "behaviour", cd.Post); err != nil {
			return nil, fmt.Errorf("channels[%d]: %w", i, err)
		}
		for _, k := range cd.Positions {
			ch.PositionKeys = append(ch.PositionKeys, scene.VectorKey{Time: k.Time, Value: vec3(k.Value)})
		}
		for _, k := range cd.Rotations {
			ch.RotationKeys = append(ch.RotationKeys, scene.QuaternionKey{Time: k.Time, Value: k.Rotation.quat()})
		}
		for _, k := range cd.Scalings {
			ch.ScalingKeys = append(ch.ScalingKeys, scene.VectorKey{Time: k.Time, Value: vec3(k.Value)})
		}
		a.NodeAnimationChannels = append(a.NodeAnimationChannels, ch)
	}
	return a, nil
}
