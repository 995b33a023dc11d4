package scene

import (
	"errors"

	"github.com/Faultbox/assetbridge/pkg/math"
	"github.com/Faultbox/assetbridge/pkg/native"
)

// AnimationBehaviour controls a channel outside its key range.
type AnimationBehaviour uint32

const (
	BehaviourDefault AnimationBehaviour = iota
	BehaviourConstant
	BehaviourLinear
	BehaviourRepeat
)

// VectorKey is a position or scaling key. Time is in ticks.
type VectorKey struct {
	Time  float64
	Value math.Vec3
}

// QuaternionKey is a rotation key.
type QuaternionKey struct {
	Time  float64
	Value math.Quat
}

// MeshKey selects an anim mesh attachment by index at Time.
type MeshKey struct {
	Time  float64
	Value uint32
}

// MeshMorphKey blends several anim mesh attachments at Time. Values and
// Weights always have the same length.
type MeshMorphKey struct {
	Time    float64
	Values  []uint32
	Weights []float64
}

func (k *MeshMorphKey) nativeLayout() *native.Layout { return meshMorphKeyL.layout }

func (k *MeshMorphKey) toNative(tc *Transcoder, _ native.Ptr, b []byte) error {
	f := meshMorphKeyL
	if len(k.Values) != len(k.Weights) {
		return native.Errorf(native.PhaseEncode, native.ErrInvalidScene, "%d values with %d weights", len(k.Values), len(k.Weights))
	}
	native.F64.Put(b[f.time:], k.Time)
	if err := writeValues(tc, b, f.values, native.U32, k.Values); err != nil {
		return err
	}
	if err := writeValues(tc, b, f.weights, native.F64, k.Weights); err != nil {
		return err
	}
	putU32(b, f.numValuesAndWeights, uint32(len(k.Values)))
	return nil
}

func (k *MeshMorphKey) fromNative(tc *Transcoder, b []byte) error {
	f := meshMorphKeyL
	*k = MeshMorphKey{Time: native.F64.Decode(b[f.time:])}
	n := u32At(b, f.numValuesAndWeights)
	values, err := readValues(tc, b, f.values, native.U32, n, "values")
	if err != nil {
		return err
	}
	weights, err := readValues(tc, b, f.weights, native.F64, n, "weights")
	if err != nil {
		return err
	}
	if n > 0 {
		k.Values, k.Weights = values, weights
	}
	return nil
}

func (k *MeshMorphKey) freeNative(tc *Transcoder, b []byte) error {
	return errors.Join(freeAt(tc, b, meshMorphKeyL.values), freeAt(tc, b, meshMorphKeyL.weights))
}

// NodeAnimationChannel animates the transform of the node named NodeName.
type NodeAnimationChannel struct {
	NodeName     string
	PositionKeys []VectorKey
	RotationKeys []QuaternionKey
	ScalingKeys  []VectorKey
	PreState     AnimationBehaviour
	PostState    AnimationBehaviour
}

func (c *NodeAnimationChannel) HasPositionKeys() bool { return len(c.PositionKeys) > 0 }
func (c *NodeAnimationChannel) HasRotationKeys() bool { return len(c.RotationKeys) > 0 }
func (c *NodeAnimationChannel) HasScalingKeys() bool  { return len(c.ScalingKeys) > 0 }

func (c *NodeAnimationChannel) nativeLayout() *native.Layout { return nodeAnimL.layout }

func (c *NodeAnimationChannel) toNative(tc *Transcoder, _ native.Ptr, b []byte) error {
	f := nodeAnimL
	if err := tc.putString(b, f.nodeName, c.NodeName); err != nil {
		return native.AtPath(err, "nodeName")
	}
	putU32(b, f.preState, uint32(c.PreState))
	putU32(b, f.postState, uint32(c.PostState))
	if err := writeValues(tc, b, f.positionKeys, vectorKeyCodec, c.PositionKeys); err != nil {
		return err
	}
	putU32(b, f.numPositionKeys, uint32(len(c.PositionKeys)))
	if err := writeValues(tc, b, f.rotationKeys, quatKeyCodec, c.RotationKeys); err != nil {
		return err
	}
	putU32(b, f.numRotationKeys, uint32(len(c.RotationKeys)))
	if err := writeValues(tc, b, f.scalingKeys, vectorKeyCodec, c.ScalingKeys); err != nil {
		return err
	}
	putU32(b, f.numScalingKeys, uint32(len(c.ScalingKeys)))
	return nil
}

func (c *NodeAnimationChannel) fromNative(tc *Transcoder, b []byte) error {
	f := nodeAnimL
	*c = NodeAnimationChannel{}
	name, err := tc.getString(b, f.nodeName)
	if err != nil {
		return native.AtPath(err, "nodeName")
	}
	pos, err := readValues(tc, b, f.positionKeys, vectorKeyCodec, u32At(b, f.numPositionKeys), "positionKeys")
	if err != nil {
		return native.AtPath(err, name)
	}
	rot, err := readValues(tc, b, f.rotationKeys, quatKeyCodec, u32At(b, f.numRotationKeys), "rotationKeys")
	if err != nil {
		return native.AtPath(err, name)
	}
	scl, err := readValues(tc, b, f.scalingKeys, vectorKeyCodec, u32At(b, f.numScalingKeys), "scalingKeys")
	if err != nil {
		return native.AtPath(err, name)
	}
	c.NodeName = name
	c.PositionKeys = nilIfEmpty(pos)
	c.RotationKeys = nilIfEmpty(rot)
	c.ScalingKeys = nilIfEmpty(scl)
	c.PreState = AnimationBehaviour(u32At(b, f.preState))
	c.PostState = AnimationBehaviour(u32At(b, f.postState))
	return nil
}

func (c *NodeAnimationChannel) freeNative(tc *Transcoder, b []byte) error {
	f := nodeAnimL
	return errors.Join(freeAt(tc, b, f.positionKeys), freeAt(tc, b, f.rotationKeys), freeAt(tc, b, f.scalingKeys))
}

// MeshAnimationChannel swaps the anim mesh attachments of the mesh named
// MeshName over time.
type MeshAnimationChannel struct {
	MeshName string
	MeshKeys []MeshKey
}

func (c *MeshAnimationChannel) nativeLayout() *native.Layout { return meshAnimL.layout }

func (c *MeshAnimationChannel) toNative(tc *Transcoder, _ native.Ptr, b []byte) error {
	f := meshAnimL
	if err := tc.putString(b, f.name, c.MeshName); err != nil {
		return native.AtPath(err, "name")
	}
	if err := writeValues(tc, b, f.keys, meshKeyCodec, c.MeshKeys); err != nil {
		return err
	}
	putU32(b, f.numKeys, uint32(len(c.MeshKeys)))
	return nil
}

func (c *MeshAnimationChannel) fromNative(tc *Transcoder, b []byte) error {
	f := meshAnimL
	*c = MeshAnimationChannel{}
	name, err := tc.getString(b, f.name)
	if err != nil {
		return native.AtPath(err, "name")
	}
	keys, err := readValues(tc, b, f.keys, meshKeyCodec, u32At(b, f.numKeys), "keys")
	if err != nil {
		return native.AtPath(err, name)
	}
	c.MeshName, c.MeshKeys = name, nilIfEmpty(keys)
	return nil
}

func (c *MeshAnimationChannel) freeNative(tc *Transcoder, b []byte) error {
	return freeAt(tc, b, meshAnimL.keys)
}

// MeshMorphAnimationChannel blends morph targets of the mesh named Name.
type MeshMorphAnimationChannel struct {
	Name          string
	MeshMorphKeys []MeshMorphKey
}

func (c *MeshMorphAnimationChannel) nativeLayout() *native.Layout { return meshMorphAnimL.layout }

func (c *MeshMorphAnimationChannel) toNative(tc *Transcoder, _ native.Ptr, b []byte) error {
	f := meshMorphAnimL
	if err := tc.putString(b, f.name, c.Name); err != nil {
		return native.AtPath(err, "name")
	}
	return writeStructArray(tc, b, f.numKeys, f.keys, c.MeshMorphKeys, "keys")
}

func (c *MeshMorphAnimationChannel) fromNative(tc *Transcoder, b []byte) error {
	f := meshMorphAnimL
	*c = MeshMorphAnimationChannel{}
	name, err := tc.getString(b, f.name)
	if err != nil {
		return native.AtPath(err, "name")
	}
	keys, err := readStructArray[MeshMorphKey](tc, b, f.numKeys, f.keys, "keys")
	if err != nil {
		return native.AtPath(err, name)
	}
	c.Name, c.MeshMorphKeys = name, keys
	return nil
}

func (c *MeshMorphAnimationChannel) freeNative(tc *Transcoder, b []byte) error {
	f := meshMorphAnimL
	return freeStructArray[MeshMorphKey](tc, b, f.numKeys, f.keys)
}

// Animation is a set of channels sharing one timeline.
type Animation struct {
	Name string
	// DurationInTicks and TicksPerSecond define the timeline; a zero tick
	// rate means the importer did not specify one.
	DurationInTicks            float64
	TicksPerSecond             float64
	NodeAnimationChannels      []*NodeAnimationChannel
	MeshAnimationChannels      []*MeshAnimationChannel
	MeshMorphAnimationChannels []*MeshMorphAnimationChannel
}

// Duration returns the length in seconds, assuming 25 ticks per second when
// the rate is unspecified.
func (a *Animation) Duration() float64 {
	tps := a.TicksPerSecond
	if tps == 0 {
		tps = 25
	}
	return a.DurationInTicks / tps
}

func (a *Animation) nativeLayout() *native.Layout { return animationL.layout }

func (a *Animation) toNative(tc *Transcoder, _ native.Ptr, b []byte) error {
	f := animationL
	if err := tc.putString(b, f.name, a.Name); err != nil {
		return native.AtPath(err, "name")
	}
	native.F64.Put(b[f.duration:], a.DurationInTicks)
	native.F64.Put(b[f.ticksPerSecond:], a.TicksPerSecond)
	if err := writePtrArray(tc, b, f.numChannels, f.channels, a.NodeAnimationChannels, "channels", false); err != nil {
		return err
	}
	if err := writePtrArray(tc, b, f.numMeshChannels, f.meshChannels, a.MeshAnimationChannels, "meshChannels", false); err != nil {
		return err
	}
	return writePtrArray(tc, b, f.numMorphMeshChannels, f.morphMeshChannels, a.MeshMorphAnimationChannels, "morphMeshChannels", false)
}

func (a *Animation) fromNative(tc *Transcoder, b []byte) error {
	f := animationL
	*a = Animation{}
	name, err := tc.getString(b, f.name)
	if err != nil {
		return native.AtPath(err, "name")
	}
	if a.NodeAnimationChannels, err = readPtrArray[NodeAnimationChannel](tc, b, f.numChannels, f.channels, "channels", false); err != nil {
		return native.AtPath(err, name)
	}
	if a.MeshAnimationChannels, err = readPtrArray[MeshAnimationChannel](tc, b, f.numMeshChannels, f.meshChannels, "meshChannels", false); err != nil {
		return native.AtPath(err, name)
	}
	if a.MeshMorphAnimationChannels, err = readPtrArray[MeshMorphAnimationChannel](tc, b, f.numMorphMeshChannels, f.morphMeshChannels, "morphMeshChannels", false); err != nil {
		return native.AtPath(err, name)
	}
	a.Name = name
	a.DurationInTicks = native.F64.Decode(b[f.duration:])
	a.TicksPerSecond = native.F64.Decode(b[f.ticksPerSecond:])
	return nil
}

func (a *Animation) freeNative(tc *Transcoder, b []byte) error {
	f := animationL
	return errors.Join(
		freePtrArray[NodeAnimationChannel](tc, b, f.numChannels, f.channels),
		freePtrArray[MeshAnimationChannel](tc, b, f.numMeshChannels, f.meshChannels),
		freePtrArray[MeshMorphAnimationChannel](tc, b, f.numMorphMeshChannels, f.morphMeshChannels),
	)
}

func nilIfEmpty[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return s
}
