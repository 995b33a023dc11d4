package scene

import (
	"github.com/Faultbox/assetbridge/pkg/math"
	"github.com/Faultbox/assetbridge/pkg/native"
)

// VertexWeight is the influence of a bone on one vertex.
type VertexWeight struct {
	VertexID uint32
	Weight   float32
}

// Bone binds a node of the hierarchy to the vertices it deforms.
type Bone struct {
	Name string
	// OffsetMatrix transforms from mesh space to bone space in bind pose.
	OffsetMatrix  math.Mat4
	VertexWeights []VertexWeight
}

func (bn *Bone) VertexWeightCount() int { return len(bn.VertexWeights) }

func (bn *Bone) HasVertexWeights() bool { return len(bn.VertexWeights) > 0 }

func (bn *Bone) nativeLayout() *native.Layout { return boneL.layout }

func (bn *Bone) toNative(tc *Transcoder, _ native.Ptr, b []byte) error {
	f := boneL
	if err := tc.putString(b, f.name, bn.Name); err != nil {
		return native.AtPath(err, "name")
	}
	native.Mat4.Put(b[f.offsetMatrix:], bn.OffsetMatrix)
	if err := writeValues(tc, b, f.weights, vertexWeightCodec, bn.VertexWeights); err != nil {
		return err
	}
	putU32(b, f.numWeights, uint32(len(bn.VertexWeights)))
	return nil
}

func (bn *Bone) fromNative(tc *Transcoder, b []byte) error {
	f := boneL
	*bn = Bone{}
	name, err := tc.getString(b, f.name)
	if err != nil {
		return native.AtPath(err, "name")
	}
	weights, err := readValues(tc, b, f.weights, vertexWeightCodec, u32At(b, f.numWeights), "weights")
	if err != nil {
		return native.AtPath(err, name)
	}
	bn.Name = name
	bn.OffsetMatrix = native.Mat4.Decode(b[f.offsetMatrix:])
	if len(weights) > 0 {
		bn.VertexWeights = weights
	}
	return nil
}

func (bn *Bone) freeNative(tc *Transcoder, b []byte) error {
	return freeAt(tc, b, boneL.weights)
}
