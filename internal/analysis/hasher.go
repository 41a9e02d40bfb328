package analysis

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/mabhi256/hotscope/internal/classfile"
)

// constant kind tags, folded ahead of each constant's bytes
const (
	constInt byte = iota + 1
	constLong
	constFloat
	constDouble
	constBool
	constString
	constType
	constMethodType
	constHandle
	constDynamic
	constOther
)

// Hasher folds instructions into a running 64-bit checksum. Strings are
// length-prefixed and numbers big-endian so adjacent fields cannot alias.
type Hasher struct {
	d   *xxhash.Digest
	buf [8]byte
}

func NewHasher() *Hasher {
	return &Hasher{d: xxhash.New()}
}

func (h *Hasher) Sum64() uint64 {
	return h.d.Sum64()
}

func (h *Hasher) writeByte(b byte) {
	h.buf[0] = b
	_, _ = h.d.Write(h.buf[:1])
}

func (h *Hasher) writeInt32(v int32) {
	binary.BigEndian.PutUint32(h.buf[:4], uint32(v))
	_, _ = h.d.Write(h.buf[:4])
}

func (h *Hasher) writeUint64(v uint64) {
	binary.BigEndian.PutUint64(h.buf[:8], v)
	_, _ = h.d.Write(h.buf[:8])
}

func (h *Hasher) writeBool(v bool) {
	if v {
		h.writeByte(1)
	} else {
		h.writeByte(0)
	}
}

func (h *Hasher) writeString(s string) {
	h.writeInt32(int32(len(s)))
	_, _ = h.d.WriteString(s)
}

// Instruction folds one instruction. Pseudo-instructions contribute nothing.
func (h *Hasher) Instruction(insn classfile.Instruction) {
	if op := insn.Opcode(); op > 0 {
		h.writeInt32(int32(op))
	}

	switch i := insn.(type) {
	case classfile.MethodInsn:
		h.writeString(i.Owner)
		h.writeString(i.Name)
		h.writeString(i.Descriptor)
		h.writeBool(i.Interface)
	case classfile.FieldInsn:
		h.writeString(i.Owner)
		h.writeString(i.Name)
		h.writeString(i.Descriptor)
	case classfile.LdcInsn:
		h.Constant(i.Value)
	case classfile.InvokeDynamicInsn:
		h.writeString(i.Name)
		h.writeString(i.Descriptor)
		h.handle(i.Bootstrap)
		for _, arg := range i.BootstrapArgs {
			h.Constant(arg)
		}
	case classfile.IntInsn:
		h.writeInt32(int32(i.Operand))
	case classfile.VarInsn:
		h.writeInt32(int32(i.Slot))
	case classfile.IincInsn:
		h.writeInt32(int32(i.Slot))
		h.writeInt32(int32(i.Increment))
	case classfile.TypeInsn:
		h.writeString(i.Descriptor)
		h.writeInt32(int32(i.Dimensions))
	case classfile.SwitchInsn:
		h.writeInt32(int32(len(i.Keys)))
		for _, k := range i.Keys {
			h.writeInt32(k)
		}
	case classfile.JumpInsn, classfile.SimpleInsn, classfile.LineNumber:
		// branch offsets move with unrelated edits; only the opcode counts
	}
}

// Constant folds a loadable constant using its canonical byte form
func (h *Hasher) Constant(c classfile.Constant) {
	switch v := c.(type) {
	case classfile.IntConst:
		h.writeByte(constInt)
		h.writeInt32(int32(v))
	case classfile.LongConst:
		h.writeByte(constLong)
		h.writeUint64(uint64(v))
	case classfile.FloatConst:
		h.writeByte(constFloat)
		h.writeInt32(int32(math.Float32bits(float32(v))))
	case classfile.DoubleConst:
		h.writeByte(constDouble)
		h.writeUint64(math.Float64bits(float64(v)))
	case classfile.BoolConst:
		h.writeByte(constBool)
		h.writeBool(bool(v))
	case classfile.StringConst:
		h.writeByte(constString)
		h.writeString(string(v))
	case classfile.TypeConst:
		h.writeByte(constType)
		h.writeString(string(v))
	case classfile.MethodTypeConst:
		h.writeByte(constMethodType)
		h.writeString(string(v))
	case classfile.Handle:
		h.writeByte(constHandle)
		h.handle(v)
	case classfile.DynamicConst:
		h.writeByte(constDynamic)
		h.writeString(v.Name)
		h.writeString(v.Descriptor)
		h.handle(v.Bootstrap)
		for _, arg := range v.BootstrapArgs {
			h.Constant(arg)
		}
	default:
		h.writeByte(constOther)
		if c != nil {
			h.writeString(c.String())
		}
	}
}

func (h *Hasher) handle(v classfile.Handle) {
	h.writeString(v.Name)
	h.writeString(v.Owner)
	h.writeInt32(int32(v.Tag))
	h.writeString(v.Descriptor)
	h.writeBool(v.Interface)
}
