package classfile

import (
	"fmt"
	"math"
	"unicode/utf16"
)

// Constant pool tags
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
	TagModule             = 19
	TagPackage            = 20
)

/*
cp_info {
	u1 tag;
	u1 info[];
}

CONSTANT_Utf8         u2 length, u1 bytes[length]
CONSTANT_Integer      u4 bytes
CONSTANT_Float        u4 bytes
CONSTANT_Long         u4 high_bytes, u4 low_bytes    (takes two slots)
CONSTANT_Double       u4 high_bytes, u4 low_bytes    (takes two slots)
CONSTANT_Class        u2 name_index
CONSTANT_String       u2 string_index
CONSTANT_*ref         u2 class_index, u2 name_and_type_index
CONSTANT_NameAndType  u2 name_index, u2 descriptor_index
CONSTANT_MethodHandle u1 reference_kind, u2 reference_index
CONSTANT_MethodType   u2 descriptor_index
CONSTANT_Dynamic      u2 bootstrap_method_attr_index, u2 name_and_type_index
CONSTANT_InvokeDynamic (same as Dynamic)
CONSTANT_Module       u2 name_index
CONSTANT_Package      u2 name_index
*/

type cpEntry struct {
	tag  uint8
	a, b uint16 // index operands
	num  uint64 // raw numeric payload
	str  string
}

// BootstrapMethod is an entry of the BootstrapMethods class attribute
type BootstrapMethod struct {
	MethodRef uint16
	Args      []uint16
}

// ConstantPool resolves symbolic references of a single class
type ConstantPool struct {
	entries    []cpEntry // index 0 is unused
	bootstraps []BootstrapMethod
}

func parseConstantPool(br *BinaryReader) (*ConstantPool, error) {
	count, err := br.ReadU2()
	if err != nil {
		return nil, fmt.Errorf("failed to read constant pool count: %w", err)
	}

	pool := &ConstantPool{entries: make([]cpEntry, count)}
	for i := 1; i < int(count); i++ {
		start := br.Offset()
		tag, err := br.ReadU1()
		if err != nil {
			return nil, fmt.Errorf("failed to read constant %d tag: %w", i, err)
		}

		entry := cpEntry{tag: tag}
		switch tag {
		case TagUtf8:
			length, err := br.ReadU2()
			if err != nil {
				return nil, fmt.Errorf("failed to read utf8 length: %w", err)
			}
			raw, err := br.ReadNBytes(int(length))
			if err != nil {
				return nil, fmt.Errorf("failed to read utf8 data: %w", err)
			}
			entry.str = decodeModifiedUTF8(raw)
		case TagInteger, TagFloat:
			v, err := br.ReadU4()
			if err != nil {
				return nil, fmt.Errorf("failed to read constant %d: %w", i, err)
			}
			entry.num = uint64(v)
		case TagLong, TagDouble:
			v, err := br.ReadU8()
			if err != nil {
				return nil, fmt.Errorf("failed to read constant %d: %w", i, err)
			}
			entry.num = v
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			if entry.a, err = br.ReadU2(); err != nil {
				return nil, fmt.Errorf("failed to read constant %d: %w", i, err)
			}
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			if entry.a, err = br.ReadU2(); err != nil {
				return nil, fmt.Errorf("failed to read constant %d: %w", i, err)
			}
			if entry.b, err = br.ReadU2(); err != nil {
				return nil, fmt.Errorf("failed to read constant %d: %w", i, err)
			}
		case TagMethodHandle:
			kind, err := br.ReadU1()
			if err != nil {
				return nil, fmt.Errorf("failed to read method handle kind: %w", err)
			}
			entry.a = uint16(kind)
			if entry.b, err = br.ReadU2(); err != nil {
				return nil, fmt.Errorf("failed to read method handle reference: %w", err)
			}
		default:
			return nil, &FormatError{Offset: start, Err: fmt.Errorf("%w: unknown tag %d at index %d", ErrBadConstant, tag, i)}
		}

		pool.entries[i] = entry
		if tag == TagLong || tag == TagDouble {
			i++ // 8-byte constants occupy two slots
		}
	}
	return pool, nil
}

// Len returns constant_pool_count
func (cp *ConstantPool) Len() int {
	return len(cp.entries)
}

func (cp *ConstantPool) entry(i uint16, tags ...uint8) (cpEntry, error) {
	if i == 0 || int(i) >= len(cp.entries) {
		return cpEntry{}, fmt.Errorf("%w: index %d out of range", ErrBadConstant, i)
	}
	e := cp.entries[i]
	for _, t := range tags {
		if e.tag == t {
			return e, nil
		}
	}
	return cpEntry{}, fmt.Errorf("%w: index %d has tag %d, want %v", ErrBadConstant, i, e.tag, tags)
}

// UTF8 returns the string at a CONSTANT_Utf8 index
func (cp *ConstantPool) UTF8(i uint16) (string, error) {
	e, err := cp.entry(i, TagUtf8)
	if err != nil {
		return "", err
	}
	return e.str, nil
}

// ClassName returns the internal name referenced by a CONSTANT_Class index
func (cp *ConstantPool) ClassName(i uint16) (string, error) {
	e, err := cp.entry(i, TagClass)
	if err != nil {
		return "", err
	}
	return cp.UTF8(e.a)
}

func (cp *ConstantPool) NameAndType(i uint16) (name, descriptor string, err error) {
	e, err := cp.entry(i, TagNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = cp.UTF8(e.a); err != nil {
		return "", "", err
	}
	if descriptor, err = cp.UTF8(e.b); err != nil {
		return "", "", err
	}
	return name, descriptor, nil
}

// MemberRef resolves a Fieldref, Methodref or InterfaceMethodref
func (cp *ConstantPool) MemberRef(i uint16) (owner, name, descriptor string, iface bool, err error) {
	e, err := cp.entry(i, TagFieldref, TagMethodref, TagInterfaceMethodref)
	if err != nil {
		return "", "", "", false, err
	}
	if owner, err = cp.ClassName(e.a); err != nil {
		return "", "", "", false, err
	}
	if name, descriptor, err = cp.NameAndType(e.b); err != nil {
		return "", "", "", false, err
	}
	return owner, name, descriptor, e.tag == TagInterfaceMethodref, nil
}

// MethodHandle resolves a CONSTANT_MethodHandle
func (cp *ConstantPool) MethodHandle(i uint16) (Handle, error) {
	e, err := cp.entry(i, TagMethodHandle)
	if err != nil {
		return Handle{}, err
	}
	owner, name, desc, iface, err := cp.MemberRef(e.b)
	if err != nil {
		return Handle{}, err
	}
	return Handle{Tag: int(e.a), Owner: owner, Name: name, Descriptor: desc, Interface: iface}, nil
}

// InvokeDynamic resolves a CONSTANT_InvokeDynamic call site
func (cp *ConstantPool) InvokeDynamic(i uint16) (name, descriptor string, bsm Handle, args []Constant, err error) {
	e, err := cp.entry(i, TagInvokeDynamic)
	if err != nil {
		return "", "", Handle{}, nil, err
	}
	if name, descriptor, err = cp.NameAndType(e.b); err != nil {
		return "", "", Handle{}, nil, err
	}
	bsm, args, err = cp.bootstrap(e.a, nil)
	return name, descriptor, bsm, args, err
}

// bootstrap resolves a bootstrap method and its static arguments. resolving
// holds the dynamic constants currently being resolved on this path.
func (cp *ConstantPool) bootstrap(index uint16, resolving map[uint16]bool) (Handle, []Constant, error) {
	if int(index) >= len(cp.bootstraps) {
		return Handle{}, nil, fmt.Errorf("%w: bootstrap method %d out of range", ErrBadConstant, index)
	}
	bm := cp.bootstraps[index]
	handle, err := cp.MethodHandle(bm.MethodRef)
	if err != nil {
		return Handle{}, nil, fmt.Errorf("failed to resolve bootstrap method %d: %w", index, err)
	}
	args := make([]Constant, 0, len(bm.Args))
	for _, a := range bm.Args {
		c, err := cp.loadable(a, resolving)
		if err != nil {
			return Handle{}, nil, fmt.Errorf("failed to resolve bootstrap argument %d: %w", a, err)
		}
		args = append(args, c)
	}
	return handle, args, nil
}

// Loadable resolves any constant that ldc or a bootstrap argument may load
func (cp *ConstantPool) Loadable(i uint16) (Constant, error) {
	return cp.loadable(i, nil)
}

func (cp *ConstantPool) loadable(i uint16, resolving map[uint16]bool) (Constant, error) {
	e, err := cp.entry(i, TagInteger, TagFloat, TagLong, TagDouble, TagString,
		TagClass, TagMethodType, TagMethodHandle, TagDynamic)
	if err != nil {
		return nil, err
	}

	switch e.tag {
	case TagInteger:
		return IntConst(int32(uint32(e.num))), nil
	case TagFloat:
		return FloatConst(math.Float32frombits(uint32(e.num))), nil
	case TagLong:
		return LongConst(int64(e.num)), nil
	case TagDouble:
		return DoubleConst(math.Float64frombits(e.num)), nil
	case TagString:
		s, err := cp.UTF8(e.a)
		return StringConst(s), err
	case TagClass:
		s, err := cp.UTF8(e.a)
		return TypeConst(s), err
	case TagMethodType:
		s, err := cp.UTF8(e.a)
		return MethodTypeConst(s), err
	case TagMethodHandle:
		return cp.MethodHandle(i)
	default: // TagDynamic
		if resolving[i] {
			return nil, fmt.Errorf("%w: cyclic dynamic constant %d", ErrBadConstant, i)
		}
		name, desc, err := cp.NameAndType(e.b)
		if err != nil {
			return nil, err
		}
		if resolving == nil {
			resolving = make(map[uint16]bool)
		}
		resolving[i] = true
		defer delete(resolving, i)

		bsm, args, err := cp.bootstrap(e.a, resolving)
		if err != nil {
			return nil, err
		}
		return DynamicConst{Name: name, Descriptor: desc, Bootstrap: bsm, BootstrapArgs: args}, nil
	}
}

// decodeModifiedUTF8 decodes the JVM's modified UTF-8: NUL is encoded as
// 0xC0 0x80 and supplementary characters as surrogate pairs
func decodeModifiedUTF8(b []byte) string {
	ascii := true
	for _, c := range b {
		if c >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return string(b)
	}

	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0 && i+1 < len(b):
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0 && i+2 < len(b):
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			units = append(units, 0xFFFD)
			i++
		}
	}
	return string(utf16.Decode(units))
}
