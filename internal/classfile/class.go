package classfile

import (
	"fmt"
)

const Magic = 0xCAFEBABE

// Access flags used by the analyzer and the renderer
const (
	AccPublic    = 0x0001
	AccStatic    = 0x0008
	AccSynthetic = 0x1000
	AccAbstract  = 0x0400
	AccNative    = 0x0100
)

type Class struct {
	Name         string // internal name, e.g. com/example/MainKt
	SuperName    string
	Interfaces   []string
	Access       uint16
	MajorVersion uint16
	MinorVersion uint16
	SourceFile   string
	Methods      []*Method
	Pool         *ConstantPool
}

type Method struct {
	Owner        string
	Name         string
	Descriptor   string
	Access       uint16
	Annotations  []Annotation
	Instructions []Instruction
	HasCode      bool
	MaxStack     int
	MaxLocals    int

	raw *rawCode
}

// IntAnnotationValue looks up an int element of an annotation by descriptor
func (m *Method) IntAnnotationValue(descriptor, name string) (int32, bool) {
	for i := range m.Annotations {
		a := &m.Annotations[i]
		if a.Descriptor != descriptor {
			continue
		}
		v, ok := a.Element(name)
		if !ok {
			return 0, false
		}
		if c, ok := v.Const.(IntConst); ok {
			return int32(c), true
		}
		return 0, false
	}
	return 0, false
}

/*
ClassFile {
	u4 magic;
	u2 minor_version;
	u2 major_version;
	u2 constant_pool_count;
	cp_info constant_pool[constant_pool_count-1];
	u2 access_flags;
	u2 this_class;
	u2 super_class;
	u2 interfaces_count;
	u2 interfaces[interfaces_count];
	u2 fields_count;
	field_info fields[fields_count];
	u2 methods_count;
	method_info methods[methods_count];
	u2 attributes_count;
	attribute_info attributes[attributes_count];
}
*/

// Parse decodes a complete class file
func Parse(data []byte) (*Class, error) {
	br := NewBinaryReader(data)

	magic, err := br.ReadU4()
	if err != nil {
		return nil, fmt.Errorf("failed to read magic: %w", err)
	}
	if magic != Magic {
		return nil, &FormatError{Offset: 0, Err: fmt.Errorf("%w: 0x%08X", ErrInvalidMagic, magic)}
	}

	class := &Class{}
	if class.MinorVersion, err = br.ReadU2(); err != nil {
		return nil, fmt.Errorf("failed to read minor version: %w", err)
	}
	if class.MajorVersion, err = br.ReadU2(); err != nil {
		return nil, fmt.Errorf("failed to read major version: %w", err)
	}

	pool, err := parseConstantPool(br)
	if err != nil {
		return nil, fmt.Errorf("failed to parse constant pool: %w", err)
	}
	class.Pool = pool

	if class.Access, err = br.ReadU2(); err != nil {
		return nil, fmt.Errorf("failed to read access flags: %w", err)
	}
	thisIndex, err := br.ReadU2()
	if err != nil {
		return nil, fmt.Errorf("failed to read this_class: %w", err)
	}
	if class.Name, err = pool.ClassName(thisIndex); err != nil {
		return nil, fmt.Errorf("failed to resolve this_class: %w", err)
	}
	superIndex, err := br.ReadU2()
	if err != nil {
		return nil, fmt.Errorf("failed to read super_class: %w", err)
	}
	if superIndex != 0 { // java/lang/Object has no super class
		if class.SuperName, err = pool.ClassName(superIndex); err != nil {
			return nil, fmt.Errorf("failed to resolve super_class: %w", err)
		}
	}

	interfaces, err := br.ReadU2()
	if err != nil {
		return nil, fmt.Errorf("failed to read interfaces count: %w", err)
	}
	for i := 0; i < int(interfaces); i++ {
		idx, err := br.ReadU2()
		if err != nil {
			return nil, fmt.Errorf("failed to read interface %d: %w", i, err)
		}
		name, err := pool.ClassName(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve interface %d: %w", i, err)
		}
		class.Interfaces = append(class.Interfaces, name)
	}

	if err := skipFields(br, pool); err != nil {
		return nil, err
	}

	if class.Methods, err = parseMethods(br, pool, class.Name); err != nil {
		return nil, err
	}

	err = readAttributes(br, pool, func(name string, attr *BinaryReader) error {
		switch name {
		case "BootstrapMethods":
			bootstraps, err := parseBootstrapMethods(attr)
			if err != nil {
				return err
			}
			pool.bootstraps = bootstraps
		case "SourceFile":
			idx, err := attr.ReadU2()
			if err != nil {
				return err
			}
			if class.SourceFile, err = pool.UTF8(idx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read class attributes: %w", err)
	}

	for _, m := range class.Methods {
		if m.raw == nil {
			continue
		}
		if m.Instructions, err = decodeCode(m.raw, pool); err != nil {
			return nil, fmt.Errorf("failed to decode %s.%s%s: %w", class.Name, m.Name, m.Descriptor, err)
		}
		m.raw = nil
	}

	return class, nil
}

func skipFields(br *BinaryReader, pool *ConstantPool) error {
	count, err := br.ReadU2()
	if err != nil {
		return fmt.Errorf("failed to read fields count: %w", err)
	}
	for i := 0; i < int(count); i++ {
		// access_flags, name_index, descriptor_index
		if err := br.Skip(6); err != nil {
			return fmt.Errorf("failed to read field %d: %w", i, err)
		}
		if err := readAttributes(br, pool, nil); err != nil {
			return fmt.Errorf("failed to read field %d attributes: %w", i, err)
		}
	}
	return nil
}

func parseMethods(br *BinaryReader, pool *ConstantPool, owner string) ([]*Method, error) {
	count, err := br.ReadU2()
	if err != nil {
		return nil, fmt.Errorf("failed to read methods count: %w", err)
	}

	methods := make([]*Method, 0, count)
	for i := 0; i < int(count); i++ {
		m := &Method{Owner: owner}
		if m.Access, err = br.ReadU2(); err != nil {
			return nil, fmt.Errorf("failed to read method %d access: %w", i, err)
		}
		nameIndex, err := br.ReadU2()
		if err != nil {
			return nil, fmt.Errorf("failed to read method %d name: %w", i, err)
		}
		descIndex, err := br.ReadU2()
		if err != nil {
			return nil, fmt.Errorf("failed to read method %d descriptor: %w", i, err)
		}
		if m.Name, err = pool.UTF8(nameIndex); err != nil {
			return nil, fmt.Errorf("failed to resolve method %d name: %w", i, err)
		}
		if m.Descriptor, err = pool.UTF8(descIndex); err != nil {
			return nil, fmt.Errorf("failed to resolve method %d descriptor: %w", i, err)
		}

		err = readAttributes(br, pool, func(name string, attr *BinaryReader) error {
			switch name {
			case "Code":
				raw, err := parseCodeAttribute(attr, pool)
				if err != nil {
					return err
				}
				m.raw = raw
				m.HasCode = true
				m.MaxStack = raw.maxStack
				m.MaxLocals = raw.maxLocal
			case "RuntimeVisibleAnnotations", "RuntimeInvisibleAnnotations":
				annotations, err := parseAnnotations(attr, pool, name == "RuntimeVisibleAnnotations")
				if err != nil {
					return err
				}
				m.Annotations = append(m.Annotations, annotations...)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read method %s%s: %w", m.Name, m.Descriptor, err)
		}
		methods = append(methods, m)
	}
	return methods, nil
}

/*
BootstrapMethods_attribute {
	u2 num_bootstrap_methods;
	{ u2 bootstrap_method_ref; u2 num_bootstrap_arguments; u2 bootstrap_arguments[]; } bootstrap_methods[];
}
*/

func parseBootstrapMethods(br *BinaryReader) ([]BootstrapMethod, error) {
	count, err := br.ReadU2()
	if err != nil {
		return nil, fmt.Errorf("failed to read bootstrap method count: %w", err)
	}
	methods := make([]BootstrapMethod, 0, count)
	for i := 0; i < int(count); i++ {
		ref, err := br.ReadU2()
		if err != nil {
			return nil, fmt.Errorf("failed to read bootstrap method %d: %w", i, err)
		}
		n, err := br.ReadU2()
		if err != nil {
			return nil, fmt.Errorf("failed to read bootstrap method %d: %w", i, err)
		}
		bm := BootstrapMethod{MethodRef: ref, Args: make([]uint16, n)}
		for j := range bm.Args {
			if bm.Args[j], err = br.ReadU2(); err != nil {
				return nil, fmt.Errorf("failed to read bootstrap argument %d: %w", j, err)
			}
		}
		methods = append(methods, bm)
	}
	return methods, nil
}

// readAttributes walks an attribute table, handing each attribute body to fn
// through a bounded reader. A nil fn skips every attribute.
func readAttributes(br *BinaryReader, pool *ConstantPool, fn func(name string, attr *BinaryReader) error) error {
	count, err := br.ReadU2()
	if err != nil {
		return fmt.Errorf("failed to read attributes count: %w", err)
	}
	for i := 0; i < int(count); i++ {
		nameIndex, err := br.ReadU2()
		if err != nil {
			return fmt.Errorf("failed to read attribute name: %w", err)
		}
		length, err := br.ReadU4()
		if err != nil {
			return fmt.Errorf("failed to read attribute length: %w", err)
		}
		base := br.Offset()
		body, err := br.ReadNBytes(int(length))
		if err != nil {
			return fmt.Errorf("failed to read attribute body: %w", err)
		}
		if fn == nil {
			continue
		}
		name, err := pool.UTF8(nameIndex)
		if err != nil {
			return fmt.Errorf("failed to resolve attribute name: %w", err)
		}
		if err := fn(name, newSubReader(body, base)); err != nil {
			return fmt.Errorf("failed to parse %s attribute: %w", name, err)
		}
	}
	return nil
}
