package classfile

import "fmt"

/*
annotation {
	u2 type_index;
	u2 num_element_value_pairs;
	{ u2 element_name_index; element_value value; } element_value_pairs[num_element_value_pairs];
}

element_value {
	u1 tag;
	union {
		u2 const_value_index;                          // B C D F I J S Z s
		{ u2 type_name_index; u2 const_name_index; }   // e
		u2 class_info_index;                           // c
		annotation annotation_value;                   // @
		{ u2 num_values; element_value values[]; }     // [
	}
}
*/

type Annotation struct {
	Descriptor string
	Visible    bool
	Elements   []Element
}

type Element struct {
	Name  string
	Value ElementValue
}

// ElementValue holds one annotation element. Tag selects the populated field.
type ElementValue struct {
	Tag        byte
	Const      Constant
	EnumType   string
	EnumName   string
	Class      string
	Annotation *Annotation
	Array      []ElementValue
}

// Element returns the value of a named element
func (a *Annotation) Element(name string) (ElementValue, bool) {
	for _, e := range a.Elements {
		if e.Name == name {
			return e.Value, true
		}
	}
	return ElementValue{}, false
}

func parseAnnotations(br *BinaryReader, pool *ConstantPool, visible bool) ([]Annotation, error) {
	count, err := br.ReadU2()
	if err != nil {
		return nil, fmt.Errorf("failed to read annotation count: %w", err)
	}
	annotations := make([]Annotation, 0, count)
	for i := 0; i < int(count); i++ {
		a, err := parseAnnotation(br, pool)
		if err != nil {
			return nil, fmt.Errorf("failed to read annotation %d: %w", i, err)
		}
		a.Visible = visible
		annotations = append(annotations, *a)
	}
	return annotations, nil
}

func parseAnnotation(br *BinaryReader, pool *ConstantPool) (*Annotation, error) {
	typeIndex, err := br.ReadU2()
	if err != nil {
		return nil, err
	}
	desc, err := pool.UTF8(typeIndex)
	if err != nil {
		return nil, err
	}
	pairs, err := br.ReadU2()
	if err != nil {
		return nil, err
	}

	a := &Annotation{Descriptor: desc}
	for i := 0; i < int(pairs); i++ {
		nameIndex, err := br.ReadU2()
		if err != nil {
			return nil, err
		}
		name, err := pool.UTF8(nameIndex)
		if err != nil {
			return nil, err
		}
		value, err := parseElementValue(br, pool)
		if err != nil {
			return nil, fmt.Errorf("failed to read element %q: %w", name, err)
		}
		a.Elements = append(a.Elements, Element{Name: name, Value: value})
	}
	return a, nil
}

func parseElementValue(br *BinaryReader, pool *ConstantPool) (ElementValue, error) {
	tag, err := br.ReadU1()
	if err != nil {
		return ElementValue{}, err
	}
	v := ElementValue{Tag: tag}

	switch tag {
	case 'B', 'C', 'I', 'S', 'Z', 'J', 'F', 'D':
		idx, err := br.ReadU2()
		if err != nil {
			return v, err
		}
		c, err := pool.Loadable(idx)
		if err != nil {
			return v, err
		}
		if tag == 'Z' {
			if i, ok := c.(IntConst); ok {
				c = BoolConst(i != 0)
			}
		}
		v.Const = c
	case 's':
		idx, err := br.ReadU2()
		if err != nil {
			return v, err
		}
		s, err := pool.UTF8(idx)
		if err != nil {
			return v, err
		}
		v.Const = StringConst(s)
	case 'e':
		typeIndex, err := br.ReadU2()
		if err != nil {
			return v, err
		}
		nameIndex, err := br.ReadU2()
		if err != nil {
			return v, err
		}
		if v.EnumType, err = pool.UTF8(typeIndex); err != nil {
			return v, err
		}
		if v.EnumName, err = pool.UTF8(nameIndex); err != nil {
			return v, err
		}
	case 'c':
		idx, err := br.ReadU2()
		if err != nil {
			return v, err
		}
		if v.Class, err = pool.UTF8(idx); err != nil {
			return v, err
		}
	case '@':
		if v.Annotation, err = parseAnnotation(br, pool); err != nil {
			return v, err
		}
	case '[':
		n, err := br.ReadU2()
		if err != nil {
			return v, err
		}
		for i := 0; i < int(n); i++ {
			elem, err := parseElementValue(br, pool)
			if err != nil {
				return v, err
			}
			v.Array = append(v.Array, elem)
		}
	default:
		return v, &FormatError{Offset: br.Offset() - 1, Err: fmt.Errorf("%w: element value tag %q", ErrBadConstant, tag)}
	}
	return v, nil
}
