package classfile

import (
	"fmt"
	"strconv"
	"strings"
)

// Constant is a loadable constant: an ldc operand, a bootstrap method
// argument or an annotation value.
type Constant interface {
	fmt.Stringer
	isConstant()
}

type (
	IntConst        int32
	LongConst       int64
	FloatConst      float32
	DoubleConst     float64
	BoolConst       bool
	StringConst     string
	TypeConst       string // internal name or descriptor
	MethodTypeConst string // method descriptor
)

// Method handle reference kinds
const (
	RefGetField         = 1
	RefGetStatic        = 2
	RefPutField         = 3
	RefPutStatic        = 4
	RefInvokeVirtual    = 5
	RefInvokeStatic     = 6
	RefInvokeSpecial    = 7
	RefNewInvokeSpecial = 8
	RefInvokeInterface  = 9
)

// Handle is a CONSTANT_MethodHandle resolved to its member reference
type Handle struct {
	Tag        int
	Owner      string
	Name       string
	Descriptor string
	Interface  bool
}

// DynamicConst is a CONSTANT_Dynamic computed by a bootstrap method
type DynamicConst struct {
	Name          string
	Descriptor    string
	Bootstrap     Handle
	BootstrapArgs []Constant
}

func (IntConst) isConstant()        {}
func (LongConst) isConstant()       {}
func (FloatConst) isConstant()      {}
func (DoubleConst) isConstant()     {}
func (BoolConst) isConstant()       {}
func (StringConst) isConstant()     {}
func (TypeConst) isConstant()       {}
func (MethodTypeConst) isConstant() {}
func (Handle) isConstant()          {}
func (DynamicConst) isConstant()    {}

func (c IntConst) String() string    { return strconv.FormatInt(int64(c), 10) }
func (c LongConst) String() string   { return strconv.FormatInt(int64(c), 10) + "L" }
func (c FloatConst) String() string  { return strconv.FormatFloat(float64(c), 'g', -1, 32) + "F" }
func (c DoubleConst) String() string { return strconv.FormatFloat(float64(c), 'g', -1, 64) + "D" }
func (c BoolConst) String() string   { return strconv.FormatBool(bool(c)) }
func (c StringConst) String() string { return strconv.Quote(string(c)) }
func (c TypeConst) String() string   { return string(c) }

func (c MethodTypeConst) String() string { return string(c) }

func (h Handle) String() string {
	s := fmt.Sprintf("%s.%s%s (%d)", h.Owner, h.Name, h.Descriptor, h.Tag)
	if h.Interface {
		s += " itf"
	}
	return s
}

func (d DynamicConst) String() string {
	args := make([]string, len(d.BootstrapArgs))
	for i, a := range d.BootstrapArgs {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s:%s %s [%s]", d.Name, d.Descriptor, d.Bootstrap, strings.Join(args, ", "))
}
