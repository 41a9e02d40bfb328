package classfile

import (
	"fmt"
	"strings"
)

// Instruction is one decoded entry of a method body. The set of kinds is
// closed; consumers switch on the concrete type.
type Instruction interface {
	Opcode() int
	String() string
	isInstruction()
}

// MethodInsn is invokevirtual, invokespecial, invokestatic or invokeinterface
type MethodInsn struct {
	Op         int
	Owner      string
	Name       string
	Descriptor string
	Interface  bool
}

// FieldInsn is getstatic, putstatic, getfield or putfield
type FieldInsn struct {
	Op         int
	Owner      string
	Name       string
	Descriptor string
}

// LdcInsn is ldc, ldc_w or ldc2_w
type LdcInsn struct {
	Op    int
	Value Constant
}

type InvokeDynamicInsn struct {
	Name          string
	Descriptor    string
	Bootstrap     Handle
	BootstrapArgs []Constant
}

// IntInsn is bipush, sipush or newarray
type IntInsn struct {
	Op      int
	Operand int
}

// VarInsn is a local variable load or store, or ret. Short forms such as
// aload_0 keep their opcode and carry the implied slot.
type VarInsn struct {
	Op   int
	Slot int
}

type IincInsn struct {
	Slot      int
	Increment int
}

// TypeInsn is new, anewarray, checkcast, instanceof or multianewarray
type TypeInsn struct {
	Op         int
	Descriptor string
	Dimensions int
}

type JumpInsn struct {
	Op     int
	Target int // absolute bytecode offset
}

// SwitchInsn is tableswitch or lookupswitch
type SwitchInsn struct {
	Op      int
	Default int
	Keys    []int32
	Targets []int
}

// SimpleInsn carries no operand
type SimpleInsn struct {
	Op int
}

// LineNumber is a pseudo-instruction synthesised from LineNumberTable
type LineNumber struct {
	Line int
}

func (i MethodInsn) Opcode() int        { return i.Op }
func (i FieldInsn) Opcode() int         { return i.Op }
func (i LdcInsn) Opcode() int           { return i.Op }
func (i InvokeDynamicInsn) Opcode() int { return INVOKEDYNAMIC }
func (i IntInsn) Opcode() int           { return i.Op }
func (i VarInsn) Opcode() int           { return i.Op }
func (i IincInsn) Opcode() int          { return IINC }
func (i TypeInsn) Opcode() int          { return i.Op }
func (i JumpInsn) Opcode() int          { return i.Op }
func (i SwitchInsn) Opcode() int        { return i.Op }
func (i SimpleInsn) Opcode() int        { return i.Op }
func (i LineNumber) Opcode() int        { return PseudoOpcode }

func (MethodInsn) isInstruction()        {}
func (FieldInsn) isInstruction()         {}
func (LdcInsn) isInstruction()           {}
func (InvokeDynamicInsn) isInstruction() {}
func (IntInsn) isInstruction()           {}
func (VarInsn) isInstruction()           {}
func (IincInsn) isInstruction()          {}
func (TypeInsn) isInstruction()          {}
func (JumpInsn) isInstruction()          {}
func (SwitchInsn) isInstruction()        {}
func (SimpleInsn) isInstruction()        {}
func (LineNumber) isInstruction()        {}

func (i MethodInsn) String() string {
	return fmt.Sprintf("%s %s.%s%s", OpcodeName(i.Op), i.Owner, i.Name, i.Descriptor)
}

func (i FieldInsn) String() string {
	return fmt.Sprintf("%s %s.%s:%s", OpcodeName(i.Op), i.Owner, i.Name, i.Descriptor)
}

func (i LdcInsn) String() string {
	return fmt.Sprintf("%s %s", OpcodeName(i.Op), i.Value)
}

func (i InvokeDynamicInsn) String() string {
	return fmt.Sprintf("invokedynamic %s%s [%s]", i.Name, i.Descriptor, i.Bootstrap)
}

func (i IntInsn) String() string {
	return fmt.Sprintf("%s %d", OpcodeName(i.Op), i.Operand)
}

func (i VarInsn) String() string {
	if isLoadShortForm(i.Op) || isStoreShortForm(i.Op) {
		return OpcodeName(i.Op)
	}
	return fmt.Sprintf("%s %d", OpcodeName(i.Op), i.Slot)
}

func (i IincInsn) String() string {
	return fmt.Sprintf("iinc %d %d", i.Slot, i.Increment)
}

func (i TypeInsn) String() string {
	if i.Op == MULTIANEWARRAY {
		return fmt.Sprintf("multianewarray %s %d", i.Descriptor, i.Dimensions)
	}
	return fmt.Sprintf("%s %s", OpcodeName(i.Op), i.Descriptor)
}

func (i JumpInsn) String() string {
	return fmt.Sprintf("%s @%d", OpcodeName(i.Op), i.Target)
}

func (i SwitchInsn) String() string {
	keys := make([]string, len(i.Keys))
	for k, key := range i.Keys {
		keys[k] = fmt.Sprintf("%d:@%d", key, i.Targets[k])
	}
	return fmt.Sprintf("%s {%s default:@%d}", OpcodeName(i.Op), strings.Join(keys, " "), i.Default)
}

func (i SimpleInsn) String() string { return OpcodeName(i.Op) }
func (i LineNumber) String() string { return fmt.Sprintf("line %d", i.Line) }
