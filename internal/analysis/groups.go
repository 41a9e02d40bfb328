package analysis

import (
	"github.com/mabhi256/hotscope/internal/classfile"
)

type marker struct {
	scope ScopeType
	open  bool
}

var markers = map[string]marker{
	"startReplaceGroup":            {ScopeReplaceGroup, true},
	"endReplaceGroup":              {ScopeReplaceGroup, false},
	"startRestartGroup":            {ScopeRestartGroup, true},
	"endRestartGroup":              {ScopeRestartGroup, false},
	"sourceInformationMarkerStart": {ScopeSourceInformationMarker, true},
	"sourceInformationMarkerEnd":   {ScopeSourceInformationMarker, false},
}

// trackGroup opens or closes a scope when insns[i] is a group marker call
func (a *Analyzer) trackGroup(ctx *methodContext, insns []classfile.Instruction, i int) {
	call, ok := insns[i].(classfile.MethodInsn)
	if !ok || !a.cfg.isComposer(call.Owner) {
		return
	}
	m, ok := markers[call.Name]
	if !ok {
		return
	}

	if !m.open {
		ctx.pop(m.scope)
		return
	}

	key, ok := groupKeyArgument(insns, i, m.scope == ScopeSourceInformationMarker)
	if !ok {
		return
	}
	ctx.push(m.scope, Group(key))
}

// groupKeyArgument resolves the int literal passed as the group key of the
// marker call at insns[i]. sourceInformationMarkerStart takes a trailing
// source-information string, which is stepped over.
func groupKeyArgument(insns []classfile.Instruction, i int, skipString bool) (int32, bool) {
	prev := previous(insns, i)
	if prev < 0 {
		return 0, false
	}
	if skipString {
		if ldc, ok := insns[prev].(classfile.LdcInsn); ok {
			if _, isString := ldc.Value.(classfile.StringConst); isString {
				if prev = previous(insns, prev); prev < 0 {
					return 0, false
				}
			}
		}
	}
	return intLiteral(insns[prev])
}

// previous returns the index of the closest real instruction before i
func previous(insns []classfile.Instruction, i int) int {
	for j := i - 1; j >= 0; j-- {
		if insns[j].Opcode() >= 0 {
			return j
		}
	}
	return -1
}

func intLiteral(insn classfile.Instruction) (int32, bool) {
	switch v := insn.(type) {
	case classfile.SimpleInsn:
		if v.Op >= classfile.ICONST_M1 && v.Op <= classfile.ICONST_5 {
			return int32(v.Op - classfile.ICONST_0), true
		}
	case classfile.IntInsn:
		if v.Op == classfile.BIPUSH || v.Op == classfile.SIPUSH {
			return int32(v.Operand), true
		}
	case classfile.LdcInsn:
		if c, ok := v.Value.(classfile.IntConst); ok {
			return int32(c), true
		}
	}
	return 0, false
}
