package analysis

import (
	"github.com/mabhi256/hotscope/internal/classfile"
)

// trackDependency records static calls and lambda implementation targets
// on the innermost open scope
func (a *Analyzer) trackDependency(ctx *methodContext, insn classfile.Instruction) {
	switch i := insn.(type) {
	case classfile.MethodInsn:
		if i.Op != classfile.INVOKESTATIC || a.cfg.Ignored(i.Owner) {
			return
		}
		ctx.addDependency(MethodId{ClassId: i.Owner, Name: i.Name, Descriptor: i.Descriptor})

	case classfile.InvokeDynamicInsn:
		if i.Bootstrap.Owner != a.cfg.LambdaMetafactory || len(i.BootstrapArgs) < 2 {
			return
		}
		impl, ok := i.BootstrapArgs[1].(classfile.Handle)
		if !ok {
			return
		}
		ctx.addDependency(MethodId{ClassId: impl.Owner, Name: impl.Name, Descriptor: impl.Descriptor})
	}
}
