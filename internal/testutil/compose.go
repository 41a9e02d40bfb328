package testutil

const (
	Composer       = "androidx/compose/runtime/Composer"
	ComposerKt     = "androidx/compose/runtime/ComposerKt"
	FunctionKey    = "Landroidx/compose/runtime/internal/FunctionKeyMeta;"
	LambdaFactory  = "java/lang/invoke/LambdaMetafactory"
	RememberKey    = int32(1849434622)
	ComposableDesc = "(Landroidx/compose/runtime/Composer;I)V"

	// composer is passed in local slot 0 of static composable functions
	composerSlot = 0
)

// Composable starts a static composable method taking (Composer, int)
func (b *ClassBuilder) Composable(name string) *CodeBuilder {
	return b.Method(0x0019, name, ComposableDesc)
}

func (c *CodeBuilder) loadComposer() *CodeBuilder {
	return c.Op(0x2a + composerSlot) // aload_0
}

func (c *CodeBuilder) StartRestartGroup(key int32) *CodeBuilder {
	return c.loadComposer().
		Int(key).
		InvokeInterface(Composer, "startRestartGroup", "(I)Landroidx/compose/runtime/Composer;", 1).
		Var(0x3a, 2) // astore 2
}

func (c *CodeBuilder) EndRestartGroup() *CodeBuilder {
	return c.loadComposer().
		InvokeInterface(Composer, "endRestartGroup", "()Landroidx/compose/runtime/ScopeUpdateScope;", 0).
		Op(0x57) // pop
}

func (c *CodeBuilder) StartReplaceGroup(key int32) *CodeBuilder {
	return c.loadComposer().
		Int(key).
		InvokeInterface(Composer, "startReplaceGroup", "(I)V", 1)
}

func (c *CodeBuilder) EndReplaceGroup() *CodeBuilder {
	return c.loadComposer().
		InvokeInterface(Composer, "endReplaceGroup", "()V", 0)
}

// SourceMarkerStart mirrors sourceInformationMarkerStart(composer, key, info)
func (c *CodeBuilder) SourceMarkerStart(key int32, info string) *CodeBuilder {
	return c.loadComposer().
		Int(key).
		Ldc(info).
		Invoke(0xb8, ComposerKt, "sourceInformationMarkerStart", "(Landroidx/compose/runtime/Composer;ILjava/lang/String;)V")
}

func (c *CodeBuilder) SourceMarkerEnd() *CodeBuilder {
	return c.loadComposer().
		Invoke(0xb8, ComposerKt, "sourceInformationMarkerEnd", "(Landroidx/compose/runtime/Composer;)V")
}

// Remember emits a remember block around a constant computation the way
// the compose compiler lowers remember { value }
func (c *CodeBuilder) Remember(value int32) *CodeBuilder {
	return c.StartReplaceGroup(RememberKey).
		Int(value).
		Invoke(0xb8, "java/lang/Integer", "valueOf", "(I)Ljava/lang/Integer;").
		Op(0x57).
		EndReplaceGroup()
}

// CallStatic emits an invokestatic of a composable-style function
func (c *CodeBuilder) CallStatic(owner, name, desc string) *CodeBuilder {
	return c.Invoke(0xb8, owner, name, desc)
}

// Println emits System.out.println(s)
func (c *CodeBuilder) Println(s string) *CodeBuilder {
	return c.Field(0xb2, "java/lang/System", "out", "Ljava/io/PrintStream;").
		Ldc(s).
		Invoke(0xb6, "java/io/PrintStream", "println", "(Ljava/lang/Object;)V")
}

// Lambda emits a LambdaMetafactory call site whose implementation is impl
func (c *CodeBuilder) Lambda(implOwner, implName, implDesc string) *CodeBuilder {
	bsm := Handle{
		Kind:       6,
		Owner:      LambdaFactory,
		Name:       "metafactory",
		Descriptor: "(Ljava/lang/invoke/MethodHandles$Lookup;Ljava/lang/String;Ljava/lang/invoke/MethodType;Ljava/lang/invoke/MethodType;Ljava/lang/invoke/MethodHandle;Ljava/lang/invoke/MethodType;)Ljava/lang/invoke/CallSite;",
	}
	return c.InvokeDynamic("invoke", "()Lkotlin/jvm/functions/Function0;", bsm,
		MethodType("()Ljava/lang/Object;"),
		Handle{Kind: 6, Owner: implOwner, Name: implName, Descriptor: implDesc},
		MethodType("()Ljava/lang/Object;"),
	)
}

// FunctionKeyMeta attaches the compiler's function key annotation
func (c *CodeBuilder) FunctionKeyMeta(key int32) *CodeBuilder {
	return c.IntAnnotation(FunctionKey, "key", key, false)
}

func (c *CodeBuilder) Return() *CodeBuilder {
	return c.Op(0xb1)
}
