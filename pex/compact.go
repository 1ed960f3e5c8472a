package pex

// CompactStrings drops string table entries that nothing in the container
// references and renumbers the rest. Encode never does this on its own, so
// an unmodified container always re-encodes to the bytes it came from.
// It returns the number of entries removed.
func (c *Container) CompactStrings() int {
	inUse := make(map[*TString]bool, c.strings.Len())
	c.walkStrings(func(s *TString) {
		if s != nil {
			inUse[s] = true
		}
	})
	return c.strings.Rebuild(inUse)
}

// walkStrings calls fn for every string table reference in the container.
func (c *Container) walkStrings(fn func(*TString)) {
	operand := func(o Operand) {
		if o.Kind == KindIdentifier || o.Kind == KindString {
			fn(o.Ref)
		}
	}
	function := func(f *Function) {
		if f == nil {
			return
		}
		fn(f.Name)
		fn(f.ReturnType)
		fn(f.Doc)
		for _, v := range f.Types() {
			fn(v.Name)
			fn(v.Type)
		}
		for _, ins := range f.Code {
			for _, a := range ins.Args {
				operand(a)
			}
		}
	}

	if d := c.Debug; d != nil {
		for _, f := range d.Functions {
			fn(f.ObjectName)
			fn(f.StateName)
			fn(f.FunctionName)
		}
		for _, pg := range d.PropertyGroups {
			fn(pg.ObjectName)
			fn(pg.Name)
			fn(pg.Doc)
			for _, s := range pg.Properties {
				fn(s)
			}
		}
		for _, so := range d.StructOrders {
			fn(so.ObjectName)
			fn(so.Name)
			for _, s := range so.Members {
				fn(s)
			}
		}
	}
	for _, f := range c.UserFlags {
		fn(f.Name)
	}
	for _, s := range c.Scripts {
		fn(s.Name)
		fn(s.Parent)
		fn(s.Doc)
		fn(s.AutoState)
		for _, st := range s.Structs {
			fn(st.Name)
			for _, m := range st.Members {
				fn(m.Name)
				fn(m.Type)
				fn(m.Doc)
				operand(m.Value)
			}
		}
		for _, v := range s.Variables {
			fn(v.Name)
			fn(v.Type)
			operand(v.Value)
		}
		for _, p := range s.Properties {
			fn(p.Name)
			fn(p.Type)
			fn(p.Doc)
			if p.IsAuto() {
				fn(p.AutoVar)
			}
			function(p.Read)
			function(p.Write)
		}
		for _, st := range s.States {
			fn(st.Name)
			for _, f := range st.Functions {
				function(f)
			}
		}
	}
}
